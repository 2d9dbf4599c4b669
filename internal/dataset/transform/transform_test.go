package transform

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/tensor"
	apperrors "github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/errors"
)

func ramp(shape ...int) *tensor.Array {
	a := tensor.New(shape...)
	for i := range a.Data {
		a.Data[i] = float64(i % 256)
	}
	return a
}

func TestReshapeShapes(t *testing.T) {
	target := Shape{H: 8, W: 8, C: 1}
	tests := []struct {
		name string
		in   *tensor.Array
	}{
		{"gray same size", ramp(3, 8, 8)},
		{"gray larger", ramp(3, 28, 28)},
		{"gray with channel axis", ramp(3, 4, 4, 1)},
		{"rgb", ramp(3, 16, 12, 3)},
		{"rgba", ramp(3, 5, 5, 4)},
		{"flat", ramp(3, 64)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Reshape(tt.in, target)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(out.Shape, []int{3, 8, 8, 1}) {
				t.Fatalf("shape = %v", out.Shape)
			}
			if len(out.Data) != 3*64 {
				t.Fatalf("len(data) = %d", len(out.Data))
			}
		})
	}
}

func TestReshapeToColour(t *testing.T) {
	in := ramp(2, 4, 4)
	out, err := Reshape(in, Shape{H: 2, W: 2, C: 3})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(out.Shape, []int{2, 2, 2, 3}) {
		t.Fatalf("shape = %v", out.Shape)
	}
	px := out.Sample(0)[:3]
	if px[0] != px[1] || px[1] != px[2] {
		t.Errorf("gray should replicate across channels, got %v", px)
	}
}

func TestReshapeRejects(t *testing.T) {
	target := Shape{H: 4, W: 4, C: 1}
	for name, in := range map[string]*tensor.Array{
		"scalar samples": tensor.New(5),
		"bad flat size":  tensor.New(2, 15),
		"rank four":      tensor.New(2, 2, 2, 2, 2),
		"five channels":  tensor.New(2, 4, 4, 5),
	} {
		if _, err := Reshape(in, target); !errors.Is(err, apperrors.ErrProcessingFailure) {
			t.Errorf("%s: err = %v, want ProcessingFailure", name, err)
		}
	}
}

func TestBilinearPreservesConstantImage(t *testing.T) {
	in := tensor.New(1, 7, 5)
	for i := range in.Data {
		in.Data[i] = 3
	}
	out, err := Reshape(in, Shape{H: 11, W: 3, C: 1})
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range out.Data {
		if math.Abs(v-3) > 1e-12 {
			t.Fatalf("value %v, want 3", v)
		}
	}
}

func TestNormalizeMax(t *testing.T) {
	train, _ := tensor.FromData([]float64{0, 10, 20}, 3)
	test, _ := tensor.FromData([]float64{40, 5}, 2)
	if err := Normalize(train, test, Policy{Mode: PolicyMax}); err != nil {
		t.Fatal(err)
	}
	hi := 0.0
	for _, v := range append(train.Data, test.Data...) {
		if v < 0 || v > 1 {
			t.Fatalf("value %v out of range", v)
		}
		hi = math.Max(hi, v)
	}
	if hi != 1.0 {
		t.Errorf("max = %v, want exactly 1", hi)
	}
	if train.Data[1] != 0.25 {
		t.Errorf("train[1] = %v, want 0.25", train.Data[1])
	}
}

func TestNormalizeMaxOddValues(t *testing.T) {
	train, _ := tensor.FromData([]float64{49, 7}, 2)
	test, _ := tensor.FromData([]float64{49}, 1)
	if err := Normalize(train, test, Policy{Mode: PolicyMax}); err != nil {
		t.Fatal(err)
	}
	if train.Data[0] != 1 || test.Data[0] != 1 {
		t.Errorf("maximum should map to exactly 1, got %v %v", train.Data[0], test.Data[0])
	}
}

func TestNormalizeFixedClips(t *testing.T) {
	train, _ := tensor.FromData([]float64{0, 255, 510}, 3)
	test, _ := tensor.FromData([]float64{-5}, 1)
	if err := Normalize(train, test, Policy{Mode: PolicyFixed, Scale: 255}); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(train.Data, []float64{0, 1, 1}) || test.Data[0] != 0 {
		t.Errorf("train=%v test=%v", train.Data, test.Data)
	}
}

func TestNormalizeFailures(t *testing.T) {
	tests := []struct {
		name        string
		train, test []float64
	}{
		{"all zero", []float64{0, 0}, []float64{0}},
		{"negative", []float64{-1, 4}, []float64{2}},
		{"nan", []float64{math.NaN(), 1}, []float64{1}},
		{"inf", []float64{1}, []float64{math.Inf(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			train, _ := tensor.FromData(tt.train, len(tt.train))
			test, _ := tensor.FromData(tt.test, len(tt.test))
			err := Normalize(train, test, Policy{Mode: PolicyMax})
			if !errors.Is(err, apperrors.ErrProcessingFailure) {
				t.Fatalf("err = %v, want ProcessingFailure", err)
			}
		})
	}
}

func TestOneHotSharesWidthAcrossSplits(t *testing.T) {
	train, _ := tensor.FromData([]float64{0, 1, 1, 0}, 4)
	test, _ := tensor.FromData([]float64{2}, 1, 1)

	yTrain, yTest, m, err := OneHot(train, test)
	if err != nil {
		t.Fatal(err)
	}
	if m.Len() != 3 {
		t.Fatalf("classes = %d, want 3", m.Len())
	}
	if !reflect.DeepEqual(yTrain.Shape, []int{4, 3}) || !reflect.DeepEqual(yTest.Shape, []int{1, 3}) {
		t.Fatalf("shapes %v %v", yTrain.Shape, yTest.Shape)
	}
	for _, y := range []*tensor.Array{yTrain, yTest} {
		for i := range y.Len() {
			ones, zeros := 0, 0
			for _, v := range y.Sample(i) {
				switch v {
				case 1:
					ones++
				case 0:
					zeros++
				}
			}
			if ones != 1 || zeros != m.Len()-1 {
				t.Fatalf("row %v is not one-hot", y.Sample(i))
			}
		}
	}
	if !reflect.DeepEqual(yTest.Sample(0), []float64{0, 0, 1}) {
		t.Errorf("y_test[0] = %v", yTest.Sample(0))
	}
}

func TestOneHotRemapsSparseLabels(t *testing.T) {
	train, _ := tensor.FromData([]float64{7, 3}, 2)
	test, _ := tensor.FromData([]float64{3}, 1)
	yTrain, _, m, err := OneHot(train, test)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(m.Tokens(), []string{"3", "7"}) {
		t.Fatalf("tokens = %v", m.Tokens())
	}
	if !reflect.DeepEqual(yTrain.Sample(0), []float64{0, 1}) {
		t.Errorf("y_train[0] = %v", yTrain.Sample(0))
	}
}

func TestOneHotAcceptsEncodedInput(t *testing.T) {
	train, _ := tensor.FromData([]float64{1, 0, 0, 0, 0, 1}, 2, 3)
	test, _ := tensor.FromData([]float64{0, 1, 0}, 1, 3)
	yTrain, yTest, _, err := OneHot(train, test)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(yTrain.Data, train.Data) || !reflect.DeepEqual(yTest.Data, test.Data) {
		t.Errorf("re-encoding changed labels: %v %v", yTrain.Data, yTest.Data)
	}
}

func TestOneHotRejectsFractionalLabels(t *testing.T) {
	train, _ := tensor.FromData([]float64{0.5}, 1)
	test, _ := tensor.FromData([]float64{1}, 1)
	if _, _, _, err := OneHot(train, test); !errors.Is(err, apperrors.ErrProcessingFailure) {
		t.Fatalf("err = %v, want ProcessingFailure", err)
	}
}

func BenchmarkReshapeResize(b *testing.B) {
	src := ramp(256, 32, 32, 3)
	b.ReportAllocs()
	b.ResetTimer()
	for range b.N {
		if _, err := Reshape(src, Shape{H: 28, W: 28, C: 1}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkNormalizeMax(b *testing.B) {
	train, test := ramp(1024, 28, 28, 1), ramp(256, 28, 28, 1)
	b.ReportAllocs()
	b.ResetTimer()
	for range b.N {
		b.StopTimer()
		tr := &tensor.Array{Data: append([]float64(nil), train.Data...), Shape: train.Shape}
		te := &tensor.Array{Data: append([]float64(nil), test.Data...), Shape: test.Shape}
		b.StartTimer()
		if err := Normalize(tr, te, Policy{Mode: PolicyMax}); err != nil {
			b.Fatal(err)
		}
	}
}
