package split

import (
	"errors"
	"math"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/tensor"
	apperrors "github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/errors"
)

// pairs builds x with sample i filled with i and y with label i, so any
// misalignment after shuffling is visible.
func pairs(n int) (*tensor.Array, *tensor.Array) {
	x := tensor.New(n, 2)
	y := tensor.New(n)
	for i := range n {
		x.Sample(i)[0] = float64(i)
		x.Sample(i)[1] = float64(i)
		y.Data[i] = float64(i)
	}
	return x, y
}

func TestTrainTestRatio(t *testing.T) {
	for _, tc := range []struct {
		n     int
		ratio float64
	}{
		{100, 0.2},
		{1000, 0.25},
		{37, 0.3},
		{10, 0.7},
	} {
		x, y := pairs(tc.n)
		s, err := TrainTest(x, y, tc.ratio, NewRand(42))
		if err != nil {
			t.Fatal(err)
		}
		total := s.XTrain.Len() + s.XTest.Len()
		if total != tc.n {
			t.Fatalf("n=%d: lost samples, got %d", tc.n, total)
		}
		frac := float64(s.XTest.Len()) / float64(tc.n)
		if math.Abs(frac-tc.ratio) > 1.0/float64(tc.n)+1e-9 {
			t.Errorf("n=%d ratio=%v: test fraction %v", tc.n, tc.ratio, frac)
		}
	}
}

func TestTrainTestKeepsPairsAligned(t *testing.T) {
	x, y := pairs(50)
	s, err := TrainTest(x, y, 0.2, NewRand(7))
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[float64]bool)
	check := func(xs, ys *tensor.Array) {
		for i := range xs.Len() {
			if xs.Sample(i)[0] != ys.Data[i] {
				t.Fatalf("sample %v paired with label %v", xs.Sample(i)[0], ys.Data[i])
			}
			seen[ys.Data[i]] = true
		}
	}
	check(s.XTrain, s.YTrain)
	check(s.XTest, s.YTest)
	if len(seen) != 50 {
		t.Errorf("expected every sample exactly once, saw %d", len(seen))
	}
}

func TestSeededSplitIsReproducible(t *testing.T) {
	x, y := pairs(30)
	a, _ := TrainTest(x, y, 0.3, NewRand(99))
	b, _ := TrainTest(x, y, 0.3, NewRand(99))
	for i := range a.YTest.Data {
		if a.YTest.Data[i] != b.YTest.Data[i] {
			t.Fatal("same seed produced different splits")
		}
	}
}

func TestTrainTestRejectsMismatchedCounts(t *testing.T) {
	x, _ := pairs(10)
	_, y := pairs(9)
	_, err := TrainTest(x, y, 0.2, NewRand(1))
	if !errors.Is(err, apperrors.ErrProcessingFailure) {
		t.Fatalf("err = %v, want ProcessingFailure", err)
	}
}
