package transform

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/labels"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/tensor"
	apperrors "github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/errors"
)

// OneHot encodes integer class labels as one-hot rows. The width is the
// number of distinct labels across train and test together, so both outputs
// share it. Labels may be shaped (n,), (n, 1), or already one-hot (n, k), in
// which case the hot column is taken as the label. The returned mapping
// names the class of every column.
func OneHot(train, test *tensor.Array) (*tensor.Array, *tensor.Array, *labels.Mapping, error) {
	trainIDs, err := classValues(train, "y_train")
	if err != nil {
		return nil, nil, nil, err
	}
	testIDs, err := classValues(test, "y_test")
	if err != nil {
		return nil, nil, nil, err
	}
	mapping := labels.NewIntMapping(append(append([]int64{}, trainIDs...), testIDs...))
	return encode(trainIDs, mapping), encode(testIDs, mapping), mapping, nil
}

func classValues(a *tensor.Array, name string) ([]int64, error) {
	n := a.Len()
	width := a.SampleSize()
	if len(a.Shape) > 2 || width == 0 {
		return nil, apperrors.Failure(apperrors.ErrProcessingFailure,
			"%s has shape %s; expected (n,), (n, 1) or (n, k)", name, tensor.ShapeString(a.Shape))
	}
	out := make([]int64, n)
	for i := range n {
		row := a.Sample(i)
		v := row[0]
		if width > 1 {
			v = float64(argmax(row))
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return nil, apperrors.Failure(apperrors.ErrProcessingFailure,
				"%s[%d] = %v is not an integer class label", name, i, v)
		}
		out[i] = int64(v)
	}
	return out, nil
}

func argmax(row []float64) int {
	best := 0
	for i, v := range row {
		if v > row[best] {
			best = i
		}
	}
	return best
}

func encode(values []int64, m *labels.Mapping) *tensor.Array {
	out := tensor.New(len(values), m.Len())
	for i, v := range values {
		id, _ := m.IntID(v)
		out.Sample(i)[id] = 1
	}
	return out
}
