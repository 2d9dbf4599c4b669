package transform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/tensor"
	apperrors "github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/errors"
)

// Normalization policies.
const (
	PolicyMax   = "max"
	PolicyFixed = "fixed"
)

// Policy selects how feature values are scaled into [0, 1].
type Policy struct {
	// Mode is PolicyMax or PolicyFixed.
	Mode string
	// Scale is the divisor used by PolicyFixed.
	Scale float64
}

// Normalize scales train and test in place. PolicyMax divides by the maximum
// observed over both arrays, so that maximum becomes exactly 1. PolicyFixed
// divides by Scale and clips into [0, 1].
func Normalize(train, test *tensor.Array, p Policy) error {
	for _, a := range []*tensor.Array{train, test} {
		if len(a.Data) == 0 {
			return apperrors.Failure(apperrors.ErrProcessingFailure, "cannot normalize an empty array")
		}
		if err := checkFinite(a.Data); err != nil {
			return err
		}
	}

	switch p.Mode {
	case PolicyMax, "":
		hi := math.Max(floats.Max(train.Data), floats.Max(test.Data))
		lo := math.Min(floats.Min(train.Data), floats.Min(test.Data))
		if hi <= 0 {
			return apperrors.Failure(apperrors.ErrProcessingFailure,
				"maximum feature value is %v; cannot normalize degenerate input", hi)
		}
		if lo < 0 {
			return apperrors.Failure(apperrors.ErrProcessingFailure,
				"feature values must be non-negative, found %v", lo)
		}
		divide(train.Data, hi)
		divide(test.Data, hi)
	case PolicyFixed:
		if p.Scale <= 0 {
			return apperrors.Failure(apperrors.ErrProcessingFailure, "fixed scale must be positive, got %v", p.Scale)
		}
		for _, a := range []*tensor.Array{train, test} {
			divide(a.Data, p.Scale)
			for i, v := range a.Data {
				a.Data[i] = math.Max(0, math.Min(1, v))
			}
		}
	default:
		return fmt.Errorf("unknown normalization policy %q", p.Mode)
	}
	return nil
}

// divide uses true division rather than multiplying by the reciprocal so
// that v/v is exactly 1.
func divide(data []float64, by float64) {
	for i := range data {
		data[i] /= by
	}
}

func checkFinite(data []float64) error {
	if floats.HasNaN(data) {
		return apperrors.Failure(apperrors.ErrProcessingFailure, "feature values contain NaN")
	}
	if math.IsInf(floats.Max(data), 1) || math.IsInf(floats.Min(data), -1) {
		return apperrors.Failure(apperrors.ErrProcessingFailure, "feature values contain Inf")
	}
	return nil
}
