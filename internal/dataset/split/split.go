// Package split partitions unsplit samples into train and test sets.
package split

import (
	"math"
	"math/rand/v2"

	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/tensor"
	apperrors "github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/errors"
)

// NewRand returns the generator used for one split. A zero seed draws a
// fresh random seed.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

// TestCount is ceil(n*ratio). The tiny epsilon keeps products such as
// 0.7*10 from rounding up.
func TestCount(n int, ratio float64) int {
	return int(math.Ceil(float64(n)*ratio - 1e-9))
}

// TrainTest shuffles the sample indices once and applies the same
// permutation to x and y, so pairs stay aligned.
func TrainTest(x, y *tensor.Array, ratio float64, rng *rand.Rand) (*dataset.Split, error) {
	if ratio <= 0 || ratio >= 1 {
		return nil, apperrors.Failure(apperrors.ErrProcessingFailure, "split ratio must be in (0,1), got %v", ratio)
	}
	n := x.Len()
	if n != y.Len() {
		return nil, apperrors.Failure(apperrors.ErrProcessingFailure,
			"x has %d samples but y has %d", n, y.Len())
	}
	perm := rng.Perm(n)
	nTest := TestCount(n, ratio)
	testIdx, trainIdx := perm[:nTest], perm[nTest:]

	return &dataset.Split{
		XTrain: x.Take(trainIdx),
		XTest:  x.Take(testIdx),
		YTrain: y.Take(trainIdx),
		YTest:  y.Take(testIdx),
	}, nil
}
