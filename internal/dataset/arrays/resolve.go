package arrays

import (
	"slices"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/tensor"
	apperrors "github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/errors"
)

// Resolve classifies a decoded container. The four split keys win over x
// and y when both sets are present.
func Resolve(named map[string]*tensor.Array) (*dataset.Loaded, error) {
	if hasAll(named, dataset.XTrain, dataset.XTest, dataset.YTrain, dataset.YTest) {
		return &dataset.Loaded{Kind: dataset.PreSplit, Arrays: pick(named, dataset.Names()...)}, nil
	}
	if hasAll(named, dataset.X, dataset.Y) {
		return &dataset.Loaded{Kind: dataset.Unsplit, Arrays: pick(named, dataset.X, dataset.Y)}, nil
	}
	keys := make([]string, 0, len(named))
	for k := range named {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return nil, apperrors.Failure(apperrors.ErrMissingArrays,
		"expected arrays x_train, x_test, y_train, y_test or x, y; found [%s]", strings.Join(keys, ", "))
}

func hasAll(named map[string]*tensor.Array, keys ...string) bool {
	for _, k := range keys {
		if _, ok := named[k]; !ok {
			return false
		}
	}
	return true
}

func pick(named map[string]*tensor.Array, keys ...string) map[string]*tensor.Array {
	out := make(map[string]*tensor.Array, len(keys))
	for _, k := range keys {
		out[k] = named[k]
	}
	return out
}
