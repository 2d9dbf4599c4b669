// Package validate checks a split before it is transformed.
package validate

import (
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset"
	apperrors "github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/errors"
)

// Split fails with MissingArrays when any of the four arrays is absent or
// has no samples, and with ProcessingFailure when feature and label counts
// disagree.
func Split(s *dataset.Split) error {
	if s == nil {
		return apperrors.Failure(apperrors.ErrMissingArrays, "no arrays were produced")
	}
	named := s.Named()
	for _, name := range dataset.Names() {
		if named[name].Len() == 0 {
			return apperrors.Failure(apperrors.ErrMissingArrays, "%s is missing or empty", name)
		}
	}
	if s.XTrain.Len() != s.YTrain.Len() {
		return apperrors.Failure(apperrors.ErrProcessingFailure,
			"x_train has %d samples but y_train has %d", s.XTrain.Len(), s.YTrain.Len())
	}
	if s.XTest.Len() != s.YTest.Len() {
		return apperrors.Failure(apperrors.ErrProcessingFailure,
			"x_test has %d samples but y_test has %d", s.XTest.Len(), s.YTest.Len())
	}
	return nil
}
