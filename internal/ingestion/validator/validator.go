// Package validator checks upload requests before the pipeline runs. It
// enforces the presence of the file and dataset identifier, and that the
// identifier is safe to use as a directory name.
package validator

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/errors"
)

const maxDatasetIDLength = 128

var datasetIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// Upload is the request as seen by the validator.
type Upload struct {
	DatasetID string
	Filename  string
	HasFile   bool
	Size      int64
}

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, field := range keys {
		parts[i] = fmt.Sprintf("%s: %s", field, e.Fields[field])
	}
	return strings.Join(parts, "; ")
}

// ValidateUpload returns MissingField when the file or dataset identifier is
// absent and InvalidFile when either is present but unusable. The message
// names each failing field.
func ValidateUpload(u Upload) error {
	missing := make(map[string]string)
	invalid := make(map[string]string)

	if !u.HasFile {
		missing["dataset_file"] = "file is required"
	} else {
		switch {
		case strings.TrimSpace(u.Filename) == "":
			invalid["dataset_file"] = "file has no name"
		case u.Size <= 0:
			invalid["dataset_file"] = "file is empty"
		}
	}

	id := u.DatasetID
	switch {
	case strings.TrimSpace(id) == "":
		missing["dataset_name"] = "dataset name is required"
	case len(id) > maxDatasetIDLength:
		invalid["dataset_name"] = fmt.Sprintf("dataset name must be at most %d characters", maxDatasetIDLength)
	case !datasetIDPattern.MatchString(id):
		invalid["dataset_name"] = "dataset name may contain only letters, digits, '.', '_' and '-' and must start with a letter or digit"
	}

	if len(missing) > 0 {
		verr := &ValidationError{Fields: missing}
		return apperrors.Failure(apperrors.ErrMissingField, "%s", verr.Error())
	}
	if len(invalid) > 0 {
		verr := &ValidationError{Fields: invalid}
		return apperrors.Failure(apperrors.ErrInvalidFile, "%s", verr.Error())
	}
	return nil
}
