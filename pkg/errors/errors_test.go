package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unsupported", Failure(ErrUnsupportedFormat, "ext %q", ".csv"), http.StatusUnsupportedMediaType},
		{"missing field", Failure(ErrMissingField, "dataset_name"), http.StatusBadRequest},
		{"invalid file", Failure(ErrInvalidFile, "empty"), http.StatusBadRequest},
		{"missing arrays", Failure(ErrMissingArrays, "x"), http.StatusUnprocessableEntity},
		{"no images", Failure(ErrNoImagesFound, "none"), http.StatusUnprocessableEntity},
		{"processing", Failure(ErrProcessingFailure, "max is zero"), http.StatusUnprocessableEntity},
		{"not found", Failure(ErrDatasetNotFound, "mnist"), http.StatusNotFound},
		{"explicit status wins", New(ErrInvalidFile, http.StatusRequestEntityTooLarge, "too big"), http.StatusRequestEntityTooLarge},
		{"wrapped", fmt.Errorf("stage: %w", Failure(ErrMissingArrays, "y")), http.StatusUnprocessableEntity},
		{"bare sentinel", ErrNoImagesFound, http.StatusUnprocessableEntity},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestKind(t *testing.T) {
	err := fmt.Errorf("loading: %w", Failure(ErrMissingArrays, "neither x_train.. nor x,y"))
	if got := Kind(err); got != "MissingArrays" {
		t.Errorf("Kind() = %q, want MissingArrays", got)
	}
	if got := Kind(errors.New("disk full")); got != "Internal" {
		t.Errorf("Kind() = %q, want Internal", got)
	}
}

func TestMessage(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Failure(ErrInvalidFile, "file %s is empty", "a.npz"))
	if got := Message(err); got != "file a.npz is empty" {
		t.Errorf("Message() = %q", got)
	}
	if got := Message(errors.New("plain")); got != "plain" {
		t.Errorf("Message() = %q", got)
	}
}
