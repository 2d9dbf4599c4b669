package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure classes reported to uploaders. The sentinel text doubles as the
// class name returned by Kind.
var (
	ErrUnsupportedFormat = errors.New("UnsupportedFormat")
	ErrMissingField      = errors.New("MissingField")
	ErrInvalidFile       = errors.New("InvalidFile")
	ErrMissingArrays     = errors.New("MissingArrays")
	ErrNoImagesFound     = errors.New("NoImagesFound")
	ErrProcessingFailure = errors.New("ProcessingFailure")
	ErrDatasetNotFound   = errors.New("DatasetNotFound")
	ErrInternal          = errors.New("Internal")
)

var classes = []error{
	ErrUnsupportedFormat,
	ErrMissingField,
	ErrInvalidFile,
	ErrMissingArrays,
	ErrNoImagesFound,
	ErrProcessingFailure,
	ErrDatasetNotFound,
}

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Failure builds an AppError whose status code is the default for the
// sentinel's failure class.
func Failure(sentinel error, format string, args ...any) *AppError {
	return Newf(sentinel, statusFor(sentinel), format, args...)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	return statusFor(err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrMissingField), errors.Is(err, ErrInvalidFile):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrMissingArrays), errors.Is(err, ErrNoImagesFound), errors.Is(err, ErrProcessingFailure):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrDatasetNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Kind returns the failure class name of err, or "Internal" when err does not
// belong to a known class.
func Kind(err error) string {
	for _, c := range classes {
		if errors.Is(err, c) {
			return c.Error()
		}
	}
	return ErrInternal.Error()
}

// Message returns the human-readable cause carried by an AppError, falling
// back to the full error text.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
