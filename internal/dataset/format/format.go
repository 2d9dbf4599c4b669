// Package format routes an upload to its loader by file extension.
package format

import (
	"path/filepath"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/errors"
)

// Format identifies how an upload is decoded.
type Format int

const (
	Unknown Format = iota
	// PackedArray is a NumPy .npz container of named arrays.
	PackedArray
	// ImageArchive is a zip of image files labeled by directory or filename.
	ImageArchive
)

func (f Format) String() string {
	switch f {
	case PackedArray:
		return "packed-array"
	case ImageArchive:
		return "image-archive"
	default:
		return "unknown"
	}
}

var byExtension = map[string]Format{
	".npz": PackedArray,
	".zip": ImageArchive,
}

// Detect selects the format for filename. Matching is case-insensitive on
// the final extension.
func Detect(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if f, ok := byExtension[ext]; ok {
		return f, nil
	}
	if ext == "" {
		return Unknown, apperrors.Failure(apperrors.ErrUnsupportedFormat, "file %q has no extension; expected .npz or .zip", filename)
	}
	return Unknown, apperrors.Failure(apperrors.ErrUnsupportedFormat, "extension %q is not supported; expected .npz or .zip", ext)
}
