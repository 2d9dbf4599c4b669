// Package archive unpacks image-archive uploads into request-scoped scratch
// directories and enumerates the images inside them.
package archive

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Scratch is a directory owned by exactly one pipeline run.
type Scratch struct {
	dir string
}

// Acquire creates a uniquely named directory under root. Callers must defer
// Release.
func Acquire(root string) (*Scratch, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating scratch root %s: %w", root, err)
	}
	dir := filepath.Join(root, "upload-"+uuid.NewString())
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating scratch area: %w", err)
	}
	return &Scratch{dir: dir}, nil
}

// Dir is the scratch directory path.
func (s *Scratch) Dir() string {
	return s.dir
}

// Release removes the scratch directory and everything in it. It is safe to
// call more than once.
func (s *Scratch) Release() error {
	if err := os.RemoveAll(s.dir); err != nil {
		slog.Default().With("component", "scratch").Error("failed to remove scratch area",
			"dir", s.dir,
			"error", err,
		)
		return err
	}
	return nil
}
