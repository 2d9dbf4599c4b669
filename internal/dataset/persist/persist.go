// Package persist writes a finished split under the data root in the
// layout the training service reads.
package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/arrays"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/tensor"
)

// ClassesFile holds the class token of every one-hot column, in order.
const ClassesFile = "classes.json"

// Persister writes artefacts to <root>/<dataset_id>/.
type Persister struct {
	root   string
	locks  sync.Map
	logger *slog.Logger
}

// New creates a Persister rooted at root.
func New(root string) *Persister {
	return &Persister{
		root:   root,
		logger: slog.Default().With("component", "persister"),
	}
}

// Dir is the directory a dataset is written to.
func (p *Persister) Dir(datasetID string) string {
	return filepath.Join(p.root, datasetID)
}

// Write stores the four arrays as .npy files plus the class list. Each file
// is written under a temporary name and renamed into place, and writers of
// the same dataset id within this process take turns.
func (p *Persister) Write(ctx context.Context, datasetID string, s *dataset.Split, classes []string) (string, error) {
	if datasetID == "" || datasetID != filepath.Base(datasetID) || datasetID == "." || datasetID == ".." {
		return "", fmt.Errorf("dataset id %q is not a single path component", datasetID)
	}
	mu := p.lock(datasetID)
	mu.Lock()
	defer mu.Unlock()

	dir := p.Dir(datasetID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating dataset directory: %w", err)
	}

	named := s.Named()
	for _, name := range dataset.Names() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := writeAtomic(dir, name+".npy", func(f *os.File) error {
			return arrays.WriteNPY(f, named[name])
		}); err != nil {
			return "", fmt.Errorf("writing %s: %w", name, err)
		}
		p.logger.Debug("array written",
			"dataset_id", datasetID,
			"array", name,
			"shape", tensor.ShapeString(named[name].Shape),
		)
	}

	if err := writeAtomic(dir, ClassesFile, func(f *os.File) error {
		return json.NewEncoder(f).Encode(classes)
	}); err != nil {
		return "", fmt.Errorf("writing %s: %w", ClassesFile, err)
	}
	return dir, nil
}

func (p *Persister) lock(datasetID string) *sync.Mutex {
	mu, _ := p.locks.LoadOrStore(datasetID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func writeAtomic(dir, name string, fill func(*os.File) error) error {
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := fill(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, name))
}

// ReadClasses loads the class list written next to a dataset.
func ReadClasses(dir string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(dir, ClassesFile))
	if err != nil {
		return nil, err
	}
	var classes []string
	if err := json.Unmarshal(data, &classes); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ClassesFile, err)
	}
	return classes, nil
}
