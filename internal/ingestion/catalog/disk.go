package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/sbinet/npyio/npy"

	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/persist"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/errors"
)

// Disk reads dataset summaries straight from the persisted layout under a
// data root. Only the .npy headers are read.
type Disk struct {
	Root string
}

// Get summarises the dataset directory named id.
func (d Disk) Get(ctx context.Context, id string) (*ingestion.DatasetRecord, error) {
	if id == "" || id != filepath.Base(id) || id == "." || id == ".." {
		return nil, apperrors.Failure(apperrors.ErrDatasetNotFound, "dataset %q not found", id)
	}
	dir := filepath.Join(d.Root, id)
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		return nil, apperrors.Failure(apperrors.ErrDatasetNotFound, "dataset %q not found", id)
	}
	if err != nil {
		return nil, err
	}

	rec := &ingestion.DatasetRecord{
		ID:        id,
		Format:    "unknown",
		Shapes:    make(map[string][]int, 4),
		Path:      dir,
		CreatedAt: info.ModTime().UTC(),
		UpdatedAt: info.ModTime().UTC(),
	}
	for _, name := range dataset.Names() {
		shape, err := npyShape(filepath.Join(dir, name+".npy"))
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.Failure(apperrors.ErrDatasetNotFound, "dataset %q is incomplete: %s is missing", id, name)
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s of %s: %w", name, id, err)
		}
		rec.Shapes[name] = shape
	}
	if classes, err := persist.ReadClasses(dir); err == nil {
		rec.Classes = classes
	}
	rec.NumClasses = len(rec.Classes)
	if s := rec.Shapes[dataset.XTrain]; len(s) > 0 {
		rec.TrainSamples = s[0]
	}
	if s := rec.Shapes[dataset.XTest]; len(s) > 0 {
		rec.TestSamples = s[0]
	}
	return rec, nil
}

// List summarises every complete dataset directory, ordered by id.
func (d Disk) List(ctx context.Context, limit, offset int) ([]*ingestion.DatasetRecord, error) {
	entries, err := os.ReadDir(d.Root)
	if errors.Is(err, fs.ErrNotExist) {
		return []*ingestion.DatasetRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing data root: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	slices.Sort(ids)

	records := make([]*ingestion.DatasetRecord, 0)
	skipped := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := d.Get(ctx, id)
		if errors.Is(err, apperrors.ErrDatasetNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if skipped < offset {
			skipped++
			continue
		}
		records = append(records, rec)
		if len(records) == limit {
			break
		}
	}
	return records, nil
}

func npyShape(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r, err := npy.NewReader(f)
	if err != nil {
		return nil, err
	}
	return r.Header.Descr.Shape, nil
}
