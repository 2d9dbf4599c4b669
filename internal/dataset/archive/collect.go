package archive

import (
	"context"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset"
	apperrors "github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/errors"
)

// ImageExtensions is the set of file extensions treated as images.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

// CollectImages walks root and returns every image file, ordered by path
// relative to root. Hidden entries and macOS resource-fork trees are
// skipped. An empty result is NoImagesFound.
func CollectImages(ctx context.Context, root string) ([]dataset.Image, error) {
	var images []dataset.Image
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == root {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") || name == "__MACOSX" {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !slices.Contains(ImageExtensions, strings.ToLower(filepath.Ext(name))) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		images = append(images, dataset.Image{Path: path, Rel: filepath.ToSlash(rel)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, apperrors.Failure(apperrors.ErrNoImagesFound,
			"archive contains no files with extensions %s", strings.Join(ImageExtensions, " "))
	}
	slices.SortFunc(images, func(a, b dataset.Image) int { return strings.Compare(a.Rel, b.Rel) })
	return images, nil
}
