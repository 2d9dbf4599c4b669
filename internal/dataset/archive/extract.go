package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/errors"
)

// Limits bounds what one archive may unpack to.
type Limits struct {
	MaxFiles int
	MaxBytes int64
}

var errTooLarge = errors.New("archive exceeds extraction size limit")

// Extract unpacks the zip in r into dest. Entries that would land outside
// dest are rejected; symlinks and other special entries are skipped.
func Extract(ctx context.Context, r io.ReaderAt, size int64, dest string, lim Limits) error {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return apperrors.Failure(apperrors.ErrInvalidFile, "not a readable zip archive: %v", err)
	}
	if lim.MaxFiles > 0 && len(zr.File) > lim.MaxFiles {
		return apperrors.Failure(apperrors.ErrInvalidFile,
			"archive holds %d entries, limit is %d", len(zr.File), lim.MaxFiles)
	}
	dest, err = filepath.Abs(dest)
	if err != nil {
		return fmt.Errorf("resolving destination: %w", err)
	}

	remaining := lim.MaxBytes
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, err := safeJoin(dest, f.Name)
		if err != nil {
			return apperrors.Failure(apperrors.ErrInvalidFile, "%v", err)
		}
		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", f.Name, err)
			}
			continue
		case !mode.IsRegular():
			continue
		}

		written, err := extractFile(ctx, f, target, remaining, lim.MaxBytes > 0)
		if errors.Is(err, errTooLarge) {
			return apperrors.Failure(apperrors.ErrInvalidFile,
				"archive expands beyond %d bytes", lim.MaxBytes)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return apperrors.Failure(apperrors.ErrInvalidFile, "extracting %s: %v", f.Name, err)
		}
		remaining -= written
	}
	return nil
}

// safeJoin resolves an entry name under root, refusing absolute names and
// any path that climbs out of root.
func safeJoin(root, name string) (string, error) {
	if name == "" || filepath.IsAbs(name) || strings.HasPrefix(name, "/") || strings.Contains(name, `\`) {
		return "", fmt.Errorf("unsafe entry name %q", name)
	}
	full := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("entry %q escapes the archive root", name)
	}
	return full, nil
}

func extractFile(ctx context.Context, f *zip.File, target string, remaining int64, limited bool) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, err
	}
	rc, err := f.Open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	var src io.Reader = &ctxReader{ctx: ctx, r: rc}
	if limited {
		src = io.LimitReader(src, remaining+1)
	}
	n, err := io.Copy(out, src)
	if err != nil {
		return n, err
	}
	if limited && n > remaining {
		return n, errTooLarge
	}
	return n, out.Close()
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
