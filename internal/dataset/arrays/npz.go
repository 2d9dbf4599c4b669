// Package arrays loads packed-array uploads (NumPy .npz containers) and
// writes the persisted .npy artefacts.
package arrays

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"path"
	"strings"

	"github.com/sbinet/npyio/npy"

	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/tensor"
	apperrors "github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/errors"
)

// npyHeaderSlack covers the magic, version and header dict that precede the
// data of a member.
const npyHeaderSlack = 1 << 17

var errOverBudget = errors.New("over budget")

// LoadNPZ decodes every .npy member of the container in r into a float64
// array keyed by the member name without its extension. The data of all
// members together may not exceed maxBytes; zero or less means no limit.
func LoadNPZ(ctx context.Context, r io.ReaderAt, size, maxBytes int64) (map[string]*tensor.Array, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, apperrors.Failure(apperrors.ErrInvalidFile, "not a readable .npz container: %v", err)
	}
	limited := maxBytes > 0
	remaining := maxBytes
	out := make(map[string]*tensor.Array, len(zr.File))
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, ".npy") {
			continue
		}
		key := strings.TrimSuffix(path.Base(f.Name), ".npy")
		arr, used, err := readMember(f, remaining, limited)
		if errors.Is(err, errOverBudget) {
			return nil, apperrors.Failure(apperrors.ErrInvalidFile,
				".npz arrays expand beyond %d bytes", maxBytes)
		}
		if err != nil {
			return nil, apperrors.Failure(apperrors.ErrInvalidFile, "array %q: %v", key, err)
		}
		remaining -= used
		out[key] = arr
	}
	if len(out) == 0 {
		return nil, apperrors.Failure(apperrors.ErrMissingArrays, ".npz container holds no arrays")
	}
	return out, nil
}

// readMember decodes one member and returns the number of data bytes its
// header declares. Neither the zip sizes nor the .npy shape are trusted:
// the member is read in full first, so allocation follows the bytes that
// actually arrive.
func readMember(f *zip.File, remaining int64, limited bool) (*tensor.Array, int64, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, 0, err
	}
	defer rc.Close()

	var src io.Reader = rc
	if limited {
		src = io.LimitReader(rc, remaining+npyHeaderSlack+1)
	}
	body, err := io.ReadAll(src)
	if err != nil {
		return nil, 0, fmt.Errorf("reading member: %w", err)
	}
	if limited && int64(len(body)) > remaining+npyHeaderSlack {
		return nil, 0, errOverBudget
	}

	nr, err := npy.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("reading header: %w", err)
	}
	descr := nr.Header.Descr
	shape := descr.Shape
	itemSize, ok := itemSizes[dtypeCode(descr.Type)]
	if !ok {
		return nil, 0, fmt.Errorf("unsupported dtype %q", descr.Type)
	}
	claimed, err := dataBytes(shape, itemSize)
	if err != nil {
		return nil, 0, err
	}
	if limited && claimed > remaining {
		return nil, 0, errOverBudget
	}
	if claimed > int64(len(body)) {
		return nil, 0, fmt.Errorf("shape %v needs %d bytes, member holds %d", shape, claimed, len(body))
	}

	data, err := readAs(nr, dtypeCode(descr.Type), tensor.Size(shape))
	if err != nil {
		return nil, 0, err
	}
	if descr.Fortran && len(shape) > 1 {
		data = fortranToC(data, shape)
	}
	arr, err := tensor.FromData(data, shape...)
	return arr, claimed, err
}

// dataBytes is the size of the data a header with shape and itemSize
// declares.
func dataBytes(shape []int, itemSize int) (int64, error) {
	total := int64(itemSize)
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("negative dimension in shape %v", shape)
		}
		if d > 0 && total > math.MaxInt64/int64(d) {
			return 0, fmt.Errorf("shape %v overflows", shape)
		}
		total *= int64(d)
	}
	return total, nil
}

// dtypeCode strips the byte-order character from a descr such as "<f4".
func dtypeCode(descr string) string {
	if len(descr) == 3 && strings.ContainsRune("<>|=", rune(descr[0])) {
		return descr[1:]
	}
	return descr
}

var itemSizes = map[string]int{
	"b1": 1, "i1": 1, "u1": 1,
	"i2": 2, "u2": 2,
	"i4": 4, "u4": 4, "f4": 4,
	"i8": 8, "u8": 8, "f8": 8,
}

func readAs(r *npy.Reader, code string, n int) ([]float64, error) {
	switch code {
	case "b1":
		return read[bool](r, n, func(v bool) float64 {
			if v {
				return 1
			}
			return 0
		})
	case "i1":
		return read(r, n, func(v int8) float64 { return float64(v) })
	case "u1":
		return read(r, n, func(v uint8) float64 { return float64(v) })
	case "i2":
		return read(r, n, func(v int16) float64 { return float64(v) })
	case "u2":
		return read(r, n, func(v uint16) float64 { return float64(v) })
	case "i4":
		return read(r, n, func(v int32) float64 { return float64(v) })
	case "u4":
		return read(r, n, func(v uint32) float64 { return float64(v) })
	case "i8":
		return read(r, n, func(v int64) float64 { return float64(v) })
	case "u8":
		return read(r, n, func(v uint64) float64 { return float64(v) })
	case "f4":
		return read(r, n, func(v float32) float64 { return float64(v) })
	case "f8":
		return read(r, n, func(v float64) float64 { return v })
	}
	return nil, fmt.Errorf("unsupported dtype %q", code)
}

func read[T any](r *npy.Reader, n int, conv func(T) float64) ([]float64, error) {
	raw := make([]T, n)
	if err := r.Read(&raw); err != nil {
		return nil, fmt.Errorf("reading data: %w", err)
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = conv(v)
	}
	return out, nil
}

// fortranToC reorders column-major data into row-major order.
func fortranToC(data []float64, shape []int) []float64 {
	out := make([]float64, len(data))
	idx := make([]int, len(shape))
	for c := range out {
		f, stride := 0, 1
		for axis, i := range idx {
			f += i * stride
			stride *= shape[axis]
		}
		out[c] = data[f]
		for axis := len(idx) - 1; axis >= 0; axis-- {
			idx[axis]++
			if idx[axis] < shape[axis] {
				break
			}
			idx[axis] = 0
		}
	}
	return out
}
