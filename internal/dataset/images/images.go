// Package images decodes image files straight into samples of the target
// shape.
package images

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/transform"
)

// Decoder turns image files into samples of Target. Images declaring more
// than MaxPixels pixels are refused before any pixel data is read; zero or
// less means no limit.
type Decoder struct {
	Target    transform.Shape
	MaxPixels int64
}

// DecodeFile opens path and decodes it with Decode.
func (d Decoder) DecodeFile(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return d.Decode(f)
}

// Decode reads one image, resamples it to Target.H x Target.W with
// Catmull-Rom and returns H*W*C values in [0, 255], row-major with
// interleaved channels. One channel is ITU-R 601 luma; three are RGB.
func (d Decoder) Decode(r io.ReadSeeker) ([]float64, error) {
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return nil, fmt.Errorf("decoding image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%s image has no pixels", format)
	}
	if d.MaxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > d.MaxPixels {
		return nil, fmt.Errorf("%s image is %dx%d, over the %d pixel limit", format, cfg.Width, cfg.Height, d.MaxPixels)
	}
	if _, err := r.Seek(start, io.SeekStart); err != nil {
		return nil, err
	}

	src, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	b := src.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%s image has no pixels", format)
	}

	target := d.Target
	dst := image.NewRGBA(image.Rect(0, 0, target.W, target.H))
	if b.Dx() == target.W && b.Dy() == target.H {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	}

	out := make([]float64, target.H*target.W*target.C)
	for p := range target.H * target.W {
		px := dst.Pix[p*4 : p*4+3]
		r, g, bl := float64(px[0]), float64(px[1]), float64(px[2])
		switch target.C {
		case 1:
			out[p] = 0.299*r + 0.587*g + 0.114*bl
		case 3:
			out[p*3], out[p*3+1], out[p*3+2] = r, g, bl
		default:
			return nil, fmt.Errorf("unsupported channel count %d", target.C)
		}
	}
	return out, nil
}
