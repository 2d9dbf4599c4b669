// Package transform brings split arrays to the output contract: fixed
// sample shape, values in [0, 1] and one-hot labels.
package transform

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/tensor"
	apperrors "github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/errors"
)

// Shape is the (height, width, channels) target of every sample.
type Shape struct {
	H, W, C int
}

// Dims returns the shape as a slice.
func (s Shape) Dims() []int { return []int{s.H, s.W, s.C} }

// Reshape converts every sample of a to target. Samples may be (H0, W0),
// (H0, W0, C0) with C0 in 1..4, or a flat vector of H*W*C (or H*W) values.
// The result may share storage with a when no conversion is needed.
func Reshape(a *tensor.Array, target Shape) (*tensor.Array, error) {
	h0, w0, c0, err := sourceGeometry(a.SampleShape(), target)
	if err != nil {
		return nil, err
	}
	n := a.Len()
	if h0 == target.H && w0 == target.W && c0 == target.C {
		return &tensor.Array{Shape: append([]int{n}, target.Dims()...), Data: a.Data}, nil
	}

	out := tensor.New(append([]int{n}, target.Dims()...)...)
	converted := make([]float64, h0*w0*target.C)
	for i := range n {
		convertChannels(a.Sample(i), converted, h0*w0, c0, target.C)
		resizeBilinear(converted, h0, w0, out.Sample(i), target.H, target.W, target.C)
	}
	return out, nil
}

func sourceGeometry(sample []int, target Shape) (h, w, c int, err error) {
	switch len(sample) {
	case 1:
		switch sample[0] {
		case target.H * target.W * target.C:
			return target.H, target.W, target.C, nil
		case target.H * target.W:
			return target.H, target.W, 1, nil
		}
		return 0, 0, 0, apperrors.Failure(apperrors.ErrProcessingFailure,
			"flat samples of %d values cannot be reshaped to %v", sample[0], target.Dims())
	case 2:
		h, w, c = sample[0], sample[1], 1
	case 3:
		h, w, c = sample[0], sample[1], sample[2]
		if c < 1 || c > 4 {
			return 0, 0, 0, apperrors.Failure(apperrors.ErrProcessingFailure,
				"samples with %d channels are not supported", c)
		}
	default:
		return 0, 0, 0, apperrors.Failure(apperrors.ErrProcessingFailure,
			"samples of shape %s cannot be reshaped to %v", tensor.ShapeString(sample), target.Dims())
	}
	if h == 0 || w == 0 {
		return 0, 0, 0, apperrors.Failure(apperrors.ErrProcessingFailure,
			"samples of shape %s are empty", tensor.ShapeString(sample))
	}
	return h, w, c, nil
}

// convertChannels writes pixels*dstC values to dst from pixels*srcC values
// in src. Colour to gray uses ITU-R 601 luma; gray to colour replicates;
// alpha is dropped.
func convertChannels(src, dst []float64, pixels, srcC, dstC int) {
	if srcC == dstC {
		copy(dst, src)
		return
	}
	for p := range pixels {
		px := src[p*srcC : (p+1)*srcC]
		var gray, r, g, b float64
		switch srcC {
		case 1, 2:
			gray = px[0]
			r, g, b = gray, gray, gray
		default:
			r, g, b = px[0], px[1], px[2]
			gray = 0.299*r + 0.587*g + 0.114*b
		}
		if dstC == 1 {
			dst[p] = gray
		} else {
			dst[p*3], dst[p*3+1], dst[p*3+2] = r, g, b
		}
	}
}

// resizeBilinear samples src (h0 x w0 x c) into dst (h x w x c) with
// half-pixel centres and edge clamping.
func resizeBilinear(src []float64, h0, w0 int, dst []float64, h, w, c int) {
	if h0 == h && w0 == w {
		copy(dst, src)
		return
	}
	sy := float64(h0) / float64(h)
	sx := float64(w0) / float64(w)
	for y := range h {
		fy := clamp((float64(y)+0.5)*sy-0.5, 0, float64(h0-1))
		y0 := int(math.Floor(fy))
		y1 := min(y0+1, h0-1)
		dy := fy - float64(y0)
		for x := range w {
			fx := clamp((float64(x)+0.5)*sx-0.5, 0, float64(w0-1))
			x0 := int(math.Floor(fx))
			x1 := min(x0+1, w0-1)
			dx := fx - float64(x0)
			for ch := range c {
				p00 := src[(y0*w0+x0)*c+ch]
				p01 := src[(y0*w0+x1)*c+ch]
				p10 := src[(y1*w0+x0)*c+ch]
				p11 := src[(y1*w0+x1)*c+ch]
				top := p00 + (p01-p00)*dx
				bottom := p10 + (p11-p10)*dx
				dst[(y*w+x)*c+ch] = top + (bottom-top)*dy
			}
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
