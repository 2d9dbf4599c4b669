// Package tensor holds the dense n-dimensional array every pipeline stage
// exchanges. Data is row-major; axis 0 is the sample axis.
package tensor

import (
	"fmt"
	"slices"
)

// Array is a dense row-major float64 array.
type Array struct {
	Shape []int
	Data  []float64
}

// New allocates a zero-filled array of the given shape.
func New(shape ...int) *Array {
	return &Array{Shape: slices.Clone(shape), Data: make([]float64, Size(shape))}
}

// FromData wraps data with shape, checking that the element counts agree.
func FromData(data []float64, shape ...int) (*Array, error) {
	if Size(shape) != len(data) {
		return nil, fmt.Errorf("shape %v needs %d elements, got %d", shape, Size(shape), len(data))
	}
	return &Array{Shape: slices.Clone(shape), Data: data}, nil
}

// Size is the element count implied by shape. A scalar shape has size 1.
func Size(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Len is the number of samples (the length of axis 0). Nil and scalar arrays
// have no samples.
func (a *Array) Len() int {
	if a == nil || len(a.Shape) == 0 {
		return 0
	}
	return a.Shape[0]
}

// SampleShape is the shape of one sample.
func (a *Array) SampleShape() []int {
	if len(a.Shape) == 0 {
		return nil
	}
	return a.Shape[1:]
}

// SampleSize is the number of elements in one sample.
func (a *Array) SampleSize() int {
	return Size(a.SampleShape())
}

// Sample returns a view of sample i; writes go through to a.
func (a *Array) Sample(i int) []float64 {
	n := a.SampleSize()
	return a.Data[i*n : (i+1)*n]
}

// Take gathers the samples at idx (in order) into a new array.
func (a *Array) Take(idx []int) *Array {
	shape := slices.Clone(a.Shape)
	shape[0] = len(idx)
	out := New(shape...)
	n := a.SampleSize()
	for j, i := range idx {
		copy(out.Data[j*n:(j+1)*n], a.Data[i*n:(i+1)*n])
	}
	return out
}

// Stack builds an array of len(samples) samples, each of sampleShape.
func Stack(samples [][]float64, sampleShape []int) (*Array, error) {
	n := Size(sampleShape)
	out := New(append([]int{len(samples)}, sampleShape...)...)
	for i, s := range samples {
		if len(s) != n {
			return nil, fmt.Errorf("sample %d has %d elements, want %d", i, len(s), n)
		}
		copy(out.Data[i*n:], s)
	}
	return out, nil
}

// ShapeString renders a shape the way NumPy prints it.
func ShapeString(shape []int) string {
	switch len(shape) {
	case 0:
		return "()"
	case 1:
		return fmt.Sprintf("(%d,)", shape[0])
	}
	s := "("
	for i, d := range shape {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprint(d)
	}
	return s + ")"
}
