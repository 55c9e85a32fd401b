// Package tensor provides the dense float64 buffers used throughout the engine. Every operation
// checks the shapes of its operands before touching any values, and returns a
// *ShapeMismatchError if they are incompatible. Nothing is broadcast unless the operation says so.
package tensor

import (
	"fmt"

	"github.com/pkg/errors"
)

// Tensor is an n-dimensional buffer of float64 values, stored in row-major order.
type Tensor struct {
	shape   []int
	strides []int
	data    []float64
}

// New returns a zeroed Tensor with the given shape. New panics if any dimension is < 1; shapes
// that come from outside the program should be checked with CheckShape first.
func New(shape ...int) *Tensor {
	if err := CheckShape(shape); err != nil {
		panic(err.Error())
	}

	t := &Tensor{shape: append([]int(nil), shape...)}
	t.strides = strides(t.shape)
	t.data = make([]float64, volume(t.shape))
	return t
}

// FromSlice wraps data as a Tensor with the given shape. The slice is used directly, not copied.
func FromSlice(data []float64, shape ...int) (*Tensor, error) {
	if err := CheckShape(shape); err != nil {
		return nil, err
	}

	if v := volume(shape); v != len(data) {
		return nil, errors.Errorf("data has %d values but shape %v requires %d", len(data), shape, v)
	}

	t := &Tensor{shape: append([]int(nil), shape...), data: data}
	t.strides = strides(t.shape)
	return t, nil
}

// MustFromSlice is FromSlice, but panics on error. Intended for constants and tests.
func MustFromSlice(data []float64, shape ...int) *Tensor {
	t, err := FromSlice(data, shape...)
	if err != nil {
		panic(err.Error())
	}
	return t
}

// CheckShape returns an error if the shape is empty or has any dimension < 1.
func CheckShape(shape []int) error {
	if len(shape) == 0 {
		return errors.Errorf("shape has no dimensions")
	}

	for i, d := range shape {
		if d < 1 {
			return errors.Errorf("shape %v: dimension #%d is %d, must be ≥ 1", shape, i, d)
		}
	}

	return nil
}

// Shape returns a copy of the Tensor's dimensions.
func (t *Tensor) Shape() []int {
	return append([]int(nil), t.shape...)
}

// Dims returns the number of dimensions.
func (t *Tensor) Dims() int {
	return len(t.shape)
}

// Dim returns the size of dimension i.
func (t *Tensor) Dim(i int) int {
	return t.shape[i]
}

// Len returns the total number of values.
func (t *Tensor) Len() int {
	return len(t.data)
}

// Data returns the backing slice. Writes to it are writes to the Tensor.
func (t *Tensor) Data() []float64 {
	return t.data
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	c := &Tensor{
		shape:   append([]int(nil), t.shape...),
		strides: append([]int(nil), t.strides...),
		data:    make([]float64, len(t.data)),
	}
	copy(c.data, t.data)
	return c
}

// Reshape returns a Tensor sharing the same data with a new shape of equal volume.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	if err := CheckShape(shape); err != nil {
		return nil, err
	}

	if volume(shape) != len(t.data) {
		return nil, &ShapeMismatchError{Op: "reshape", A: t.Shape(), B: append([]int(nil), shape...)}
	}

	r := &Tensor{shape: append([]int(nil), shape...), data: t.data}
	r.strides = strides(r.shape)
	return r, nil
}

// Index returns the offset in Data of the given point. Index panics if the point has the wrong
// number of dimensions or is out of range.
func (t *Tensor) Index(point ...int) int {
	if len(point) != len(t.shape) {
		panic(fmt.Sprintf("point %v has %d dimensions, tensor has %d", point, len(point), len(t.shape)))
	}

	idx := 0
	for i, p := range point {
		if p < 0 || p >= t.shape[i] {
			panic(fmt.Sprintf("point %v out of range for shape %v", point, t.shape))
		}
		idx += p * t.strides[i]
	}
	return idx
}

// Point is the inverse of Index.
func (t *Tensor) Point(index int) []int {
	p := make([]int, len(t.shape))
	for i := range t.strides {
		p[i] = index / t.strides[i]
		index %= t.strides[i]
	}
	return p
}

// At returns the value at the given point.
func (t *Tensor) At(point ...int) float64 {
	return t.data[t.Index(point...)]
}

// Set sets the value at the given point.
func (t *Tensor) Set(v float64, point ...int) {
	t.data[t.Index(point...)] = v
}

// Zero sets every value to 0.
func (t *Tensor) Zero() {
	for i := range t.data {
		t.data[i] = 0
	}
}

// SameShape reports whether the two tensors have identical shapes.
func (t *Tensor) SameShape(o *Tensor) bool {
	return sameShape(t.shape, o.shape)
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor%v", t.shape)
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// strides are stored such that the last dimension is contiguous
func strides(shape []int) []int {
	s := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= shape[i]
	}
	return s
}

func volume(shape []int) int {
	v := 1
	for _, d := range shape {
		v *= d
	}
	return v
}
