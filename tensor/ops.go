package tensor

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Add returns a + b, element-wise.
func Add(a, b *Tensor) (*Tensor, error) {
	if !a.SameShape(b) {
		return nil, mismatch("add", a.shape, b.shape)
	}

	out := New(a.shape...)
	floats.AddTo(out.data, a.data, b.data)
	return out, nil
}

// Sub returns a - b, element-wise.
func Sub(a, b *Tensor) (*Tensor, error) {
	if !a.SameShape(b) {
		return nil, mismatch("sub", a.shape, b.shape)
	}

	out := New(a.shape...)
	floats.SubTo(out.data, a.data, b.data)
	return out, nil
}

// Mul returns the Hadamard product of a and b.
func Mul(a, b *Tensor) (*Tensor, error) {
	if !a.SameShape(b) {
		return nil, mismatch("mul", a.shape, b.shape)
	}

	out := New(a.shape...)
	floats.MulTo(out.data, a.data, b.data)
	return out, nil
}

// AddInPlace sets dst = dst + alpha*src.
func AddInPlace(dst *Tensor, alpha float64, src *Tensor) error {
	if !dst.SameShape(src) {
		return mismatch("add-scaled", dst.shape, src.shape)
	}

	floats.AddScaled(dst.data, alpha, src.data)
	return nil
}

// Scale returns c*a.
func Scale(c float64, a *Tensor) *Tensor {
	out := New(a.shape...)
	floats.ScaleTo(out.data, c, a.data)
	return out
}

// Apply returns a new Tensor with f applied to every value of a.
func Apply(a *Tensor, f func(float64) float64) *Tensor {
	out := New(a.shape...)
	for i, v := range a.data {
		out.data[i] = f(v)
	}
	return out
}

// Sum returns the sum of all values.
func Sum(a *Tensor) float64 {
	return floats.Sum(a.data)
}

// IsFinite reports whether every value is neither NaN nor ±Inf.
func IsFinite(a *Tensor) bool {
	for _, v := range a.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Equal reports whether a and b have the same shape and bit-identical values.
func Equal(a, b *Tensor) bool {
	if !a.SameShape(b) {
		return false
	}
	for i := range a.data {
		if math.Float64bits(a.data[i]) != math.Float64bits(b.data[i]) {
			return false
		}
	}
	return true
}

// ArgMaxRows returns, for each row of a 2-dimensional Tensor, the column holding the largest
// value.
func ArgMaxRows(a *Tensor) ([]int, error) {
	if a.Dims() != 2 {
		return nil, mismatch("argmax-rows", a.shape, []int{-1, -1})
	}

	rows, cols := a.shape[0], a.shape[1]
	idx := make([]int, rows)
	for r := 0; r < rows; r++ {
		idx[r] = floats.MaxIdx(a.data[r*cols : (r+1)*cols])
	}
	return idx, nil
}
