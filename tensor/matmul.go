package tensor

import (
	"gonum.org/v1/gonum/mat"
)

func asDense(t *Tensor) *mat.Dense {
	return mat.NewDense(t.shape[0], t.shape[1], t.data)
}

func check2D(op string, a, b *Tensor) error {
	if a.Dims() != 2 || b.Dims() != 2 {
		return mismatch(op, a.shape, b.shape)
	}
	return nil
}

// MatMul returns a·b for a [m×k] and b [k×n], producing [m×n].
func MatMul(a, b *Tensor) (*Tensor, error) {
	if err := check2D("matmul", a, b); err != nil {
		return nil, err
	} else if a.shape[1] != b.shape[0] {
		return nil, mismatch("matmul", a.shape, b.shape)
	}

	out := New(a.shape[0], b.shape[1])
	asDense(out).Mul(asDense(a), asDense(b))
	return out, nil
}

// MatMulTransB returns a·bᵀ for a [m×k] and b [n×k], producing [m×n].
func MatMulTransB(a, b *Tensor) (*Tensor, error) {
	if err := check2D("matmul-transb", a, b); err != nil {
		return nil, err
	} else if a.shape[1] != b.shape[1] {
		return nil, mismatch("matmul-transb", a.shape, b.shape)
	}

	out := New(a.shape[0], b.shape[0])
	asDense(out).Mul(asDense(a), asDense(b).T())
	return out, nil
}

// MatMulTransA returns aᵀ·b for a [k×m] and b [k×n], producing [m×n].
func MatMulTransA(a, b *Tensor) (*Tensor, error) {
	if err := check2D("matmul-transa", a, b); err != nil {
		return nil, err
	} else if a.shape[0] != b.shape[0] {
		return nil, mismatch("matmul-transa", a.shape, b.shape)
	}

	out := New(a.shape[1], b.shape[1])
	asDense(out).Mul(asDense(a).T(), asDense(b))
	return out, nil
}

// Transpose returns the transpose of a 2-dimensional Tensor.
func Transpose(a *Tensor) (*Tensor, error) {
	if a.Dims() != 2 {
		return nil, mismatch("transpose", a.shape, []int{-1, -1})
	}

	out := New(a.shape[1], a.shape[0])
	asDense(out).Copy(asDense(a).T())
	return out, nil
}

// AddRowVector returns a + v, where the vector v of length n is broadcast across every row of the
// [m×n] matrix a. This is the only broadcasting operation in the package.
func AddRowVector(a, v *Tensor) (*Tensor, error) {
	if a.Dims() != 2 || v.Dims() != 1 || a.shape[1] != v.shape[0] {
		return nil, mismatch("add-row-vector", a.shape, v.shape)
	}

	out := a.Clone()
	n := a.shape[1]
	for r := 0; r < a.shape[0]; r++ {
		row := out.data[r*n : (r+1)*n]
		for c := range row {
			row[c] += v.data[c]
		}
	}
	return out, nil
}

// SumRows returns the column sums of a [m×n] matrix as a vector of length n. It is the adjoint of
// AddRowVector.
func SumRows(a *Tensor) (*Tensor, error) {
	if a.Dims() != 2 {
		return nil, mismatch("sum-rows", a.shape, []int{-1, -1})
	}

	n := a.shape[1]
	out := New(n)
	for r := 0; r < a.shape[0]; r++ {
		for c := 0; c < n; c++ {
			out.data[c] += a.data[r*n+c]
		}
	}
	return out, nil
}
