package tensor

import "fmt"

// ShapeMismatchError is returned by any operation whose operands have incompatible shapes. A and
// B are copies of the two offending shapes; for single-operand operations, B is the shape that was
// expected.
type ShapeMismatchError struct {
	Op   string
	A, B []int
}

func (err *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch in %s: %v vs %v", err.Op, err.A, err.B)
}

func mismatch(op string, a, b []int) *ShapeMismatchError {
	return &ShapeMismatchError{Op: op, A: append([]int(nil), a...), B: append([]int(nil), b...)}
}
