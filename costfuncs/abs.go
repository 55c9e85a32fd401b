package costfuncs

import (
	"math"

	"github.com/dakatk/OpenPB/tensor"
)

type abs struct{}

// Abs returns the absolute value cost function, |o - t| per output.
func Abs() *abs {
	return &abs{}
}

// L1 is a proxy for Abs
func L1() *abs {
	return Abs()
}

func (a *abs) TypeString() string {
	return "abs"
}

func (a *abs) Cost(outs, targets *tensor.Tensor) (float64, error) {
	return sum("abs-cost", outs, targets, func(o, t float64) float64 {
		return math.Abs(o - t)
	})
}

// Deriv uses a subgradient of zero where the output equals the target
func (a *abs) Deriv(outs, targets *tensor.Tensor) (*tensor.Tensor, error) {
	return derivs("abs-deriv", outs, targets, func(o, t float64) float64 {
		if o == t {
			return 0
		}
		return math.Copysign(1, o-t)
	})
}
