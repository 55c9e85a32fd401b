package costfuncs

import (
	"math"

	"github.com/dakatk/OpenPB/tensor"
)

// DefaultDelta is the δ of the Huber loss registered by name
const DefaultDelta = 1.0

type huber struct {
	δ float64
}

// Huber returns the Huber loss function. δ controls the bounds of the transition between MSE and
// absolute value.
func Huber(δ float64) *huber {
	return &huber{δ: δ}
}

func (h *huber) TypeString() string {
	return "huber"
}

func (h *huber) Cost(outs, targets *tensor.Tensor) (float64, error) {
	return sum("huber-cost", outs, targets, func(o, t float64) float64 {
		d := math.Abs(o - t)
		if d <= h.δ {
			return 0.5 * d * d
		}
		return h.δ*d - 0.5*h.δ*h.δ
	})
}

func (h *huber) Deriv(outs, targets *tensor.Tensor) (*tensor.Tensor, error) {
	return derivs("huber-deriv", outs, targets, func(o, t float64) float64 {
		d := o - t
		if !(d < -h.δ || d > h.δ) { // -δ ≤ d ≤ δ
			return d
		}
		return h.δ * math.Copysign(1, d)
	})
}
