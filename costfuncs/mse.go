package costfuncs

import (
	"github.com/dakatk/OpenPB/tensor"
)

type mse struct{}

// MSE returns the mean squared error cost function, ½(o - t)² per output.
func MSE() *mse {
	return &mse{}
}

// L2 is a proxy for MSE
func L2() *mse {
	return MSE()
}

func (m *mse) TypeString() string {
	return "mse"
}

func (m *mse) Cost(outs, targets *tensor.Tensor) (float64, error) {
	return sum("mse-cost", outs, targets, func(o, t float64) float64 {
		d := o - t
		return 0.5 * d * d
	})
}

func (m *mse) Deriv(outs, targets *tensor.Tensor) (*tensor.Tensor, error) {
	return derivs("mse-deriv", outs, targets, func(o, t float64) float64 {
		return o - t
	})
}
