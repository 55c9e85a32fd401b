package costfuncs

import (
	"math"

	"github.com/dakatk/OpenPB/tensor"
)

// outputs are clamped to [epsilon, 1-epsilon] before taking logarithms
const epsilon = 1e-12

func clamp(o float64) float64 {
	return math.Max(epsilon, math.Min(1-epsilon, o))
}

type crossEntropy struct{}

// CrossEntropy returns the categorical cross-entropy cost function, -t·log(o) per output. It
// expects outputs that sum to one, as from a softmax layer.
func CrossEntropy() *crossEntropy {
	return &crossEntropy{}
}

// NegativeLog is a proxy for CrossEntropy
func NegativeLog() *crossEntropy {
	return CrossEntropy()
}

func (c *crossEntropy) TypeString() string {
	return "cross-entropy"
}

func (c *crossEntropy) Cost(outs, targets *tensor.Tensor) (float64, error) {
	return sum("cross-entropy-cost", outs, targets, func(o, t float64) float64 {
		return -t * math.Log(clamp(o))
	})
}

func (c *crossEntropy) Deriv(outs, targets *tensor.Tensor) (*tensor.Tensor, error) {
	return derivs("cross-entropy-deriv", outs, targets, func(o, t float64) float64 {
		return -t / clamp(o)
	})
}

type binaryCrossEntropy struct{}

// BinaryCrossEntropy returns the cost function -(t·log(o) + (1-t)·log(1-o)) per output, for
// independent outputs in (0, 1), as from a sigmoid layer.
func BinaryCrossEntropy() *binaryCrossEntropy {
	return &binaryCrossEntropy{}
}

func (b *binaryCrossEntropy) TypeString() string {
	return "binary-cross-entropy"
}

func (b *binaryCrossEntropy) Cost(outs, targets *tensor.Tensor) (float64, error) {
	return sum("binary-cross-entropy-cost", outs, targets, func(o, t float64) float64 {
		o = clamp(o)
		return -(t*math.Log(o) + (1-t)*math.Log(1-o))
	})
}

func (b *binaryCrossEntropy) Deriv(outs, targets *tensor.Tensor) (*tensor.Tensor, error) {
	return derivs("binary-cross-entropy-deriv", outs, targets, func(o, t float64) float64 {
		o = clamp(o)
		return (o - t) / (o * (1 - o))
	})
}
