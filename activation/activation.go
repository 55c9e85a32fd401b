// Package activation provides the activation functions applied at the output of each layer. Every
// function except Softmax is element-wise; Softmax normalizes over the last dimension of its input.
package activation

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/dakatk/OpenPB/tensor"
)

// Func is one of the supported activation functions. The zero value is Identity.
type Func int8

const (
	Identity Func = iota
	Sigmoid
	ReLU
	LeakyReLU
	Tanh
	Softmax
)

// the slope of LeakyReLU for negative inputs
const leak = 0.01

var names = map[Func]string{
	Identity:  "identity",
	Sigmoid:   "sigmoid",
	ReLU:      "relu",
	LeakyReLU: "leaky_relu",
	Tanh:      "tanh",
	Softmax:   "softmax",
}

var aliases = map[string]Func{
	"":           Identity,
	"identity":   Identity,
	"linear":     Identity,
	"none":       Identity,
	"sigmoid":    Sigmoid,
	"logistic":   Sigmoid,
	"relu":       ReLU,
	"leaky relu": LeakyReLU,
	"leaky_relu": LeakyReLU,
	"leaky-relu": LeakyReLU,
	"leakyrelu":  LeakyReLU,
	"tanh":       Tanh,
	"softmax":    Softmax,
}

// Parse returns the Func with the given name. Names are case-insensitive, and a few common
// spellings are accepted for each function ("leaky relu", "leaky_relu", "leakyrelu"). The empty
// string is Identity.
func Parse(name string) (Func, error) {
	f, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Identity, errors.Errorf("unknown activation function %q", name)
	}
	return f, nil
}

func (f Func) String() string {
	if n, ok := names[f]; ok {
		return n
	}
	return fmt.Sprintf("activation(%d)", int8(f))
}

// Forward returns f(z).
func (f Func) Forward(z *tensor.Tensor) *tensor.Tensor {
	switch f {
	case Sigmoid:
		return tensor.Apply(z, sigmoid)
	case ReLU:
		return tensor.Apply(z, func(x float64) float64 { return math.Max(x, 0) })
	case LeakyReLU:
		return tensor.Apply(z, func(x float64) float64 {
			if x > 0 {
				return x
			}
			return leak * x
		})
	case Tanh:
		return tensor.Apply(z, math.Tanh)
	case Softmax:
		return softmax(z)
	default:
		return z.Clone()
	}
}

// Backward returns the gradient with respect to z, given z, y = f(z), and the gradient with respect
// to y.
func (f Func) Backward(z, y, gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if !z.SameShape(y) || !y.SameShape(gradOut) {
		return nil, &tensor.ShapeMismatchError{Op: "activation-backward", A: y.Shape(), B: gradOut.Shape()}
	}

	if f == Softmax {
		return softmaxBackward(y, gradOut), nil
	}

	out := tensor.New(z.Shape()...)
	zs, ys, gs, os := z.Data(), y.Data(), gradOut.Data(), out.Data()
	for i := range os {
		os[i] = gs[i] * f.deriv(zs[i], ys[i])
	}
	return out, nil
}

// deriv returns f'(z), given z and y = f(z)
func (f Func) deriv(z, y float64) float64 {
	switch f {
	case Sigmoid:
		return y * (1 - y)
	case ReLU:
		if z > 0 {
			return 1
		}
		return 0
	case LeakyReLU:
		if z > 0 {
			return 1
		}
		return leak
	case Tanh:
		return 1 - y*y
	default:
		return 1
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func rows(t *tensor.Tensor) (n, width int) {
	width = t.Dim(t.Dims() - 1)
	return t.Len() / width, width
}

func softmax(z *tensor.Tensor) *tensor.Tensor {
	out := tensor.New(z.Shape()...)
	n, w := rows(z)
	zs, os := z.Data(), out.Data()

	for r := 0; r < n; r++ {
		row := zs[r*w : (r+1)*w]
		hi := math.Inf(-1)
		for _, v := range row {
			hi = math.Max(hi, v)
		}

		var sum float64
		for i, v := range row {
			e := math.Exp(v - hi)
			os[r*w+i] = e
			sum += e
		}
		for i := range row {
			os[r*w+i] /= sum
		}
	}
	return out
}

// softmaxBackward computes the Jacobian-vector product of softmax for each row:
// dz_i = y_i * (g_i - Σ_j g_j y_j)
func softmaxBackward(y, gradOut *tensor.Tensor) *tensor.Tensor {
	out := tensor.New(y.Shape()...)
	n, w := rows(y)
	ys, gs, os := y.Data(), gradOut.Data(), out.Data()

	for r := 0; r < n; r++ {
		var dot float64
		for i := r * w; i < (r+1)*w; i++ {
			dot += gs[i] * ys[i]
		}
		for i := r * w; i < (r+1)*w; i++ {
			os[i] = ys[i] * (gs[i] - dot)
		}
	}
	return out
}
