// Package costfuncs provides the CostFunctions available to network specs. Every cost is the sum
// over the outputs of an example, averaged over the examples of the batch, and every derivative is
// scaled to match.
//
// Importing this package registers each CostFunction by name with openpb.
package costfuncs

import (
	"github.com/dakatk/OpenPB/tensor"
)

// check returns the number of examples in the batch, or an error if the shapes differ
func check(op string, outs, targets *tensor.Tensor) (float64, error) {
	if !outs.SameShape(targets) || outs.Dims() != 2 {
		return 0, &tensor.ShapeMismatchError{Op: op, A: outs.Shape(), B: targets.Shape()}
	}
	return float64(outs.Dim(0)), nil
}

// sum returns Σ f(o, t) over every element, divided by the number of examples
func sum(op string, outs, targets *tensor.Tensor, f func(o, t float64) float64) (float64, error) {
	n, err := check(op, outs, targets)
	if err != nil {
		return 0, err
	}

	var s float64
	ts := targets.Data()
	for i, o := range outs.Data() {
		s += f(o, ts[i])
	}
	return s / n, nil
}

// derivs returns f'(o, t) for every element, divided by the number of examples
func derivs(op string, outs, targets *tensor.Tensor, f func(o, t float64) float64) (*tensor.Tensor, error) {
	n, err := check(op, outs, targets)
	if err != nil {
		return nil, err
	}

	ds := tensor.New(outs.Shape()...)
	ts := targets.Data()
	for i, o := range outs.Data() {
		ds.Data()[i] = f(o, ts[i]) / n
	}
	return ds, nil
}
