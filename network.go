package openpb

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/dakatk/OpenPB/layer"
	"github.com/dakatk/OpenPB/tensor"
)

// Network is a sequence of layers, together with everything needed to train them. A Network is
// built fresh for every job and is never shared between goroutines.
type Network struct {
	Layers     []*layer.Layer
	InputShape []int

	cost    CostFunction
	opt     Optimizer
	penalty Penalty
	encoder Encoder

	outWidth int
	diverged bool
}

// BuildOptions supplies the settings a NetworkSpec may leave out.
type BuildOptions struct {
	// Optimizer is used for every field the spec's own OptimizerSpec leaves unset.
	Optimizer OptimizerSpec
}

// MergeOptimizer returns the OptimizerSpec of the spec, with unset fields filled in from base.
func (s *NetworkSpec) MergeOptimizer(base OptimizerSpec) OptimizerSpec {
	if s.Optimizer == nil {
		return base
	}

	o := *s.Optimizer
	if o.Name == "" {
		o.Name = base.Name
	}
	if o.LearningRate == 0 {
		o.LearningRate = base.LearningRate
	}
	if o.Beta1 == nil {
		o.Beta1 = base.Beta1
	}
	if o.Beta2 == nil {
		o.Beta2 = base.Beta2
	}
	return o
}

// Build constructs a Network from spec for a dataset with the given input and output widths,
// drawing its initial weights from rng. Each layer's input shape is inferred from the output of
// the one before it.
//
// Any incompatibility between the spec and the widths is returned as an *InvalidSpecError.
func Build(spec *NetworkSpec, inputWidth, outputWidth int, rng *rand.Rand, opts BuildOptions) (*Network, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	if w := volume(spec.InputShape); w != inputWidth {
		return nil, invalidSpec(spec.ID, "input shape %v has %d values, dataset inputs have %d",
			spec.InputShape, w, inputWidth)
	}

	net := &Network{InputShape: append([]int(nil), spec.InputShape...)}

	var err error
	if net.encoder, err = NewEncoder(spec.Encoder); err != nil {
		return nil, invalidSpec(spec.ID, "%v", err)
	}
	if net.outWidth, err = net.encoder.Width(outputWidth); err != nil {
		return nil, invalidSpec(spec.ID, "%v", err)
	}
	if net.cost, err = NewCostFunction(spec.Cost); err != nil {
		return nil, invalidSpec(spec.ID, "%v", err)
	}
	if net.opt, err = NewOptimizer(spec.MergeOptimizer(opts.Optimizer)); err != nil {
		return nil, invalidSpec(spec.ID, "%v", err)
	}
	if spec.Penalty != nil {
		if net.penalty, err = NewPenalty(*spec.Penalty); err != nil {
			return nil, invalidSpec(spec.ID, "%v", err)
		}
	}

	shape := net.InputShape
	for i, ls := range spec.Layers {
		conf, err := ls.config()
		if err != nil {
			return nil, invalidSpec(spec.ID, "layer #%d: %v", i, err)
		}

		l, err := layer.New(conf, shape, rng)
		if err != nil {
			return nil, invalidSpec(spec.ID, "layer #%d with input shape %v: %v", i, shape, err)
		}

		net.Layers = append(net.Layers, l)
		shape = l.OutShape()
	}

	if w := volume(shape); w != net.outWidth {
		return nil, invalidSpec(spec.ID, "final layer produces %d values (shape %v), dataset targets need %d",
			w, shape, net.outWidth)
	}

	return net, nil
}

func volume(shape []int) int {
	v := 1
	for _, d := range shape {
		v *= d
	}
	return v
}

// OutputWidth returns the number of values the Network produces per example.
func (net *Network) OutputWidth() int {
	return net.outWidth
}

// Diverged reports whether a previous call to Backward returned ErrDiverged.
func (net *Network) Diverged() bool {
	return net.diverged
}

// Forward runs a batch [examples×inputs] through every layer, returning predictions of shape
// [examples×outputs]. Dropout is only applied if train is true.
func (net *Network) Forward(batch *tensor.Tensor, train bool) (*tensor.Tensor, error) {
	if batch.Dims() != 2 {
		return nil, &tensor.ShapeMismatchError{Op: "network-forward", A: batch.Shape(), B: []int{-1, volume(net.InputShape)}}
	}

	n := batch.Dim(0)
	x, err := batch.Reshape(append([]int{n}, net.InputShape...)...)
	if err != nil {
		return nil, err
	}

	for i, l := range net.Layers {
		if x, err = l.Forward(x, train); err != nil {
			return nil, errors.Wrapf(err, "forward through layer #%d (%v)", i, l)
		}
	}

	return x.Reshape(n, net.outWidth)
}

// Backward computes the loss of preds against targets, propagates its gradient back through every
// layer, applies the Penalty (if any) to weight gradients, and has the Optimizer update every
// trainable layer with the given learning rate. preds must be the result of the most recent call
// to Forward.
//
// If the loss or any parameter is no longer finite afterwards, the Network is marked as diverged
// and ErrDiverged is returned.
func (net *Network) Backward(preds, targets *tensor.Tensor, learningRate float64) (float64, error) {
	if net.diverged {
		return 0, ErrDiverged
	}

	loss, err := net.cost.Cost(preds, targets)
	if err != nil {
		return 0, err
	}

	grad, err := net.cost.Deriv(preds, targets)
	if err != nil {
		return 0, err
	}

	last := net.Layers[len(net.Layers)-1]
	if grad, err = grad.Reshape(append([]int{preds.Dim(0)}, last.OutShape()...)...); err != nil {
		return 0, err
	}

	for i := len(net.Layers) - 1; i >= 0; i-- {
		if grad, err = net.Layers[i].Backward(grad); err != nil {
			return 0, errors.Wrapf(err, "backward through layer #%d (%v)", i, net.Layers[i])
		}
	}

	for i, l := range net.Layers {
		if !l.Trainable() {
			continue
		}

		if net.penalty != nil {
			for _, p := range l.Params() {
				if p.Bias {
					continue
				}
				if err := net.penalty.Penalize(p); err != nil {
					return 0, errors.Wrapf(err, "penalty on layer #%d, %s", i, p.Name)
				}
			}
		}

		if err := net.opt.Update(l, learningRate); err != nil {
			return 0, errors.Wrapf(err, "optimizer update of layer #%d (%v)", i, l)
		}
	}

	if !net.finite(loss) {
		net.diverged = true
		return loss, ErrDiverged
	}
	return loss, nil
}

func (net *Network) finite(loss float64) bool {
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		return false
	}

	for _, l := range net.Layers {
		for _, p := range l.Params() {
			if !tensor.IsFinite(p.Value) {
				return false
			}
		}
	}
	return true
}

// Evaluate returns the loss and accuracy of the Network on the given inputs and encoded targets,
// without dropout.
func (net *Network) Evaluate(x, y *tensor.Tensor) (loss, accuracy float64, err error) {
	preds, err := net.Forward(x, false)
	if err != nil {
		return 0, 0, err
	}

	if loss, err = net.cost.Cost(preds, y); err != nil {
		return 0, 0, err
	}
	if accuracy, err = Accuracy(preds, y); err != nil {
		return 0, 0, err
	}
	return loss, accuracy, nil
}

// Encode converts examples into an input batch [examples×inputs] and an encoded target batch
// [examples×outputs].
func (net *Network) Encode(examples []Example) (x, y *tensor.Tensor, err error) {
	if len(examples) == 0 {
		return nil, nil, errors.Errorf("no examples to encode")
	}

	in := len(examples[0].Input)
	x = tensor.New(len(examples), in)
	y = tensor.New(len(examples), net.outWidth)

	for i, e := range examples {
		if len(e.Input) != in {
			return nil, nil, &tensor.ShapeMismatchError{Op: "encode", A: []int{len(e.Input)}, B: []int{in}}
		}
		copy(x.Data()[i*in:(i+1)*in], e.Input)

		if err := net.encoder.Encode(y.Data()[i*net.outWidth:(i+1)*net.outWidth], e.Output); err != nil {
			return nil, nil, errors.Wrapf(err, "example #%d", i)
		}
	}
	return x, y, nil
}

// Snapshot returns deep copies of the parameters of every trainable layer.
func (net *Network) Snapshot() []LayerSnapshot {
	var ls []LayerSnapshot
	for i, l := range net.Layers {
		if !l.Trainable() {
			continue
		}
		ls = append(ls, LayerSnapshot{Index: i, Kind: l.Kind, Params: l.Snapshot()})
	}
	return ls
}
