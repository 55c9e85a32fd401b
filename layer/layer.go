// Package layer implements the four kinds of layer a network can be built from. A Layer is a closed
// tagged variant: exactly one of its Dense, Conv, Pool, or Recurrent fields is set, as indicated by
// Kind.
//
// Shapes given to and returned by a Layer always have the batch size as their first dimension. The
// per-example shapes reported by InShape and OutShape do not.
package layer

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/pkg/errors"

	"github.com/dakatk/OpenPB/activation"
	"github.com/dakatk/OpenPB/initializers"
	"github.com/dakatk/OpenPB/tensor"
)

// Kind identifies the variant held by a Layer.
type Kind int8

const (
	Dense Kind = iota
	Conv
	Pool
	Recurrent
)

func (k Kind) String() string {
	switch k {
	case Dense:
		return "dense"
	case Conv:
		return "conv"
	case Pool:
		return "pool"
	case Recurrent:
		return "recurrent"
	}
	return "unknown"
}

// ParseKind accepts the names returned by Kind.String, along with a few aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dense", "neurons", "fully_connected", "fc", "":
		return Dense, nil
	case "conv", "convolution", "conv2d":
		return Conv, nil
	case "pool", "pooling", "maxpool", "avgpool":
		return Pool, nil
	case "recurrent", "rnn", "elman":
		return Recurrent, nil
	}
	return Dense, errors.Errorf("unknown layer type %q", s)
}

// Param is a single trainable tensor, along with the gradient most recently computed for it by
// Backward. Grad always has the same shape as Value.
type Param struct {
	Name  string
	Value *tensor.Tensor
	Grad  *tensor.Tensor

	// Bias is true for additive offsets, which weight penalties leave alone.
	Bias bool
}

func newParam(name string, bias bool, shape ...int) *Param {
	return &Param{Name: name, Value: tensor.New(shape...), Grad: tensor.New(shape...), Bias: bias}
}

// Config describes a layer to construct with New. Fields that don't apply to Kind are ignored.
type Config struct {
	Kind Kind

	// Units is the width of a Dense layer, or the hidden size of a Recurrent one.
	Units int
	// Outputs is the output width of a Recurrent layer. If zero, it is equal to Units.
	Outputs int

	Filters int
	Kernel  [2]int
	Stride  int
	Padding tensor.Padding

	Window   [2]int
	PoolMode PoolMode

	Activation activation.Func
	// Init sets the initial weights. If nil, initializers.Default() is used.
	Init initializers.Initializer

	// Dropout is the probability of zeroing each output during training.
	Dropout float64

	// Truncate is the maximum number of steps that gradients are propagated back through time from
	// each output position. If zero, DefaultTruncate is used.
	Truncate int
	// Sequences makes a Recurrent layer produce an output at every step instead of only the last.
	Sequences bool
}

// Layer is a single layer of a network. Layers are not safe for concurrent use; each is owned by
// one network.
type Layer struct {
	Kind Kind

	Dense     *DenseLayer
	Conv      *ConvLayer
	Pool      *PoolLayer
	Recurrent *RecurrentLayer

	dropout float64
	rng     *rand.Rand
	mask    *tensor.Tensor

	inShape, outShape []int
}

// New constructs a layer that accepts examples with the given shape. Weights are drawn from rng,
// which is also used for dropout.
func New(c Config, inShape []int, rng *rand.Rand) (*Layer, error) {
	if err := tensor.CheckShape(inShape); err != nil {
		return nil, errors.Wrapf(err, "invalid input shape for %v layer", c.Kind)
	} else if c.Dropout < 0 || c.Dropout >= 1 {
		return nil, errors.Errorf("dropout rate must be in [0, 1), got %v", c.Dropout)
	}

	if c.Init == nil {
		c.Init = initializers.Default()
	}

	l := &Layer{Kind: c.Kind, dropout: c.Dropout, rng: rng, inShape: append([]int(nil), inShape...)}

	var err error
	switch c.Kind {
	case Dense:
		l.Dense, err = newDense(c, inShape, rng)
		if err == nil {
			l.outShape = []int{l.Dense.W.Value.Dim(0)}
		}
	case Conv:
		l.Conv, err = newConv(c, inShape, rng)
		if err == nil {
			l.outShape = append([]int(nil), l.Conv.out...)
		}
	case Pool:
		l.Pool, err = newPool(c, inShape)
		if err == nil {
			l.outShape = append([]int(nil), l.Pool.out...)
		}
	case Recurrent:
		l.Recurrent, err = newRecurrent(c, inShape, rng)
		if err == nil {
			l.outShape = l.Recurrent.outShape()
		}
	default:
		err = errors.Errorf("unknown layer kind %d", c.Kind)
	}

	if err != nil {
		return nil, errors.Wrapf(err, "couldn't construct %v layer", c.Kind)
	}
	return l, nil
}

// InShape returns the shape of a single input example.
func (l *Layer) InShape() []int {
	return append([]int(nil), l.inShape...)
}

// OutShape returns the shape of a single output example.
func (l *Layer) OutShape() []int {
	return append([]int(nil), l.outShape...)
}

// Forward computes the output of the layer for a batch of inputs, caching what Backward will need.
// Dropout is only applied if train is true.
func (l *Layer) Forward(in *tensor.Tensor, train bool) (*tensor.Tensor, error) {
	if err := l.checkBatch("forward", in, l.inShape); err != nil {
		return nil, err
	}

	var out *tensor.Tensor
	var err error
	switch l.Kind {
	case Dense:
		out, err = l.Dense.forward(in)
	case Conv:
		out, err = l.Conv.forward(in)
	case Pool:
		out, err = l.Pool.forward(in)
	case Recurrent:
		out, err = l.Recurrent.forward(in)
	}
	if err != nil {
		return nil, err
	}

	l.mask = nil
	if train && l.dropout > 0 {
		l.mask = tensor.New(out.Shape()...)
		keep := 1 / (1 - l.dropout)
		for i := range l.mask.Data() {
			if l.rng.Float64() >= l.dropout {
				l.mask.Data()[i] = keep
			}
		}
		return tensor.Mul(out, l.mask)
	}
	return out, nil
}

// Backward takes the gradient of the loss with respect to the output of the most recent call to
// Forward, stores the gradients of every parameter in their Grad fields, and returns the gradient
// with respect to the input.
func (l *Layer) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if err := l.checkBatch("backward", gradOut, l.outShape); err != nil {
		return nil, err
	}

	if l.mask != nil {
		var err error
		if gradOut, err = tensor.Mul(gradOut, l.mask); err != nil {
			return nil, err
		}
	}

	switch l.Kind {
	case Dense:
		return l.Dense.backward(gradOut)
	case Conv:
		return l.Conv.backward(gradOut)
	case Pool:
		return l.Pool.backward(gradOut)
	default:
		return l.Recurrent.backward(gradOut)
	}
}

// checkBatch returns a ShapeMismatchError if t is not a batch of examples with the given shape
func (l *Layer) checkBatch(op string, t *tensor.Tensor, example []int) error {
	shape := t.Shape()
	ok := len(shape) == len(example)+1
	for i := 0; ok && i < len(example); i++ {
		ok = shape[i+1] == example[i]
	}

	if !ok {
		want := append([]int{-1}, example...)
		return &tensor.ShapeMismatchError{Op: l.Kind.String() + "-" + op, A: shape, B: want}
	}
	return nil
}

// Params returns the trainable parameters of the layer, in a fixed order. Pool layers have none.
func (l *Layer) Params() []*Param {
	switch l.Kind {
	case Dense:
		return []*Param{l.Dense.W, l.Dense.B}
	case Conv:
		return []*Param{l.Conv.K, l.Conv.B}
	case Recurrent:
		r := l.Recurrent
		return []*Param{r.Wx, r.Wh, r.Bh, r.Wy, r.By}
	}
	return nil
}

// Trainable reports whether the layer has any parameters.
func (l *Layer) Trainable() bool {
	return len(l.Params()) != 0
}

// Snapshot returns deep copies of the values of every parameter, by name.
func (l *Layer) Snapshot() map[string]*tensor.Tensor {
	m := make(map[string]*tensor.Tensor)
	for _, p := range l.Params() {
		m[p.Name] = p.Value.Clone()
	}
	return m
}

func (l *Layer) String() string {
	return fmt.Sprintf("%v%v", l.Kind, l.outShape)
}
