package layer

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/dakatk/OpenPB/activation"
	"github.com/dakatk/OpenPB/tensor"
)

// ConvLayer is a 2-dimensional convolution over examples of shape [channels×height×width]. K has
// shape [filters×channels×kh×kw], and B has one bias per filter.
type ConvLayer struct {
	K, B *Param
	Act  activation.Func
	Opts tensor.ConvOpts

	out []int

	x, z, y *tensor.Tensor
}

func newConv(c Config, inShape []int, rng *rand.Rand) (*ConvLayer, error) {
	if len(inShape) != 3 {
		return nil, errors.Errorf("input must have shape [channels, height, width], got %v", inShape)
	} else if c.Filters < 1 {
		return nil, errors.Errorf("number of filters must be ≥ 1, got %d", c.Filters)
	} else if c.Kernel[0] < 1 || c.Kernel[1] < 1 {
		return nil, errors.Errorf("kernel dimensions must be ≥ 1, got %v", c.Kernel)
	}

	channels := inShape[0]
	kshape := []int{c.Filters, channels, c.Kernel[0], c.Kernel[1]}
	opts := tensor.ConvOpts{Stride: c.Stride, Padding: c.Padding}

	out, err := tensor.ConvOutputShape(append([]int{1}, inShape...), kshape, opts)
	if err != nil {
		return nil, err
	}

	l := &ConvLayer{
		K:    newParam("K", false, kshape...),
		B:    newParam("b", true, c.Filters),
		Act:  c.Activation,
		Opts: opts,
		out:  out[1:],
	}

	area := c.Kernel[0] * c.Kernel[1]
	c.Init.Set(rng, channels*area, c.Filters*area, l.K.Value.Data())
	return l, nil
}

func (l *ConvLayer) forward(in *tensor.Tensor) (*tensor.Tensor, error) {
	z, err := tensor.Conv2D(in, l.K.Value, l.Opts)
	if err != nil {
		return nil, err
	}

	// add the bias of each filter to its whole output map
	area := l.out[1] * l.out[2]
	filters := l.out[0]
	zs, bs := z.Data(), l.B.Value.Data()
	for i := range zs {
		zs[i] += bs[(i/area)%filters]
	}

	l.x, l.z = in, z
	l.y = l.Act.Forward(z)
	return l.y, nil
}

func (l *ConvLayer) backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if l.x == nil {
		return nil, errors.Errorf("conv backward called before forward")
	}

	gz, err := l.Act.Backward(l.z, l.y, gradOut)
	if err != nil {
		return nil, err
	}

	gx, gk, err := tensor.Conv2DBackward(l.x, l.K.Value, gz, l.Opts)
	if err != nil {
		return nil, err
	}
	copy(l.K.Grad.Data(), gk.Data())

	area := l.out[1] * l.out[2]
	filters := l.out[0]
	l.B.Grad.Zero()
	gb := l.B.Grad.Data()
	for i, g := range gz.Data() {
		gb[(i/area)%filters] += g
	}

	return gx, nil
}
