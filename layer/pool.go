package layer

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/dakatk/OpenPB/tensor"
)

// PoolMode selects how a PoolLayer combines the values in each window.
type PoolMode int8

const (
	MaxPool PoolMode = iota
	AvgPool
)

func (m PoolMode) String() string {
	if m == AvgPool {
		return "avg"
	}
	return "max"
}

// ParsePoolMode accepts "max" or "avg" ("average" and "mean" are also accepted). The empty string is
// MaxPool.
func ParsePoolMode(s string) (PoolMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "max":
		return MaxPool, nil
	case "avg", "average", "mean":
		return AvgPool, nil
	}
	return MaxPool, errors.Errorf("unknown pooling mode %q", s)
}

// PoolLayer downsamples examples of shape [channels×height×width]. It has no parameters.
type PoolLayer struct {
	Mode PoolMode
	Opts tensor.PoolOpts

	out []int

	inShape []int
	argmax  []int
}

func newPool(c Config, inShape []int) (*PoolLayer, error) {
	if len(inShape) != 3 {
		return nil, errors.Errorf("input must have shape [channels, height, width], got %v", inShape)
	}

	opts := tensor.PoolOpts{Window: c.Window, Stride: [2]int{c.Stride, c.Stride}}
	out, err := tensor.PoolOutputShape(append([]int{1}, inShape...), opts)
	if err != nil {
		return nil, err
	}

	return &PoolLayer{Mode: c.PoolMode, Opts: opts, out: out[1:]}, nil
}

func (p *PoolLayer) forward(in *tensor.Tensor) (*tensor.Tensor, error) {
	p.inShape = in.Shape()

	if p.Mode == AvgPool {
		return tensor.AvgPool2D(in, p.Opts)
	}

	out, argmax, err := tensor.MaxPool2D(in, p.Opts)
	if err != nil {
		return nil, err
	}
	p.argmax = argmax
	return out, nil
}

func (p *PoolLayer) backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if p.inShape == nil {
		return nil, errors.Errorf("pool backward called before forward")
	}

	if p.Mode == AvgPool {
		return tensor.AvgPool2DBackward(p.inShape, gradOut, p.Opts)
	}
	return tensor.MaxPool2DBackward(p.inShape, p.argmax, gradOut)
}
