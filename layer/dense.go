package layer

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/dakatk/OpenPB/activation"
	"github.com/dakatk/OpenPB/tensor"
)

// DenseLayer is a fully-connected layer. Inputs with more than one dimension per example are
// flattened. W has shape [units×inputs] and B has shape [units].
type DenseLayer struct {
	W, B *Param
	Act  activation.Func

	width int

	// values from the last forward pass
	inShape []int
	x, z, y *tensor.Tensor
}

func newDense(c Config, inShape []int, rng *rand.Rand) (*DenseLayer, error) {
	if c.Units < 1 {
		return nil, errors.Errorf("number of units must be ≥ 1, got %d", c.Units)
	}

	width := 1
	for _, d := range inShape {
		width *= d
	}

	d := &DenseLayer{
		W:     newParam("W", false, c.Units, width),
		B:     newParam("b", true, c.Units),
		Act:   c.Activation,
		width: width,
	}
	c.Init.Set(rng, width, c.Units, d.W.Value.Data())
	return d, nil
}

func (d *DenseLayer) forward(in *tensor.Tensor) (*tensor.Tensor, error) {
	x, err := in.Reshape(in.Dim(0), d.width)
	if err != nil {
		return nil, err
	}

	sums, err := tensor.MatMulTransB(x, d.W.Value)
	if err != nil {
		return nil, err
	}
	if d.z, err = tensor.AddRowVector(sums, d.B.Value); err != nil {
		return nil, err
	}

	d.inShape = in.Shape()
	d.x = x
	d.y = d.Act.Forward(d.z)
	return d.y, nil
}

func (d *DenseLayer) backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if d.x == nil {
		return nil, errors.Errorf("dense backward called before forward")
	}

	gz, err := d.Act.Backward(d.z, d.y, gradOut)
	if err != nil {
		return nil, err
	}

	gw, err := tensor.MatMulTransA(gz, d.x)
	if err != nil {
		return nil, err
	}
	gb, err := tensor.SumRows(gz)
	if err != nil {
		return nil, err
	}
	copy(d.W.Grad.Data(), gw.Data())
	copy(d.B.Grad.Data(), gb.Data())

	gx, err := tensor.MatMul(gz, d.W.Value)
	if err != nil {
		return nil, err
	}
	return gx.Reshape(d.inShape...)
}
