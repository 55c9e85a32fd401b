package layer

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/dakatk/OpenPB/activation"
	"github.com/dakatk/OpenPB/tensor"
)

// DefaultTruncate is the number of steps gradients are propagated back through time when Config
// leaves Truncate unset.
const DefaultTruncate = 20

// RecurrentLayer is an Elman recurrent layer over examples of shape [steps×features]. At each step,
//
//	h_t = tanh(x_t Wxᵀ + h_{t-1} Whᵀ + bh)
//
// with h_{-1} = 0, and the output at step t is Act(h_t Wyᵀ + by). The hidden state exists only for
// the duration of a forward pass; every sequence starts from zero.
type RecurrentLayer struct {
	Wx, Wh, Bh *Param
	Wy, By     *Param
	Act        activation.Func

	Truncate  int
	Sequences bool

	steps, features, hidden, outputs int

	// values from the last forward pass. hs[0] is the zero initial state, and hs[t+1] is the state
	// after step t. zs and ys hold the pre- and post-activation outputs at each step that produces
	// one.
	x      *tensor.Tensor
	xs     []*tensor.Tensor
	hs     []*tensor.Tensor
	zs, ys []*tensor.Tensor
}

func newRecurrent(c Config, inShape []int, rng *rand.Rand) (*RecurrentLayer, error) {
	if len(inShape) != 2 {
		return nil, errors.Errorf("input must have shape [steps, features], got %v", inShape)
	} else if c.Units < 1 {
		return nil, errors.Errorf("number of hidden units must be ≥ 1, got %d", c.Units)
	} else if c.Truncate < 0 {
		return nil, errors.Errorf("truncation must be ≥ 0, got %d", c.Truncate)
	}

	outputs := c.Outputs
	if outputs == 0 {
		outputs = c.Units
	} else if outputs < 0 {
		return nil, errors.Errorf("number of outputs must be ≥ 1, got %d", outputs)
	}

	truncate := c.Truncate
	if truncate == 0 {
		truncate = DefaultTruncate
	}

	steps, features, hidden := inShape[0], inShape[1], c.Units
	r := &RecurrentLayer{
		Wx:        newParam("Wx", false, hidden, features),
		Wh:        newParam("Wh", false, hidden, hidden),
		Bh:        newParam("bh", true, hidden),
		Wy:        newParam("Wy", false, outputs, hidden),
		By:        newParam("by", true, outputs),
		Act:       c.Activation,
		Truncate:  truncate,
		Sequences: c.Sequences,
		steps:     steps,
		features:  features,
		hidden:    hidden,
		outputs:   outputs,
	}

	c.Init.Set(rng, features, hidden, r.Wx.Value.Data())
	c.Init.Set(rng, hidden, hidden, r.Wh.Value.Data())
	c.Init.Set(rng, hidden, outputs, r.Wy.Value.Data())
	return r, nil
}

func (r *RecurrentLayer) outShape() []int {
	if r.Sequences {
		return []int{r.steps, r.outputs}
	}
	return []int{r.outputs}
}

// step returns a copy of step t of a batch [N×T×W], as [N×W]
func step(seq *tensor.Tensor, t int) *tensor.Tensor {
	n, steps, w := seq.Dim(0), seq.Dim(1), seq.Dim(2)
	out := tensor.New(n, w)
	for i := 0; i < n; i++ {
		copy(out.Data()[i*w:(i+1)*w], seq.Data()[(i*steps+t)*w:(i*steps+t+1)*w])
	}
	return out
}

// addStep adds v [N×W] into step t of seq [N×T×W]
func addStep(seq *tensor.Tensor, t int, v *tensor.Tensor) {
	n, steps, w := seq.Dim(0), seq.Dim(1), seq.Dim(2)
	for i := 0; i < n; i++ {
		dst := seq.Data()[(i*steps+t)*w : (i*steps+t+1)*w]
		for j, x := range v.Data()[i*w : (i+1)*w] {
			dst[j] += x
		}
	}
}

// emits reports whether step t produces an output
func (r *RecurrentLayer) emits(t int) bool {
	return r.Sequences || t == r.steps-1
}

func (r *RecurrentLayer) forward(in *tensor.Tensor) (*tensor.Tensor, error) {
	n := in.Dim(0)

	r.x = in
	r.xs = make([]*tensor.Tensor, r.steps)
	r.hs = make([]*tensor.Tensor, r.steps+1)
	r.zs = make([]*tensor.Tensor, r.steps)
	r.ys = make([]*tensor.Tensor, r.steps)
	r.hs[0] = tensor.New(n, r.hidden)

	var out *tensor.Tensor
	if r.Sequences {
		out = tensor.New(n, r.steps, r.outputs)
	} else {
		out = tensor.New(n, r.outputs)
	}

	for t := 0; t < r.steps; t++ {
		r.xs[t] = step(in, t)

		a, err := tensor.MatMulTransB(r.xs[t], r.Wx.Value)
		if err != nil {
			return nil, err
		}
		rec, err := tensor.MatMulTransB(r.hs[t], r.Wh.Value)
		if err != nil {
			return nil, err
		}
		if err = tensor.AddInPlace(a, 1, rec); err != nil {
			return nil, err
		}
		if a, err = tensor.AddRowVector(a, r.Bh.Value); err != nil {
			return nil, err
		}
		r.hs[t+1] = tensor.Apply(a, math.Tanh)

		if !r.emits(t) {
			continue
		}

		z, err := tensor.MatMulTransB(r.hs[t+1], r.Wy.Value)
		if err != nil {
			return nil, err
		}
		if z, err = tensor.AddRowVector(z, r.By.Value); err != nil {
			return nil, err
		}
		r.zs[t] = z
		r.ys[t] = r.Act.Forward(z)

		if r.Sequences {
			addStep(out, t, r.ys[t])
		} else {
			copy(out.Data(), r.ys[t].Data())
		}
	}

	return out, nil
}

func (r *RecurrentLayer) backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if r.x == nil {
		return nil, errors.Errorf("recurrent backward called before forward")
	}

	for _, p := range []*Param{r.Wx, r.Wh, r.Bh, r.Wy, r.By} {
		p.Grad.Zero()
	}
	gradIn := tensor.New(r.x.Shape()...)

	for t := 0; t < r.steps; t++ {
		if !r.emits(t) {
			continue
		}

		g := gradOut
		if r.Sequences {
			g = step(gradOut, t)
		}

		gz, err := r.Act.Backward(r.zs[t], r.ys[t], g)
		if err != nil {
			return nil, err
		}
		if err := r.accumulate(r.Wy, r.By, gz, r.hs[t+1]); err != nil {
			return nil, err
		}

		dh, err := tensor.MatMul(gz, r.Wy.Value)
		if err != nil {
			return nil, err
		}
		if err := r.throughTime(t, dh, gradIn); err != nil {
			return nil, err
		}
	}

	return gradIn, nil
}

// throughTime propagates dh, the gradient with respect to h_t, back through at most Truncate steps
func (r *RecurrentLayer) throughTime(t int, dh, gradIn *tensor.Tensor) error {
	stop := t - r.Truncate + 1
	if stop < 0 {
		stop = 0
	}

	for s := t; s >= stop; s-- {
		h := r.hs[s+1]
		da := tensor.New(dh.Shape()...)
		for i, v := range h.Data() {
			da.Data()[i] = dh.Data()[i] * (1 - v*v)
		}

		if err := r.accumulate(r.Wx, r.Bh, da, r.xs[s]); err != nil {
			return err
		}
		gwh, err := tensor.MatMulTransA(da, r.hs[s])
		if err != nil {
			return err
		}
		if err := tensor.AddInPlace(r.Wh.Grad, 1, gwh); err != nil {
			return err
		}

		gx, err := tensor.MatMul(da, r.Wx.Value)
		if err != nil {
			return err
		}
		addStep(gradIn, s, gx)

		if dh, err = tensor.MatMul(da, r.Wh.Value); err != nil {
			return err
		}
	}
	return nil
}

// accumulate adds the gradients of y = in Wᵀ + b, given the gradient with respect to y
func (r *RecurrentLayer) accumulate(w, b *Param, grad, in *tensor.Tensor) error {
	gw, err := tensor.MatMulTransA(grad, in)
	if err != nil {
		return err
	}
	gb, err := tensor.SumRows(grad)
	if err != nil {
		return err
	}

	if err := tensor.AddInPlace(w.Grad, 1, gw); err != nil {
		return err
	}
	return tensor.AddInPlace(b.Grad, 1, gb)
}
