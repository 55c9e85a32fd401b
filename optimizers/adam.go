package optimizers

import (
	"math"

	"github.com/dakatk/OpenPB/layer"
)

// Defaults for Adam
const (
	DefaultBeta1   = 0.9
	DefaultBeta2   = 0.999
	DefaultEpsilon = 1e-7
)

type moments struct {
	m, v []float64
	t    int
}

type adam struct {
	β1, β2, ε float64
	state     map[*layer.Param]*moments
}

// Adam returns the Adam optimizer (Kingma & Ba) with the given decay rates for the first and
// second moment estimates. The step count used for bias correction is kept per parameter.
func Adam(β1, β2 float64) *adam {
	return &adam{β1: β1, β2: β2, ε: DefaultEpsilon, state: make(map[*layer.Param]*moments)}
}

func (a *adam) TypeString() string {
	return "adam"
}

func (a *adam) Update(l *layer.Layer, learningRate float64) error {
	for _, p := range l.Params() {
		ws, grad := p.Value.Data(), p.Grad.Data()

		s, ok := a.state[p]
		if !ok {
			s = &moments{m: make([]float64, len(ws)), v: make([]float64, len(ws))}
			a.state[p] = s
		}
		s.t++

		c1 := 1 - math.Pow(a.β1, float64(s.t))
		c2 := 1 - math.Pow(a.β2, float64(s.t))

		for i, g := range grad {
			s.m[i] = a.β1*s.m[i] + (1-a.β1)*g
			s.v[i] = a.β2*s.v[i] + (1-a.β2)*g*g

			mHat, vHat := s.m[i]/c1, s.v[i]/c2
			ws[i] -= learningRate * mHat / (math.Sqrt(vHat) + a.ε)
		}
	}

	return nil
}
