// Package optimizers provides the Optimizers available to network specs. Importing it registers
// each one by name with openpb; "sgd" is also the name used when nothing else is given.
package optimizers

import (
	"github.com/dakatk/OpenPB/layer"
)

// DefaultMomentum is the momentum of GradientDescent when none is given
const DefaultMomentum = 0.9

type gradientDescent struct {
	momentum float64
	velocity map[*layer.Param][]float64
}

// GradientDescent returns stochastic gradient descent with classical momentum:
//
//	v ← momentum·v - lr·g
//	w ← w + v
//
// A momentum of zero gives plain gradient descent.
func GradientDescent(momentum float64) *gradientDescent {
	return &gradientDescent{momentum: momentum, velocity: make(map[*layer.Param][]float64)}
}

func (g *gradientDescent) TypeString() string {
	return "sgd"
}

func (g *gradientDescent) Update(l *layer.Layer, learningRate float64) error {
	for _, p := range l.Params() {
		ws, grad := p.Value.Data(), p.Grad.Data()

		if g.momentum == 0 {
			for i := range ws {
				ws[i] -= learningRate * grad[i]
			}
			continue
		}

		v, ok := g.velocity[p]
		if !ok {
			v = make([]float64, len(ws))
			g.velocity[p] = v
		}

		for i := range ws {
			v[i] = g.momentum*v[i] - learningRate*grad[i]
			ws[i] += v[i]
		}
	}

	return nil
}
