// Package penalties provides weight regularization for network specs. Each Penalty adds the
// gradient of its term to the gradient of a weight parameter. Importing this package registers
// them by name with openpb.
package penalties

import (
	"github.com/dakatk/OpenPB/layer"
)

// sign is the subgradient of |w|, taken as zero at zero
func sign(w float64) float64 {
	switch {
	case w > 0:
		return 1
	case w < 0:
		return -1
	}
	return 0
}

// **********************************************
// L1 (Lasso)
// **********************************************

type l1 float64

// L1 adds λ·|w| to the loss. λ is a small value close to 0 where λ > 0.
func L1(λ float64) *l1 {
	p := l1(λ)
	return &p
}

// Lasso is a proxy for L1
func Lasso(λ float64) *l1 {
	return L1(λ)
}

func (p *l1) TypeString() string {
	return "l1-lasso"
}

func (p *l1) Penalize(param *layer.Param) error {
	λ := float64(*p)
	ws, grad := param.Value.Data(), param.Grad.Data()
	for i, w := range ws {
		grad[i] += λ * sign(w)
	}
	return nil
}

// **********************************************
// L2 (Ridge)
// **********************************************

type l2 float64

// L2 adds λ·w² to the loss. λ is a small value close to 0 where λ > 0.
func L2(λ float64) *l2 {
	p := l2(λ)
	return &p
}

// Ridge is a proxy for L2
func Ridge(λ float64) *l2 {
	return L2(λ)
}

func (p *l2) TypeString() string {
	return "l2-ridge"
}

func (p *l2) Penalize(param *layer.Param) error {
	λ := float64(*p)
	ws, grad := param.Value.Data(), param.Grad.Data()
	for i, w := range ws {
		grad[i] += 2 * λ * w
	}
	return nil
}
