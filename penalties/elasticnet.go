package penalties

import (
	"github.com/dakatk/OpenPB/layer"
)

type elasticNet struct {
	α float64
	λ float64
}

// ElasticNet mixes L1 and L2. λ is a small value close to 0 where λ > 0, and α controls the ratio
// between L1 and L2 regularization, where 0 ≤ α ≤ 1. α = 1 is functionally identical to L1 and
// α = 0 is equivalent to L2.
func ElasticNet(α, λ float64) *elasticNet {
	return &elasticNet{α, λ}
}

func (p *elasticNet) TypeString() string {
	return "elastic-net"
}

func (p *elasticNet) Penalize(param *layer.Param) error {
	ws, grad := param.Value.Data(), param.Grad.Data()
	for i, w := range ws {
		grad[i] += p.λ * ((1-p.α)*2*w + p.α*sign(w))
	}
	return nil
}
