package penalties

import (
	"math"
	"math/rand"
	"testing"

	openpb "github.com/dakatk/OpenPB"
	"github.com/dakatk/OpenPB/layer"
)

func weights(t *testing.T, ws ...float64) *layer.Param {
	l, err := layer.New(layer.Config{Kind: layer.Dense, Units: len(ws)}, []int{1}, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	p := l.Params()[0]
	copy(p.Value.Data(), ws)
	p.Grad.Zero()
	return p
}

func TestPenalties(t *testing.T) {
	table := []struct {
		p    openpb.Penalty
		want []float64
	}{
		{L1(0.1), []float64{0.1, -0.1, 0}},
		{L2(0.1), []float64{0.4, -0.2, 0}},
		// 0.1·(0.5·2w + 0.5·sign(w))
		{ElasticNet(0.5, 0.1), []float64{0.25, -0.15, 0}},
	}

	for _, c := range table {
		p := weights(t, 2, -1, 0)
		if err := c.p.Penalize(p); err != nil {
			t.Fatal(err)
		}
		for i, w := range c.want {
			if g := p.Grad.Data()[i]; math.Abs(g-w) > 1e-12 {
				t.Fatalf("%s: grad[%d] = %v, expected %v", c.p.TypeString(), i, g, w)
			}
		}
	}
}

func TestElasticNetExtremes(t *testing.T) {
	for _, w := range []float64{1.5, -0.3} {
		a, b := weights(t, w), weights(t, w)
		L1(0.2).Penalize(a)
		ElasticNet(1, 0.2).Penalize(b)
		if a.Grad.Data()[0] != b.Grad.Data()[0] {
			t.Fatalf("α = 1 should match L1")
		}

		a, b = weights(t, w), weights(t, w)
		L2(0.2).Penalize(a)
		ElasticNet(0, 0.2).Penalize(b)
		if a.Grad.Data()[0] != b.Grad.Data()[0] {
			t.Fatalf("α = 0 should match L2")
		}
	}
}

func TestRegistered(t *testing.T) {
	p, err := openpb.NewPenalty(openpb.PenaltySpec{Name: "elastic_net", Lambda: 0.1, Alpha: 0.3})
	if err != nil {
		t.Fatal(err)
	}
	if e, ok := p.(*elasticNet); !ok || e.α != 0.3 || e.λ != 0.1 {
		t.Fatalf("unexpected penalty %#v", p)
	}
}
