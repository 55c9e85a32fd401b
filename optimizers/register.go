package optimizers

import (
	openpb "github.com/dakatk/OpenPB"
)

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func init() {
	sgd := func(s openpb.OptimizerSpec) openpb.Optimizer {
		return GradientDescent(orDefault(s.Beta1, DefaultMomentum))
	}
	adam := func(s openpb.OptimizerSpec) openpb.Optimizer {
		return Adam(orDefault(s.Beta1, DefaultBeta1), orDefault(s.Beta2, DefaultBeta2))
	}

	list := map[string]func(openpb.OptimizerSpec) openpb.Optimizer{
		"":                            sgd,
		"sgd":                         sgd,
		"gradient_descent":            sgd,
		"gradient descent":            sgd,
		"stochastic gradient descent": sgd,
		"momentum":                    sgd,
		"adam":                        adam,
		"adaptive momentum":           adam,
	}

	for s, f := range list {
		if err := openpb.RegisterOptimizer(s, f); err != nil {
			panic(err.Error())
		}
	}
}
