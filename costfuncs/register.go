package costfuncs

import (
	openpb "github.com/dakatk/OpenPB"
)

func init() {
	list := map[string]func() openpb.CostFunction{
		MSE().TypeString():   func() openpb.CostFunction { return MSE() },
		"mean_squared_error": func() openpb.CostFunction { return MSE() },
		"l2":                 func() openpb.CostFunction { return L2() },
		Abs().TypeString():   func() openpb.CostFunction { return Abs() },
		"l1":                 func() openpb.CostFunction { return L1() },

		Huber(DefaultDelta).TypeString(): func() openpb.CostFunction { return Huber(DefaultDelta) },

		CrossEntropy().TypeString():       func() openpb.CostFunction { return CrossEntropy() },
		"cross_entropy":                   func() openpb.CostFunction { return CrossEntropy() },
		"categorical_cross_entropy":       func() openpb.CostFunction { return CrossEntropy() },
		"negative_log":                    func() openpb.CostFunction { return NegativeLog() },
		BinaryCrossEntropy().TypeString(): func() openpb.CostFunction { return BinaryCrossEntropy() },
		"binary_cross_entropy":            func() openpb.CostFunction { return BinaryCrossEntropy() },
	}

	for s, f := range list {
		if err := openpb.RegisterCostFunction(s, f); err != nil {
			panic(err.Error())
		}
	}
}
