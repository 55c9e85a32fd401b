package penalties

import (
	openpb "github.com/dakatk/OpenPB"
)

func init() {
	list := map[string]func(openpb.PenaltySpec) openpb.Penalty{
		L1(0).TypeString(): func(s openpb.PenaltySpec) openpb.Penalty { return L1(s.Lambda) },
		"l1":               func(s openpb.PenaltySpec) openpb.Penalty { return L1(s.Lambda) },
		"lasso":            func(s openpb.PenaltySpec) openpb.Penalty { return Lasso(s.Lambda) },
		L2(0).TypeString(): func(s openpb.PenaltySpec) openpb.Penalty { return L2(s.Lambda) },
		"l2":               func(s openpb.PenaltySpec) openpb.Penalty { return L2(s.Lambda) },
		"ridge":            func(s openpb.PenaltySpec) openpb.Penalty { return Ridge(s.Lambda) },

		ElasticNet(0, 0).TypeString(): func(s openpb.PenaltySpec) openpb.Penalty { return ElasticNet(s.Alpha, s.Lambda) },
		"elastic_net":                 func(s openpb.PenaltySpec) openpb.Penalty { return ElasticNet(s.Alpha, s.Lambda) },
	}

	for s, f := range list {
		if err := openpb.RegisterPenalty(s, f); err != nil {
			panic(err.Error())
		}
	}
}
