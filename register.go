package openpb

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// OptimizerSpec names an Optimizer and its settings. Zero values are replaced by the defaults of
// the Optimizer.
type OptimizerSpec struct {
	Name         string
	LearningRate float64
	Beta1        *float64
	Beta2        *float64
}

// PenaltySpec names a Penalty and its strength.
type PenaltySpec struct {
	Name   string
	Lambda float64
	Alpha  float64
}

// The registries are only written to during package initialization, so they are safe to read from
// any number of jobs at once.
var (
	costFuncs  = make(map[string]func() CostFunction)
	optimizers = make(map[string]func(OptimizerSpec) Optimizer)
	penalties  = make(map[string]func(PenaltySpec) Penalty)
)

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// RegisterCostFunction makes a CostFunction available by name, for use in NetworkSpecs. It is
// intended to be called from the init function of the package providing the CostFunction.
func RegisterCostFunction(name string, f func() CostFunction) error {
	name = normalize(name)
	if _, ok := costFuncs[name]; ok {
		return errors.Wrapf(ErrRegisterDuplicate, "cost function %q", name)
	} else if f() == nil {
		return errors.Wrapf(ErrRegisterNilReturn, "cost function %q", name)
	}

	costFuncs[name] = f
	return nil
}

// RegisterOptimizer makes an Optimizer available by name.
func RegisterOptimizer(name string, f func(OptimizerSpec) Optimizer) error {
	name = normalize(name)
	if _, ok := optimizers[name]; ok {
		return errors.Wrapf(ErrRegisterDuplicate, "optimizer %q", name)
	} else if f(OptimizerSpec{}) == nil {
		return errors.Wrapf(ErrRegisterNilReturn, "optimizer %q", name)
	}

	optimizers[name] = f
	return nil
}

// RegisterPenalty makes a Penalty available by name.
func RegisterPenalty(name string, f func(PenaltySpec) Penalty) error {
	name = normalize(name)
	if _, ok := penalties[name]; ok {
		return errors.Wrapf(ErrRegisterDuplicate, "penalty %q", name)
	} else if f(PenaltySpec{}) == nil {
		return errors.Wrapf(ErrRegisterNilReturn, "penalty %q", name)
	}

	penalties[name] = f
	return nil
}

// NewCostFunction returns a new instance of the CostFunction registered under the given name.
func NewCostFunction(name string) (CostFunction, error) {
	f, ok := costFuncs[normalize(name)]
	if !ok {
		return nil, errors.Errorf("unknown cost function %q (have %v)", name, keys(costFuncs))
	}
	return f(), nil
}

// NewOptimizer returns a new instance of the Optimizer named by spec. Every Network gets its own.
func NewOptimizer(spec OptimizerSpec) (Optimizer, error) {
	f, ok := optimizers[normalize(spec.Name)]
	if !ok {
		return nil, errors.Errorf("unknown optimizer %q (have %v)", spec.Name, keys(optimizers))
	}
	return f(spec), nil
}

// NewPenalty returns a new instance of the Penalty named by spec.
func NewPenalty(spec PenaltySpec) (Penalty, error) {
	f, ok := penalties[normalize(spec.Name)]
	if !ok {
		return nil, errors.Errorf("unknown penalty %q (have %v)", spec.Name, keys(penalties))
	}
	return f(spec), nil
}

func keys[V any](m map[string]V) []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}
