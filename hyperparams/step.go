package hyperparams

import (
	"sort"

	"github.com/pkg/errors"
)

type step struct {
	Epoch int
	Val   float64
}

type stepper []step

// Step returns a schedule that starts at base and changes value at each epoch given to Add.
func Step(base float64) *stepper {
	st := stepper{{0, base}}
	return &st
}

// Add sets the value from the given epoch onwards. Steps may be added in any order; adding a step
// at an epoch that already has one replaces it.
func (s *stepper) Add(epoch int, value float64) *stepper {
	sl := *s
	for i := range sl {
		if sl[i].Epoch == epoch {
			sl[i].Val = value
			return s
		}
	}

	sl = append(sl, step{epoch, value})
	sort.Slice(sl, func(i, j int) bool { return sl[i].Epoch < sl[j].Epoch })
	*s = sl
	return s
}

func (s *stepper) TypeString() string {
	return "step"
}

func (s *stepper) Value(epoch int) float64 {
	sl := []step(*s)
	for i := 1; i < len(sl); i++ {
		if sl[i].Epoch > epoch {
			return sl[i-1].Val
		}
	}

	return sl[len(sl)-1].Val
}

// Schedule is satisfied by every value returned from this package.
type Schedule interface {
	TypeString() string
	Value(epoch int) float64
}

// FromSteps returns Constant(base) if steps is empty, and otherwise a Step schedule starting at
// base, with each key of steps (a 0-indexed epoch) mapping to the value from that epoch onwards.
func FromSteps(base float64, steps map[int]float64) (Schedule, error) {
	if base <= 0 {
		return nil, errors.Errorf("learning rate must be > 0, got %v", base)
	}
	if len(steps) == 0 {
		return Constant(base), nil
	}

	s := Step(base)
	for e, v := range steps {
		if e < 0 {
			return nil, errors.Errorf("step at negative epoch %d", e)
		} else if v <= 0 {
			return nil, errors.Errorf("step at epoch %d has non-positive value %v", e, v)
		}
		s.Add(e, v)
	}
	return s, nil
}
