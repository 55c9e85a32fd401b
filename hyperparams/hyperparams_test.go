package hyperparams

import (
	"testing"
)

func TestConstant(t *testing.T) {
	c := Constant(0.25)
	for _, e := range []int{0, 1, 1000} {
		if v := c.Value(e); v != 0.25 {
			t.Fatalf("Value(%d) = %v, expected 0.25", e, v)
		}
	}
}

func TestStep(t *testing.T) {
	s := Step(1).Add(10, 0.5).Add(5, 0.75)

	table := []struct {
		epoch int
		want  float64
	}{
		{0, 1}, {4, 1}, {5, 0.75}, {9, 0.75}, {10, 0.5}, {500, 0.5},
	}
	for _, c := range table {
		if v := s.Value(c.epoch); v != c.want {
			t.Fatalf("Value(%d) = %v, expected %v", c.epoch, v, c.want)
		}
	}

	s.Add(5, 0.1)
	if v := s.Value(6); v != 0.1 {
		t.Fatalf("replaced step: Value(6) = %v, expected 0.1", v)
	}
}

func TestFromSteps(t *testing.T) {
	s, err := FromSteps(0.1, nil)
	if err != nil {
		t.Fatal(err)
	} else if s.TypeString() != "constant" {
		t.Fatalf("expected constant schedule, got %s", s.TypeString())
	}

	s, err = FromSteps(0.1, map[int]float64{3: 0.01})
	if err != nil {
		t.Fatal(err)
	} else if s.Value(2) != 0.1 || s.Value(3) != 0.01 {
		t.Fatalf("unexpected step values %v, %v", s.Value(2), s.Value(3))
	}

	if _, err := FromSteps(0, nil); err == nil {
		t.Fatalf("expected error for zero learning rate")
	}
	if _, err := FromSteps(0.1, map[int]float64{-1: 0.1}); err == nil {
		t.Fatalf("expected error for negative epoch")
	}
}
