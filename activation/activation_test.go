package activation

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/diff/fd"

	"github.com/dakatk/OpenPB/tensor"
)

func TestParse(t *testing.T) {
	cases := map[string]Func{
		"":           Identity,
		"Sigmoid":    Sigmoid,
		"relu":       ReLU,
		"leaky relu": LeakyReLU,
		"LeakyReLU":  LeakyReLU,
		"tanh":       Tanh,
		"softmax":    Softmax,
	}
	for name, want := range cases {
		got, err := Parse(name)
		if err != nil {
			t.Fatalf("Parse(%q): %v", name, err)
		}
		if got != want {
			t.Fatalf("Parse(%q) = %v, expected %v", name, got, want)
		}
	}

	if _, err := Parse("swish"); err == nil {
		t.Fatalf("expected error for unknown activation")
	}
}

func TestSoftmaxRowsSumToOne(t *testing.T) {
	z := tensor.MustFromSlice([]float64{1, 2, 3, 1000, 1000, 1000}, 2, 3)
	y := Softmax.Forward(z)
	for r := 0; r < 2; r++ {
		var sum float64
		for c := 0; c < 3; c++ {
			sum += y.At(r, c)
		}
		if math.Abs(sum-1) > 1e-12 {
			t.Fatalf("row %d sums to %v", r, sum)
		}
	}
	if math.Abs(y.At(1, 0)-1.0/3) > 1e-12 {
		t.Fatalf("large equal inputs should be uniform, got %v", y.At(1, 0))
	}
}

// The gradient of loss(z) = Σ w_i f(z)_i is checked against central differences for every
// function.
func TestBackwardMatchesFiniteDifference(t *testing.T) {
	z0 := []float64{-1.3, -0.2, 0.4, 2.1, 0.7, -0.6}
	w := []float64{0.5, -1, 2, 0.25, -0.75, 1.5}

	for _, f := range []Func{Identity, Sigmoid, ReLU, LeakyReLU, Tanh, Softmax} {
		loss := func(x []float64) float64 {
			y := f.Forward(tensor.MustFromSlice(append([]float64(nil), x...), 2, 3))
			var s float64
			for i, v := range y.Data() {
				s += w[i] * v
			}
			return s
		}

		numeric := fd.Gradient(nil, loss, z0, &fd.Settings{Formula: fd.Central, Step: 1e-6})

		z := tensor.MustFromSlice(append([]float64(nil), z0...), 2, 3)
		y := f.Forward(z)
		grad, err := f.Backward(z, y, tensor.MustFromSlice(append([]float64(nil), w...), 2, 3))
		if err != nil {
			t.Fatalf("%v: %v", f, err)
		}

		for i := range numeric {
			if math.Abs(numeric[i]-grad.Data()[i]) > 1e-6 {
				t.Fatalf("%v: gradient %d: analytic %v, numeric %v", f, i, grad.Data()[i], numeric[i])
			}
		}
	}
}

func TestBackwardShapeMismatch(t *testing.T) {
	z := tensor.New(2, 3)
	if _, err := Tanh.Backward(z, Tanh.Forward(z), tensor.New(3, 2)); err == nil {
		t.Fatalf("expected mismatch")
	}
}
