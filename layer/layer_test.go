package layer

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/diff/fd"

	"github.com/dakatk/OpenPB/activation"
	"github.com/dakatk/OpenPB/tensor"
)

func randomTensor(rng *rand.Rand, shape ...int) *tensor.Tensor {
	t := tensor.New(shape...)
	for i := range t.Data() {
		t.Data()[i] = rng.Float64()*2 - 1
	}
	return t
}

type layerCase struct {
	name  string
	conf  Config
	in    []int // per example
	out   []int // per example
	batch int
}

var cases = []layerCase{
	{"dense", Config{Kind: Dense, Units: 3, Activation: activation.Tanh}, []int{4}, []int{3}, 5},
	{"dense-flatten", Config{Kind: Dense, Units: 2, Activation: activation.Sigmoid}, []int{2, 3, 3}, []int{2}, 2},
	{"dense-softmax", Config{Kind: Dense, Units: 4, Activation: activation.Softmax}, []int{3}, []int{4}, 3},
	{"conv-valid", Config{Kind: Conv, Filters: 2, Kernel: [2]int{3, 3}, Activation: activation.Tanh}, []int{2, 5, 5}, []int{2, 3, 3}, 2},
	{"conv-same-stride", Config{Kind: Conv, Filters: 3, Kernel: [2]int{2, 2}, Stride: 2, Padding: tensor.Same}, []int{1, 5, 4}, []int{3, 3, 2}, 2},
	{"pool-max", Config{Kind: Pool, Window: [2]int{2, 2}}, []int{2, 4, 4}, []int{2, 2, 2}, 2},
	{"pool-avg", Config{Kind: Pool, Window: [2]int{2, 2}, Stride: 1, PoolMode: AvgPool}, []int{1, 3, 3}, []int{1, 2, 2}, 3},
	{"recurrent-last", Config{Kind: Recurrent, Units: 4, Outputs: 2, Activation: activation.Sigmoid}, []int{3, 2}, []int{2}, 3},
	{"recurrent-seq", Config{Kind: Recurrent, Units: 3, Sequences: true, Activation: activation.Tanh}, []int{4, 2}, []int{4, 3}, 2},
}

func TestOutputShapes(t *testing.T) {
	for _, c := range cases {
		rng := rand.New(rand.NewSource(1))
		l, err := New(c.conf, c.in, rng)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}

		out, err := l.Forward(randomTensor(rng, append([]int{c.batch}, c.in...)...), false)
		if err != nil {
			t.Fatalf("%s: forward: %v", c.name, err)
		}

		want := append([]int{c.batch}, c.out...)
		if !tensor.New(want...).SameShape(out) {
			t.Fatalf("%s: expected output %v, got %v", c.name, want, out.Shape())
		}
		if got := l.OutShape(); len(got) != len(c.out) {
			t.Fatalf("%s: OutShape() = %v, expected %v", c.name, got, c.out)
		}
	}
}

func TestForwardShapeMismatch(t *testing.T) {
	for _, c := range cases {
		rng := rand.New(rand.NewSource(1))
		l, err := New(c.conf, c.in, rng)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}

		bad := append([]int{c.batch}, c.in...)
		bad[len(bad)-1]++

		_, err = l.Forward(tensor.New(bad...), false)
		var sm *tensor.ShapeMismatchError
		if !errors.As(err, &sm) {
			t.Fatalf("%s: expected ShapeMismatchError, got %v", c.name, err)
		}
		if sm.A[len(sm.A)-1] != bad[len(bad)-1] {
			t.Fatalf("%s: error should carry the offending shape, got %v", c.name, sm)
		}
	}
}

func TestForwardDeterministic(t *testing.T) {
	for _, c := range cases {
		rng := rand.New(rand.NewSource(2))
		c.conf.Dropout = 0.5
		l, err := New(c.conf, c.in, rng)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}

		x := randomTensor(rng, append([]int{c.batch}, c.in...)...)
		a, err := l.Forward(x, false)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		b, err := l.Forward(x, false)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if !tensor.Equal(a, b) {
			t.Fatalf("%s: repeated inference forward passes differ", c.name)
		}
	}
}

func TestSameSeedSameLayer(t *testing.T) {
	for _, c := range cases {
		a, _ := New(c.conf, c.in, rand.New(rand.NewSource(9)))
		b, _ := New(c.conf, c.in, rand.New(rand.NewSource(9)))

		pa, pb := a.Params(), b.Params()
		for i := range pa {
			if !tensor.Equal(pa[i].Value, pb[i].Value) {
				t.Fatalf("%s: param %s differs between identical seeds", c.name, pa[i].Name)
			}
		}
	}
}

// With loss = Σ w ⊙ Forward(x), Backward(w) must match central differences for the input and for
// every parameter.
func TestGradientsMatchFiniteDifference(t *testing.T) {
	settings := &fd.Settings{Formula: fd.Central, Step: 1e-6}

	for _, c := range cases {
		rng := rand.New(rand.NewSource(3))
		l, err := New(c.conf, c.in, rng)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}

		x := randomTensor(rng, append([]int{c.batch}, c.in...)...)
		// avoid ties in max pooling, where the gradient is undefined
		for i := range x.Data() {
			x.Data()[i] += float64(i) * 1e-3
		}
		w := randomTensor(rng, append([]int{c.batch}, c.out...)...)

		loss := func() float64 {
			y, err := l.Forward(x, false)
			if err != nil {
				t.Fatalf("%s: %v", c.name, err)
			}
			m, _ := tensor.Mul(y, w)
			return tensor.Sum(m)
		}

		wrt := func(values []float64) func([]float64) float64 {
			return func(v []float64) float64 {
				orig := append([]float64(nil), values...)
				copy(values, v)
				s := loss()
				copy(values, orig)
				return s
			}
		}

		loss()
		gradIn, err := l.Backward(w)
		if err != nil {
			t.Fatalf("%s: backward: %v", c.name, err)
		}

		analytic := map[string][]float64{"input": append([]float64(nil), gradIn.Data()...)}
		for _, p := range l.Params() {
			analytic[p.Name] = append([]float64(nil), p.Grad.Data()...)
		}

		check := func(name string, values []float64) {
			numeric := fd.Gradient(nil, wrt(values), append([]float64(nil), values...), settings)
			for i := range numeric {
				if math.Abs(numeric[i]-analytic[name][i]) > 1e-5 {
					t.Fatalf("%s: gradient of %s[%d]: analytic %v, numeric %v",
						c.name, name, i, analytic[name][i], numeric[i])
				}
			}
		}

		check("input", x.Data())
		for _, p := range l.Params() {
			check(p.Name, p.Value.Data())
		}
	}
}

func TestBackwardShapeMismatch(t *testing.T) {
	for _, c := range cases {
		rng := rand.New(rand.NewSource(1))
		l, _ := New(c.conf, c.in, rng)
		if _, err := l.Forward(randomTensor(rng, append([]int{c.batch}, c.in...)...), true); err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}

		bad := append([]int{c.batch}, c.out...)
		bad[1]++
		_, err := l.Backward(tensor.New(bad...))
		var sm *tensor.ShapeMismatchError
		if !errors.As(err, &sm) {
			t.Fatalf("%s: expected ShapeMismatchError, got %v", c.name, err)
		}
	}
}

func TestDropoutOnlyWhenTraining(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	l, err := New(Config{Kind: Dense, Units: 200, Dropout: 0.5}, []int{3}, rng)
	if err != nil {
		t.Fatal(err)
	}
	x := randomTensor(rng, 4, 3)

	eval, _ := l.Forward(x, false)
	for _, v := range eval.Data() {
		if v == 0 {
			t.Fatalf("inference output should not be dropped")
		}
	}

	train, _ := l.Forward(x, true)
	var zeros int
	for _, v := range train.Data() {
		if v == 0 {
			zeros++
		}
	}
	if zeros < 300 || zeros > 500 {
		t.Fatalf("expected about 400 of 800 values dropped, got %d", zeros)
	}
}

func TestTruncatedBPTT(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	l, err := New(Config{Kind: Recurrent, Units: 3, Truncate: 1}, []int{4, 2}, rng)
	if err != nil {
		t.Fatal(err)
	}

	x := randomTensor(rng, 2, 4, 2)
	if _, err := l.Forward(x, true); err != nil {
		t.Fatal(err)
	}
	gradIn, err := l.Backward(randomTensor(rng, 2, 3))
	if err != nil {
		t.Fatal(err)
	}

	// with only the last step receiving gradient, earlier steps must be untouched
	for n := 0; n < 2; n++ {
		for s := 0; s < 3; s++ {
			for f := 0; f < 2; f++ {
				if g := gradIn.At(n, s, f); g != 0 {
					t.Fatalf("step %d received gradient %v despite truncation", s, g)
				}
			}
		}
	}
}

func TestInvalidConfigs(t *testing.T) {
	bad := []struct {
		conf Config
		in   []int
	}{
		{Config{Kind: Dense}, []int{3}},
		{Config{Kind: Conv, Filters: 1, Kernel: [2]int{3, 3}}, []int{1, 2, 2}},
		{Config{Kind: Conv, Filters: 1, Kernel: [2]int{3, 3}}, []int{4}},
		{Config{Kind: Pool, Window: [2]int{3, 3}}, []int{1, 2, 2}},
		{Config{Kind: Recurrent, Units: 2}, []int{4}},
		{Config{Kind: Dense, Units: 2, Dropout: 1}, []int{3}},
	}

	for _, b := range bad {
		if _, err := New(b.conf, b.in, rand.New(rand.NewSource(1))); err == nil {
			t.Fatalf("expected error for %+v with input %v", b.conf, b.in)
		}
	}
}
