package tensor

import (
	"errors"
	"math"
	"testing"
)

func TestIndexPoint(t *testing.T) {
	x := New(2, 3, 4)
	for i := 0; i < x.Len(); i++ {
		p := x.Point(i)
		if got := x.Index(p...); got != i {
			t.Fatalf("Index(Point(%d)) = %d (point %v)", i, got, p)
		}
	}

	x.Set(7, 1, 2, 3)
	if x.Data()[x.Len()-1] != 7 {
		t.Fatalf("Set(1,2,3) did not write the last value: %v", x.Data())
	}
}

func TestReshape(t *testing.T) {
	x := MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	r, err := x.Reshape(3, 2)
	if err != nil {
		t.Fatalf("reshape: %v", err)
	}
	if r.At(2, 1) != 6 {
		t.Fatalf("expected 6 at (2,1), got %v", r.At(2, 1))
	}

	_, err = x.Reshape(4, 2)
	var sm *ShapeMismatchError
	if !errors.As(err, &sm) || sm.Op != "reshape" {
		t.Fatalf("expected reshape ShapeMismatchError, got %v", err)
	}
}

func TestFromSliceChecks(t *testing.T) {
	if _, err := FromSlice([]float64{1, 2, 3}, 2, 2); err == nil {
		t.Fatalf("expected error for short data")
	}
	if _, err := FromSlice(nil, 0); err == nil {
		t.Fatalf("expected error for zero dimension")
	}
}

func TestElementwise(t *testing.T) {
	a := MustFromSlice([]float64{1, 2, 3, 4}, 2, 2)
	b := MustFromSlice([]float64{4, 3, 2, 1}, 2, 2)

	cases := []struct {
		name string
		f    func(a, b *Tensor) (*Tensor, error)
		want []float64
	}{
		{"add", Add, []float64{5, 5, 5, 5}},
		{"sub", Sub, []float64{-3, -1, 1, 3}},
		{"mul", Mul, []float64{4, 6, 6, 4}},
	}

	for _, c := range cases {
		got, err := c.f(a, b)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if !Equal(got, MustFromSlice(c.want, 2, 2)) {
			t.Fatalf("%s: expected %v, got %v", c.name, c.want, got.Data())
		}
	}

	if _, err := Add(a, New(4)); err == nil {
		t.Fatalf("expected mismatch adding [2 2] and [4]")
	}
}

func TestAddInPlaceAndScale(t *testing.T) {
	dst := MustFromSlice([]float64{1, 1, 1}, 3)
	if err := AddInPlace(dst, -2, MustFromSlice([]float64{1, 2, 3}, 3)); err != nil {
		t.Fatalf("add in place: %v", err)
	}
	if !Equal(dst, MustFromSlice([]float64{-1, -3, -5}, 3)) {
		t.Fatalf("unexpected result %v", dst.Data())
	}
	if s := Sum(Scale(0.5, dst)); s != -4.5 {
		t.Fatalf("expected sum -4.5, got %v", s)
	}
}

func TestMatMul(t *testing.T) {
	a := MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	b := MustFromSlice([]float64{7, 8, 9, 10, 11, 12}, 3, 2)

	got, err := MatMul(a, b)
	if err != nil {
		t.Fatalf("matmul: %v", err)
	}
	want := MustFromSlice([]float64{58, 64, 139, 154}, 2, 2)
	if !Equal(got, want) {
		t.Fatalf("expected %v, got %v", want.Data(), got.Data())
	}

	bt, err := Transpose(b)
	if err != nil {
		t.Fatalf("transpose: %v", err)
	}
	got, err = MatMulTransB(a, bt)
	if err != nil {
		t.Fatalf("matmul-transb: %v", err)
	}
	if !Equal(got, want) {
		t.Fatalf("MatMulTransB: expected %v, got %v", want.Data(), got.Data())
	}

	at, _ := Transpose(a)
	got, err = MatMulTransA(at, b)
	if err != nil {
		t.Fatalf("matmul-transa: %v", err)
	}
	if !Equal(got, want) {
		t.Fatalf("MatMulTransA: expected %v, got %v", want.Data(), got.Data())
	}

	_, err = MatMul(a, a)
	var sm *ShapeMismatchError
	if !errors.As(err, &sm) {
		t.Fatalf("expected ShapeMismatchError, got %v", err)
	}
	if sm.A[0] != 2 || sm.A[1] != 3 || sm.B[0] != 2 || sm.B[1] != 3 {
		t.Fatalf("error should carry both shapes, got %v", sm)
	}
}

func TestAddRowVector(t *testing.T) {
	a := MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	v := MustFromSlice([]float64{10, 20, 30}, 3)

	got, err := AddRowVector(a, v)
	if err != nil {
		t.Fatalf("add row vector: %v", err)
	}
	if !Equal(got, MustFromSlice([]float64{11, 22, 33, 14, 25, 36}, 2, 3)) {
		t.Fatalf("unexpected result %v", got.Data())
	}

	sums, _ := SumRows(a)
	if !Equal(sums, MustFromSlice([]float64{5, 7, 9}, 3)) {
		t.Fatalf("unexpected column sums %v", sums.Data())
	}

	if _, err := AddRowVector(a, New(2)); err == nil {
		t.Fatalf("expected mismatch for bias of width 2")
	}
}

func TestIsFiniteAndArgMax(t *testing.T) {
	x := MustFromSlice([]float64{0.1, 0.7, 0.2, 0.9, 0.05, 0.05}, 2, 3)
	if !IsFinite(x) {
		t.Fatalf("expected finite")
	}

	idx, err := ArgMaxRows(x)
	if err != nil {
		t.Fatalf("argmax: %v", err)
	}
	if idx[0] != 1 || idx[1] != 0 {
		t.Fatalf("expected [1 0], got %v", idx)
	}

	x.Data()[4] = math.NaN()
	if IsFinite(x) {
		t.Fatalf("NaN should not be finite")
	}
	x.Data()[4] = math.Inf(-1)
	if IsFinite(x) {
		t.Fatalf("-Inf should not be finite")
	}
}
