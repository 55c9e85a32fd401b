// Package stats aggregates the results of many training runs into per-group statistics, online and
// from any number of goroutines.
package stats

import (
	"math"
)

// Welford accumulates the count, mean, and variance of a stream of values in a single pass, using
// Welford's algorithm. The zero value is ready to use.
type Welford struct {
	n    int
	mean float64
	m2   float64
}

// Add records a single value.
func (w *Welford) Add(x float64) {
	w.n++
	d := x - w.mean
	w.mean += d / float64(w.n)
	w.m2 += d * (x - w.mean)
}

// Count returns the number of values added.
func (w *Welford) Count() int {
	return w.n
}

// Mean returns the mean of the values added, or 0 if there are none.
func (w *Welford) Mean() float64 {
	return w.mean
}

// Variance returns the sample variance (dividing by n-1), or 0 for fewer than two values.
func (w *Welford) Variance() float64 {
	if w.n < 2 {
		return 0
	}
	return w.m2 / float64(w.n-1)
}

// StdDev returns the square root of Variance.
func (w *Welford) StdDev() float64 {
	return math.Sqrt(w.Variance())
}

// Merge adds every value recorded by o to w, as if they had been added one at a time (Chan et al.).
func (w *Welford) Merge(o Welford) {
	if o.n == 0 {
		return
	} else if w.n == 0 {
		*w = o
		return
	}

	n := w.n + o.n
	d := o.mean - w.mean
	w.mean += d * float64(o.n) / float64(n)
	w.m2 += o.m2 + d*d*float64(w.n)*float64(o.n)/float64(n)
	w.n = n
}
