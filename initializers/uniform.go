package initializers

import (
	"math"
	"math/rand"
)

type uniform struct {
	lower, upper float64
}

// Uniform returns an Initalizer that draws from a uniform random sample within a range, which can
// be set by Range. The default range is [-1, 1).
//
// Uniform is the default Initializer.
func Uniform() *uniform {
	return &uniform{defaultLower, defaultUpper}
}

// Range sets the Range of a Uniform Initializer, returning the same Initializer
func (u *uniform) Range(lower, upper float64) *uniform {
	if lower > upper {
		lower, upper = upper, lower
	}
	u.lower = lower
	u.upper = upper
	return u
}

func (u *uniform) Set(src *rand.Rand, fanIn, fanOut int, ws []float64) {
	for i := 0; i < len(ws); i++ {
		w := src.Float64()*(u.upper-u.lower) + u.lower
		if w == 0 {
			// discard and try again
			i--
			continue
		}
		ws[i] = w
	}
}

type scaledUniform struct{}

// ScaledUniform returns an Initializer that draws from [0, 1) and divides by the square root of the
// number of inputs.
func ScaledUniform() scaledUniform {
	return scaledUniform{}
}

func (scaledUniform) Set(src *rand.Rand, fanIn, fanOut int, ws []float64) {
	scale := 1 / math.Sqrt(float64(max(fanIn, 1)))
	for i := range ws {
		ws[i] = src.Float64() * scale
	}
}
