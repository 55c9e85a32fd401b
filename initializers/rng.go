package initializers

import "math/rand"

// RNG is a distribution that values can be drawn from. Every draw uses the source it is given, so
// that a job's weights depend only on its seed.
type RNG interface {
	Gen(src *rand.Rand) float64
}

type uniformRNG struct {
	lower, upper float64
}

// UniformRNG returns an RNG that gives values uniformly spread in [lower, upper).
func UniformRNG(lower, upper float64) uniformRNG {
	return uniformRNG{lower, upper}
}

func (u uniformRNG) Gen(src *rand.Rand) float64 {
	return src.Float64()*(u.upper-u.lower) + u.lower
}

type normal struct {
	µ, σ float64
}

// Normal returns an RNG that gives values within a normal distribution. The center and standard
// deviation can be set by Mean and SD, respectively.
func Normal() *normal {
	return &normal{defaultMean, defaultSD}
}

// SD sets the value of the standard deviation of the normal distribution.
func (n *normal) SD(sd float64) *normal {
	n.σ = sd
	return n
}

// Mean sets the center of the normal distribution.
func (n *normal) Mean(mean float64) *normal {
	n.µ = mean
	return n
}

func (n *normal) Gen(src *rand.Rand) float64 {
	return src.NormFloat64()*n.σ + n.µ
}

type truncNormal struct {
	*normal
	trunc float64
}

const defaultTrunc float64 = 2.0

// TruncNormal returns an RNG that gives values within a truncated normal distribution. The
// distribution is truncated at 2 standard deviations, which can be changed with Trunc. The center
// and standard deviation are set in the same way as Normal.
func TruncNormal() *truncNormal {
	return &truncNormal{Normal(), defaultTrunc}
}

// Trunc sets the number of standard deviations to keep on either side. Trunc will panic if given
// sds <= 0.
func (t *truncNormal) Trunc(sds float64) *truncNormal {
	if sds <= 0 {
		panic("given number of standard deviations to truncate after is <= 0")
	}

	t.trunc = sds
	return t
}

// SD sets the standard deviation, returning the TruncNormal.
func (t *truncNormal) SD(sd float64) *truncNormal {
	t.normal.SD(sd)
	return t
}

func (t *truncNormal) Gen(src *rand.Rand) float64 {
	for {
		v := src.NormFloat64()
		if v < -t.trunc || v > t.trunc {
			continue
		}

		return v*t.σ + t.µ
	}
}
