package initializers

import (
	"math"
	"math/rand"
)

type varianceScaling struct {
	// either: "in", "out", "avg"
	mode   string
	factor float64
}

const defaultVarianceMode string = "avg"

// VarianceScaling returns the variance scaling initializer, which has 3 modes and a user-defined
// scaling factor. The three modes can be set by In, Out, and Avg. It defaults to Avg.
func VarianceScaling() *varianceScaling {
	return &varianceScaling{defaultVarianceMode, defaultFactor}
}

// Factor sets the scaling factor to be used for the Initializer.
func (v *varianceScaling) Factor(f float64) *varianceScaling {
	v.factor = f
	return v
}

// In sets the scaling to be based on the fan-in of the parameter.
func (v *varianceScaling) In() *varianceScaling {
	v.mode = "in"
	return v
}

// Out sets the scaling to be based on the fan-out of the parameter.
func (v *varianceScaling) Out() *varianceScaling {
	v.mode = "out"
	return v
}

// Avg sets the scaling to be based on the average of fan-in and fan-out.
func (v *varianceScaling) Avg() *varianceScaling {
	v.mode = "avg"
	return v
}

func (v *varianceScaling) Set(src *rand.Rand, fanIn, fanOut int, ws []float64) {
	var scale float64
	if v.mode == "in" {
		scale = float64(fanIn)
	} else if v.mode == "out" {
		scale = float64(fanOut)
	} else { // must be "avg"
		scale = float64(fanIn+fanOut) / 2
	}
	scale = math.Max(scale, 1)

	gen := TruncNormal().SD(math.Sqrt(v.factor / scale))

	for i := 0; i < len(ws); i++ {
		ws[i] = gen.Gen(src)
	}
}

// LeCun scales by fan-in with a factor of 1, for layers with linear or tanh activations.
func LeCun() Initializer {
	return VarianceScaling().In()
}

// He scales by fan-in with a factor of 2, for ReLU layers.
func He() Initializer {
	return VarianceScaling().In().Factor(2)
}

// Xavier scales by the average of fan-in and fan-out. It is the default Initializer.
func Xavier() Initializer {
	return VarianceScaling().Avg()
}

// Glorot is another name for Xavier.
func Glorot() Initializer {
	return Xavier()
}
