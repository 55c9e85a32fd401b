// Package hyperparams provides learning-rate schedules: values that may change from one epoch to
// the next.
package hyperparams

type constant float64

// Constant returns a schedule that always gives value.
func Constant(value float64) *constant {
	c := constant(value)
	return &c
}

func (c constant) TypeString() string {
	return "constant"
}

func (c *constant) Value(epoch int) float64 {
	return float64(*c)
}
