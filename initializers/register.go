// Package initializers sets the starting values of layer parameters. Every Initializer draws from
// the *rand.Rand it is handed; none of them touch the global source.
package initializers

import (
	"math/rand"
	"strings"

	"github.com/pkg/errors"
)

// Initializer fills ws, the values of a parameter whose units each see fanIn inputs and feed fanOut
// outputs.
type Initializer interface {
	Set(src *rand.Rand, fanIn, fanOut int, ws []float64)
}

// default values, because 'default' is a keyword
const (
	defaultLower  float64 = -1
	defaultUpper  float64 = 1
	defaultMean   float64 = 0
	defaultSD     float64 = 1
	defaultFactor float64 = 1
)

var byName = map[string]func() Initializer{
	"uniform":        func() Initializer { return Uniform() },
	"normal":         func() Initializer { return Random(Normal()) },
	"truncnormal":    func() Initializer { return Random(TruncNormal()) },
	"trunc_normal":   func() Initializer { return Random(TruncNormal()) },
	"xavier":         func() Initializer { return Xavier() },
	"glorot":         func() Initializer { return Glorot() },
	"he":             func() Initializer { return He() },
	"lecun":          func() Initializer { return LeCun() },
	"scaled_uniform": func() Initializer { return ScaledUniform() },
}

// Default returns the Initializer used when a layer does not name one.
func Default() Initializer {
	return Xavier()
}

// Parse returns a new Initializer by name. The empty string gives Default.
func Parse(name string) (Initializer, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Default(), nil
	}

	f, ok := byName[name]
	if !ok {
		return nil, errors.Errorf("unknown initializer %q", name)
	}
	return f(), nil
}
