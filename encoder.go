package openpb

import (
	"math"

	"github.com/pkg/errors"
)

// Encoder transforms the raw targets of a dataset into the values a network is trained to
// produce.
type Encoder interface {
	// Width returns the width of encoded targets, given the width of raw ones.
	Width(raw int) (int, error)

	// Encode writes the encoding of target into dst, which has length Width(len(target)).
	Encode(dst, target []float64) error
}

// NewEncoder returns the Encoder described by spec. A nil spec gives the identity encoder.
func NewEncoder(spec *EncoderSpec) (Encoder, error) {
	if spec == nil {
		return identity{}, nil
	}

	switch normalize(spec.Name) {
	case "", "identity", "none":
		return identity{}, nil
	case "one hot", "one_hot", "onehot", "one-hot":
		if spec.Classes < 2 {
			return nil, errors.Errorf("one-hot encoder needs at least 2 classes, got %d", spec.Classes)
		}
		return OneHot(spec.Classes), nil
	}
	return nil, errors.Errorf("unknown encoder %q", spec.Name)
}

type identity struct{}

func (identity) Width(raw int) (int, error) {
	return raw, nil
}

func (identity) Encode(dst, target []float64) error {
	copy(dst, target)
	return nil
}

// OneHot encodes a single class index in [0, classes) as a vector with a 1 at that index and 0
// everywhere else.
type OneHot int

func (o OneHot) Width(raw int) (int, error) {
	if raw != 1 {
		return 0, errors.Errorf("one-hot encoding needs exactly 1 target value per example, got %d", raw)
	}
	return int(o), nil
}

func (o OneHot) Encode(dst, target []float64) error {
	c := target[0]
	if c != math.Trunc(c) || c < 0 || int(c) >= int(o) {
		return errors.Errorf("target %v is not a class index in [0, %d)", c, int(o))
	}

	for i := range dst {
		dst[i] = 0
	}
	dst[int(c)] = 1
	return nil
}
