package openpb

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/dakatk/OpenPB/activation"
	"github.com/dakatk/OpenPB/initializers"
	"github.com/dakatk/OpenPB/layer"
	"github.com/dakatk/OpenPB/tensor"
)

// Architecture is the family a NetworkSpec belongs to. It constrains the shape of the input and
// the kinds of layer that may appear.
type Architecture int8

const (
	FFNN Architecture = iota
	CNN
	RNN
)

func (a Architecture) String() string {
	switch a {
	case CNN:
		return "cnn"
	case RNN:
		return "rnn"
	}
	return "ffnn"
}

// ParseArchitecture accepts "ffnn", "cnn", or "rnn" in any case. The empty string is FFNN.
func ParseArchitecture(s string) (Architecture, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ffnn", "mlp", "feedforward":
		return FFNN, nil
	case "cnn", "convolutional":
		return CNN, nil
	case "rnn", "recurrent":
		return RNN, nil
	}
	return FFNN, errors.Errorf("unknown architecture %q", s)
}

// LayerSpec describes a single layer of a NetworkSpec. See layer.Config for the meaning of each
// field.
type LayerSpec struct {
	Kind layer.Kind

	Units   int
	Outputs int

	Filters int
	Kernel  [2]int
	Stride  int
	Padding tensor.Padding

	Window [2]int
	Pool   layer.PoolMode

	Activation activation.Func
	// Init is the name of an initializer, as accepted by initializers.Parse
	Init    string
	Dropout float64

	Truncate  int
	Sequences bool
}

func (ls LayerSpec) config() (layer.Config, error) {
	ini, err := initializers.Parse(ls.Init)
	if err != nil {
		return layer.Config{}, err
	}

	return layer.Config{
		Kind:       ls.Kind,
		Units:      ls.Units,
		Outputs:    ls.Outputs,
		Filters:    ls.Filters,
		Kernel:     ls.Kernel,
		Stride:     ls.Stride,
		Padding:    ls.Padding,
		Window:     ls.Window,
		PoolMode:   ls.Pool,
		Activation: ls.Activation,
		Init:       ini,
		Dropout:    ls.Dropout,
		Truncate:   ls.Truncate,
		Sequences:  ls.Sequences,
	}, nil
}

// EncoderSpec names the Encoder applied to dataset targets. The only encoder is "one_hot", which
// needs the number of classes.
type EncoderSpec struct {
	Name    string
	Classes int
}

// NetworkSpec is the description of a network to benchmark. It is shared read-only between every
// job that uses it.
type NetworkSpec struct {
	ID           string
	Architecture Architecture

	// InputShape is the shape of a single example: [features] for FFNN, [channels, height, width]
	// for CNN, and [steps, features] for RNN.
	InputShape []int
	Layers     []LayerSpec

	Cost string

	// Optimizer, Penalty, and Encoder are optional. Any field of Optimizer that is left unset is
	// taken from the run's defaults.
	Optimizer *OptimizerSpec
	Penalty   *PenaltySpec
	Encoder   *EncoderSpec

	// TargetAccuracy, if greater than zero, ends each run with this spec once test accuracy reaches
	// it, in place of the run's own target.
	TargetAccuracy float64

	// Seed, if set, is used for every job with this spec regardless of seed policy.
	Seed *int64
}

// Validate checks everything about the spec that can be checked without a dataset. The returned
// error is always an *InvalidSpecError.
func (s *NetworkSpec) Validate() error {
	if s.ID == "" {
		return invalidSpec(s.ID, "missing id")
	} else if err := tensor.CheckShape(s.InputShape); err != nil {
		return invalidSpec(s.ID, "input shape: %v", err)
	} else if len(s.Layers) == 0 {
		return invalidSpec(s.ID, "no layers")
	}

	switch s.Architecture {
	case FFNN:
		for i, l := range s.Layers {
			if l.Kind != layer.Dense {
				return invalidSpec(s.ID, "layer #%d: %v layer in a feed-forward network", i, l.Kind)
			}
		}
	case CNN:
		if len(s.InputShape) != 3 {
			return invalidSpec(s.ID, "convolutional input shape must be [channels, height, width], got %v", s.InputShape)
		}
	case RNN:
		if len(s.InputShape) != 2 {
			return invalidSpec(s.ID, "recurrent input shape must be [steps, features], got %v", s.InputShape)
		} else if s.Layers[0].Kind != layer.Recurrent {
			return invalidSpec(s.ID, "first layer of a recurrent network must be recurrent, got %v", s.Layers[0].Kind)
		}
	default:
		return invalidSpec(s.ID, "unknown architecture %d", s.Architecture)
	}

	for i, l := range s.Layers {
		if _, err := initializers.Parse(l.Init); err != nil {
			return invalidSpec(s.ID, "layer #%d: %v", i, err)
		}
	}

	if _, err := NewCostFunction(s.Cost); err != nil {
		return invalidSpec(s.ID, "%v", err)
	}
	if s.Optimizer != nil {
		if s.Optimizer.Name != "" {
			if _, err := NewOptimizer(*s.Optimizer); err != nil {
				return invalidSpec(s.ID, "%v", err)
			}
		}
		if s.Optimizer.LearningRate < 0 {
			return invalidSpec(s.ID, "negative learning rate %v", s.Optimizer.LearningRate)
		}
	}
	if s.Penalty != nil {
		if _, err := NewPenalty(*s.Penalty); err != nil {
			return invalidSpec(s.ID, "%v", err)
		}
	}
	if s.TargetAccuracy < 0 || s.TargetAccuracy > 1 {
		return invalidSpec(s.ID, "target accuracy must be in [0, 1], got %v", s.TargetAccuracy)
	}
	if _, err := NewEncoder(s.Encoder); err != nil {
		return invalidSpec(s.ID, "%v", err)
	}

	return nil
}
