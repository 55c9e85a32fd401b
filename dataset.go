package openpb

import (
	"math"
)

// Example is a single input with its target output. Inputs are flattened; they are reshaped to the
// InputShape of a NetworkSpec when they are fed to a Network.
type Example struct {
	Input  []float64
	Output []float64
}

// Dataset is a pair of training and testing sets. It is shared read-only between every job that
// uses it.
type Dataset struct {
	ID    string
	Train []Example
	Test  []Example
}

// Validate checks that both sets are non-empty, that every example has the same input and output
// widths, and that all values are finite. The returned error is always an *InvalidDatasetError.
func (d *Dataset) Validate() error {
	if d.ID == "" {
		return invalidDataset(d.ID, "missing id")
	} else if len(d.Train) == 0 {
		return invalidDataset(d.ID, "no training examples")
	} else if len(d.Test) == 0 {
		return invalidDataset(d.ID, "no testing examples")
	}

	in, out := len(d.Train[0].Input), len(d.Train[0].Output)
	if in == 0 || out == 0 {
		return invalidDataset(d.ID, "examples must have at least one input and one output")
	}

	check := func(set string, examples []Example) error {
		for i, e := range examples {
			if len(e.Input) != in || len(e.Output) != out {
				return invalidDataset(d.ID, "%s example #%d has widths (%d, %d), expected (%d, %d)",
					set, i, len(e.Input), len(e.Output), in, out)
			}
			for _, v := range e.Input {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return invalidDataset(d.ID, "%s example #%d has a non-finite input", set, i)
				}
			}
			for _, v := range e.Output {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return invalidDataset(d.ID, "%s example #%d has a non-finite output", set, i)
				}
			}
		}
		return nil
	}

	if err := check("training", d.Train); err != nil {
		return err
	}
	return check("testing", d.Test)
}

// InputWidth returns the number of input values per example. It assumes the Dataset is valid.
func (d *Dataset) InputWidth() int {
	return len(d.Train[0].Input)
}

// OutputWidth returns the number of target values per example. It assumes the Dataset is valid.
func (d *Dataset) OutputWidth() int {
	return len(d.Train[0].Output)
}
