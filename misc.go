package openpb

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/dakatk/OpenPB/tensor"
)

// CorrectRound reports whether every output rounds to its target. Used for networks with a single
// output, where the target is a class label or a binary value.
//
// assumes len(outs) == len(targets)
func CorrectRound(outs, targets []float64) bool {
	for i := range outs {
		if math.Round(outs[i]) != math.Round(targets[i]) {
			return false
		}
	}

	return true
}

// CorrectHighest just returns whether or not the largest value in each is at the same index
func CorrectHighest(outs, targets []float64) bool {
	return floats.MaxIdx(outs) == floats.MaxIdx(targets)
}

// Accuracy returns the fraction of rows of preds that are correct for the matching row of targets.
// Rows with more than one value are compared with CorrectHighest, and single values with
// CorrectRound.
func Accuracy(preds, targets *tensor.Tensor) (float64, error) {
	if preds.Dims() != 2 || !preds.SameShape(targets) {
		return 0, &tensor.ShapeMismatchError{Op: "accuracy", A: preds.Shape(), B: targets.Shape()}
	}

	rows, width := preds.Dim(0), preds.Dim(1)
	correct := CorrectRound
	if width > 1 {
		correct = CorrectHighest
	}

	var n int
	for r := 0; r < rows; r++ {
		if correct(preds.Data()[r*width:(r+1)*width], targets.Data()[r*width:(r+1)*width]) {
			n++
		}
	}
	return float64(n) / float64(rows), nil
}
