package openpb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/dakatk/OpenPB/tensor"
)

// JobID identifies one training run: a network spec, a dataset, and which repetition of that pair
// it is. Repetitions are numbered from 1.
type JobID struct {
	Spec       string
	Dataset    string
	Repetition int
}

func (id JobID) String() string {
	return fmt.Sprintf("%s/%s/%d", id.Spec, id.Dataset, id.Repetition)
}

// UUID returns a name-based (version 5) UUID for the job. It depends only on the fields of id, so
// the same job always has the same UUID.
func (id JobID) UUID() uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id.String()))
}

// State is the state of a Trainer. Completed, Diverged, and Failed are terminal, and are the only
// states a RunResult can have.
type State int8

const (
	Initialized State = iota
	Running
	Completed
	Diverged
	Failed
)

func (s State) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Diverged:
		return "diverged"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int8(s))
}

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s == Completed || s == Diverged || s == Failed
}

// Reasons given for runs that did not complete
const (
	ReasonDiverged       = "diverged"
	ReasonCancelled      = "cancelled"
	ReasonShapeMismatch  = "shape mismatch"
	ReasonInvalidSpec    = "invalid spec"
	ReasonInvalidDataset = "invalid dataset"
	ReasonPanic          = "panic"
	ReasonError          = "error"
)

// Classify maps an error that ended a run to the State and reason it is reported with.
func Classify(err error) (State, string) {
	var sm *tensor.ShapeMismatchError
	var is *InvalidSpecError
	var id *InvalidDatasetError

	switch {
	case errors.Is(err, ErrDiverged):
		return Diverged, ReasonDiverged
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Failed, ReasonCancelled
	case errors.As(err, &is):
		return Failed, ReasonInvalidSpec
	case errors.As(err, &id):
		return Failed, ReasonInvalidDataset
	case errors.As(err, &sm):
		return Failed, ReasonShapeMismatch
	}
	return Failed, ReasonError
}

// EpochStats is the progress of a run after a single epoch.
type EpochStats struct {
	Epoch     int
	TrainLoss float64
	TestLoss  float64
	Accuracy  float64
}

// MaxHistory is the maximum number of entries kept in a History.
const MaxHistory = 256

// History is a bounded record of EpochStats. Once it holds MaxHistory entries, every other entry is
// dropped and from then on only every other epoch is recorded, doubling each time it fills again.
// The entries kept are always evenly spaced.
type History struct {
	entries []EpochStats
	stride  int
	seen    int
}

// Add records s, if it falls on the current stride.
func (h *History) Add(s EpochStats) {
	if h.stride == 0 {
		h.stride = 1
	}

	h.seen++
	if (h.seen-1)%h.stride != 0 {
		return
	}

	if len(h.entries) == MaxHistory {
		kept := h.entries[:0]
		for i := 0; i < len(h.entries); i += 2 {
			kept = append(kept, h.entries[i])
		}
		h.entries = kept
		h.stride *= 2

		if (h.seen-1)%h.stride != 0 {
			return
		}
	}

	h.entries = append(h.entries, s)
}

// Entries returns a copy of the recorded stats, in order.
func (h *History) Entries() []EpochStats {
	return append([]EpochStats(nil), h.entries...)
}

// Len returns the number of entries recorded.
func (h *History) Len() int {
	return len(h.entries)
}

// RunResult is the outcome of a single job.
type RunResult struct {
	ID     JobID
	Status State
	// Reason is empty for completed runs
	Reason string
	// Err is the message of the error that ended the run, if any
	Err string

	Seed int64

	// Accuracy and Loss are from the test set after the last completed epoch
	Accuracy float64
	Loss     float64
	Epochs   int

	History  []EpochStats
	Duration time.Duration
}
