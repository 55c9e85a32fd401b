package openpb

import (
	"fmt"
)

// Error is a wrapper for specific types of errors for which there is no additional information
// necessary. These errors are defined as global variables, and can be compared with errors.Is.
type Error struct{ string }

func (err Error) Error() string {
	return err.string
}

// These are the global errors that may be returned.
var (
	// ErrDiverged is returned by *Network.Backward when the loss or any parameter has become NaN or
	// infinite. The Network is marked as diverged and must not be trained further.
	ErrDiverged = Error{"network diverged: loss or parameters are no longer finite"}

	// ErrCancelled is the cause of a run that stopped because its context was cancelled.
	ErrCancelled = Error{"run cancelled"}

	ErrRegisterDuplicate = Error{"name is already registered"}
	ErrRegisterNilReturn = Error{"function return is nil"}
)

// InvalidSpecError is returned when a NetworkSpec cannot be built, either on its own or for the
// dataset it is paired with.
type InvalidSpecError struct {
	ID     string
	Reason string
}

func (err *InvalidSpecError) Error() string {
	return fmt.Sprintf("invalid network spec %q: %s", err.ID, err.Reason)
}

func invalidSpec(id, format string, args ...interface{}) *InvalidSpecError {
	return &InvalidSpecError{ID: id, Reason: fmt.Sprintf(format, args...)}
}

// InvalidDatasetError is returned by *Dataset.Validate.
type InvalidDatasetError struct {
	ID     string
	Reason string
}

func (err *InvalidDatasetError) Error() string {
	return fmt.Sprintf("invalid dataset %q: %s", err.ID, err.Reason)
}

func invalidDataset(id, format string, args ...interface{}) *InvalidDatasetError {
	return &InvalidDatasetError{ID: id, Reason: fmt.Sprintf(format, args...)}
}
