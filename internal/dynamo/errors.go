package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for sweep operations.
var (
	// ErrConfig indicates an invalid solver configuration or solve request.
	ErrConfig = errors.New("dynamo: invalid configuration")

	// ErrInvalidBounds indicates a control bound with lower >= upper.
	ErrInvalidBounds = errors.New("dynamo: bounds must satisfy lower < upper")

	// ErrBoundsLength indicates a bounds list whose length differs from the control count.
	ErrBoundsLength = errors.New("dynamo: bounds length must match number of controls")

	// ErrFreeAdjoint indicates free terminal adjoint indices that are out of range,
	// repeated, or do not match the supplied values.
	ErrFreeAdjoint = errors.New("dynamo: invalid free terminal adjoint values")

	// ErrDimensionMismatch indicates a callback returned a vector of the wrong width.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between callback result and problem")

	// ErrNotConverged indicates the sweep hit its iteration cap.
	ErrNotConverged = errors.New("dynamo: sweep did not converge")

	// ErrDiverged indicates a trajectory picked up NaN or Inf values.
	ErrDiverged = errors.New("dynamo: sweep diverged (NaN or Inf detected)")
)

// StepError wraps an error with the grid position it happened at.
type StepError struct {
	Stage   string
	Index   int
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step %d (t=%.4f): %v", e.Stage, e.Index, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
