package rbp

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidProblem is the sentinel for malformed problems and options.
	ErrInvalidProblem = errors.New("rbp: invalid problem")

	// ErrDiverged is returned together with the partial result of a
	// diverged run.
	ErrDiverged = errors.New("rbp: estimate diverged")

	// ErrAborted is returned when a round hook or the context stopped the run.
	ErrAborted = errors.New("rbp: run aborted")
)

// ErrDimensionMismatch reports inconsistent matrix, measurement or truth sizes.
type ErrDimensionMismatch struct {
	Block    int
	Field    string
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("rbp: block %d: %s dimension mismatch: expected %d, got %d", e.Block, e.Field, e.Expected, e.Actual)
}

// Unwrap lets errors.Is match ErrInvalidProblem.
func (e *ErrDimensionMismatch) Unwrap() error { return ErrInvalidProblem }
