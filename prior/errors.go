package prior

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration is the sentinel matched by every configuration error.
	ErrInvalidConfiguration = errors.New("prior: invalid configuration")

	// ErrDegenerateUpdate is returned by EMUpdate when the re-estimated
	// hyperparameter was numerically degenerate and the previous value was
	// kept. It is recoverable.
	ErrDegenerateUpdate = errors.New("prior: degenerate EM update discarded")
)

// ErrInvalidConfig names the configuration field that failed validation.
type ErrInvalidConfig struct {
	Field  string
	Value  any
	Reason string
}

func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("prior: invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidConfiguration.
func (e *ErrInvalidConfig) Unwrap() error { return ErrInvalidConfiguration }
