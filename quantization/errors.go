package quantization

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is the sentinel matched by every construction error.
var ErrInvalidConfiguration = errors.New("quantization: invalid configuration")

// ErrInvalidBoundaries reports a malformed boundary/level table.
type ErrInvalidBoundaries struct {
	Field  string
	Index  int
	Reason string
}

func (e *ErrInvalidBoundaries) Error() string {
	return fmt.Sprintf("quantization: invalid %s at index %d: %s", e.Field, e.Index, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidConfiguration.
func (e *ErrInvalidBoundaries) Unwrap() error { return ErrInvalidConfiguration }
