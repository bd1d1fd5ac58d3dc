package quantcs

import (
	"errors"
	"fmt"

	"github.com/hupe1980/quantcs/channel"
	"github.com/hupe1980/quantcs/prior"
	"github.com/hupe1980/quantcs/quantization"
	"github.com/hupe1980/quantcs/rbp"
	"github.com/hupe1980/quantcs/se"
)

var (
	// ErrInvalidConfiguration is matched by every configuration error,
	// whichever package detected it.
	ErrInvalidConfiguration = errors.New("quantcs: invalid configuration")

	// ErrDiverged is returned together with the partial result of a
	// diverged reconstruction.
	ErrDiverged = rbp.ErrDiverged

	// ErrAborted is returned when a round hook or the context stopped a run.
	ErrAborted = rbp.ErrAborted
)

// ErrInvalidConfig names the configuration field that failed validation.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidConfig struct {
	Field  string
	Value  any
	Reason string
	cause  error
}

func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("quantcs: invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// Unwrap matches ErrInvalidConfiguration and the original cause.
func (e *ErrInvalidConfig) Unwrap() []error {
	if e.cause == nil {
		return []error{ErrInvalidConfiguration}
	}
	return []error{ErrInvalidConfiguration, e.cause}
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Field-level configuration errors.
	var pe *prior.ErrInvalidConfig
	if errors.As(err, &pe) {
		return &ErrInvalidConfig{Field: "prior." + pe.Field, Value: pe.Value, Reason: pe.Reason, cause: err}
	}
	var qe *quantization.ErrInvalidBoundaries
	if errors.As(err, &qe) {
		return &ErrInvalidConfig{Field: "quantizer." + qe.Field, Value: qe.Index, Reason: qe.Reason, cause: err}
	}
	var dm *rbp.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrInvalidConfig{
			Field:  dm.Field,
			Value:  dm.Actual,
			Reason: fmt.Sprintf("expected %d", dm.Expected),
			cause:  err,
		}
	}

	// Package sentinels without a field.
	for _, sentinel := range []error{
		prior.ErrInvalidConfiguration,
		quantization.ErrInvalidConfiguration,
		channel.ErrInvalidChannel,
		rbp.ErrInvalidProblem,
		se.ErrInvalidConfig,
	} {
		if errors.Is(err, sentinel) {
			return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
		}
	}

	return err
}
