package rbp

import (
	"fmt"
	"time"

	"github.com/hupe1980/quantcs/prior"
)

// DivergenceReason classifies why a run diverged.
type DivergenceReason string

const (
	// DivergenceNonFinite means a NaN or Inf appeared in the estimate.
	DivergenceNonFinite DivergenceReason = "non_finite"
	// DivergenceGrowth means the monitored error grew without bound.
	DivergenceGrowth DivergenceReason = "growth"
)

// Divergence describes a diverged run.
type Divergence struct {
	Reason DivergenceReason
	// Round is the 1-based round at which divergence was declared.
	Round int
	// Monitor is the monitored error at that round (NaN for non-finite estimates).
	Monitor float64
	// Baseline is the monitored error of the first round.
	Baseline float64
}

// Diagnostics collects recoverable conditions observed during a run.
type Diagnostics struct {
	// DegenerateUpdates counts discarded EM updates.
	DegenerateUpdates int
	// FlooredVariances counts variances raised to the variance floor.
	FlooredVariances int64
	Duration         time.Duration
}

// Result is the outcome of a run.
type Result struct {
	// Estimate is the final (or best-so-far) estimate, column-major N·T.
	Estimate []float64
	Variance []float64
	// Trace holds one MSE per completed finite round when ground truth was supplied.
	Trace []float64
	// Changes holds the relative estimate change of every completed round.
	Changes    []float64
	Iterations int
	State      State
	Divergence *Divergence
	Diagnostics
	// Support is the prior's hard support estimate of Estimate.
	Support *prior.Support
}

// FinalMSE returns the last trace entry, or NaN without ground truth.
func (r *Result) FinalMSE() float64 {
	if len(r.Trace) == 0 {
		return nan
	}
	return r.Trace[len(r.Trace)-1]
}

// Err returns ErrDiverged for a diverged result and nil otherwise.
func (r *Result) Err() error {
	if r.State != Diverged || r.Divergence == nil {
		return nil
	}
	return fmt.Errorf("%w: %s at round %d", ErrDiverged, r.Divergence.Reason, r.Divergence.Round)
}
