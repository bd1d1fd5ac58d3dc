package rbp

import (
	"fmt"
	"log/slog"
	"math"
)

// Default run parameters.
const (
	DefaultMaxIterations      = 100
	DefaultTolerance          = 1e-4
	DefaultVarianceFloor      = 1e-12
	DefaultDivergenceFactor   = 1e3
	DefaultDivergencePatience = 3
)

// Round is the per-round snapshot handed to a Hook.
type Round struct {
	// Index is 1-based.
	Index int
	// MSE is NaN when no ground truth was supplied.
	MSE float64
	// Change is ‖x_k − x_{k−1}‖ / ‖x_k‖.
	Change float64
	// Estimate is a copy of the current estimate owned by the hook.
	Estimate []float64
}

// Hook is called after every round. A non-nil error aborts the run.
type Hook func(Round) error

type options struct {
	maxIterations      int
	tolerance          float64
	varianceFloor      float64
	damping            float64
	divergenceFactor   float64
	divergencePatience int
	workers            int
	logger             *slog.Logger
	hook               Hook
}

// Option configures an Estimator.
type Option func(*options)

// WithMaxIterations caps the number of rounds.
func WithMaxIterations(n int) Option {
	return func(o *options) { o.maxIterations = n }
}

// WithTolerance sets the relative change below which a run converges.
func WithTolerance(tol float64) Option {
	return func(o *options) { o.tolerance = tol }
}

// WithVarianceFloor sets the positive floor applied to all variances.
func WithVarianceFloor(floor float64) Option {
	return func(o *options) { o.varianceFloor = floor }
}

// WithDamping sets the damping factor in (0, 1]; 1 disables damping.
func WithDamping(d float64) Option {
	return func(o *options) { o.damping = d }
}

// WithDivergence configures growth-based divergence detection: the run
// diverges once the monitored error exceeds factor times its first-round
// value and has increased for patience consecutive rounds.
func WithDivergence(factor float64, patience int) Option {
	return func(o *options) {
		o.divergenceFactor = factor
		o.divergencePatience = patience
	}
}

// WithWorkers bounds intra-round parallelism. Values <= 0 use GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithLogger sets the logger. Nil discards log output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHook registers a per-round callback.
func WithHook(h Hook) Option {
	return func(o *options) { o.hook = h }
}

func applyOptions(optFns []Option) (options, error) {
	o := options{
		maxIterations:      DefaultMaxIterations,
		tolerance:          DefaultTolerance,
		varianceFloor:      DefaultVarianceFloor,
		damping:            1,
		divergenceFactor:   DefaultDivergenceFactor,
		divergencePatience: DefaultDivergencePatience,
	}
	for _, fn := range optFns {
		fn(&o)
	}

	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	switch {
	case o.maxIterations < 1:
		return o, fmt.Errorf("%w: max iterations %d must be at least 1", ErrInvalidProblem, o.maxIterations)
	case !(o.tolerance > 0):
		return o, fmt.Errorf("%w: tolerance %v must be positive", ErrInvalidProblem, o.tolerance)
	case !(o.varianceFloor > 0) || math.IsInf(o.varianceFloor, 1):
		return o, fmt.Errorf("%w: variance floor %v must be positive and finite", ErrInvalidProblem, o.varianceFloor)
	case !(o.damping > 0 && o.damping <= 1):
		return o, fmt.Errorf("%w: damping %v must be in (0, 1]", ErrInvalidProblem, o.damping)
	case !(o.divergenceFactor > 1):
		return o, fmt.Errorf("%w: divergence factor %v must exceed 1", ErrInvalidProblem, o.divergenceFactor)
	case o.divergencePatience < 1:
		return o, fmt.Errorf("%w: divergence patience %d must be at least 1", ErrInvalidProblem, o.divergencePatience)
	}
	return o, nil
}
