package se

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hupe1980/quantcs/internal/gauss"
	"github.com/hupe1980/quantcs/prior"
)

// Default prediction parameters.
const (
	DefaultMaxIterations = 100
	DefaultTolerance     = 1e-4
	DefaultSamples       = 20000
	DefaultSeed          = 1
)

var (
	// ErrInvalidConfig is the sentinel for malformed predictions.
	ErrInvalidConfig = errors.New("se: invalid configuration")
)

type options struct {
	maxIterations int
	tolerance     float64
	samples       int
	damping       float64
	seed          uint64
	workers       int
	tailMode      gauss.TailMode
	prior         prior.Prior
	logger        *slog.Logger
}

// Option configures a Predictor.
type Option func(*options)

// WithMaxIterations caps the number of rounds.
func WithMaxIterations(n int) Option {
	return func(o *options) { o.maxIterations = n }
}

// WithTolerance sets the relative MSE change below which a prediction converges.
func WithTolerance(tol float64) Option {
	return func(o *options) { o.tolerance = tol }
}

// WithSamples sets the number of Monte Carlo samples.
func WithSamples(n int) Option {
	return func(o *options) { o.samples = n }
}

// WithDamping sets the damping constant d in (0, 1] of the update
// τx ← d·MSE + (1−d)·τx.
func WithDamping(d float64) Option {
	return func(o *options) { o.damping = d }
}

// WithSeed seeds the Monte Carlo generator.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = seed }
}

// WithWorkers bounds the parallelism of the sample loops.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithTailMode selects how bin moments are evaluated.
func WithTailMode(m gauss.TailMode) Option {
	return func(o *options) { o.tailMode = m }
}

// WithPrior replaces the default Gauss-Bernoulli signal model. The prior
// must also implement prior.Sampler.
func WithPrior(p prior.Prior) Option {
	return func(o *options) { o.prior = p }
}

// WithLogger sets the logger. Nil discards log output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func applyOptions(optFns []Option) (options, error) {
	o := options{
		maxIterations: DefaultMaxIterations,
		tolerance:     DefaultTolerance,
		samples:       DefaultSamples,
		damping:       1,
		seed:          DefaultSeed,
	}
	for _, fn := range optFns {
		fn(&o)
	}

	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	switch {
	case o.maxIterations < 1:
		return o, fmt.Errorf("%w: max iterations %d must be at least 1", ErrInvalidConfig, o.maxIterations)
	case !(o.tolerance > 0):
		return o, fmt.Errorf("%w: tolerance %v must be positive", ErrInvalidConfig, o.tolerance)
	case o.samples < 1:
		return o, fmt.Errorf("%w: samples %d must be at least 1", ErrInvalidConfig, o.samples)
	case !(o.damping > 0 && o.damping <= 1):
		return o, fmt.Errorf("%w: damping %v must be in (0, 1]", ErrInvalidConfig, o.damping)
	}
	if o.prior != nil {
		if _, ok := o.prior.(prior.Sampler); !ok {
			return o, fmt.Errorf("%w: prior %q cannot draw samples", ErrInvalidConfig, o.prior.Name())
		}
	}
	return o, nil
}
