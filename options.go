package quantcs

import (
	"log/slog"

	"github.com/hupe1980/quantcs/prior"
	"github.com/hupe1980/quantcs/rbp"
)

// TailMode selects how truncated-Gaussian bin moments are evaluated.
type TailMode uint8

const (
	// StableTails evaluates bin moments in the log domain with asymptotic
	// tail expansions. It is the default.
	StableTails TailMode = iota
	// NaiveTails uses the plain density/CDF ratios, which underflow for
	// bins far from the pseudo-measurement.
	NaiveTails
)

type options struct {
	truth            []float64
	prior            prior.Prior
	maxIterations    int
	tolerance        float64
	damping          float64
	samples          int
	seed             uint64
	workers          int
	tailMode         TailMode
	verbose          bool
	hook             rbp.Hook
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Reconstruct and Predict.
type Option func(*options)

// WithGroundTruth supplies the true signal so every round records its MSE.
func WithGroundTruth(x []float64) Option {
	return func(o *options) {
		o.truth = x
	}
}

// WithPrior replaces the default Gauss-Bernoulli(ρ, 0, 1) signal model.
// Predict additionally requires the prior to implement prior.Sampler.
//
// A prior that learns its hyperparameters is mutated by the run; do not
// share one between concurrent calls.
func WithPrior(p prior.Prior) Option {
	return func(o *options) {
		o.prior = p
	}
}

// WithMaxIterations caps the number of rounds.
func WithMaxIterations(n int) Option {
	return func(o *options) {
		o.maxIterations = n
	}
}

// WithTolerance sets the convergence threshold on the relative change
// between rounds.
func WithTolerance(tol float64) Option {
	return func(o *options) {
		o.tolerance = tol
	}
}

// WithDamping sets the damping constant in (0, 1]; 1 disables damping.
func WithDamping(d float64) Option {
	return func(o *options) {
		o.damping = d
	}
}

// WithSamples sets the Monte Carlo sample count of Predict.
func WithSamples(n int) Option {
	return func(o *options) {
		o.samples = n
	}
}

// WithSeed sets the Monte Carlo seed of Predict.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithWorkers bounds the goroutines used within a round.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithTailMode selects the bin-moment evaluation.
func WithTailMode(m TailMode) Option {
	return func(o *options) {
		o.tailMode = m
	}
}

// WithVerbose logs every round at Info instead of Debug level.
func WithVerbose(v bool) Option {
	return func(o *options) {
		o.verbose = v
	}
}

// WithRoundHook is called after every reconstruction round. A non-nil
// error aborts the run with ErrAborted.
func WithRoundHook(h rbp.Hook) Option {
	return func(o *options) {
		o.hook = h
	}
}

// WithMetricsCollector configures a metrics collector.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &quantcs.BasicMetricsCollector{}
//	res, _ := quantcs.Reconstruct(ctx, a, y, q, 1e-3, 0.1, quantcs.WithMetricsCollector(metrics))
//	stats := metrics.GetStats()
//	fmt.Printf("Rounds: %d, last MSE: %g\n", stats.RoundCount, stats.LastMSE)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := quantcs.NewJSONLogger(slog.LevelInfo)
//	res, _ := quantcs.Reconstruct(ctx, a, y, q, 1e-3, 0.1, quantcs.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// Zero values of the numeric fields defer to the engine defaults.
func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
