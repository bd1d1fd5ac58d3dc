package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/quantcs/channel"
	"github.com/hupe1980/quantcs/internal/gauss"
	"github.com/hupe1980/quantcs/prior"
	"github.com/hupe1980/quantcs/quantization"
	"github.com/hupe1980/quantcs/rbp"
	"github.com/hupe1980/quantcs/results"
	"github.com/hupe1980/quantcs/se"
	"github.com/hupe1980/quantcs/util"
)

// ErrInvalidJob is returned for jobs that name no engine or both.
var ErrInvalidJob = errors.New("sweep: invalid job")

// PriorFactory returns a fresh prior for one job.
type PriorFactory func() (prior.Prior, error)

// Job is one independent run. Exactly one of Predict and Reconstruct is set.
type Job struct {
	Name string
	// Config is stored verbatim in the job's report.
	Config      map[string]any
	Predict     *PredictJob
	Reconstruct *ReconstructJob
}

// PredictJob runs the state evolution predictor.
type PredictJob struct {
	Config  se.Config
	Options []se.Option
	// Prior must return a prior.Sampler. Nil selects the predictor's default.
	Prior PriorFactory
}

// ReconstructJob runs RBP on a synthetic problem.
type ReconstructJob struct {
	Problem Synthetic
	Options []rbp.Option
	// Prior nil selects Gauss-Bernoulli(ρ, 0, 1) matching the synthetic signal.
	Prior PriorFactory
}

// Synthetic describes a seeded random problem: an M×N Gaussian matrix with
// N(0, 1/M) entries, a Gauss-Bernoulli signal and quantized noisy
// measurements.
type Synthetic struct {
	M, N          int
	SparsityRate  float64
	NoiseVariance float64
	// Quantizer nil means unquantized.
	Quantizer *quantization.Quantizer
	TailMode  gauss.TailMode
	Seed      uint64
}

// Build draws the problem and returns it with its ground truth set.
func (s Synthetic) Build(p prior.Prior) (*rbp.Problem, error) {
	if s.M <= 0 || s.N <= 0 {
		return nil, fmt.Errorf("%w: synthetic dimensions %dx%d", ErrInvalidJob, s.M, s.N)
	}

	rng := util.NewRNG(s.Seed)
	a := rng.GaussianMatrix(s.M, s.N, 1/float64(s.M))
	x := rng.BernoulliGaussianVector(s.N, s.SparsityRate)
	y := rng.Measure(a, x, s.NoiseVariance)

	ch, err := channel.NewFromValues(s.Quantizer, y, s.NoiseVariance, s.TailMode)
	if err != nil {
		return nil, err
	}
	prob, err := rbp.NewProblem([]mat.Matrix{a}, []channel.Channel{ch}, p, false)
	if err != nil {
		return nil, err
	}
	prob.Truth = x
	return prob, nil
}

// memory estimates the working set of a job in bytes.
func (j *Job) memory() int64 {
	switch {
	case j.Reconstruct != nil:
		m, n := int64(j.Reconstruct.Problem.M), int64(j.Reconstruct.Problem.N)
		return 8 * m * n * 2
	case j.Predict != nil:
		return 8 * int64(j.Predict.samples()) * 6
	default:
		return 0
	}
}

func (p *PredictJob) samples() int {
	// The sample count lives in the options; probe a throwaway predictor.
	pr, err := se.New(p.Options...)
	if err != nil {
		return se.DefaultSamples
	}
	return pr.Samples()
}

func (j *Job) validate() error {
	if (j.Predict == nil) == (j.Reconstruct == nil) {
		return fmt.Errorf("%w: %q must set exactly one of predict and reconstruct", ErrInvalidJob, j.Name)
	}
	return nil
}

func (j *Job) run(ctx context.Context, logger *slog.Logger) (*results.Report, error) {
	if j.Predict != nil {
		return j.Predict.run(ctx, j.Config, logger)
	}
	return j.Reconstruct.run(ctx, j.Config, logger)
}

func (p *PredictJob) run(ctx context.Context, cfg map[string]any, logger *slog.Logger) (*results.Report, error) {
	opts := append([]se.Option{se.WithLogger(logger)}, p.Options...)
	if p.Prior != nil {
		sig, err := p.Prior()
		if err != nil {
			return nil, err
		}
		opts = append(opts, se.WithPrior(sig))
	}

	pr, err := se.New(opts...)
	if err != nil {
		return nil, err
	}
	pred, err := pr.Predict(ctx, p.Config)
	if err != nil {
		return nil, err
	}
	return results.FromPrediction(pred, cfg), nil
}

func (r *ReconstructJob) run(ctx context.Context, cfg map[string]any, logger *slog.Logger) (*results.Report, error) {
	var (
		sig prior.Prior
		err error
	)
	if r.Prior != nil {
		sig, err = r.Prior()
	} else {
		sig, err = prior.NewGaussBernoulli(prior.GaussBernoulliConfig{SparsityRate: r.Problem.SparsityRate, Variance: 1})
	}
	if err != nil {
		return nil, err
	}

	prob, err := r.Problem.Build(sig)
	if err != nil {
		return nil, err
	}

	e, err := rbp.New(append([]rbp.Option{rbp.WithLogger(logger)}, r.Options...)...)
	if err != nil {
		return nil, err
	}

	res, runErr := e.Run(ctx, prob)
	if res == nil {
		return nil, runErr
	}
	return results.FromResult(res, cfg, prior.SupportOf(prob.Truth)), runErr
}
