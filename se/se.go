package se

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/hupe1980/quantcs/channel"
	"github.com/hupe1980/quantcs/internal/parallel"
	"github.com/hupe1980/quantcs/prior"
	"github.com/hupe1980/quantcs/quantization"
)

// State is the lifecycle state of a prediction.
type State uint8

const (
	Initializing State = iota
	Iterating
	Converged
	MaxIterationsReached
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Iterating:
		return "iterating"
	case Converged:
		return "converged"
	case MaxIterationsReached:
		return "max_iterations_reached"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// Config is the statistical description of a recovery problem.
type Config struct {
	// SparsityRate ρ ∈ (0, 1] of the default Gauss-Bernoulli signal model.
	SparsityRate float64 `yaml:"sparsity_rate"`
	// UndersamplingRatio δ = M/N.
	UndersamplingRatio float64 `yaml:"undersampling_ratio"`
	// NoiseVariance of the additive noise before quantization.
	NoiseVariance float64 `yaml:"noise_variance"`
	// Quantizer applied to the noisy measurements. Nil means unquantized.
	Quantizer *quantization.Quantizer `yaml:"-"`
	// InitialSNR sets τx₀ = E[X²]/InitialSNR. 1 matches the RBP cold start.
	InitialSNR float64 `yaml:"initial_snr"`
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case !(c.SparsityRate > 0 && c.SparsityRate <= 1):
		return fmt.Errorf("%w: sparsity rate %v must be in (0, 1]", ErrInvalidConfig, c.SparsityRate)
	case !(c.UndersamplingRatio > 0) || math.IsInf(c.UndersamplingRatio, 1):
		return fmt.Errorf("%w: undersampling ratio %v must be positive and finite", ErrInvalidConfig, c.UndersamplingRatio)
	case !(c.NoiseVariance >= 0) || math.IsInf(c.NoiseVariance, 1):
		return fmt.Errorf("%w: noise variance %v must be finite and non-negative", ErrInvalidConfig, c.NoiseVariance)
	case !(c.InitialSNR > 0) || math.IsInf(c.InitialSNR, 1):
		return fmt.Errorf("%w: initial SNR %v must be positive and finite", ErrInvalidConfig, c.InitialSNR)
	}
	return nil
}

// Prediction is the predicted MSE trajectory.
type Prediction struct {
	Trace []float64
	// EffectiveNoise holds the scalar pseudo-measurement variance τr of every round.
	EffectiveNoise []float64
	Iterations     int
	State          State
	Duration       time.Duration
}

// FinalMSE returns the last predicted MSE.
func (p *Prediction) FinalMSE() float64 {
	if len(p.Trace) == 0 {
		return math.NaN()
	}
	return p.Trace[len(p.Trace)-1]
}

// Predictor runs state evolution.
type Predictor struct {
	opts options
}

// New creates a Predictor.
func New(optFns ...Option) (*Predictor, error) {
	o, err := applyOptions(optFns)
	if err != nil {
		return nil, err
	}
	return &Predictor{opts: o}, nil
}

// Samples returns the Monte Carlo sample count per expectation.
func (p *Predictor) Samples() int { return p.opts.samples }

// samples holds the common random numbers of one prediction.
type samples struct {
	x       []float64 // signal draws
	w       []float64 // input-side noise
	p0, u   []float64 // output-side belief and residual
	wn      []float64 // measurement noise
	scratch []float64 // per-sample values
}

func (p *Predictor) draw(sig prior.Sampler) *samples {
	n := p.opts.samples
	rng := rand.New(rand.NewPCG(p.opts.seed, p.opts.seed+1)) // nolint gosec

	s := &samples{
		x:       make([]float64, n),
		w:       make([]float64, n),
		p0:      make([]float64, n),
		u:       make([]float64, n),
		wn:      make([]float64, n),
		scratch: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		s.x[i] = sig.Sample(rng)
		s.w[i] = rng.NormFloat64()
		s.p0[i] = rng.NormFloat64()
		s.u[i] = rng.NormFloat64()
		s.wn[i] = rng.NormFloat64()
	}
	return s
}

// Predict runs the recursion for cfg.
func (p *Predictor) Predict(ctx context.Context, cfg Config) (*Prediction, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sig := p.opts.prior
	if sig == nil {
		gb, err := prior.NewGaussBernoulli(prior.GaussBernoulliConfig{SparsityRate: cfg.SparsityRate, Variance: 1})
		if err != nil {
			return nil, fmt.Errorf("se: default prior: %w", err)
		}
		sig = gb
	}
	q := cfg.Quantizer
	if q == nil {
		q = quantization.PassThrough()
	}

	start := time.Now()
	log := p.opts.logger.With("prior", sig.Name(), "delta", cfg.UndersamplingRatio, "levels", q.NumLevels())

	s := p.draw(sig.(prior.Sampler))
	mean, variance := sig.Moments(0)
	energy := variance + mean*mean

	delta := cfg.UndersamplingRatio
	noiseVar := cfg.NoiseVariance
	taux := energy / cfg.InitialSNR

	pred := &Prediction{State: Iterating}
	prev := math.NaN()

	for k := 1; k <= p.opts.maxIterations; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		taur, err := p.outputStep(ctx, s, q, taux/delta, energy/delta, noiseVar)
		if err != nil {
			return nil, err
		}
		mse, err := p.inputStep(ctx, s, sig, taur)
		if err != nil {
			return nil, err
		}

		pred.Trace = append(pred.Trace, mse)
		pred.EffectiveNoise = append(pred.EffectiveNoise, taur)
		pred.Iterations = k
		log.DebugContext(ctx, "se round", "round", k, "mse", mse, "tau_r", taur)

		if k > 1 && relativeChange(mse, prev) < p.opts.tolerance {
			pred.State = Converged
			break
		}
		prev = mse
		taux = p.opts.damping*mse + (1-p.opts.damping)*taux
	}

	if pred.State != Converged {
		pred.State = MaxIterationsReached
	}
	pred.Duration = time.Since(start)

	log.DebugContext(ctx, "se finished",
		"state", pred.State.String(),
		"iterations", pred.Iterations,
		"mse", pred.FinalMSE(),
	)
	return pred, nil
}

// outputStep returns τr = 1/E[(1 − Var(z|y,p)/τp)/τp] over the channel.
func (p *Predictor) outputStep(ctx context.Context, s *samples, q *quantization.Quantizer, taup, zEnergy, noiseVar float64) (float64, error) {
	const floor = 1e-12
	if taup < floor {
		taup = floor
	}
	// p carries the part of z's energy already explained by the estimate.
	pStd := math.Sqrt(math.Max(zEnergy-taup, 0))
	uStd := math.Sqrt(taup)
	wStd := math.Sqrt(noiseVar)

	n := len(s.x)
	ps := make([]float64, n)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		ps[i] = pStd * s.p0[i]
		ys[i] = ps[i] + uStd*s.u[i] + wStd*s.wn[i]
	}

	ch, err := channel.NewFromValues(q, ys, noiseVar, p.opts.tailMode)
	if err != nil {
		return 0, fmt.Errorf("se: channel: %w", err)
	}

	err = parallel.For(ctx, n, p.opts.workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			_, zvar := ch.Moments(i, ps[i], taup)
			s.scratch[i] = (1 - zvar/taup) / taup
		}
	})
	if err != nil {
		return 0, err
	}

	taus := stat.Mean(s.scratch, nil)
	if !(taus > floor) {
		taus = floor
	}
	return 1 / taus, nil
}

// inputStep returns E[(X − g(X + √τr·W, τr))²].
func (p *Predictor) inputStep(ctx context.Context, s *samples, sig prior.Prior, taur float64) (float64, error) {
	std := math.Sqrt(taur)
	err := parallel.For(ctx, len(s.x), p.opts.workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			xhat, _ := sig.Denoise(0, s.x[i]+std*s.w[i], taur)
			d := s.x[i] - xhat
			s.scratch[i] = d * d
		}
	})
	if err != nil {
		return 0, err
	}
	return floats.Sum(s.scratch) / float64(len(s.scratch)), nil
}

func relativeChange(cur, prev float64) float64 {
	if cur == 0 {
		return math.Abs(cur - prev)
	}
	return math.Abs(cur-prev) / cur
}
