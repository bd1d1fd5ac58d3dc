package quantcs

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/quantcs/channel"
	"github.com/hupe1980/quantcs/internal/gauss"
	"github.com/hupe1980/quantcs/prior"
	"github.com/hupe1980/quantcs/quantization"
	"github.com/hupe1980/quantcs/rbp"
	"github.com/hupe1980/quantcs/se"
)

// Result is the outcome of a reconstruction: the estimate, its per-round
// MSE trace and the run diagnostics.
type Result = rbp.Result

// Prediction is the outcome of a state evolution prediction.
type Prediction = se.Prediction

const (
	kindReconstruct = "reconstruct"
	kindPredict     = "predict"
)

// Reconstruct estimates x from y = Q(A·x + w), w ~ N(0, noiseVar).
//
// y holds one observed value per row of a; values are mapped to their
// quantizer bins, so reconstruction points and raw pre-quantization values
// are both accepted. A nil or pass-through quantizer treats y as
// unquantized. sparsityRate parameterizes the default Gauss-Bernoulli prior.
//
// Reaching the iteration limit is not an error; inspect Result.State. A
// diverged run returns its partial Result together with ErrDiverged.
func Reconstruct(ctx context.Context, a mat.Matrix, y []float64, q *quantization.Quantizer, noiseVar, sparsityRate float64, optFns ...Option) (*Result, error) {
	o := applyOptions(optFns)
	if err := validateInputs(a, noiseVar, sparsityRate); err != nil {
		return nil, err
	}

	ch, err := channel.NewFromValues(q, y, noiseVar, o.tailMode.gauss())
	if err != nil {
		return nil, translateError(err)
	}
	return reconstruct(ctx, a, ch, q, sparsityRate, &o)
}

// ReconstructLevels is Reconstruct for observations given as bin indices
// of q. q must not be the pass-through quantizer.
func ReconstructLevels(ctx context.Context, a mat.Matrix, levels []int, q *quantization.Quantizer, noiseVar, sparsityRate float64, optFns ...Option) (*Result, error) {
	o := applyOptions(optFns)
	if err := validateInputs(a, noiseVar, sparsityRate); err != nil {
		return nil, err
	}

	ch, err := channel.NewQuantized(q, levels, noiseVar, o.tailMode.gauss())
	if err != nil {
		return nil, translateError(err)
	}
	return reconstruct(ctx, a, ch, q, sparsityRate, &o)
}

func validateInputs(a mat.Matrix, noiseVar, sparsityRate float64) error {
	switch {
	case a == nil:
		return &ErrInvalidConfig{Field: "matrix", Value: nil, Reason: "must not be nil"}
	case !(noiseVar >= 0) || math.IsInf(noiseVar, 1):
		return &ErrInvalidConfig{Field: "noise_variance", Value: noiseVar, Reason: "must be finite and non-negative"}
	case !(sparsityRate > 0 && sparsityRate <= 1):
		return &ErrInvalidConfig{Field: "sparsity_rate", Value: sparsityRate, Reason: "must be in (0, 1]"}
	}
	return nil
}

func reconstruct(ctx context.Context, a mat.Matrix, ch channel.Channel, q *quantization.Quantizer, sparsityRate float64, o *options) (*Result, error) {
	start := time.Now()

	sig, err := o.signalPrior(sparsityRate)
	if err != nil {
		return nil, err
	}

	m, n := a.Dims()
	log := o.logger.WithDimensions(m, n).WithPrior(sig.Name()).WithQuantizer(numLevels(q))

	prob, err := rbp.NewProblem([]mat.Matrix{a}, []channel.Channel{ch}, sig, false)
	if err != nil {
		return nil, translateError(err)
	}
	prob.Truth = o.truth

	e, err := rbp.New(o.rbpOptions(ctx, log)...)
	if err != nil {
		return nil, translateError(err)
	}

	res, runErr := e.Run(ctx, prob)
	runErr = translateError(runErr)

	if res == nil {
		o.metricsCollector.RecordReconstruct(0, rbp.Initializing.String(), time.Since(start), runErr)
		log.LogReconstruct(ctx, 0, rbp.Initializing.String(), math.NaN(), runErr)
		return nil, runErr
	}

	for i := 0; i < res.DegenerateUpdates; i++ {
		o.metricsCollector.RecordDegenerateUpdate(sig.Name())
	}
	if res.DegenerateUpdates > 0 {
		log.LogDegenerateEM(ctx, sig.Name(), res.DegenerateUpdates)
	}
	o.metricsCollector.RecordReconstruct(res.Iterations, res.State.String(), time.Since(start), runErr)
	log.LogReconstruct(ctx, res.Iterations, res.State.String(), res.FinalMSE(), runErr)

	return res, runErr
}

func (o *options) signalPrior(sparsityRate float64) (prior.Prior, error) {
	if o.prior != nil {
		return o.prior, nil
	}
	gb, err := prior.NewGaussBernoulli(prior.GaussBernoulliConfig{SparsityRate: sparsityRate, Variance: 1})
	if err != nil {
		return nil, translateError(err)
	}
	return gb, nil
}

func (o *options) rbpOptions(ctx context.Context, log *Logger) []rbp.Option {
	opts := []rbp.Option{rbp.WithLogger(log.Logger)}
	if o.maxIterations != 0 {
		opts = append(opts, rbp.WithMaxIterations(o.maxIterations))
	}
	if o.tolerance != 0 {
		opts = append(opts, rbp.WithTolerance(o.tolerance))
	}
	if o.damping != 0 {
		opts = append(opts, rbp.WithDamping(o.damping))
	}
	if o.workers != 0 {
		opts = append(opts, rbp.WithWorkers(o.workers))
	}

	user := o.hook
	opts = append(opts, rbp.WithHook(func(r rbp.Round) error {
		o.metricsCollector.RecordRound(kindReconstruct, r.MSE)
		log.LogRound(ctx, kindReconstruct, r.Index, r.MSE, r.Change, o.verbose)
		if user != nil {
			return user(r)
		}
		return nil
	}))
	return opts
}

// Predict runs state evolution for the statistical description of a
// problem and returns the predicted per-round MSE trace.
func Predict(ctx context.Context, initialSNR, sparsityRate, undersamplingRatio, noiseVar float64, q *quantization.Quantizer, optFns ...Option) (*Prediction, error) {
	o := applyOptions(optFns)
	start := time.Now()

	cfg := se.Config{
		SparsityRate:       sparsityRate,
		UndersamplingRatio: undersamplingRatio,
		NoiseVariance:      noiseVar,
		Quantizer:          q,
		InitialSNR:         initialSNR,
	}
	log := o.logger.WithQuantizer(numLevels(q))

	pred, err := o.predict(ctx, cfg, log)
	if err != nil {
		err = translateError(err)
		o.metricsCollector.RecordPredict(0, se.Initializing.String(), time.Since(start), err)
		log.LogPredict(ctx, 0, "", math.NaN(), err)
		return nil, err
	}

	for i, mse := range pred.Trace {
		o.metricsCollector.RecordRound(kindPredict, mse)
		change := math.NaN()
		if i > 0 {
			change = math.Abs(mse-pred.Trace[i-1]) / pred.Trace[i-1]
		}
		log.LogRound(ctx, kindPredict, i+1, mse, change, o.verbose)
	}
	o.metricsCollector.RecordPredict(pred.Iterations, pred.State.String(), time.Since(start), nil)
	log.LogPredict(ctx, pred.Iterations, pred.State.String(), pred.FinalMSE(), nil)
	return pred, nil
}

func (o *options) predict(ctx context.Context, cfg se.Config, log *Logger) (*Prediction, error) {
	opts := []se.Option{se.WithLogger(log.Logger), se.WithTailMode(o.tailMode.gauss())}
	if o.maxIterations != 0 {
		opts = append(opts, se.WithMaxIterations(o.maxIterations))
	}
	if o.tolerance != 0 {
		opts = append(opts, se.WithTolerance(o.tolerance))
	}
	if o.damping != 0 {
		opts = append(opts, se.WithDamping(o.damping))
	}
	if o.samples != 0 {
		opts = append(opts, se.WithSamples(o.samples))
	}
	if o.seed != 0 {
		opts = append(opts, se.WithSeed(o.seed))
	}
	if o.workers != 0 {
		opts = append(opts, se.WithWorkers(o.workers))
	}
	if o.prior != nil {
		opts = append(opts, se.WithPrior(o.prior))
	}

	p, err := se.New(opts...)
	if err != nil {
		return nil, err
	}
	return p.Predict(ctx, cfg)
}

func (m TailMode) gauss() gauss.TailMode {
	if m == NaiveTails {
		return gauss.Naive
	}
	return gauss.Stable
}

// String implements fmt.Stringer.
func (m TailMode) String() string {
	switch m {
	case StableTails:
		return "stable"
	case NaiveTails:
		return "naive"
	default:
		return fmt.Sprintf("TailMode(%d)", m)
	}
}

func numLevels(q *quantization.Quantizer) int {
	if q == nil {
		return 1
	}
	return q.NumLevels()
}
