package rbp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/quantcs/channel"
	"github.com/hupe1980/quantcs/internal/parallel"
	"github.com/hupe1980/quantcs/prior"
)

// Estimator runs RBP. It holds no per-run state and is safe for
// concurrent use; concurrent runs must not share a learning prior.
type Estimator struct {
	opts options
}

// New creates an Estimator.
func New(optFns ...Option) (*Estimator, error) {
	o, err := applyOptions(optFns)
	if err != nil {
		return nil, err
	}
	return &Estimator{opts: o}, nil
}

type blockState struct {
	a, a2 mat.Matrix
	ch    channel.Channel
	m     int

	phat, pvar []float64
	shat, svar []float64
}

// run holds the message state of one call.
type run struct {
	opts   *options
	prior  prior.Prior
	truth  []float64
	blocks []*blockState
	n, t   int

	x, xvar    []float64
	xPrev      []float64
	rhat, rvar []float64
	floored    atomic.Int64

	state      State
	degenerate int

	bestMSE       float64
	best, bestVar []float64
}

// Run estimates the signal of problem. Reaching the iteration cap is not
// an error. A diverged run returns its partial result together with an
// error wrapping ErrDiverged; an aborted run returns ErrAborted joined
// with the hook or context error.
func (e *Estimator) Run(ctx context.Context, problem *Problem) (*Result, error) {
	if err := problem.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	r := newRun(&e.opts, problem)
	log := e.opts.logger.With("prior", problem.Prior.Name(), "n", r.n, "columns", r.t)

	res := &Result{}
	monitor := newGrowthMonitor(e.opts.divergenceFactor, e.opts.divergencePatience)

	finish := func(state State, err error) (*Result, error) {
		r.state = state
		res.State = state
		res.Estimate, res.Variance = r.x, r.xvar
		if state == MaxIterationsReached && r.best != nil {
			res.Estimate, res.Variance = r.best, r.bestVar
		}
		res.Support = problem.Prior.HardSupport(res.Estimate)
		res.DegenerateUpdates = r.degenerate
		res.FlooredVariances = r.floored.Load()
		res.Duration = time.Since(start)

		log.DebugContext(ctx, "rbp finished",
			"state", state.String(),
			"iterations", res.Iterations,
			"mse", res.FinalMSE(),
			"duration", res.Duration,
		)
		return res, err
	}

	r.state = Iterating
	for k := 1; k <= e.opts.maxIterations; k++ {
		if err := ctx.Err(); err != nil {
			return finish(Aborted, errors.Join(ErrAborted, err))
		}

		copy(r.xPrev, r.x)
		prevVar := append([]float64(nil), r.xvar...)

		if err := r.round(ctx, k == 1); err != nil {
			if ctx.Err() != nil {
				copy(r.x, r.xPrev)
				copy(r.xvar, prevVar)
				return finish(Aborted, errors.Join(ErrAborted, err))
			}
			return nil, err
		}

		if !allFinite(r.x) {
			// Report the last finite round.
			copy(r.x, r.xPrev)
			copy(r.xvar, prevVar)
			res.Divergence = &Divergence{Reason: DivergenceNonFinite, Round: k, Monitor: nan, Baseline: monitor.baseline}
			log.WarnContext(ctx, "rbp diverged", "reason", DivergenceNonFinite, "round", k)
			return finish(Diverged, fmt.Errorf("%w: non-finite estimate at round %d", ErrDiverged, k))
		}

		res.Iterations = k
		change := relativeChange(r.x, r.xPrev)
		res.Changes = append(res.Changes, change)

		mse := nan
		monitored := meanSquare(r.x)
		if r.truth != nil {
			mse = meanSquaredError(r.x, r.truth)
			monitored = mse
			res.Trace = append(res.Trace, mse)
			if mse < r.bestMSE {
				r.bestMSE = mse
				r.best = append(r.best[:0], r.x...)
				r.bestVar = append(r.bestVar[:0], r.xvar...)
			}
		}

		log.DebugContext(ctx, "rbp round", "round", k, "mse", mse, "change", change)

		if e.opts.hook != nil {
			if err := e.opts.hook(Round{Index: k, MSE: mse, Change: change, Estimate: slices.Clone(r.x)}); err != nil {
				return finish(Aborted, errors.Join(ErrAborted, err))
			}
		}

		if monitor.observe(monitored) {
			res.Divergence = &Divergence{Reason: DivergenceGrowth, Round: k, Monitor: monitored, Baseline: monitor.baseline}
			log.WarnContext(ctx, "rbp diverged", "reason", DivergenceGrowth, "round", k, "monitor", monitored, "baseline", monitor.baseline)
			return finish(Diverged, fmt.Errorf("%w: error grew to %g from %g at round %d", ErrDiverged, monitored, monitor.baseline, k))
		}

		if change < e.opts.tolerance {
			return finish(Converged, nil)
		}
	}

	return finish(MaxIterationsReached, nil)
}

func newRun(o *options, p *Problem) *run {
	n := p.Coefficients()
	t := p.Columns()

	r := &run{
		opts:    o,
		prior:   p.Prior,
		n:       n,
		t:       t,
		x:       make([]float64, n*t),
		xvar:    make([]float64, n*t),
		xPrev:   make([]float64, n*t),
		rhat:    make([]float64, n*t),
		rvar:    make([]float64, n*t),
		bestMSE: math.Inf(1),
	}
	if len(p.Truth) > 0 {
		r.truth = p.Truth
	}

	for k := range r.x {
		r.x[k], r.xvar[k] = p.Prior.Moments(k)
		if r.xvar[k] < o.varianceFloor {
			r.xvar[k] = o.varianceFloor
		}
	}

	var shared mat.Matrix
	for _, b := range p.Blocks {
		m, _ := b.A.Dims()
		a2 := shared
		if a2 == nil || !p.CommonMatrix {
			a2 = hadamardSquare(b.A)
			shared = a2
		}
		r.blocks = append(r.blocks, &blockState{
			a:    b.A,
			a2:   a2,
			ch:   b.Channel,
			m:    m,
			phat: make([]float64, m),
			pvar: make([]float64, m),
			shat: make([]float64, m),
			svar: make([]float64, m),
		})
	}
	return r
}

// round performs one full message-passing round.
func (r *run) round(ctx context.Context, first bool) error {
	for t, b := range r.blocks {
		if err := r.output(ctx, b, r.column(r.x, t), r.column(r.xvar, t), first); err != nil {
			return err
		}
		r.input(b, t)
	}

	if err := r.denoise(ctx, first); err != nil {
		return err
	}

	err := r.prior.EMUpdate(prior.Estimates{R: r.rhat, RVar: r.rvar, Columns: r.t})
	switch {
	case err == nil:
	case errors.Is(err, prior.ErrDegenerateUpdate):
		r.degenerate++
		r.opts.logger.WarnContext(ctx, "em update discarded", "prior", r.prior.Name(), "error", err)
	default:
		return fmt.Errorf("rbp: em update: %w", err)
	}
	return nil
}

func (r *run) column(v []float64, t int) []float64 {
	return v[t*r.n : (t+1)*r.n]
}

// output runs the forward pass and the channel moments of one block.
func (r *run) output(ctx context.Context, b *blockState, x, xvar []float64, first bool) error {
	mat.NewVecDense(b.m, b.pvar).MulVec(b.a2, mat.NewVecDense(r.n, xvar))
	mat.NewVecDense(b.m, b.phat).MulVec(b.a, mat.NewVecDense(r.n, x))

	floor := r.opts.varianceFloor
	d := r.opts.damping

	return parallel.For(ctx, b.m, r.opts.workers, func(lo, hi int) {
		var floored int64
		for i := lo; i < hi; i++ {
			pvar := b.pvar[i]
			if pvar < floor {
				pvar = floor
				b.pvar[i] = pvar
				floored++
			}
			p := b.phat[i] - pvar*b.shat[i]
			b.phat[i] = p

			zhat, zvar := b.ch.Moments(i, p, pvar)
			s := (zhat - p) / pvar
			sv := (1 - zvar/pvar) / pvar
			if sv < floor {
				sv = floor
				floored++
			}
			if !first {
				s = d*s + (1-d)*b.shat[i]
			}
			b.shat[i] = s
			b.svar[i] = sv
		}
		r.floored.Add(floored)
	})
}

// input runs the backward pass of one block into rhat and rvar.
func (r *run) input(b *blockState, t int) {
	x := r.column(r.x, t)
	rhat := r.column(r.rhat, t)
	rvar := r.column(r.rvar, t)

	mat.NewVecDense(r.n, rvar).MulVec(b.a2.T(), mat.NewVecDense(b.m, b.svar))
	mat.NewVecDense(r.n, rhat).MulVec(b.a.T(), mat.NewVecDense(b.m, b.shat))

	for j := range rvar {
		sum := rvar[j]
		if sum < r.opts.varianceFloor {
			sum = r.opts.varianceFloor
		}
		rvar[j] = 1 / sum
		rhat[j] = x[j] + rvar[j]*rhat[j]
	}
}

// denoise runs the prior over every coefficient.
func (r *run) denoise(ctx context.Context, first bool) error {
	floor := r.opts.varianceFloor
	d := r.opts.damping

	return parallel.For(ctx, len(r.x), r.opts.workers, func(lo, hi int) {
		var floored int64
		for k := lo; k < hi; k++ {
			m, v := r.prior.Denoise(k, r.rhat[k], r.rvar[k])
			if v < floor {
				v = floor
				floored++
			}
			if !first {
				m = d*m + (1-d)*r.x[k]
				v = d*v + (1-d)*r.xvar[k]
			}
			r.x[k] = m
			r.xvar[k] = v
		}
		r.floored.Add(floored)
	})
}

func hadamardSquare(a mat.Matrix) *mat.Dense {
	rows, cols := a.Dims()
	sq := mat.NewDense(rows, cols, nil)
	sq.Apply(func(_, _ int, v float64) float64 { return v * v }, a)
	return sq
}

// relativeChange returns ‖x − prev‖/‖x‖, or the absolute change when x is zero.
func relativeChange(x, prev []float64) float64 {
	diff := floats.Distance(x, prev, 2)
	norm := floats.Norm(x, 2)
	if norm == 0 {
		return diff
	}
	return diff / norm
}

func meanSquaredError(x, truth []float64) float64 {
	d := floats.Distance(x, truth, 2)
	return d * d / float64(len(x))
}

func meanSquare(x []float64) float64 {
	n := floats.Norm(x, 2)
	return n * n / float64(len(x))
}
