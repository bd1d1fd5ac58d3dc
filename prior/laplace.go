package prior

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync/atomic"

	"github.com/hupe1980/quantcs/internal/gauss"
)

// DefaultLaplaceRate gives a unit-variance Laplacian (variance 2/λ²).
var DefaultLaplaceRate = math.Sqrt2

// LaplaceConfig configures a Laplacian prior p(x) = (λ/2)·exp(-λ|x|).
type LaplaceConfig struct {
	// Rate is the scalar rate λ. Ignored when Rates is set.
	Rate float64 `yaml:"rate"`
	// Rates optionally sets one rate per coefficient.
	Rates []float64 `yaml:"rates,omitempty"`
	// LearnRate enables EM re-estimation of the rate.
	LearnRate bool `yaml:"learn_rate"`
	// Mode selects MAP (soft thresholding) or MMSE denoising.
	Mode Mode `yaml:"mode"`
	// LearnMode selects scalar or per-coefficient rate learning.
	LearnMode LearnMode `yaml:"learn_mode"`
}

// DefaultLaplaceConfig returns a unit-variance MAP Laplacian without learning.
func DefaultLaplaceConfig() LaplaceConfig {
	return LaplaceConfig{
		Rate:      DefaultLaplaceRate,
		Mode:      ModeMAP,
		LearnMode: LearnScalar,
	}
}

// Validate checks the configuration.
func (c LaplaceConfig) Validate() error {
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if _, err := ParseLearnMode(string(c.LearnMode)); err != nil {
		return err
	}
	if len(c.Rates) == 0 && !isPositiveFinite(c.Rate) {
		return &ErrInvalidConfig{Field: "rate", Value: c.Rate, Reason: "must be positive and finite"}
	}
	for i, r := range c.Rates {
		if !isPositiveFinite(r) {
			return &ErrInvalidConfig{Field: fmt.Sprintf("rates[%d]", i), Value: r, Reason: "must be positive and finite"}
		}
	}
	return nil
}

// Laplace is a Laplacian prior with MAP or MMSE denoising.
type Laplace struct {
	mode      Mode
	learn     bool
	learnMode LearnMode

	// rates has length 1 or one entry per coefficient.
	rates atomic.Pointer[[]float64]
}

// NewLaplace creates a Laplacian prior from a validated configuration.
func NewLaplace(cfg LaplaceConfig) (*Laplace, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	lm, _ := ParseLearnMode(string(cfg.LearnMode))
	l := &Laplace{
		mode:      cfg.Mode,
		learn:     cfg.LearnRate,
		learnMode: lm,
	}

	rates := []float64{cfg.Rate}
	if len(cfg.Rates) > 0 {
		rates = append([]float64(nil), cfg.Rates...)
	}
	l.rates.Store(&rates)

	return l, nil
}

// Name implements Prior.
func (l *Laplace) Name() string { return "laplace" }

// Mode returns the denoising mode.
func (l *Laplace) Mode() Mode { return l.mode }

// Rate returns a copy of the current rate parameters.
func (l *Laplace) Rate() []float64 {
	return append([]float64(nil), *l.rates.Load()...)
}

// ParamLen implements Sized.
func (l *Laplace) ParamLen() int { return len(*l.rates.Load()) }

func (l *Laplace) rateAt(k int) float64 {
	r := *l.rates.Load()
	if len(r) == 1 {
		return r[0]
	}
	return r[k]
}

// Moments implements Prior.
func (l *Laplace) Moments(k int) (float64, float64) {
	lam := l.rateAt(k)
	return 0, 2 / (lam * lam)
}

// Denoise implements Prior.
func (l *Laplace) Denoise(k int, r, rvar float64) (float64, float64) {
	lam := l.rateAt(k)
	if l.mode == ModeMAP {
		return softThreshold(r, rvar, lam)
	}
	return laplaceMMSE(r, rvar, lam)
}

// softThreshold is the max-sum denoiser: shrink by λ·rvar, zero inside.
// The active-set variance is rvar, the derivative of the threshold times rvar.
func softThreshold(r, rvar, lam float64) (float64, float64) {
	t := lam * rvar
	switch {
	case r > t:
		return r - t, rvar
	case r < -t:
		return r + t, rvar
	default:
		return 0, 0
	}
}

// laplaceMMSE mixes the two half-line truncated normals that make up the
// posterior of a Laplacian under a Gaussian likelihood.
func laplaceMMSE(r, rvar, lam float64) (float64, float64) {
	if !(rvar > 0) {
		return r, 0
	}
	s := math.Sqrt(rvar)
	muPos := r - lam*rvar
	muNeg := r + lam*rvar

	logZPos := -lam*r + gauss.LogCDF(muPos/s)
	logZNeg := lam*r + gauss.LogCDF(-muNeg/s)
	wPos := logistic(logZPos - logZNeg)
	wNeg := 1 - wPos

	mPos, vPos := gauss.Truncated(muPos, rvar, 0, math.Inf(1), gauss.Stable)
	mNeg, vNeg := gauss.Truncated(muNeg, rvar, math.Inf(-1), 0, gauss.Stable)

	// Mixture variance without the E[x²]-m² cancellation.
	m := wPos*mPos + wNeg*mNeg
	d := mPos - mNeg
	v := wPos*vPos + wNeg*vNeg + wPos*wNeg*d*d
	if v < 0 {
		v = 0
	}
	return m, v
}

// EMUpdate implements Prior. The scalar rate is λ = 2·N·T / Σ E|x|; the
// per-coefficient rate of row j is λ_j = 2·T / Σ_t E|x_jt|.
func (l *Laplace) EMUpdate(est Estimates) error {
	if !l.learn || len(est.R) == 0 {
		return nil
	}
	if len(est.RVar) != len(est.R) {
		return fmt.Errorf("prior: %d pseudo-variances for %d pseudo-means", len(est.RVar), len(est.R))
	}

	n := len(est.R)
	cols := est.Columns
	if cols <= 0 {
		cols = 1
	}
	rows := est.Rows()
	prev := *l.rates.Load()

	switch l.learnMode {
	case LearnPerCoefficient:
		next, err := Broadcast(prev, n)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
		}
		discarded := 0
		for j := 0; j < rows; j++ {
			sum := 0.0
			for t := 0; t < cols; t++ {
				k := t*rows + j
				sum += expectedAbs(est.R[k], est.RVar[k])
			}
			lam := 2 * float64(cols) / sum
			if !isPositiveFinite(lam) {
				discarded++
				continue
			}
			for t := 0; t < cols; t++ {
				next[t*rows+j] = lam
			}
		}
		l.rates.Store(&next)
		if discarded > 0 {
			return fmt.Errorf("%w: %d of %d rates kept", ErrDegenerateUpdate, discarded, rows)
		}
		return nil
	default:
		sum := 0.0
		for k := range est.R {
			sum += expectedAbs(est.R[k], est.RVar[k])
		}
		lam := 2 * float64(rows*cols) / sum
		if !isPositiveFinite(lam) {
			keep := []float64{mean(prev)}
			l.rates.Store(&keep)
			return fmt.Errorf("%w: rate %v", ErrDegenerateUpdate, lam)
		}
		next := []float64{lam}
		l.rates.Store(&next)
		return nil
	}
}

// HardSupport implements Prior.
func (l *Laplace) HardSupport(xhat []float64) *Support { return SupportOf(xhat) }

// Sample implements Sampler using the mean rate.
func (l *Laplace) Sample(rng *rand.Rand) float64 {
	x := rng.ExpFloat64() / mean(*l.rates.Load())
	if rng.IntN(2) == 0 {
		return -x
	}
	return x
}

// expectedAbs returns E|X| for X ~ N(r, v).
func expectedAbs(r, v float64) float64 {
	if !(v > 0) {
		return math.Abs(r)
	}
	s := math.Sqrt(v)
	return r*(1-2*gauss.CDF(-r/s)) + 2*s*gauss.PDF(r/s)
}

// logistic returns 1/(1+exp(-x)) without overflow.
func logistic(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}
