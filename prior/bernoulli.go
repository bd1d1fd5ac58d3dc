package prior

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync/atomic"
)

// GaussBernoulliConfig configures a spike-and-slab prior
// p(x) = (1-ρ)·δ(x) + ρ·N(x; μ, v).
type GaussBernoulliConfig struct {
	SparsityRate float64 `yaml:"sparsity_rate"`
	Mean         float64 `yaml:"mean"`
	Variance     float64 `yaml:"variance"`
	// Learn enables EM re-estimation of all three parameters.
	Learn bool `yaml:"learn"`
}

// DefaultGaussBernoulliConfig returns a ρ=0.1 unit-variance slab.
func DefaultGaussBernoulliConfig() GaussBernoulliConfig {
	return GaussBernoulliConfig{SparsityRate: 0.1, Variance: 1}
}

// Validate checks the configuration.
func (c GaussBernoulliConfig) Validate() error {
	if !(c.SparsityRate > 0 && c.SparsityRate <= 1) {
		return &ErrInvalidConfig{Field: "sparsity_rate", Value: c.SparsityRate, Reason: "must be in (0, 1]"}
	}
	if math.IsNaN(c.Mean) || math.IsInf(c.Mean, 0) {
		return &ErrInvalidConfig{Field: "mean", Value: c.Mean, Reason: "must be finite"}
	}
	if !isPositiveFinite(c.Variance) {
		return &ErrInvalidConfig{Field: "variance", Value: c.Variance, Reason: "must be positive and finite"}
	}
	return nil
}

type gbParams struct {
	rho, mu, v float64
}

// GaussBernoulli is a spike-and-slab prior with MMSE denoising.
type GaussBernoulli struct {
	learn  bool
	params atomic.Pointer[gbParams]
}

// NewGaussBernoulli creates a Gauss-Bernoulli prior.
func NewGaussBernoulli(cfg GaussBernoulliConfig) (*GaussBernoulli, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &GaussBernoulli{learn: cfg.Learn}
	g.params.Store(&gbParams{rho: cfg.SparsityRate, mu: cfg.Mean, v: cfg.Variance})
	return g, nil
}

// Name implements Prior.
func (g *GaussBernoulli) Name() string { return "gauss-bernoulli" }

// Params returns the current sparsity rate, slab mean and slab variance.
func (g *GaussBernoulli) Params() (rho, mu, v float64) {
	p := g.params.Load()
	return p.rho, p.mu, p.v
}

// Moments implements Prior.
func (g *GaussBernoulli) Moments(int) (float64, float64) {
	p := g.params.Load()
	m := p.rho * p.mu
	return m, p.rho*(p.v+p.mu*p.mu) - m*m
}

// Denoise implements Prior.
func (g *GaussBernoulli) Denoise(_ int, r, rvar float64) (float64, float64) {
	pi, m, s := g.posterior(g.params.Load(), r, rvar)
	xhat := pi * m
	v := pi*(s+m*m) - xhat*xhat
	if v < 0 {
		v = 0
	}
	return xhat, v
}

// posterior returns the activity probability and the slab posterior
// mean and variance.
func (g *GaussBernoulli) posterior(p *gbParams, r, rvar float64) (pi, m, s float64) {
	if !(rvar > 0) {
		// Noiseless pseudo-measurement: the spike only explains r == 0.
		if r == 0 && p.rho < 1 {
			return 0, 0, 0
		}
		return 1, r, 0
	}

	m = (r*p.v + p.mu*rvar) / (p.v + rvar)
	s = p.v * rvar / (p.v + rvar)
	if p.rho >= 1 {
		return 1, m, s
	}

	d := r - p.mu
	l1 := math.Log(p.rho) - 0.5*math.Log(p.v+rvar) - d*d/(2*(p.v+rvar))
	l0 := math.Log1p(-p.rho) - 0.5*math.Log(rvar) - r*r/(2*rvar)
	return logistic(l1 - l0), m, s
}

// EMUpdate implements Prior.
func (g *GaussBernoulli) EMUpdate(est Estimates) error {
	if !g.learn || len(est.R) == 0 {
		return nil
	}
	if len(est.RVar) != len(est.R) {
		return fmt.Errorf("prior: %d pseudo-variances for %d pseudo-means", len(est.RVar), len(est.R))
	}

	p := g.params.Load()
	n := len(est.R)
	pis := make([]float64, n)
	ms := make([]float64, n)
	ss := make([]float64, n)

	var sumPi, sumPiM float64
	for k := range est.R {
		pis[k], ms[k], ss[k] = g.posterior(p, est.R[k], est.RVar[k])
		sumPi += pis[k]
		sumPiM += pis[k] * ms[k]
	}

	next := &gbParams{rho: sumPi / float64(n)}
	if sumPi > 0 {
		next.mu = sumPiM / sumPi
		var acc float64
		for k := range pis {
			d := ms[k] - next.mu
			acc += pis[k] * (d*d + ss[k])
		}
		next.v = acc / sumPi
	}

	if !(next.rho > 0 && next.rho <= 1) || !isPositiveFinite(next.v) || math.IsNaN(next.mu) || math.IsInf(next.mu, 0) {
		return fmt.Errorf("%w: rho=%v mean=%v variance=%v", ErrDegenerateUpdate, next.rho, next.mu, next.v)
	}

	g.params.Store(next)
	return nil
}

// HardSupport implements Prior.
func (g *GaussBernoulli) HardSupport(xhat []float64) *Support { return SupportOf(xhat) }

// Sample implements Sampler.
func (g *GaussBernoulli) Sample(rng *rand.Rand) float64 {
	p := g.params.Load()
	if rng.Float64() >= p.rho {
		return 0
	}
	return p.mu + math.Sqrt(p.v)*rng.NormFloat64()
}
