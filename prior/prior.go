package prior

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Mode selects the message-passing semantics of a prior.
type Mode string

const (
	// ModeMMSE is sum-product (posterior mean) message passing.
	ModeMMSE Mode = "mmse"
	// ModeMAP is max-sum (posterior mode) message passing.
	ModeMAP Mode = "map"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeMMSE, ModeMAP:
		return Mode(s), nil
	default:
		return "", &ErrInvalidConfig{Field: "mode", Value: s, Reason: `must be "mmse" or "map"`}
	}
}

// LearnMode selects how a learned hyperparameter is shared across coefficients.
type LearnMode string

const (
	// LearnScalar learns one value and broadcasts it to every coefficient.
	LearnScalar LearnMode = "scalar"
	// LearnPerCoefficient learns one value per signal row, shared over columns.
	LearnPerCoefficient LearnMode = "per_coefficient"
)

// ParseLearnMode validates a learn mode string. The empty string selects LearnScalar.
func ParseLearnMode(s string) (LearnMode, error) {
	switch LearnMode(s) {
	case "", LearnScalar:
		return LearnScalar, nil
	case LearnPerCoefficient:
		return LearnPerCoefficient, nil
	default:
		return "", &ErrInvalidConfig{Field: "learn_mode", Value: s, Reason: `must be "scalar" or "per_coefficient"`}
	}
}

// Estimates carries the pseudo-measurements of a completed round.
type Estimates struct {
	// R and RVar are the pseudo-measurement means and variances, column-major.
	R, RVar []float64
	// Columns is T, the number of signal columns. N = len(R)/Columns.
	Columns int
}

// Rows returns N.
func (e Estimates) Rows() int {
	if e.Columns <= 0 {
		return len(e.R)
	}
	return len(e.R) / e.Columns
}

// Prior is the capability set an estimator needs from a prior family.
type Prior interface {
	// Name identifies the family in logs and reports.
	Name() string

	// Moments returns the prior mean and variance of coefficient k, used
	// to initialize message state.
	Moments(k int) (mean, variance float64)

	// Denoise returns the posterior mean and variance of coefficient k
	// given the pseudo-measurement N(r, rvar).
	Denoise(k int, r, rvar float64) (mean, variance float64)

	// EMUpdate re-estimates hyperparameters from a round's estimates. It
	// is a no-op when learning is disabled and returns an error wrapping
	// ErrDegenerateUpdate when the update was discarded.
	EMUpdate(est Estimates) error

	// HardSupport returns the coefficients whose posterior mean is nonzero.
	HardSupport(xhat []float64) *Support
}

// Sampler is implemented by priors that can draw coefficients, which the
// state evolution predictor uses for Monte Carlo integration.
type Sampler interface {
	Sample(rng *rand.Rand) float64
}

// Sized is implemented by priors whose hyperparameters may be set per
// coefficient. ParamLen is 1 for a shared parameter, otherwise the number
// of coefficients the prior serves.
type Sized interface {
	ParamLen() int
}

// Broadcast resizes a hyperparameter to n coefficients. A single value is
// repeated; a slice of length n is copied. It never aliases params.
func Broadcast(params []float64, n int) ([]float64, error) {
	switch len(params) {
	case n:
		return append([]float64(nil), params...), nil
	case 1:
		out := make([]float64, n)
		for i := range out {
			out[i] = params[0]
		}
		return out, nil
	default:
		return nil, fmt.Errorf("prior: cannot broadcast %d parameters to %d coefficients", len(params), n)
	}
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return math.NaN()
	}
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}

func isPositiveFinite(x float64) bool {
	return x > 0 && !math.IsInf(x, 1)
}
