package gauss

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// TailMode selects how bin probabilities far from the mean are evaluated.
type TailMode uint8

const (
	// Stable evaluates bin masses in the log domain with asymptotic tails.
	Stable TailMode = iota
	// Naive divides densities by the raw CDF difference.
	Naive
)

// String implements fmt.Stringer.
func (m TailMode) String() string {
	switch m {
	case Stable:
		return "stable"
	case Naive:
		return "naive"
	default:
		return fmt.Sprintf("TailMode(%d)", m)
	}
}

// ParseTailMode parses "stable" or "naive".
func ParseTailMode(s string) (TailMode, error) {
	switch s {
	case "", "stable":
		return Stable, nil
	case "naive":
		return Naive, nil
	default:
		return Stable, fmt.Errorf("gauss: unknown tail mode %q", s)
	}
}

const (
	// asymptoticCutoff is where LogCDF switches to the Mills-ratio series.
	asymptoticCutoff = -30.0
	// tailCutoff is the distance (in standard deviations) beyond which a
	// bin is treated with the exponential-tail approximation.
	tailCutoff = 30.0
)

// LogPDF returns log φ(x).
func LogPDF(x float64) float64 {
	return distuv.UnitNormal.LogProb(x)
}

// PDF returns φ(x).
func PDF(x float64) float64 {
	return distuv.UnitNormal.Prob(x)
}

// CDF returns Φ(x).
func CDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// LogCDF returns log Φ(x) without underflowing for very negative x.
func LogCDF(x float64) float64 {
	switch {
	case math.IsInf(x, -1):
		return math.Inf(-1)
	case x < asymptoticCutoff:
		x2 := x * x
		x4 := x2 * x2
		series := 1 - 1/x2 + 3/x4 - 15/(x4*x2)
		return LogPDF(x) - math.Log(-x) + math.Log(series)
	case x > 5:
		return math.Log1p(-distuv.UnitNormal.Survival(x))
	default:
		return math.Log(CDF(x))
	}
}

// InvMills returns φ(x)/Φ(x).
func InvMills(x float64) float64 {
	return math.Exp(LogPDF(x) - LogCDF(x))
}

// LogBinMass returns log(Φ(b) − Φ(a)) for a < b.
func LogBinMass(a, b float64) float64 {
	switch {
	case math.IsInf(a, -1):
		return LogCDF(b)
	case math.IsInf(b, 1):
		return LogCDF(-a)
	case a > 0:
		// Both ends in the upper tail: subtract survival functions.
		la, lb := LogCDF(-a), LogCDF(-b)
		if !(la > lb) {
			return midpointMass(a, b)
		}
		return la + math.Log1p(-math.Exp(lb-la))
	default:
		la, lb := LogCDF(a), LogCDF(b)
		if !(lb > la) {
			return midpointMass(a, b)
		}
		return lb + math.Log1p(-math.Exp(la-lb))
	}
}

// midpointMass approximates the mass of a bin whose CDF difference
// cancelled to nothing by the density at the point nearest the mean.
func midpointMass(a, b float64) float64 {
	m := 0.0
	switch {
	case a > 0:
		m = a
	case b < 0:
		m = b
	}
	return LogPDF(m) + math.Log(b-a)
}
