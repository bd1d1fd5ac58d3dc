package gauss

import "math"

// Truncated returns the mean and variance of N(mu, variance) restricted to
// [lo, hi). Either bound may be infinite.
func Truncated(mu, variance, lo, hi float64, mode TailMode) (mean, vari float64) {
	if mode == Naive {
		return truncatedNaive(mu, variance, lo, hi)
	}
	return truncatedStable(mu, variance, lo, hi)
}

func truncatedStable(mu, variance, lo, hi float64) (float64, float64) {
	s := math.Sqrt(variance)
	a := (lo - mu) / s
	b := (hi - mu) / s

	// Whole bin far in a tail: the density across it is close to an
	// exponential with rate |a|/s anchored at the near edge.
	if a > tailCutoff {
		return exponentialTail(lo, hi-lo, a/s, 1)
	}
	if b < -tailCutoff {
		return exponentialTail(hi, hi-lo, -b/s, -1)
	}

	lz := LogBinMass(a, b)

	var pa, pb, apa, bpb float64
	if !math.IsInf(a, -1) {
		pa = math.Exp(LogPDF(a) - lz)
		apa = a * pa
	}
	if !math.IsInf(b, 1) {
		pb = math.Exp(LogPDF(b) - lz)
		bpb = b * pb
	}

	mean := mu + s*(pa-pb)
	vari := variance * (1 + apa - bpb - (pa-pb)*(pa-pb))

	if mean < lo {
		mean = lo
	} else if mean > hi {
		mean = hi
	}
	if !(vari > 0) && !math.IsNaN(vari) {
		vari = 0
	}
	return mean, vari
}

// exponentialTail returns the moments of an exponential density with the
// given rate, starting at edge and pointing in dir, capped by the bin width.
func exponentialTail(edge, width, rate float64, dir float64) (float64, float64) {
	scale := 1 / rate
	offset := math.Min(scale, width/2)
	vari := math.Min(scale*scale, width*width/12)
	return edge + dir*offset, vari
}

func truncatedNaive(mu, variance, lo, hi float64) (float64, float64) {
	s := math.Sqrt(variance)
	a := (lo - mu) / s
	b := (hi - mu) / s

	z := CDF(b) - CDF(a)

	var pa, pb, apa, bpb float64
	if !math.IsInf(a, -1) {
		pa = PDF(a)
		apa = a * pa
	}
	if !math.IsInf(b, 1) {
		pb = PDF(b)
		bpb = b * pb
	}

	ratio := (pa - pb) / z
	mean := mu + s*ratio
	vari := variance * (1 + (apa-bpb)/z - ratio*ratio)
	return mean, vari
}
