package rbp

import "math"

var nan = math.NaN()

// growthMonitor flags a monitored error that exceeds factor times its
// baseline while increasing for patience consecutive rounds.
type growthMonitor struct {
	factor   float64
	patience int

	baseline float64
	last     float64
	streak   int
}

func newGrowthMonitor(factor float64, patience int) *growthMonitor {
	return &growthMonitor{factor: factor, patience: patience, last: nan}
}

// observe records one round and reports whether the run diverged.
func (g *growthMonitor) observe(v float64) bool {
	defer func() { g.last = v }()

	if g.baseline == 0 {
		// Zero baseline (all-zero first estimate) is replaced by the first positive value.
		if v > 0 {
			g.baseline = v
		}
		return false
	}

	if v > g.factor*g.baseline && v > g.last {
		g.streak++
	} else {
		g.streak = 0
	}
	return g.streak >= g.patience
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
