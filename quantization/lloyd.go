package quantization

import (
	"math"
	"sort"

	"github.com/hupe1980/quantcs/internal/gauss"
	"gonum.org/v1/gonum/stat"
)

// NewLloydMax designs the MSE-optimal 2^bits level quantizer for a
// zero-mean Gaussian source with the given variance.
//
// It starts from the uniform design and alternates the two Lloyd
// conditions: boundaries at level midpoints, levels at the conditional
// mean of their bin. Iteration stops when no level moves by more than
// 1e-9·σ or after maxIter rounds.
func NewLloydMax(bits int, variance float64, maxIter int) (*Quantizer, error) {
	init, err := NewUniform(bits, variance)
	if err != nil {
		return nil, err
	}
	if maxIter <= 0 {
		maxIter = 100
	}

	sigma := math.Sqrt(variance)
	levels := init.Levels()
	boundaries := init.Boundaries()

	for iter := 0; iter < maxIter; iter++ {
		for k := range boundaries {
			boundaries[k] = 0.5 * (levels[k] + levels[k+1])
		}

		moved := 0.0
		for k := range levels {
			lo, hi := math.Inf(-1), math.Inf(1)
			if k > 0 {
				lo = boundaries[k-1]
			}
			if k < len(boundaries) {
				hi = boundaries[k]
			}
			m, _ := gauss.Truncated(0, variance, lo, hi, gauss.Stable)
			moved = math.Max(moved, math.Abs(m-levels[k]))
			levels[k] = m
		}

		if moved < 1e-9*sigma {
			break
		}
	}

	for k := range boundaries {
		boundaries[k] = 0.5 * (levels[k] + levels[k+1])
	}
	return New(boundaries, levels)
}

// TrainLloyd fits a numLevels quantizer to empirical samples with Lloyd's
// algorithm (one-dimensional k-means). Levels start at evenly spaced
// sample quantiles.
func TrainLloyd(samples []float64, numLevels, maxIter int) (*Quantizer, error) {
	if numLevels < 1 {
		return nil, &ErrInvalidBoundaries{Field: "levels", Index: numLevels, Reason: "at least one level is required"}
	}
	if len(samples) < numLevels {
		return nil, &ErrInvalidBoundaries{Field: "samples", Index: len(samples), Reason: "need at least one sample per level"}
	}
	if maxIter <= 0 {
		maxIter = 100
	}

	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	levels := make([]float64, numLevels)
	for k := range levels {
		p := (float64(k) + 0.5) / float64(numLevels)
		levels[k] = stat.Quantile(p, stat.Empirical, sorted, nil)
	}

	boundaries := make([]float64, numLevels-1)
	sums := make([]float64, numLevels)
	counts := make([]int, numLevels)

	for iter := 0; iter < maxIter; iter++ {
		for k := range boundaries {
			boundaries[k] = 0.5 * (levels[k] + levels[k+1])
		}

		// Assignment step
		for k := range sums {
			sums[k] = 0
			counts[k] = 0
		}
		for _, x := range sorted {
			k := sort.Search(len(boundaries), func(i int) bool { return boundaries[i] > x })
			sums[k] += x
			counts[k]++
		}

		// Update step; empty cells keep their level.
		changed := false
		for k := range levels {
			if counts[k] == 0 {
				continue
			}
			m := sums[k] / float64(counts[k])
			if m != levels[k] {
				levels[k] = m
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	for k := range boundaries {
		boundaries[k] = 0.5 * (levels[k] + levels[k+1])
	}
	return New(boundaries, levels)
}
