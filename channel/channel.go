// Package channel implements measurement-side observation models.
//
// A Channel turns the Gaussian belief N(p, pvar) about a noiseless
// measurement z_i into the posterior moments of z_i given the realized
// observation y_i.
package channel

import (
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/quantcs/internal/gauss"
	"github.com/hupe1980/quantcs/quantization"
)

// ErrInvalidChannel is returned for malformed observation models.
var ErrInvalidChannel = errors.New("channel: invalid configuration")

// Channel is the output-side capability of the estimators.
type Channel interface {
	// Len returns the number of measurements.
	Len() int
	// Moments returns E[z_i | y_i] and Var[z_i | y_i] under the prior z_i ~ N(p, pvar).
	Moments(i int, p, pvar float64) (zhat, zvar float64)
}

func validateNoise(noiseVar float64) error {
	if noiseVar < 0 || math.IsNaN(noiseVar) || math.IsInf(noiseVar, 0) {
		return fmt.Errorf("%w: noise variance %v must be finite and non-negative", ErrInvalidChannel, noiseVar)
	}
	return nil
}

// AWGN observes y = z + w with w ~ N(0, noiseVar).
type AWGN struct {
	y        []float64
	noiseVar float64
}

// NewAWGN creates an additive white Gaussian noise channel.
func NewAWGN(y []float64, noiseVar float64) (*AWGN, error) {
	if err := validateNoise(noiseVar); err != nil {
		return nil, err
	}
	return &AWGN{y: y, noiseVar: noiseVar}, nil
}

// Len implements Channel.
func (c *AWGN) Len() int { return len(c.y) }

// Moments implements Channel.
func (c *AWGN) Moments(i int, p, pvar float64) (float64, float64) {
	if c.noiseVar == 0 {
		return c.y[i], 0
	}
	total := pvar + c.noiseVar
	g := pvar / total
	return p + g*(c.y[i]-p), pvar * c.noiseVar / total
}

// Quantized observes y = Q(z + w) with w ~ N(0, noiseVar).
type Quantized struct {
	q        *quantization.Quantizer
	levels   []int
	noiseVar float64
	mode     gauss.TailMode
}

// NewQuantized creates a quantized channel from observed level indices.
func NewQuantized(q *quantization.Quantizer, levels []int, noiseVar float64, mode gauss.TailMode) (*Quantized, error) {
	if q == nil {
		return nil, fmt.Errorf("%w: nil quantizer", ErrInvalidChannel)
	}
	if q.IsPassThrough() {
		return nil, fmt.Errorf("%w: pass-through quantizer carries no level information, use NewAWGN", ErrInvalidChannel)
	}
	if err := validateNoise(noiseVar); err != nil {
		return nil, err
	}
	n := q.NumLevels()
	for i, l := range levels {
		if l < 0 || l >= n {
			return nil, fmt.Errorf("%w: level %d at measurement %d outside [0, %d)", ErrInvalidChannel, l, i, n)
		}
	}
	return &Quantized{q: q, levels: levels, noiseVar: noiseVar, mode: mode}, nil
}

// NewFromValues builds the channel for observed values y. A pass-through
// quantizer yields an AWGN channel; otherwise y is quantized to levels.
func NewFromValues(q *quantization.Quantizer, y []float64, noiseVar float64, mode gauss.TailMode) (Channel, error) {
	if q == nil || q.IsPassThrough() {
		return NewAWGN(y, noiseVar)
	}
	return NewQuantized(q, q.Encode(y), noiseVar, mode)
}

// Len implements Channel.
func (c *Quantized) Len() int { return len(c.levels) }

// Levels returns the observed level indices.
func (c *Quantized) Levels() []int { return c.levels }

// Moments implements Channel. With v = z + w ~ N(p, pvar+σ²) truncated to
// the observed bin, E[z|y] = p + g·(E[v|y] − p) and
// Var[z|y] = pvar·σ²/(pvar+σ²) + g²·Var[v|y] with g = pvar/(pvar+σ²).
func (c *Quantized) Moments(i int, p, pvar float64) (float64, float64) {
	lo, hi, _ := c.q.LevelInfo(c.levels[i])
	total := pvar + c.noiseVar
	if !(total > 0) {
		return p, 0
	}

	vm, vv := gauss.Truncated(p, total, lo, hi, c.mode)
	g := pvar / total
	return p + g*(vm-p), pvar*c.noiseVar/total + g*g*vv
}
