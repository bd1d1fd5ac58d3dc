package quantization

import (
	"fmt"
	"math"
)

// DefaultLoading is the default half-range of a uniform quantizer in
// standard deviations.
const DefaultLoading = 3.0

type uniformOptions struct {
	loading float64
	mean    float64
}

// UniformOption configures NewUniform.
type UniformOption func(*uniformOptions)

// WithLoading sets the half-range of the quantizer in standard deviations.
func WithLoading(loading float64) UniformOption {
	return func(o *uniformOptions) {
		o.loading = loading
	}
}

// WithCenter shifts the quantizer to be centered on mean.
func WithCenter(mean float64) UniformOption {
	return func(o *uniformOptions) {
		o.mean = mean
	}
}

// NewUniform creates a 2^bits level quantizer with equal-width bins on
// [-L, L], L = loading·√variance. Reconstruction points are bin centers;
// the outer levels sit at the center of their finite part.
func NewUniform(bits int, variance float64, optFns ...UniformOption) (*Quantizer, error) {
	if err := validateDesign(bits, variance); err != nil {
		return nil, err
	}

	o := uniformOptions{loading: DefaultLoading}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if !(o.loading > 0) || math.IsInf(o.loading, 0) {
		return nil, &ErrInvalidBoundaries{Field: "loading", Reason: fmt.Sprintf("loading must be positive and finite, got %v", o.loading)}
	}

	n := 1 << bits
	half := o.loading * math.Sqrt(variance)
	step := 2 * half / float64(n)

	boundaries := make([]float64, n-1)
	for k := range boundaries {
		boundaries[k] = o.mean - half + float64(k+1)*step
	}
	levels := make([]float64, n)
	for k := range levels {
		levels[k] = o.mean - half + (float64(k)+0.5)*step
	}

	return New(boundaries, levels)
}

// NewSign creates the one-bit quantizer that keeps only the sign, with
// levels at the conditional means ±σ·√(2/π) of a zero-mean Gaussian.
func NewSign(variance float64) (*Quantizer, error) {
	if err := validateDesign(1, variance); err != nil {
		return nil, err
	}
	c := math.Sqrt(2 * variance / math.Pi)
	return New([]float64{0}, []float64{-c, c})
}

func validateDesign(bits int, variance float64) error {
	if bits < 1 || bits > 16 {
		return &ErrInvalidBoundaries{Field: "bits", Index: bits, Reason: "bits must be in [1, 16]"}
	}
	if !(variance > 0) || math.IsInf(variance, 0) {
		return &ErrInvalidBoundaries{Field: "variance", Reason: fmt.Sprintf("variance must be positive and finite, got %v", variance)}
	}
	return nil
}
