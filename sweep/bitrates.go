package sweep

import (
	"fmt"

	"github.com/hupe1980/quantcs/quantization"
	"github.com/hupe1980/quantcs/rbp"
	"github.com/hupe1980/quantcs/se"
)

// Design names a quantizer construction.
type Design string

const (
	DesignUniform  Design = "uniform"
	DesignLloydMax Design = "lloyd_max"
)

const lloydMaxIterations = 200

// NewQuantizer builds a bits-bit quantizer for a zero-mean Gaussian input
// of the given variance. Zero bits yields the pass-through quantizer.
func NewQuantizer(d Design, bits int, variance float64) (*quantization.Quantizer, error) {
	if bits == 0 {
		return quantization.PassThrough(), nil
	}
	switch d {
	case DesignUniform, "":
		return quantization.NewUniform(bits, variance)
	case DesignLloydMax:
		return quantization.NewLloydMax(bits, variance, lloydMaxIterations)
	default:
		return nil, fmt.Errorf("%w: unknown quantizer design %q", ErrInvalidJob, d)
	}
}

// MeasurementVariance is the variance of a noisy measurement z + w when the
// signal has unit-variance Gauss-Bernoulli entries with sparsity rho and the
// matrix has N(0, 1/M) entries: ρ/δ + σ².
func MeasurementVariance(rho, delta, noiseVar float64) float64 {
	return rho/delta + noiseVar
}

// BitRates builds one SE job per bit-rate. Each quantizer is designed for
// the measurement variance of base; base.Quantizer is ignored.
func BitRates(base se.Config, bits []int, d Design, opts ...se.Option) ([]Job, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}
	variance := MeasurementVariance(base.SparsityRate, base.UndersamplingRatio, base.NoiseVariance)

	jobs := make([]Job, 0, len(bits))
	for _, b := range bits {
		q, err := NewQuantizer(d, b, variance)
		if err != nil {
			return nil, fmt.Errorf("sweep: %d bits: %w", b, err)
		}
		cfg := base
		cfg.Quantizer = q

		jobs = append(jobs, Job{
			Name: fmt.Sprintf("se/%s/bits=%d", d, b),
			Config: map[string]any{
				"bits":                b,
				"design":              string(d),
				"sparsity_rate":       base.SparsityRate,
				"undersampling_ratio": base.UndersamplingRatio,
				"noise_variance":      base.NoiseVariance,
				"initial_snr":         base.InitialSNR,
			},
			Predict: &PredictJob{Config: cfg, Options: opts},
		})
	}
	return jobs, nil
}

// Trials builds one RBP job per seed on the synthetic problem s. A zero
// bits value leaves the measurements unquantized.
func Trials(s Synthetic, bits int, d Design, seeds []uint64, factory PriorFactory, opts ...rbp.Option) ([]Job, error) {
	delta := float64(s.M) / float64(s.N)
	q, err := NewQuantizer(d, bits, MeasurementVariance(s.SparsityRate, delta, s.NoiseVariance))
	if err != nil {
		return nil, err
	}

	jobs := make([]Job, 0, len(seeds))
	for _, seed := range seeds {
		prob := s
		prob.Quantizer = q
		prob.Seed = seed

		jobs = append(jobs, Job{
			Name: fmt.Sprintf("rbp/%s/bits=%d/seed=%d", d, bits, seed),
			Config: map[string]any{
				"bits":           bits,
				"design":         string(d),
				"m":              s.M,
				"n":              s.N,
				"sparsity_rate":  s.SparsityRate,
				"noise_variance": s.NoiseVariance,
				"seed":           seed,
				"tail_mode":      s.TailMode.String(),
			},
			Reconstruct: &ReconstructJob{Problem: prob, Options: opts, Prior: factory},
		})
	}
	return jobs, nil
}
