package prior

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGaussBernoulliConfig_Validate(t *testing.T) {
	tests := []struct {
		name  string
		cfg   GaussBernoulliConfig
		field string
	}{
		{"zero rate", GaussBernoulliConfig{SparsityRate: 0, Variance: 1}, "sparsity_rate"},
		{"rate above one", GaussBernoulliConfig{SparsityRate: 1.5, Variance: 1}, "sparsity_rate"},
		{"zero variance", GaussBernoulliConfig{SparsityRate: 0.1}, "variance"},
		{"nan mean", GaussBernoulliConfig{SparsityRate: 0.1, Variance: 1, Mean: math.NaN()}, "mean"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewGaussBernoulli(tc.cfg)
			var ic *ErrInvalidConfig
			require.ErrorAs(t, err, &ic)
			assert.Equal(t, tc.field, ic.Field)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}
}

func TestGaussBernoulli_Denoise(t *testing.T) {
	g, err := NewGaussBernoulli(DefaultGaussBernoulliConfig())
	require.NoError(t, err)

	// A large pseudo-measurement is explained by the slab.
	m, v := g.Denoise(0, 5, 1e-4)
	assert.InDelta(t, 5, m, 1e-3)
	assert.InDelta(t, 1e-4, v, 1e-5)

	// A tiny one is explained by the spike.
	m, v = g.Denoise(0, 1e-3, 1e-4)
	assert.InDelta(t, 0, m, 1e-5)
	assert.GreaterOrEqual(t, v, 0.0)

	// Odd in r for a zero-mean slab.
	mp, vp := g.Denoise(0, 0.4, 0.2)
	mn, vn := g.Denoise(0, -0.4, 0.2)
	assert.InDelta(t, mp, -mn, 1e-15)
	assert.InDelta(t, vp, vn, 1e-15)

	// Noiseless pseudo-measurements pass through.
	m, v = g.Denoise(0, 2, 0)
	assert.Equal(t, 2.0, m)
	assert.Equal(t, 0.0, v)
}

func TestGaussBernoulli_DenseLimitIsLinear(t *testing.T) {
	g, err := NewGaussBernoulli(GaussBernoulliConfig{SparsityRate: 1, Mean: 1, Variance: 2})
	require.NoError(t, err)

	m, v := g.Denoise(0, 3, 2)
	assert.InDelta(t, 2, m, 1e-15)
	assert.InDelta(t, 1, v, 1e-15)
}

func TestGaussBernoulli_Moments(t *testing.T) {
	g, err := NewGaussBernoulli(GaussBernoulliConfig{SparsityRate: 0.25, Mean: 2, Variance: 1})
	require.NoError(t, err)

	m, v := g.Moments(0)
	assert.InDelta(t, 0.5, m, 1e-15)
	assert.InDelta(t, 0.25*5-0.25, v, 1e-15)
}

func TestGaussBernoulli_EMRecoversParameters(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	source, err := NewGaussBernoulli(GaussBernoulliConfig{SparsityRate: 0.2, Mean: 0.5, Variance: 1})
	require.NoError(t, err)

	const n = 20000
	est := Estimates{R: make([]float64, n), RVar: make([]float64, n), Columns: 1}
	for k := range est.R {
		est.RVar[k] = 0.01
		est.R[k] = source.Sample(rng) + 0.1*rng.NormFloat64()
	}

	g, err := NewGaussBernoulli(GaussBernoulliConfig{SparsityRate: 0.5, Variance: 2, Learn: true})
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		require.NoError(t, g.EMUpdate(est))
	}

	rho, mu, v := g.Params()
	assert.InDelta(t, 0.2, rho, 0.015)
	assert.InDelta(t, 0.5, mu, 0.05)
	assert.InDelta(t, 1, v, 0.08)
}

func TestGaussBernoulli_EMDegenerateKeepsParameters(t *testing.T) {
	g, err := NewGaussBernoulli(GaussBernoulliConfig{SparsityRate: 0.3, Variance: 1, Learn: true})
	require.NoError(t, err)

	err = g.EMUpdate(Estimates{R: []float64{math.NaN()}, RVar: []float64{1}, Columns: 1})
	assert.ErrorIs(t, err, ErrDegenerateUpdate)

	rho, mu, v := g.Params()
	assert.Equal(t, 0.3, rho)
	assert.Equal(t, 0.0, mu)
	assert.Equal(t, 1.0, v)
}

func TestGaussBernoulli_HardSupport(t *testing.T) {
	g, err := NewGaussBernoulli(DefaultGaussBernoulliConfig())
	require.NoError(t, err)

	s := g.HardSupport([]float64{0, 1e-9, 0, -2})
	assert.Equal(t, []int{1, 3}, s.Indices())
}
