package channel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/quantcs/internal/gauss"
	"github.com/hupe1980/quantcs/quantization"
)

func TestAWGN_Moments(t *testing.T) {
	c, err := NewAWGN([]float64{2, -1}, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	zhat, zvar := c.Moments(0, 0, 1)
	assert.InDelta(t, 1, zhat, 1e-15)
	assert.InDelta(t, 0.5, zvar, 1e-15)

	zhat, zvar = c.Moments(1, 3, 3)
	assert.InDelta(t, 3+0.75*(-4), zhat, 1e-15)
	assert.InDelta(t, 0.75, zvar, 1e-15)
}

func TestAWGN_NoiselessReturnsObservation(t *testing.T) {
	c, err := NewAWGN([]float64{1.5}, 0)
	require.NoError(t, err)

	zhat, zvar := c.Moments(0, -7, 3)
	assert.Equal(t, 1.5, zhat)
	assert.Equal(t, 0.0, zvar)
}

func TestNewAWGN_RejectsBadNoise(t *testing.T) {
	for _, v := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := NewAWGN(nil, v)
		assert.ErrorIs(t, err, ErrInvalidChannel)
	}
}

func TestNewQuantized_Validation(t *testing.T) {
	q, err := quantization.NewUniform(2, 1)
	require.NoError(t, err)

	_, err = NewQuantized(nil, nil, 0, gauss.Stable)
	assert.ErrorIs(t, err, ErrInvalidChannel)

	_, err = NewQuantized(quantization.PassThrough(), []int{0}, 0, gauss.Stable)
	assert.ErrorIs(t, err, ErrInvalidChannel)

	_, err = NewQuantized(q, []int{0, 4}, 0, gauss.Stable)
	assert.ErrorIs(t, err, ErrInvalidChannel)
	assert.Contains(t, err.Error(), "measurement 1")

	c, err := NewQuantized(q, []int{0, 3}, 0.1, gauss.Stable)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []int{0, 3}, c.Levels())
}

func TestQuantized_NoiselessMatchesTruncatedNormal(t *testing.T) {
	q, err := quantization.New([]float64{0}, []float64{-1, 1})
	require.NoError(t, err)
	c, err := NewQuantized(q, []int{1}, 0, gauss.Stable)
	require.NoError(t, err)

	// z ~ N(0, 1) restricted to [0, ∞) is the half-normal.
	zhat, zvar := c.Moments(0, 0, 1)
	assert.InDelta(t, math.Sqrt(2/math.Pi), zhat, 1e-12)
	assert.InDelta(t, 1-2/math.Pi, zvar, 1e-12)
}

func TestQuantized_NoiseShrinksTowardsPrior(t *testing.T) {
	q, err := quantization.New([]float64{0}, []float64{-1, 1})
	require.NoError(t, err)
	c, err := NewQuantized(q, []int{1}, 1, gauss.Stable)
	require.NoError(t, err)

	// v = z + w ~ N(0, 2) truncated to [0, ∞): E[v] = 2/√π, Var[v] = 2(1 − 2/π).
	zhat, zvar := c.Moments(0, 0, 1)
	ev := 2 / math.Sqrt(math.Pi)
	vv := 2 * (1 - 2/math.Pi)
	assert.InDelta(t, 0.5*ev, zhat, 1e-12)
	assert.InDelta(t, 0.5+0.25*vv, zvar, 1e-12)
	assert.Less(t, zvar, 1.0)
}

func TestQuantized_FarTailStaysFinite(t *testing.T) {
	q, err := quantization.New([]float64{-1, 1}, []float64{-2, 0, 2})
	require.NoError(t, err)

	stable, err := NewQuantized(q, []int{2}, 1e-6, gauss.Stable)
	require.NoError(t, err)
	naive, err := NewQuantized(q, []int{2}, 1e-6, gauss.Naive)
	require.NoError(t, err)

	// The observed bin is ~100 standard deviations above the belief.
	zhat, zvar := stable.Moments(0, -99, 1)
	assert.False(t, math.IsNaN(zhat) || math.IsInf(zhat, 0))
	assert.False(t, math.IsNaN(zvar) || math.IsInf(zvar, 0))
	assert.GreaterOrEqual(t, zhat, 1-1e-3)
	assert.GreaterOrEqual(t, zvar, 0.0)

	zhat, zvar = naive.Moments(0, -99, 1)
	assert.True(t, math.IsNaN(zhat) || math.IsInf(zhat, 0) || math.IsNaN(zvar) || math.IsInf(zvar, 0))
}

func TestNewFromValues(t *testing.T) {
	c, err := NewFromValues(quantization.PassThrough(), []float64{0.3}, 0.1, gauss.Stable)
	require.NoError(t, err)
	_, ok := c.(*AWGN)
	assert.True(t, ok)

	q, err := quantization.New([]float64{0}, []float64{-1, 1})
	require.NoError(t, err)
	c, err = NewFromValues(q, []float64{-0.2, 0.4}, 0.1, gauss.Stable)
	require.NoError(t, err)
	qc, ok := c.(*Quantized)
	require.True(t, ok)
	assert.Equal(t, []int{0, 1}, qc.Levels())
}

func BenchmarkQuantizedMoments(b *testing.B) {
	q, _ := quantization.NewUniform(4, 1)
	c, _ := NewQuantized(q, []int{7}, 1e-3, gauss.Stable)
	for i := 0; i < b.N; i++ {
		c.Moments(0, 0.1, 0.5)
	}
}
