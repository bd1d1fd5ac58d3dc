package se

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/quantcs/channel"
	"github.com/hupe1980/quantcs/internal/gauss"
	"github.com/hupe1980/quantcs/prior"
	"github.com/hupe1980/quantcs/quantization"
	"github.com/hupe1980/quantcs/rbp"
	"github.com/hupe1980/quantcs/util"
)

const (
	testRho   = 0.1
	testDelta = 0.5
	testNoise = 1e-3
)

func threeBitConfig(t *testing.T) Config {
	t.Helper()
	q, err := quantization.NewUniform(3, testRho/testDelta+testNoise)
	require.NoError(t, err)
	return Config{
		SparsityRate:       testRho,
		UndersamplingRatio: testDelta,
		NoiseVariance:      testNoise,
		Quantizer:          q,
		InitialSNR:         1,
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{SparsityRate: 0.1, UndersamplingRatio: 0.5, InitialSNR: 1}
	require.NoError(t, valid.Validate())

	for name, mutate := range map[string]func(*Config){
		"zero sparsity":      func(c *Config) { c.SparsityRate = 0 },
		"sparsity above one": func(c *Config) { c.SparsityRate = 1.1 },
		"zero delta":         func(c *Config) { c.UndersamplingRatio = 0 },
		"negative noise":     func(c *Config) { c.NoiseVariance = -1 },
		"nan noise":          func(c *Config) { c.NoiseVariance = math.NaN() },
		"zero snr":           func(c *Config) { c.InitialSNR = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			c := valid
			mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
}

func TestNew_RejectsInvalidOptions(t *testing.T) {
	for _, opt := range []Option{
		WithMaxIterations(0),
		WithTolerance(-1),
		WithSamples(0),
		WithDamping(0),
		WithDamping(2),
	} {
		_, err := New(opt)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	}
}

type silentPrior struct{ prior.Prior }

func (silentPrior) Name() string { return "silent" }

func TestNew_RequiresSampler(t *testing.T) {
	gb, err := prior.NewGaussBernoulli(prior.DefaultGaussBernoulliConfig())
	require.NoError(t, err)

	_, err = New(WithPrior(silentPrior{gb}))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(WithPrior(gb))
	assert.NoError(t, err)
}

func TestPredict_TraceIsMonotone(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	pred, err := p.Predict(context.Background(), threeBitConfig(t))
	require.NoError(t, err)

	assert.Equal(t, Converged, pred.State)
	require.Len(t, pred.Trace, pred.Iterations)
	require.Len(t, pred.EffectiveNoise, pred.Iterations)
	for i := 1; i < len(pred.Trace); i++ {
		assert.LessOrEqual(t, pred.Trace[i], pred.Trace[i-1]*(1+1e-9), "round %d", i+1)
	}
	// The first round cannot beat the prior variance ρ.
	assert.Less(t, pred.Trace[0], testRho)
	assert.Less(t, pred.FinalMSE(), 0.01)
}

func TestPredict_Deterministic(t *testing.T) {
	a, err := New(WithSeed(7), WithSamples(5000))
	require.NoError(t, err)
	b, err := New(WithSeed(7), WithSamples(5000), WithWorkers(3))
	require.NoError(t, err)

	pa, err := a.Predict(context.Background(), threeBitConfig(t))
	require.NoError(t, err)
	pb, err := b.Predict(context.Background(), threeBitConfig(t))
	require.NoError(t, err)

	assert.Equal(t, pa.Trace, pb.Trace)
}

func TestPredict_MoreBitsLowerError(t *testing.T) {
	p, err := New(WithSamples(10000))
	require.NoError(t, err)

	mse := func(bits int) float64 {
		cfg := threeBitConfig(t)
		q, err := quantization.NewUniform(bits, testRho/testDelta+testNoise)
		require.NoError(t, err)
		cfg.Quantizer = q
		pred, err := p.Predict(context.Background(), cfg)
		require.NoError(t, err)
		return pred.FinalMSE()
	}

	assert.Less(t, mse(4), mse(1))
}

func TestPredict_DampingKeepsFixedPoint(t *testing.T) {
	plain, err := New(WithSamples(10000))
	require.NoError(t, err)
	damped, err := New(WithSamples(10000), WithDamping(0.5), WithTolerance(1e-6))
	require.NoError(t, err)

	a, err := plain.Predict(context.Background(), threeBitConfig(t))
	require.NoError(t, err)
	b, err := damped.Predict(context.Background(), threeBitConfig(t))
	require.NoError(t, err)

	assert.InEpsilon(t, a.FinalMSE(), b.FinalMSE(), 0.05)
	assert.Greater(t, b.Iterations, a.Iterations)
}

func TestPredict_LaplacePrior(t *testing.T) {
	cfg := prior.DefaultLaplaceConfig()
	cfg.Mode = prior.ModeMMSE
	lap, err := prior.NewLaplace(cfg)
	require.NoError(t, err)

	p, err := New(WithPrior(lap), WithSamples(5000))
	require.NoError(t, err)

	pred, err := p.Predict(context.Background(), Config{
		SparsityRate:       1,
		UndersamplingRatio: 1,
		NoiseVariance:      0.01,
		InitialSNR:         1,
	})
	require.NoError(t, err)

	// With δ = 1 and unit-variance signal the error lies below the noise-free
	// prior variance and above zero.
	assert.Greater(t, pred.FinalMSE(), 0.0)
	assert.Less(t, pred.FinalMSE(), 1.0)
}

func TestPredict_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, err := New()
	require.NoError(t, err)
	_, err = p.Predict(ctx, threeBitConfig(t))
	assert.ErrorIs(t, err, context.Canceled)
}

// TestPredict_MatchesRBP cross-validates the two engines: the SE fixed
// point must match the empirical MSE of RBP on a large random instance
// of the same statistical problem.
func TestPredict_MatchesRBP(t *testing.T) {
	if testing.Short() {
		t.Skip("large instance")
	}

	cfg := threeBitConfig(t)

	p, err := New()
	require.NoError(t, err)
	pred, err := p.Predict(context.Background(), cfg)
	require.NoError(t, err)

	const n = 1200
	m := int(testDelta * n)
	rng := util.NewRNG(5)

	a := rng.GaussianMatrix(m, n, 1.0/float64(m))
	x := rng.SparseVector(n, int(testRho*n))

	z := mat.NewVecDense(m, nil)
	z.MulVec(a, mat.NewVecDense(n, x))
	y := z.RawVector().Data
	for i := range y {
		y[i] += math.Sqrt(testNoise) * rng.Rand().NormFloat64()
	}

	ch, err := channel.NewFromValues(cfg.Quantizer, y, testNoise, gauss.Stable)
	require.NoError(t, err)
	gb, err := prior.NewGaussBernoulli(prior.GaussBernoulliConfig{SparsityRate: testRho, Variance: 1})
	require.NoError(t, err)

	problem, err := rbp.NewProblem([]mat.Matrix{a}, []channel.Channel{ch}, gb, false)
	require.NoError(t, err)
	problem.Truth = x

	e, err := rbp.New()
	require.NoError(t, err)
	res, err := e.Run(context.Background(), problem)
	require.NoError(t, err)

	assert.InEpsilon(t, pred.FinalMSE(), res.FinalMSE(), 0.3)
}

func BenchmarkPredict(b *testing.B) {
	q, _ := quantization.NewUniform(3, testRho/testDelta+testNoise)
	cfg := Config{SparsityRate: testRho, UndersamplingRatio: testDelta, NoiseVariance: testNoise, Quantizer: q, InitialSNR: 1}
	p, _ := New(WithSamples(5000))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = p.Predict(context.Background(), cfg)
	}
}
