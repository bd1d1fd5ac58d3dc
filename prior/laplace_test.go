package prior

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLaplace(t *testing.T, mutate func(*LaplaceConfig)) *Laplace {
	t.Helper()
	cfg := DefaultLaplaceConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	l, err := NewLaplace(cfg)
	require.NoError(t, err)
	return l
}

func TestLaplaceConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*LaplaceConfig)
		field  string
	}{
		{"unknown mode", func(c *LaplaceConfig) { c.Mode = "median" }, "mode"},
		{"empty mode", func(c *LaplaceConfig) { c.Mode = "" }, "mode"},
		{"unknown learn mode", func(c *LaplaceConfig) { c.LearnMode = "columnwise" }, "learn_mode"},
		{"zero rate", func(c *LaplaceConfig) { c.Rate = 0 }, "rate"},
		{"negative rate", func(c *LaplaceConfig) { c.Rate = -1 }, "rate"},
		{"infinite rate", func(c *LaplaceConfig) { c.Rate = math.Inf(1) }, "rate"},
		{"bad per-coefficient rate", func(c *LaplaceConfig) { c.Rates = []float64{1, 0} }, "rates[1]"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultLaplaceConfig()
			tc.mutate(&cfg)

			_, err := NewLaplace(cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)

			var ic *ErrInvalidConfig
			require.ErrorAs(t, err, &ic)
			assert.Equal(t, tc.field, ic.Field)
		})
	}

	assert.NoError(t, DefaultLaplaceConfig().Validate())
}

func TestLaplace_MAPSoftThreshold(t *testing.T) {
	l := newLaplace(t, func(c *LaplaceConfig) { c.Rate = 2 })

	tests := []struct {
		r, rvar, mean, variance float64
	}{
		{3, 0.5, 2, 0.5},
		{-3, 0.5, -2, 0.5},
		{0.9, 0.5, 0, 0},
		{-1, 0.5, 0, 0},
		{0, 0.5, 0, 0},
		{1, 0, 1, 0},
	}

	for _, tc := range tests {
		m, v := l.Denoise(0, tc.r, tc.rvar)
		assert.InDelta(t, tc.mean, m, 1e-15, "r=%v", tc.r)
		assert.InDelta(t, tc.variance, v, 1e-15, "r=%v", tc.r)
	}
}

func TestLaplace_MMSEApproachesSoftThreshold(t *testing.T) {
	lam := math.Sqrt2
	l := newLaplace(t, func(c *LaplaceConfig) { c.Mode = ModeMMSE })

	for _, r := range []float64{-2, -0.8, 0.6, 1.5} {
		for _, rvar := range []float64{1e-2, 1e-3, 1e-4, 1e-6} {
			want, _ := softThreshold(r, rvar, lam)
			got, v := l.Denoise(0, r, rvar)
			assert.InDelta(t, want, got, 10*rvar, "r=%v rvar=%v", r, rvar)
			assert.LessOrEqual(t, v, rvar*(1+1e-9))
		}
	}

	// Inside the dead zone the MMSE estimate shrinks towards zero.
	for _, rvar := range []float64{1e-2, 1e-4, 1e-6} {
		got, _ := l.Denoise(0, 0.5*lam*rvar, rvar)
		assert.InDelta(t, 0, got, math.Sqrt(rvar))
	}
}

func TestLaplace_MMSEVarianceFarFromZero(t *testing.T) {
	l := newLaplace(t, func(c *LaplaceConfig) {
		c.Mode = ModeMMSE
		c.Rate = 1
	})

	for _, r := range []float64{1e4, 1e8, -1e8} {
		m, v := l.Denoise(0, r, 1)
		assert.InEpsilon(t, r-math.Copysign(1, r), m, 1e-12, "r=%v", r)
		assert.InDelta(t, 1, v, 1e-6, "r=%v", r)
	}
}

func TestLaplace_MMSEMatchesQuadrature(t *testing.T) {
	lam := math.Sqrt2
	l := newLaplace(t, func(c *LaplaceConfig) { c.Mode = ModeMMSE })

	for _, tc := range []struct{ r, rvar float64 }{
		{0.7, 0.5},
		{-2.5, 0.1},
		{0, 1},
		{4, 2},
	} {
		// Posterior ∝ exp(-λ|x| - (x-r)²/(2·rvar)) integrated on a fine grid.
		const h = 1e-4
		var z, m1, m2 float64
		for x := tc.r - 20; x <= tc.r+20; x += h {
			w := math.Exp(-lam*math.Abs(x) - (x-tc.r)*(x-tc.r)/(2*tc.rvar))
			z += w
			m1 += w * x
			m2 += w * x * x
		}
		wantMean := m1 / z
		wantVar := m2/z - wantMean*wantMean

		gotMean, gotVar := l.Denoise(0, tc.r, tc.rvar)
		assert.InDelta(t, wantMean, gotMean, 1e-5, "r=%v", tc.r)
		assert.InDelta(t, wantVar, gotVar, 1e-5, "r=%v", tc.r)
	}
}

func TestLaplace_MMSEIsOdd(t *testing.T) {
	l := newLaplace(t, func(c *LaplaceConfig) { c.Mode = ModeMMSE })

	for _, r := range []float64{0.1, 1, 5, 40} {
		mp, vp := l.Denoise(0, r, 0.3)
		mn, vn := l.Denoise(0, -r, 0.3)
		assert.InDelta(t, mp, -mn, 1e-12)
		assert.InDelta(t, vp, vn, 1e-12)
		assert.False(t, math.IsNaN(mp))
	}
}

func TestLaplace_Moments(t *testing.T) {
	l := newLaplace(t, nil)
	m, v := l.Moments(7)
	assert.Equal(t, 0.0, m)
	assert.InDelta(t, 1.0, v, 1e-12)
}

func TestLaplace_EMDisabledIsNoop(t *testing.T) {
	l := newLaplace(t, nil)
	require.NoError(t, l.EMUpdate(Estimates{R: []float64{5, 5}, RVar: []float64{0, 0}, Columns: 1}))
	assert.Equal(t, []float64{DefaultLaplaceRate}, l.Rate())
}

func TestLaplace_EMScalar(t *testing.T) {
	l := newLaplace(t, func(c *LaplaceConfig) { c.LearnRate = true })

	r := []float64{1, -2, 3, -4}
	require.NoError(t, l.EMUpdate(Estimates{R: r, RVar: make([]float64, 4), Columns: 2}))
	assert.Equal(t, []float64{2 * 4 / 10.0}, l.Rate())
}

func TestLaplace_EMPerCoefficient(t *testing.T) {
	l := newLaplace(t, func(c *LaplaceConfig) {
		c.LearnRate = true
		c.LearnMode = LearnPerCoefficient
	})

	// N=2, T=2, column-major: row 0 holds {1, 3}, row 1 holds {2, 4}.
	r := []float64{1, 2, 3, 4}
	require.NoError(t, l.EMUpdate(Estimates{R: r, RVar: make([]float64, 4), Columns: 2}))
	assert.InDeltaSlice(t, []float64{1, 2.0 / 3, 1, 2.0 / 3}, l.Rate(), 1e-15)

	m, v := l.Moments(1)
	assert.Equal(t, 0.0, m)
	assert.InDelta(t, 2/(4.0/9), v, 1e-12)
}

func TestLaplace_EMPerCoefficientSizeMismatch(t *testing.T) {
	l := newLaplace(t, func(c *LaplaceConfig) {
		c.Rates = []float64{1, 2, 3}
		c.LearnRate = true
		c.LearnMode = LearnPerCoefficient
	})
	assert.Equal(t, 3, l.ParamLen())

	err := l.EMUpdate(Estimates{R: []float64{1, 2, 3, 4}, RVar: make([]float64, 4), Columns: 2})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.NotErrorIs(t, err, ErrDegenerateUpdate)
}

func TestLaplace_EMStationaryFixedPoint(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	source := newLaplace(t, func(c *LaplaceConfig) { c.Rate = 2 })
	l := newLaplace(t, func(c *LaplaceConfig) { c.LearnRate = true })

	draw := func() Estimates {
		const n = 40000
		est := Estimates{R: make([]float64, n), RVar: make([]float64, n), Columns: 1}
		for k := range est.R {
			est.RVar[k] = 0.0009
			est.R[k] = source.Sample(rng) + 0.03*rng.NormFloat64()
		}
		return est
	}

	require.NoError(t, l.EMUpdate(draw()))
	first := l.Rate()[0]
	require.NoError(t, l.EMUpdate(draw()))
	second := l.Rate()[0]

	assert.InEpsilon(t, first, second, 0.03)
	// With the 2·N·T numerator the fixed point sits at twice the source rate.
	assert.InEpsilon(t, 4.0, second, 0.05)
}

func TestLaplace_EMDegenerateKeepsPreviousMean(t *testing.T) {
	l := newLaplace(t, func(c *LaplaceConfig) {
		c.LearnRate = true
		c.Rates = []float64{1, 3}
	})

	err := l.EMUpdate(Estimates{R: []float64{0, 0}, RVar: []float64{0, 0}, Columns: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDegenerateUpdate)
	assert.Equal(t, []float64{2}, l.Rate())
}

func TestLaplace_EMPerCoefficientDegenerateRow(t *testing.T) {
	l := newLaplace(t, func(c *LaplaceConfig) {
		c.LearnRate = true
		c.LearnMode = LearnPerCoefficient
		c.Rate = 5
	})

	err := l.EMUpdate(Estimates{R: []float64{0, 2}, RVar: []float64{0, 0}, Columns: 1})
	assert.ErrorIs(t, err, ErrDegenerateUpdate)
	assert.Equal(t, []float64{5, 1}, l.Rate())
}

func TestLaplace_RateIsCopyOnWrite(t *testing.T) {
	l := newLaplace(t, func(c *LaplaceConfig) { c.LearnRate = true })
	before := l.Rate()
	before[0] = 99

	assert.Equal(t, []float64{DefaultLaplaceRate}, l.Rate())

	held := *l.rates.Load()
	require.NoError(t, l.EMUpdate(Estimates{R: []float64{1}, RVar: []float64{0}, Columns: 1}))
	assert.Equal(t, []float64{DefaultLaplaceRate}, held)
}

func TestLaplace_Sample(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	l := newLaplace(t, func(c *LaplaceConfig) { c.Rate = 4 })

	var sumAbs, sum float64
	const n = 50000
	for i := 0; i < n; i++ {
		x := l.Sample(rng)
		sumAbs += math.Abs(x)
		sum += x
	}
	assert.InEpsilon(t, 0.25, sumAbs/n, 0.03)
	assert.InDelta(t, 0, sum/n, 0.01)
}

func TestExpectedAbs(t *testing.T) {
	assert.Equal(t, 2.0, expectedAbs(-2, 0))
	assert.InDelta(t, math.Sqrt(2/math.Pi), expectedAbs(0, 1), 1e-12)
	assert.InDelta(t, 10, expectedAbs(10, 1), 1e-12)
}
