package util

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestSparseVector(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.SparseVector(100, 7)

	assert.Len(t, v, 100)
	nnz := 0
	for _, x := range v {
		if x != 0 {
			nnz++
		}
	}
	assert.Equal(t, 7, nnz)
	assert.Equal(t, uint64(4711), rng.Seed())
}

func TestSeedIsDeterministic(t *testing.T) {
	a := NewRNG(1).GaussianVector(5, 1)
	b := NewRNG(1).GaussianVector(5, 1)
	assert.Equal(t, a, b)
}

func TestOrthogonalMatrix(t *testing.T) {
	q := NewRNG(2).OrthogonalMatrix(16)

	var qtq mat.Dense
	qtq.Mul(q.T(), q)

	for i := 0; i < 16; i++ {
		for j := 0; j < 16; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			assert.InDelta(t, want, qtq.At(i, j), 1e-12)
		}
	}
}

func TestGaussianMatrix(t *testing.T) {
	a := NewRNG(3).GaussianMatrix(200, 50, 0.25)
	r, c := a.Dims()
	assert.Equal(t, 200, r)
	assert.Equal(t, 50, c)

	sum := 0.0
	for _, x := range a.RawMatrix().Data {
		sum += x * x
	}
	assert.InEpsilon(t, 0.25, sum/float64(r*c), 0.05)
}

func TestBernoulliGaussianVector(t *testing.T) {
	v := NewRNG(5).BernoulliGaussianVector(20000, 0.1)

	nnz := 0
	for _, x := range v {
		if x != 0 {
			nnz++
		}
	}
	assert.InEpsilon(t, 0.1, float64(nnz)/float64(len(v)), 0.1)
}

func TestLaplacianVector(t *testing.T) {
	const rate = 2.0
	v := NewRNG(6).LaplacianVector(20000, rate)

	var abs, neg float64
	for _, x := range v {
		abs += math.Abs(x)
		if x < 0 {
			neg++
		}
	}
	assert.InEpsilon(t, 1/rate, abs/float64(len(v)), 0.05)
	assert.InDelta(t, 0.5, neg/float64(len(v)), 0.02)
}

func TestMeasure(t *testing.T) {
	rng := NewRNG(7)
	a := mat.NewDense(2, 3, []float64{1, 0, 2, 0, 1, -1})
	x := []float64{1, 2, 3}

	assert.Equal(t, []float64{7, -1}, rng.Measure(a, x, 0))

	noisy := rng.Measure(a, x, 1e-6)
	assert.InDelta(t, 7, noisy[0], 1e-2)
	assert.NotEqual(t, 7.0, noisy[0])
}
