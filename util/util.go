// Package util provides seeded generators for synthetic problem instances.
package util

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// RNG struct encapsulates the random number generator and seed.
type RNG struct {
	rand *rand.Rand
	seed uint64
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed uint64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), // nolint gosec
		seed: seed,
	}
}

// Seed returns the seed the generator was created with.
func (r *RNG) Seed() uint64 { return r.seed }

// Rand exposes the underlying generator.
func (r *RNG) Rand() *rand.Rand { return r.rand }

// GaussianVector returns n draws from N(0, variance).
func (r *RNG) GaussianVector(n int, variance float64) []float64 {
	s := math.Sqrt(variance)
	v := make([]float64, n)
	for i := range v {
		v[i] = s * r.rand.NormFloat64()
	}
	return v
}

// SparseVector returns a length-n vector with exactly k nonzero N(0, 1)
// entries at uniformly random positions.
func (r *RNG) SparseVector(n, k int) []float64 {
	v := make([]float64, n)
	for _, j := range r.rand.Perm(n)[:min(k, n)] {
		v[j] = r.rand.NormFloat64()
	}
	return v
}

// BernoulliGaussianVector returns n draws from the Gauss-Bernoulli law:
// N(0, 1) with probability rho, zero otherwise.
func (r *RNG) BernoulliGaussianVector(n int, rho float64) []float64 {
	v := make([]float64, n)
	for i := range v {
		if r.rand.Float64() < rho {
			v[i] = r.rand.NormFloat64()
		}
	}
	return v
}

// LaplacianVector returns n draws from the Laplace law with the given rate,
// density (rate/2)·exp(−rate·|x|).
func (r *RNG) LaplacianVector(n int, rate float64) []float64 {
	v := make([]float64, n)
	for i := range v {
		e := r.rand.ExpFloat64() / rate
		if r.rand.IntN(2) == 0 {
			e = -e
		}
		v[i] = e
	}
	return v
}

// Measure returns A·x plus N(0, noiseVar) noise per row.
func (r *RNG) Measure(a mat.Matrix, x []float64, noiseVar float64) []float64 {
	m, n := a.Dims()
	z := mat.NewVecDense(m, nil)
	z.MulVec(a, mat.NewVecDense(n, x))

	y := z.RawVector().Data
	if noiseVar > 0 {
		s := math.Sqrt(noiseVar)
		for i := range y {
			y[i] += s * r.rand.NormFloat64()
		}
	}
	return y
}

// GaussianMatrix returns an m×n matrix with i.i.d. N(0, variance) entries.
func (r *RNG) GaussianMatrix(m, n int, variance float64) *mat.Dense {
	return mat.NewDense(m, n, r.GaussianVector(m*n, variance))
}

// OrthogonalMatrix returns a random n×n orthogonal matrix, the Q factor
// of a Gaussian matrix.
func (r *RNG) OrthogonalMatrix(n int) *mat.Dense {
	var qr mat.QR
	qr.Factorize(r.GaussianMatrix(n, n, 1))

	var q mat.Dense
	qr.QTo(&q)
	return &q
}
