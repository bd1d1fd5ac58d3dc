// Package quantization provides scalar quantizers described by an ordered
// table of decision boundaries and reconstruction levels.
//
// A quantizer with Q levels has Q-1 strictly increasing boundaries. Level k
// covers [b_{k-1}, b_k), with the outer levels open towards ±∞:
//
//	level 0     (-∞, b_1)
//	level k     [b_k, b_{k+1})
//	level Q-1   [b_{Q-1}, +∞)
//
// Estimators only consume the table; the designers in this package
// (uniform, Lloyd-Max for a Gaussian source, Lloyd training on samples)
// are convenience constructors:
//
//	q, _ := quantization.NewUniform(3, 0.2)        // 8 levels, σ² = 0.2
//	k := q.Quantize(0.13)                          // bin index
//	lo, hi, rec := q.LevelInfo(k)                  // bin and its level
//
//	lm, _ := quantization.NewLloydMax(4, 1.0, 200) // MSE-optimal for N(0,1)
//
// A quantizer with a single level and no boundaries is the pass-through
// quantizer: measurements are taken as continuous values.
package quantization
