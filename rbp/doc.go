// Package rbp implements Relaxed Belief Propagation, a GAMP-style
// message-passing estimator for sparse signals observed through noisy,
// possibly quantized, linear measurements.
//
// A run iterates rounds of:
//
//  1. forward pass: per-row pseudo-measurements (p, τp) through A
//  2. output moments from the observation channel
//  3. backward pass: per-coefficient pseudo-measurements (r, τr) through Aᵀ
//  4. coefficient denoising through the prior
//  5. optional EM update of the prior's hyperparameters
//  6. diagnostic MSE against ground truth, when supplied
//  7. convergence and divergence checks
//
// Row-wise and coefficient-wise moment computations fan out over worker
// goroutines with a barrier between phases, so results do not depend on
// the worker count.
package rbp
