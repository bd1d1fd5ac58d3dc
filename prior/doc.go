// Package prior implements scalar prior families that plug into the
// message-passing estimators.
//
// A Prior exposes the three capabilities the estimators rely on:
//
//   - Denoise: posterior mean and variance of one coefficient given a
//     Gaussian pseudo-measurement N(r, rvar).
//   - EMUpdate: re-estimation of the family's hyperparameters from the
//     pseudo-measurements of a completed round.
//   - HardSupport: the set of coefficients whose posterior mean is nonzero.
//
// Coefficients of an N×T signal are addressed column-major, k = t·N + j.
//
// Hyperparameters are swapped copy-on-write once per round, so a caller
// still holding the previous parameter slice keeps seeing the old values.
package prior
