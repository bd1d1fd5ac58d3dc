// Package se implements the state evolution predictor of the RBP
// estimator: a scalar recursion that tracks the asymptotic MSE of the
// estimator for a statistical problem description, without a matrix or
// realized measurements.
//
// Expectations over the prior and the quantized channel are evaluated by
// Monte Carlo. All samples are drawn once per prediction, so successive
// rounds see the same random numbers and the trace is smooth in the
// effective noise level.
package se
