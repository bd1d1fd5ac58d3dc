// Package gauss implements standard-normal helpers used by the observation
// and prior models: log densities, log CDFs that stay finite deep in the
// tails, and truncated-normal moments over a quantizer bin.
//
// Two evaluation modes exist for bin moments. Stable works in the log
// domain and switches to an exponential-tail approximation when a bin lies
// far outside the Gaussian's bulk. Naive evaluates the density/CDF ratio
// directly; when the bin mass underflows it produces non-finite values,
// which is how the iteration-level divergence in badly conditioned
// problems shows up.
package gauss
