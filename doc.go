// Package quantcs estimates sparse signals from quantized, noisy linear
// measurements with relaxed belief propagation (RBP), and predicts the
// estimator's asymptotic error with state evolution (SE).
//
// # Quick Start
//
// Reconstruct a signal from 3-bit measurements y = Q(A·x + w):
//
//	q, _ := quantization.NewUniform(3, measurementVariance)
//	res, err := quantcs.Reconstruct(ctx, a, y, q, noiseVar, 0.1,
//	    quantcs.WithGroundTruth(x),
//	    quantcs.WithLogger(quantcs.NewTextLogger(slog.LevelInfo)),
//	)
//	if errors.Is(err, quantcs.ErrDiverged) {
//	    // res holds the last finite estimate and the partial trace.
//	}
//	fmt.Println(res.State, res.FinalMSE())
//
// Predict the MSE trajectory of the same ensemble without a matrix:
//
//	pred, _ := quantcs.Predict(ctx, 1, 0.1, 0.5, noiseVar, q)
//	fmt.Println(pred.Trace)
//
// # Priors
//
// The default signal model is Gauss-Bernoulli with the given sparsity rate.
// Any prior.Prior can be supplied with WithPrior, for example a Laplacian
// prior with MAP or MMSE messages and EM rate learning:
//
//	lap, _ := prior.NewLaplace(prior.LaplaceConfig{Rate: math.Sqrt2, Mode: prior.ModeMAP, LearnRate: true})
//	res, _ := quantcs.Reconstruct(ctx, a, y, q, noiseVar, 0.1, quantcs.WithPrior(lap))
//
// # Outcomes
//
// Runs end Converged, MaxIterationsReached, Diverged or Aborted. Only the
// last two are returned with an error; hitting the iteration limit is a
// regular outcome whose trace the caller should inspect.
//
// # Packages
//
//   - quantization: quantizer tables and designers
//   - prior: the prior capability interface and its Laplacian and Gauss-Bernoulli adapters
//   - channel: observation models
//   - rbp, se: the engines behind Reconstruct and Predict
//   - sweep, resource, results, blobstore: concurrent experiments and report storage
package quantcs
