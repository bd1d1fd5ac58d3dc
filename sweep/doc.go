// Package sweep runs many independent reconstructions and predictions
// concurrently.
//
// Every job acquires a worker slot and its working-memory estimate from a
// resource.Controller before it starts, and builds its own prior through a
// factory, so concurrent runs never share mutable hyperparameters.
//
// A bit-rate sweep of the state evolution predictor:
//
//	jobs, _ := sweep.BitRates(se.Config{
//		SparsityRate:       0.1,
//		UndersamplingRatio: 0.5,
//		NoiseVariance:      1e-3,
//		InitialSNR:         1,
//	}, []int{1, 2, 3, 4}, sweep.DesignLloydMax)
//
//	rc := resource.NewController(resource.Config{MaxWorkers: 4})
//	outcomes, err := sweep.NewRunner(rc).Run(ctx, jobs)
package sweep
