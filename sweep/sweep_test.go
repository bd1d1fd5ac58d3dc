package sweep

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/quantcs/blobstore"
	"github.com/hupe1980/quantcs/prior"
	"github.com/hupe1980/quantcs/resource"
	"github.com/hupe1980/quantcs/results"
	"github.com/hupe1980/quantcs/se"
)

var baseSE = se.Config{
	SparsityRate:       0.1,
	UndersamplingRatio: 0.5,
	NoiseVariance:      1e-3,
	InitialSNR:         1,
}

func TestBitRates(t *testing.T) {
	jobs, err := BitRates(baseSE, []int{0, 1, 3}, DesignUniform, se.WithSamples(1000))
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	assert.Equal(t, "se/uniform/bits=3", jobs[2].Name)
	assert.True(t, jobs[0].Predict.Config.Quantizer.IsPassThrough())
	assert.Equal(t, 2, jobs[1].Predict.Config.Quantizer.NumLevels())
	assert.Equal(t, 8, jobs[2].Predict.Config.Quantizer.NumLevels())
	assert.Equal(t, 3, jobs[2].Config["bits"])
	assert.Nil(t, baseSE.Quantizer, "base config is not modified")

	_, err = BitRates(se.Config{}, []int{1}, DesignUniform)
	assert.ErrorIs(t, err, se.ErrInvalidConfig)

	_, err = BitRates(baseSE, []int{1}, Design("vector"))
	assert.ErrorIs(t, err, ErrInvalidJob)
}

func TestNewQuantizer_LloydMaxBeatsUniformAtTwoBits(t *testing.T) {
	u, err := NewQuantizer(DesignUniform, 2, 1)
	require.NoError(t, err)
	lm, err := NewQuantizer(DesignLloydMax, 2, 1)
	require.NoError(t, err)

	// Lloyd-Max levels concentrate where the Gaussian mass is.
	assert.Less(t, lm.Levels()[3], u.Levels()[3])
}

func TestMemoryEstimate(t *testing.T) {
	rbpJob := Job{Reconstruct: &ReconstructJob{Problem: Synthetic{M: 10, N: 20}}}
	assert.Equal(t, int64(8*10*20*2), rbpJob.memory())

	seJob := Job{Predict: &PredictJob{Options: []se.Option{se.WithSamples(500)}}}
	assert.Equal(t, int64(8*500*6), seJob.memory())

	defaults := Job{Predict: &PredictJob{}}
	assert.Equal(t, int64(8*se.DefaultSamples*6), defaults.memory())
}

func TestRunner_PredictSweep(t *testing.T) {
	jobs, err := BitRates(baseSE, []int{1, 2, 3}, DesignLloydMax, se.WithSamples(4000), se.WithMaxIterations(60))
	require.NoError(t, err)

	blobs := blobstore.NewMemoryStore()
	store := results.NewStore(blobs)
	rc := resource.NewController(resource.Config{MaxWorkers: 2, MemoryLimitBytes: 1 << 20})

	var mu sync.Mutex
	var seen []string
	runner := NewRunner(rc, WithStore(store), WithOnOutcome(func(o Outcome) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, o.Job)
	}))

	outcomes, err := runner.Run(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	assert.Len(t, seen, 3)

	for i, o := range outcomes {
		require.NoError(t, o.Err, o.Job)
		assert.Equal(t, jobs[i].Name, o.Job)
		require.NotNil(t, o.Report)
		assert.Equal(t, results.KindPredict, o.Report.Kind)
		assert.NotEmpty(t, o.Blob)
	}
	assert.Less(t, outcomes[2].Report.FinalMSE(), outcomes[0].Report.FinalMSE())

	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, ids, 3)

	assert.Zero(t, rc.MemoryUsage())
	assert.Zero(t, rc.ActiveWorkers())
}

func TestRunner_ReconstructTrials(t *testing.T) {
	var calls atomic.Int64
	var mu sync.Mutex
	instances := map[prior.Prior]struct{}{}

	factory := func() (prior.Prior, error) {
		calls.Add(1)
		p, err := prior.NewGaussBernoulli(prior.GaussBernoulliConfig{SparsityRate: 0.1, Variance: 1})
		if err == nil {
			mu.Lock()
			instances[p] = struct{}{}
			mu.Unlock()
		}
		return p, err
	}

	s := Synthetic{M: 150, N: 300, SparsityRate: 0.1, NoiseVariance: 1e-4}
	jobs, err := Trials(s, 0, DesignUniform, []uint64{1, 2, 3}, factory)
	require.NoError(t, err)

	rc := resource.NewController(resource.Config{MaxWorkers: 3})
	outcomes, err := NewRunner(rc).Run(context.Background(), jobs)
	require.NoError(t, err)

	assert.Equal(t, int64(3), calls.Load())
	assert.Len(t, instances, 3, "every job gets its own prior")

	for _, o := range outcomes {
		require.NoError(t, o.Err, o.Job)
		require.NotNil(t, o.Report)
		assert.Less(t, o.Report.FinalMSE(), 0.01, o.Job)
		require.NotNil(t, o.Report.Diagnostics.SupportRecall)
	}
}

func TestRunner_RecordsJobFailures(t *testing.T) {
	jobs := []Job{
		{Name: "bad", Predict: &PredictJob{Config: se.Config{}}},
		{Name: "good", Predict: &PredictJob{Config: baseSE, Options: []se.Option{se.WithSamples(500), se.WithMaxIterations(5)}}},
	}

	outcomes, err := NewRunner(nil).Run(context.Background(), jobs)
	require.NoError(t, err)

	assert.ErrorIs(t, outcomes[0].Err, se.ErrInvalidConfig)
	assert.Nil(t, outcomes[0].Report)
	assert.NoError(t, outcomes[1].Err)
	assert.NotNil(t, outcomes[1].Report)
}

func TestRunner_RejectsInvalidJobs(t *testing.T) {
	_, err := NewRunner(nil).Run(context.Background(), []Job{{Name: "empty"}})
	assert.ErrorIs(t, err, ErrInvalidJob)

	both := Job{Name: "both", Predict: &PredictJob{}, Reconstruct: &ReconstructJob{}}
	_, err = NewRunner(nil).Run(context.Background(), []Job{both})
	assert.ErrorIs(t, err, ErrInvalidJob)
}

func TestRunner_MemoryBudgetTooSmall(t *testing.T) {
	jobs, err := Trials(Synthetic{M: 100, N: 200, SparsityRate: 0.1}, 0, DesignUniform, []uint64{1}, nil)
	require.NoError(t, err)

	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1024})
	_, err = NewRunner(rc).Run(context.Background(), jobs)
	assert.ErrorIs(t, err, resource.ErrExceedsLimit)
}

func TestRunner_Cancelled(t *testing.T) {
	jobs, err := BitRates(baseSE, []int{1, 2}, DesignUniform)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = NewRunner(nil).Run(ctx, jobs)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSynthetic_BuildValidates(t *testing.T) {
	p, err := prior.NewGaussBernoulli(prior.DefaultGaussBernoulliConfig())
	require.NoError(t, err)

	_, err = Synthetic{}.Build(p)
	assert.ErrorIs(t, err, ErrInvalidJob)

	prob, err := Synthetic{M: 20, N: 40, SparsityRate: 0.2, Seed: 3}.Build(p)
	require.NoError(t, err)
	assert.Len(t, prob.Truth, 40)
	assert.Equal(t, 40, prob.Coefficients())
}
