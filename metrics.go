package quantcs

import (
	"math"
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; see
// PrometheusCollector for a Prometheus implementation.
type MetricsCollector interface {
	// RecordReconstruct is called after each reconstruction.
	// state is the terminal run state, err is nil if successful.
	RecordReconstruct(iterations int, state string, duration time.Duration, err error)

	// RecordPredict is called after each state evolution prediction.
	RecordPredict(iterations int, state string, duration time.Duration, err error)

	// RecordRound is called after every round. kind is "reconstruct" or
	// "predict"; mse is NaN without ground truth.
	RecordRound(kind string, mse float64)

	// RecordDegenerateUpdate is called once per discarded EM update.
	RecordDegenerateUpdate(prior string)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordReconstruct(int, string, time.Duration, error) {}
func (NoopMetricsCollector) RecordPredict(int, string, time.Duration, error)     {}
func (NoopMetricsCollector) RecordRound(string, float64)                         {}
func (NoopMetricsCollector) RecordDegenerateUpdate(string)                       {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	ReconstructCount      atomic.Int64
	ReconstructErrors     atomic.Int64
	ReconstructTotalNanos atomic.Int64
	ReconstructRounds     atomic.Int64
	PredictCount          atomic.Int64
	PredictErrors         atomic.Int64
	PredictTotalNanos     atomic.Int64
	RoundCount            atomic.Int64
	DegenerateUpdates     atomic.Int64
	lastMSE               atomic.Uint64
}

// RecordReconstruct implements MetricsCollector.
func (b *BasicMetricsCollector) RecordReconstruct(iterations int, _ string, duration time.Duration, err error) {
	b.ReconstructCount.Add(1)
	b.ReconstructRounds.Add(int64(iterations))
	b.ReconstructTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ReconstructErrors.Add(1)
	}
}

// RecordPredict implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPredict(_ int, _ string, duration time.Duration, err error) {
	b.PredictCount.Add(1)
	b.PredictTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.PredictErrors.Add(1)
	}
}

// RecordRound implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRound(_ string, mse float64) {
	b.RoundCount.Add(1)
	b.lastMSE.Store(math.Float64bits(mse))
}

// RecordDegenerateUpdate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDegenerateUpdate(string) {
	b.DegenerateUpdates.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		ReconstructCount:    b.ReconstructCount.Load(),
		ReconstructErrors:   b.ReconstructErrors.Load(),
		ReconstructAvgNanos: avg(b.ReconstructTotalNanos.Load(), b.ReconstructCount.Load()),
		ReconstructRounds:   b.ReconstructRounds.Load(),
		PredictCount:        b.PredictCount.Load(),
		PredictErrors:       b.PredictErrors.Load(),
		PredictAvgNanos:     avg(b.PredictTotalNanos.Load(), b.PredictCount.Load()),
		RoundCount:          b.RoundCount.Load(),
		DegenerateUpdates:   b.DegenerateUpdates.Load(),
		LastMSE:             math.Float64frombits(b.lastMSE.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	ReconstructCount    int64
	ReconstructErrors   int64
	ReconstructAvgNanos int64
	ReconstructRounds   int64
	PredictCount        int64
	PredictErrors       int64
	PredictAvgNanos     int64
	RoundCount          int64
	DegenerateUpdates   int64
	LastMSE             float64
}
