package quantcs

import (
	"errors"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector is a MetricsCollector backed by Prometheus.
type PrometheusCollector struct {
	runs       *prometheus.CounterVec   // by kind, state
	failures   *prometheus.CounterVec   // by kind, reason
	iterations *prometheus.HistogramVec // by kind
	duration   *prometheus.HistogramVec // by kind
	rounds     *prometheus.CounterVec   // by kind
	lastMSE    *prometheus.GaugeVec     // by kind
	degenerate *prometheus.CounterVec   // by prior
}

var _ MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheusCollector registers the quantcs metrics with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &PrometheusCollector{
		runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantcs_runs_total",
				Help: "Finished runs by engine and terminal state",
			},
			[]string{"kind", "state"},
		),
		failures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantcs_run_failures_total",
				Help: "Runs that ended with an error, by engine and reason",
			},
			[]string{"kind", "reason"},
		),
		iterations: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quantcs_run_iterations",
				Help:    "Rounds per run",
				Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200, 500},
			},
			[]string{"kind"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quantcs_run_duration_seconds",
				Help:    "Wall time per run in seconds",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120}, // 1ms to 2m
			},
			[]string{"kind"},
		),
		rounds: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantcs_rounds_total",
				Help: "Completed rounds by engine",
			},
			[]string{"kind"},
		),
		lastMSE: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quantcs_last_mse",
				Help: "MSE of the most recent round with known error",
			},
			[]string{"kind"},
		),
		degenerate: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantcs_degenerate_em_updates_total",
				Help: "Discarded EM hyperparameter updates by prior family",
			},
			[]string{"prior"},
		),
	}
}

func (p *PrometheusCollector) record(kind string, iterations int, state string, duration time.Duration, err error) {
	p.runs.WithLabelValues(kind, state).Inc()
	p.iterations.WithLabelValues(kind).Observe(float64(iterations))
	p.duration.WithLabelValues(kind).Observe(duration.Seconds())
	if err != nil {
		p.failures.WithLabelValues(kind, failureReason(err)).Inc()
	}
}

// RecordReconstruct implements MetricsCollector.
func (p *PrometheusCollector) RecordReconstruct(iterations int, state string, duration time.Duration, err error) {
	p.record(kindReconstruct, iterations, state, duration, err)
}

// RecordPredict implements MetricsCollector.
func (p *PrometheusCollector) RecordPredict(iterations int, state string, duration time.Duration, err error) {
	p.record(kindPredict, iterations, state, duration, err)
}

// RecordRound implements MetricsCollector.
func (p *PrometheusCollector) RecordRound(kind string, mse float64) {
	p.rounds.WithLabelValues(kind).Inc()
	if !math.IsNaN(mse) {
		p.lastMSE.WithLabelValues(kind).Set(mse)
	}
}

// RecordDegenerateUpdate implements MetricsCollector.
func (p *PrometheusCollector) RecordDegenerateUpdate(prior string) {
	p.degenerate.WithLabelValues(prior).Inc()
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrDiverged):
		return "diverged"
	case errors.Is(err, ErrAborted):
		return "aborted"
	case errors.Is(err, ErrInvalidConfiguration):
		return "invalid_configuration"
	default:
		return "other"
	}
}
