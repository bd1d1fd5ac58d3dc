package results

import (
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/quantcs/prior"
	"github.com/hupe1980/quantcs/rbp"
	"github.com/hupe1980/quantcs/se"
)

// Kind identifies the engine that produced a report.
type Kind string

const (
	KindReconstruct Kind = "reconstruct"
	KindPredict     Kind = "predict"
)

// Diagnostics mirrors the recoverable conditions and outcome details of a run.
type Diagnostics struct {
	DegenerateUpdates int   `json:"degenerate_updates,omitempty"`
	FlooredVariances  int64 `json:"floored_variances,omitempty"`
	// DivergenceReason is empty unless the run diverged.
	DivergenceReason string `json:"divergence_reason,omitempty"`
	DivergenceRound  int    `json:"divergence_round,omitempty"`
	// SupportPrecision and SupportRecall are set when ground truth was known.
	SupportPrecision *float64      `json:"support_precision,omitempty"`
	SupportRecall    *float64      `json:"support_recall,omitempty"`
	Duration         time.Duration `json:"duration_ns"`
}

// Report is the persisted record of one run.
type Report struct {
	ID        uuid.UUID      `json:"id"`
	Kind      Kind           `json:"kind"`
	CreatedAt time.Time      `json:"created_at"`
	Config    map[string]any `json:"config,omitempty"`
	Trace     []float64      `json:"trace"`
	// EffectiveNoise is the SE pseudo-noise trajectory (predictions only).
	EffectiveNoise []float64   `json:"effective_noise,omitempty"`
	Iterations     int         `json:"iterations"`
	State          string      `json:"state"`
	Diagnostics    Diagnostics `json:"diagnostics"`
}

// NewReport returns an empty report with a fresh ID.
func NewReport(kind Kind, config map[string]any) *Report {
	return &Report{
		ID:        uuid.New(),
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
		Config:    config,
	}
}

// FromResult builds a report from an RBP result. truth, when non-nil, is the
// true support used for the precision and recall diagnostics.
func FromResult(res *rbp.Result, config map[string]any, truth *prior.Support) *Report {
	r := NewReport(KindReconstruct, config)
	r.Trace = append([]float64(nil), res.Trace...)
	r.Iterations = res.Iterations
	r.State = res.State.String()
	r.Diagnostics = Diagnostics{
		DegenerateUpdates: res.DegenerateUpdates,
		FlooredVariances:  res.FlooredVariances,
		Duration:          res.Duration,
	}
	if res.Divergence != nil {
		r.Diagnostics.DivergenceReason = string(res.Divergence.Reason)
		r.Diagnostics.DivergenceRound = res.Divergence.Round
	}
	if truth != nil && res.Support != nil {
		p, rc := res.Support.Precision(truth), res.Support.Recall(truth)
		r.Diagnostics.SupportPrecision = &p
		r.Diagnostics.SupportRecall = &rc
	}
	return r
}

// FromPrediction builds a report from an SE prediction.
func FromPrediction(p *se.Prediction, config map[string]any) *Report {
	r := NewReport(KindPredict, config)
	r.Trace = append([]float64(nil), p.Trace...)
	r.EffectiveNoise = append([]float64(nil), p.EffectiveNoise...)
	r.Iterations = p.Iterations
	r.State = p.State.String()
	r.Diagnostics.Duration = p.Duration
	return r
}

// FinalMSE returns the last trace entry, or 0 for an empty trace.
func (r *Report) FinalMSE() float64 {
	if len(r.Trace) == 0 {
		return 0
	}
	return r.Trace[len(r.Trace)-1]
}
