package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/quantcs/resource"
	"github.com/hupe1980/quantcs/results"
)

// Outcome is the result of one job. Report is set whenever the engine
// produced a result, including diverged and aborted runs; Err carries the
// engine or persistence error, if any.
type Outcome struct {
	Job    string
	Report *results.Report
	// Blob is the name the report was saved under, if a store is configured.
	Blob string
	Err  error
}

// Option configures a Runner.
type Option func(*Runner)

// WithStore saves every report to s.
func WithStore(s *results.Store) Option {
	return func(r *Runner) { r.store = s }
}

// WithLogger sets the logger. Engines log through it at Debug level.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithOnOutcome registers a callback invoked once per finished job.
// It may be called concurrently.
func WithOnOutcome(fn func(Outcome)) Option {
	return func(r *Runner) { r.onOutcome = fn }
}

// Runner executes jobs under a resource controller.
type Runner struct {
	rc        *resource.Controller
	store     *results.Store
	logger    *slog.Logger
	onOutcome func(Outcome)
}

// NewRunner creates a Runner. A nil controller allows one job at a time.
func NewRunner(rc *resource.Controller, opts ...Option) *Runner {
	if rc == nil {
		rc = resource.NewController(resource.Config{})
	}
	r := &Runner{
		rc:     rc,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes all jobs and returns one Outcome per job, in job order.
// Failures of individual runs are reported in their Outcome; Run itself
// fails only on invalid jobs, resource errors or cancellation.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Outcome, error) {
	for i := range jobs {
		if err := jobs[i].validate(); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	outcomes := make([]Outcome, len(jobs))
	var done, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	for i := range jobs {
		job := &jobs[i]
		g.Go(func() error {
			release, err := r.rc.Acquire(gctx, job.memory())
			if err != nil {
				return fmt.Errorf("sweep: job %q: %w", job.Name, err)
			}
			defer release()

			out := r.execute(gctx, job)
			outcomes[i] = out
			if out.Err != nil {
				failed.Add(1)
			}
			if r.onOutcome != nil {
				r.onOutcome(out)
			}

			n := done.Add(1)
			if r.rc.AllowProgress() || n == int64(len(jobs)) {
				r.logger.InfoContext(gctx, "sweep progress",
					slog.Int64("done", n),
					slog.Int("total", len(jobs)),
					slog.Int64("failed", failed.Load()),
					slog.Int64("memory_bytes", r.rc.MemoryUsage()),
				)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}

	r.logger.InfoContext(ctx, "sweep finished",
		slog.Int("jobs", len(jobs)),
		slog.Int64("failed", failed.Load()),
		slog.Duration("elapsed", time.Since(start)),
	)
	return outcomes, nil
}

func (r *Runner) execute(ctx context.Context, job *Job) Outcome {
	out := Outcome{Job: job.Name}
	log := r.logger.With(slog.String("job", job.Name))

	report, err := job.run(ctx, log)
	out.Report, out.Err = report, err
	if err != nil {
		log.WarnContext(ctx, "job failed", slog.Any("error", err))
	}

	if report != nil && r.store != nil {
		blob, serr := r.store.Save(ctx, report)
		if serr != nil {
			out.Err = errors.Join(out.Err, serr)
		}
		out.Blob = blob
	}
	return out
}
