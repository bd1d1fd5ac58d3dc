// Command quantcs runs state evolution bit-rate sweeps, optionally backed by
// synthetic RBP trials, and writes one report per run.
//
// Usage:
//
//	quantcs -config experiment.yaml [-env .env]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/hupe1980/quantcs"
	"github.com/hupe1980/quantcs/codec"
	"github.com/hupe1980/quantcs/internal/gauss"
	"github.com/hupe1980/quantcs/rbp"
	"github.com/hupe1980/quantcs/resource"
	"github.com/hupe1980/quantcs/results"
	"github.com/hupe1980/quantcs/se"
	"github.com/hupe1980/quantcs/sweep"
)

func main() {
	configFile := flag.String("config", "experiment.yaml", "Path to the experiment file")
	envFile := flag.String("env", ".env", "Optional dotenv file loaded before the experiment file")
	flag.Parse()

	// A missing .env file is not an error.
	_ = godotenv.Load(*envFile)

	cfg, err := LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "quantcs: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "quantcs: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(cfg *Config) *quantcs.Logger {
	level, _ := cfg.logLevel()
	if cfg.Log.Format == "json" {
		return quantcs.NewJSONLogger(level)
	}
	return quantcs.NewTextLogger(level)
}

func run(ctx context.Context, cfg *Config, out io.Writer) error {
	logger := newLogger(cfg)

	blobs, err := newBlobStore(ctx, cfg.Store)
	if err != nil {
		return err
	}

	rc := resource.NewController(resource.Config{
		MemoryLimitBytes:   cfg.Resources.MemoryLimitMB << 20,
		MaxWorkers:         cfg.Resources.MaxWorkers,
		ProgressPerSecond:  cfg.Resources.ProgressPerSecond,
		IOLimitBytesPerSec: cfg.Resources.IOLimitBytesPerSec,
	})

	compression, _ := results.ParseCompression(cfg.Results.Compression)
	c, _ := codec.ByName(cfg.Results.Codec)
	store := results.NewStore(blobs,
		results.WithPrefix(cfg.Results.Prefix),
		results.WithCompression(compression),
		results.WithCodec(c),
		results.WithController(rc),
		results.WithLogger(logger.Logger),
	)

	jobs, err := buildJobs(cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics := quantcs.NewPrometheusCollector(reg)

	runner := sweep.NewRunner(rc,
		sweep.WithStore(store),
		sweep.WithLogger(logger.Logger),
		sweep.WithOnOutcome(func(o sweep.Outcome) { recordOutcome(metrics, cfg.priorName(), o) }),
	)

	logger.InfoContext(ctx, "starting sweep", "jobs", len(jobs), "store", cfg.Store.Kind)
	outcomes, err := runner.Run(ctx, jobs)
	if err != nil {
		return err
	}

	printOutcomes(out, outcomes)

	if cfg.Metrics.Pushgateway != "" {
		if err := push.New(cfg.Metrics.Pushgateway, cfg.Metrics.Job).Gatherer(reg).PushContext(ctx); err != nil {
			// Metrics are best effort; the reports are already stored.
			logger.WarnContext(ctx, "failed to push metrics", "url", cfg.Metrics.Pushgateway, "error", err)
		}
	}
	return nil
}

// buildJobs expands the sweep and the optional trials into runnable jobs.
func buildJobs(cfg *Config) ([]sweep.Job, error) {
	tail, _ := gauss.ParseTailMode(cfg.Problem.TailMode)
	design := sweep.Design(cfg.Sweep.Design)
	factory := cfg.priorFactory()

	seOpts := []se.Option{se.WithTailMode(tail)}
	if cfg.Sweep.Samples > 0 {
		seOpts = append(seOpts, se.WithSamples(cfg.Sweep.Samples))
	}
	if cfg.Sweep.Seed > 0 {
		seOpts = append(seOpts, se.WithSeed(cfg.Sweep.Seed))
	}
	if cfg.Sweep.MaxIterations > 0 {
		seOpts = append(seOpts, se.WithMaxIterations(cfg.Sweep.MaxIterations))
	}
	if cfg.Sweep.Tolerance > 0 {
		seOpts = append(seOpts, se.WithTolerance(cfg.Sweep.Tolerance))
	}
	if cfg.Sweep.Damping > 0 {
		seOpts = append(seOpts, se.WithDamping(cfg.Sweep.Damping))
	}

	jobs, err := sweep.BitRates(se.Config{
		SparsityRate:       cfg.Problem.SparsityRate,
		UndersamplingRatio: cfg.Problem.UndersamplingRatio,
		NoiseVariance:      cfg.Problem.NoiseVariance,
		InitialSNR:         cfg.Problem.InitialSNR,
	}, cfg.Sweep.Bits, design, seOpts...)
	if err != nil {
		return nil, err
	}
	for i := range jobs {
		jobs[i].Predict.Prior = factory
	}

	if !cfg.Trials.Enabled {
		return jobs, nil
	}

	var rbpOpts []rbp.Option
	if cfg.Sweep.MaxIterations > 0 {
		rbpOpts = append(rbpOpts, rbp.WithMaxIterations(cfg.Sweep.MaxIterations))
	}
	if cfg.Sweep.Tolerance > 0 {
		rbpOpts = append(rbpOpts, rbp.WithTolerance(cfg.Sweep.Tolerance))
	}
	if cfg.Sweep.Damping > 0 {
		rbpOpts = append(rbpOpts, rbp.WithDamping(cfg.Sweep.Damping))
	}

	syn := sweep.Synthetic{
		M:             int(float64(cfg.Trials.N) * cfg.Problem.UndersamplingRatio),
		N:             cfg.Trials.N,
		SparsityRate:  cfg.Problem.SparsityRate,
		NoiseVariance: cfg.Problem.NoiseVariance,
		TailMode:      tail,
	}
	for _, b := range cfg.Sweep.Bits {
		trials, err := sweep.Trials(syn, b, design, cfg.Trials.Seeds, factory, rbpOpts...)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, trials...)
	}
	return jobs, nil
}

func recordOutcome(m quantcs.MetricsCollector, priorName string, o sweep.Outcome) {
	if o.Report == nil {
		return
	}
	r := o.Report
	for _, mse := range r.Trace {
		m.RecordRound(string(r.Kind), mse)
	}
	for i := 0; i < r.Diagnostics.DegenerateUpdates; i++ {
		m.RecordDegenerateUpdate(priorName)
	}

	switch r.Kind {
	case results.KindReconstruct:
		m.RecordReconstruct(r.Iterations, r.State, r.Diagnostics.Duration, o.Err)
	case results.KindPredict:
		m.RecordPredict(r.Iterations, r.State, r.Diagnostics.Duration, o.Err)
	}
}

func printOutcomes(out io.Writer, outcomes []sweep.Outcome) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "JOB\tSTATE\tITERATIONS\tFINAL MSE\tREPORT\tERROR")
	for _, o := range outcomes {
		state, iterations, mse := "-", 0, "-"
		if o.Report != nil {
			state, iterations = o.Report.State, o.Report.Iterations
			mse = fmt.Sprintf("%.4e", o.Report.FinalMSE())
		}
		errText := ""
		if o.Err != nil {
			errText = o.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n", o.Job, state, iterations, mse, o.Blob, errText)
	}
	_ = w.Flush()
}
