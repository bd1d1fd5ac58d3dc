package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/quantcs/codec"
	"github.com/hupe1980/quantcs/internal/gauss"
	"github.com/hupe1980/quantcs/prior"
	"github.com/hupe1980/quantcs/results"
	"github.com/hupe1980/quantcs/se"
	"github.com/hupe1980/quantcs/sweep"
)

// Config is the experiment file.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Results   ResultsConfig   `yaml:"results"`
	Resources ResourcesConfig `yaml:"resources"`
	Problem   ProblemConfig   `yaml:"problem"`
	Prior     PriorConfig     `yaml:"prior"`
	Sweep     SweepConfig     `yaml:"sweep"`
	Trials    TrialsConfig    `yaml:"trials"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// StoreConfig selects where reports are written.
type StoreConfig struct {
	Kind string `yaml:"kind"` // local, memory, s3, minio
	Path string `yaml:"path"` // local only

	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`

	// MinIO credentials.
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// ResultsConfig controls report encoding.
type ResultsConfig struct {
	Prefix      string `yaml:"prefix"`
	Compression string `yaml:"compression"`
	Codec       string `yaml:"codec"`
}

// ResourcesConfig bounds the sweep.
type ResourcesConfig struct {
	MaxWorkers         int64   `yaml:"max_workers"`
	MemoryLimitMB      int64   `yaml:"memory_limit_mb"`
	ProgressPerSecond  float64 `yaml:"progress_per_second"`
	IOLimitBytesPerSec int64   `yaml:"io_limit_bytes_per_sec"`
}

// ProblemConfig is the statistical problem shared by all jobs.
type ProblemConfig struct {
	SparsityRate       float64 `yaml:"sparsity_rate"`
	UndersamplingRatio float64 `yaml:"undersampling_ratio"`
	NoiseVariance      float64 `yaml:"noise_variance"`
	InitialSNR         float64 `yaml:"initial_snr"`
	TailMode           string  `yaml:"tail_mode"`
}

// PriorConfig selects the signal model of every job. An empty family uses
// the engines' default Gauss-Bernoulli prior.
type PriorConfig struct {
	Family         string                     `yaml:"family"` // gauss_bernoulli or laplace
	GaussBernoulli prior.GaussBernoulliConfig `yaml:"gauss_bernoulli"`
	Laplace        prior.LaplaceConfig        `yaml:"laplace"`
}

// SweepConfig is the SE bit-rate sweep.
type SweepConfig struct {
	Bits          []int   `yaml:"bits"`
	Design        string  `yaml:"design"`
	Samples       int     `yaml:"samples"`
	Seed          uint64  `yaml:"seed"`
	MaxIterations int     `yaml:"max_iterations"`
	Tolerance     float64 `yaml:"tolerance"`
	Damping       float64 `yaml:"damping"`
}

// TrialsConfig adds synthetic RBP runs for every swept bit-rate.
type TrialsConfig struct {
	Enabled bool     `yaml:"enabled"`
	N       int      `yaml:"n"`
	Seeds   []uint64 `yaml:"seeds"`
}

// MetricsConfig enables pushing run metrics to a Prometheus pushgateway.
type MetricsConfig struct {
	Pushgateway string `yaml:"pushgateway"`
	Job         string `yaml:"job"`
}

// DefaultConfig returns the configuration used for omitted fields.
func DefaultConfig() Config {
	return Config{
		Log:   LogConfig{Level: "info", Format: "text"},
		Store: StoreConfig{Kind: "local", Path: "./reports"},
		Results: ResultsConfig{
			Prefix:      results.DefaultPrefix,
			Compression: string(results.CompressionZSTD),
		},
		Resources: ResourcesConfig{MaxWorkers: 4, MemoryLimitMB: 1024, ProgressPerSecond: 1},
		Problem: ProblemConfig{
			SparsityRate:       0.1,
			UndersamplingRatio: 0.5,
			NoiseVariance:      1e-3,
			InitialSNR:         1,
		},
		Sweep: SweepConfig{
			Bits:    []int{1, 2, 3, 4},
			Design:  string(sweep.DesignUniform),
			Samples: se.DefaultSamples,
			Seed:    se.DefaultSeed,
		},
		Trials:  TrialsConfig{N: 1000, Seeds: []uint64{1, 2, 3}},
		Metrics: MetricsConfig{Job: "quantcs"},
	}
}

// LoadConfig reads a YAML experiment file. ${VAR} references are expanded
// from the environment before parsing.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses an experiment file on top of DefaultConfig.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields that are not validated by the packages they
// are passed to.
func (c *Config) Validate() error {
	switch c.Store.Kind {
	case "local":
		if c.Store.Path == "" {
			return errors.New("store.path is required for the local store")
		}
	case "memory":
	case "s3", "minio":
		if c.Store.Bucket == "" {
			return fmt.Errorf("store.bucket is required for the %s store", c.Store.Kind)
		}
		if c.Store.Kind == "minio" && c.Store.Endpoint == "" {
			return errors.New("store.endpoint is required for the minio store")
		}
	default:
		return fmt.Errorf("unknown store.kind %q", c.Store.Kind)
	}

	if _, err := results.ParseCompression(c.Results.Compression); err != nil {
		return err
	}
	if _, ok := codec.ByName(c.Results.Codec); !ok {
		return fmt.Errorf("unknown results.codec %q", c.Results.Codec)
	}
	if _, err := gauss.ParseTailMode(c.Problem.TailMode); err != nil {
		return err
	}
	if _, err := c.logLevel(); err != nil {
		return err
	}

	switch c.Prior.Family {
	case "", "gauss_bernoulli", "laplace":
	default:
		return fmt.Errorf("unknown prior.family %q", c.Prior.Family)
	}

	if len(c.Sweep.Bits) == 0 {
		return errors.New("sweep.bits must not be empty")
	}
	for _, b := range c.Sweep.Bits {
		if b < 0 {
			return fmt.Errorf("sweep.bits: negative bit-rate %d", b)
		}
	}
	if c.Trials.Enabled && (c.Trials.N <= 0 || len(c.Trials.Seeds) == 0) {
		return errors.New("trials need a positive n and at least one seed")
	}
	return nil
}

func (c *Config) logLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// priorFactory returns nil when the engines' default prior applies.
func (c *Config) priorFactory() sweep.PriorFactory {
	switch c.Prior.Family {
	case "gauss_bernoulli":
		gb := c.Prior.GaussBernoulli
		if gb.SparsityRate == 0 {
			gb.SparsityRate = c.Problem.SparsityRate
		}
		if gb.Variance == 0 {
			gb.Variance = 1
		}
		return func() (prior.Prior, error) { return prior.NewGaussBernoulli(gb) }
	case "laplace":
		lap := c.Prior.Laplace
		if lap.Rate == 0 && len(lap.Rates) == 0 {
			lap.Rate = prior.DefaultLaplaceRate
		}
		if lap.Mode == "" {
			lap.Mode = prior.ModeMAP
		}
		return func() (prior.Prior, error) { return prior.NewLaplace(lap) }
	default:
		return nil
	}
}

// priorName is the Name of the priors built for the jobs.
func (c *Config) priorName() string {
	if c.Prior.Family == "laplace" {
		return "laplace"
	}
	return "gauss-bernoulli"
}
