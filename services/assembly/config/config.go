// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config is the single configuration surface for an assembly
// run: one nested struct loadable from YAML or JSON with ACCRETE_*
// environment overrides, validated before any computation starts, and
// converted into the per-component configs the pipeline consumes.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/accrete/pkg/validation"
	"github.com/AleutianAI/accrete/services/assembly/calibration"
	"github.com/AleutianAI/accrete/services/assembly/estimator"
	"github.com/AleutianAI/accrete/services/assembly/ingest"
	"github.com/AleutianAI/accrete/services/assembly/integrate"
	"github.com/AleutianAI/accrete/services/assembly/nullmodel"
	"github.com/AleutianAI/accrete/services/assembly/pipeline"
	"github.com/AleutianAI/accrete/services/assembly/telemetry"
)

// configValidate is the validator instance for configuration structs.
var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
}

// Config contains all settings for an assembly-index run.
//
// Thread Safety: safe to read concurrently. Not safe to modify after
// creation.
type Config struct {
	// Target labels the analyzed object in reports and filenames.
	Target string `json:"target" yaml:"target" validate:"required"`

	// Seed is the top-level seed every random stream derives from.
	Seed uint64 `json:"seed" yaml:"seed"`

	// Grid contains analysis grid settings.
	Grid GridConfig `json:"grid" yaml:"grid"`

	// Estimator contains entropy estimator settings.
	Estimator EstimatorConfig `json:"estimator" yaml:"estimator"`

	// Integration contains index integration settings.
	Integration IntegrationConfig `json:"integration" yaml:"integration"`

	// NullModel contains null ensemble generation settings.
	NullModel NullModelConfig `json:"null_model" yaml:"null_model"`

	// Calibration contains calibration engine settings.
	Calibration CalibrationConfig `json:"calibration" yaml:"calibration"`

	// Pipeline contains driver directories.
	Pipeline PipelineConfig `json:"pipeline" yaml:"pipeline"`

	// Archive contains report archival settings.
	Archive ArchiveConfig `json:"archive" yaml:"archive"`

	// Observability contains logging and telemetry settings.
	Observability ObservabilityConfig `json:"observability" yaml:"observability"`
}

// GridConfig contains analysis grid settings.
type GridConfig struct {
	Resolution     int     `json:"resolution" yaml:"resolution" validate:"gte=2"`
	SmoothingSigma float64 `json:"smoothing_sigma" yaml:"smoothing_sigma" validate:"gte=0"`
}

// EstimatorConfig contains entropy estimator settings.
type EstimatorConfig struct {
	NeighborK       int            `json:"neighbor_k" yaml:"neighbor_k" validate:"gte=1"`
	SampleSize      int            `json:"sample_size" yaml:"sample_size" validate:"gte=2"`
	DistanceNorm    estimator.Norm `json:"norm" yaml:"norm"`
	ClampNegativeMI bool           `json:"clamp_negative_mi" yaml:"clamp_negative_mi"`
}

// IntegrationConfig contains index integration settings.
type IntegrationConfig struct {
	Quadrature        integrate.Quadrature `json:"quadrature" yaml:"quadrature"`
	AdaptiveThreshold float64              `json:"adaptive_threshold" yaml:"adaptive_threshold" validate:"gte=0"`
}

// NullModelConfig contains null ensemble generation settings.
type NullModelConfig struct {
	Mass       float64 `json:"mass" yaml:"mass" validate:"gt=0"`
	ZStart     float64 `json:"z_start" yaml:"z_start" validate:"gte=0"`
	ZEnd       float64 `json:"z_end" yaml:"z_end" validate:"gte=0"`
	Snapshots  int     `json:"snapshots" yaml:"snapshots" validate:"gte=2"`
	NoiseSigma float64 `json:"noise_sigma" yaml:"noise_sigma" validate:"gt=0"`
}

// CalibrationConfig contains calibration engine settings.
type CalibrationConfig struct {
	EnsembleSize          int     `json:"ensemble_size" yaml:"ensemble_size" validate:"gte=2"`
	Workers               int     `json:"workers" yaml:"workers" validate:"gte=1"`
	MinSuccessFraction    float64 `json:"min_success_fraction" yaml:"min_success_fraction" validate:"gt=0,lte=1"`
	SignificanceThreshold float64 `json:"significance_threshold" yaml:"significance_threshold" validate:"gt=0"`
	CheckpointEvery       int     `json:"checkpoint_every" yaml:"checkpoint_every" validate:"gte=0"`
}

// PipelineConfig contains driver directories.
type PipelineConfig struct {
	CheckpointDir string `json:"checkpoint_dir" yaml:"checkpoint_dir" validate:"required"`
	ResultsDir    string `json:"results_dir" yaml:"results_dir" validate:"required"`
}

// GCSConfig contains Google Cloud Storage upload settings.
type GCSConfig struct {
	Bucket          string `json:"bucket" yaml:"bucket"`
	Prefix          string `json:"prefix" yaml:"prefix"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// ArchiveConfig contains report archival settings. When enabled, at
// least one destination (local directory or GCS bucket) must be set.
type ArchiveConfig struct {
	Enabled bool      `json:"enabled" yaml:"enabled"`
	Dir     string    `json:"dir" yaml:"dir"`
	GCS     GCSConfig `json:"gcs" yaml:"gcs"`
}

// ObservabilityConfig contains logging and telemetry settings.
type ObservabilityConfig struct {
	TracingEnabled bool   `json:"tracing_enabled" yaml:"tracing_enabled"`
	MetricsEnabled bool   `json:"metrics_enabled" yaml:"metrics_enabled"`
	LogLevel       string `json:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	LogJSON        bool   `json:"log_json" yaml:"log_json"`
	ServiceName    string `json:"service_name" yaml:"service_name" validate:"required"`
	TraceExporter  string `json:"trace_exporter" yaml:"trace_exporter" validate:"oneof=otlp stdout none"`
	MetricExporter string `json:"metric_exporter" yaml:"metric_exporter" validate:"oneof=prometheus stdout none"`
	OTLPEndpoint   string `json:"otlp_endpoint" yaml:"otlp_endpoint"`
	PrometheusPort int    `json:"prometheus_port" yaml:"prometheus_port" validate:"gte=0,lte=65535"`
}

// Default returns the reference configuration.
func Default() Config {
	return Config{
		Target: "halo",
		Seed:   42,
		Grid: GridConfig{
			Resolution:     32,
			SmoothingSigma: 1.0,
		},
		Estimator: EstimatorConfig{
			NeighborK:    4,
			SampleSize:   1024,
			DistanceNorm: estimator.NormChebyshev,
		},
		Integration: IntegrationConfig{
			Quadrature:        integrate.QuadratureTrapezoid,
			AdaptiveThreshold: 0.1,
		},
		NullModel: NullModelConfig{
			Mass:       5e11,
			ZStart:     20,
			ZEnd:       0,
			Snapshots:  20,
			NoiseSigma: 0.5,
		},
		Calibration: CalibrationConfig{
			EnsembleSize:          200,
			Workers:               4,
			MinSuccessFraction:    0.9,
			SignificanceThreshold: 3.0,
			CheckpointEvery:       25,
		},
		Pipeline: PipelineConfig{
			CheckpointDir: "checkpoints",
			ResultsDir:    "results",
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Dir:     "archive",
		},
		Observability: ObservabilityConfig{
			TracingEnabled: false,
			MetricsEnabled: false,
			LogLevel:       "info",
			LogJSON:        false,
			ServiceName:    "accrete",
			TraceExporter:  "otlp",
			MetricExporter: "prometheus",
			OTLPEndpoint:   "localhost:4317",
			PrometheusPort: 9090,
		},
	}
}

// Load loads configuration with priority: env > file > defaults.
//
// Inputs:
//   - path: YAML or JSON config file. Optional; a missing file falls
//     back to defaults.
//
// Outputs:
//   - Config: the merged, validated configuration.
//   - error: non-nil if the file exists but cannot be parsed, or the
//     merged configuration fails validation.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	loadEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	// Try YAML first, then JSON.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadEnv(cfg *Config) {
	if v := os.Getenv("ACCRETE_TARGET"); v != "" {
		cfg.Target = v
	}
	if v := os.Getenv("ACCRETE_SEED"); v != "" {
		if u, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Seed = u
		}
	}
	if v := os.Getenv("ACCRETE_CHECKPOINT_DIR"); v != "" {
		cfg.Pipeline.CheckpointDir = v
	}
	if v := os.Getenv("ACCRETE_RESULTS_DIR"); v != "" {
		cfg.Pipeline.ResultsDir = v
	}
	if v := os.Getenv("ACCRETE_SAMPLE_SIZE"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Estimator.SampleSize = i
		}
	}
	if v := os.Getenv("ACCRETE_ENSEMBLE_SIZE"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Calibration.EnsembleSize = i
		}
	}
	if v := os.Getenv("ACCRETE_WORKERS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Calibration.Workers = i
		}
	}
	if v := os.Getenv("ACCRETE_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("ACCRETE_TRACING_ENABLED"); v != "" {
		cfg.Observability.TracingEnabled = v == "true" || v == "1"
	}
	if v := os.Getenv("ACCRETE_METRICS_ENABLED"); v != "" {
		cfg.Observability.MetricsEnabled = v == "true" || v == "1"
	}
	if v := os.Getenv("ACCRETE_ARCHIVE_ENABLED"); v != "" {
		cfg.Archive.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("ACCRETE_GCS_BUCKET"); v != "" {
		cfg.Archive.GCS.Bucket = v
	}
}

// Validate checks struct tags and cross-field constraints.
func (c Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return err
	}
	// Targets end up in report filenames and archive records, so reject
	// unusable names here instead of rewriting them later.
	if err := validation.ValidateTarget(c.Target); err != nil {
		return err
	}
	if c.Estimator.SampleSize <= c.Estimator.NeighborK {
		return fmt.Errorf("sample_size %d must exceed neighbor_k %d",
			c.Estimator.SampleSize, c.Estimator.NeighborK)
	}
	if c.NullModel.ZStart <= c.NullModel.ZEnd {
		return fmt.Errorf("z_start %g must exceed z_end %g",
			c.NullModel.ZStart, c.NullModel.ZEnd)
	}
	if c.Archive.Enabled && c.Archive.Dir == "" && c.Archive.GCS.Bucket == "" {
		return fmt.Errorf("archive enabled but no directory or GCS bucket configured")
	}
	return nil
}

// Params converts the configuration into run parameters. The null
// ensemble shares the analysis grid resolution so observed and null
// indices are computed on identical geometry.
func (c Config) Params() pipeline.Params {
	return pipeline.Params{
		Target:         c.Target,
		Seed:           c.Seed,
		SmoothingSigma: c.Grid.SmoothingSigma,
		Integration: integrate.Config{
			NeighborK:         c.Estimator.NeighborK,
			SampleSize:        c.Estimator.SampleSize,
			Norm:              c.Estimator.DistanceNorm,
			ClampNegative:     c.Estimator.ClampNegativeMI,
			Quadrature:        c.Integration.Quadrature,
			AdaptiveThreshold: c.Integration.AdaptiveThreshold,
		},
		NullModel: nullmodel.Config{
			Mass:       c.NullModel.Mass,
			ZStart:     c.NullModel.ZStart,
			ZEnd:       c.NullModel.ZEnd,
			Snapshots:  c.NullModel.Snapshots,
			Resolution: c.Grid.Resolution,
			NoiseSigma: c.NullModel.NoiseSigma,
		},
		Calibration: calibration.Config{
			EnsembleSize:          c.Calibration.EnsembleSize,
			Workers:               c.Calibration.Workers,
			MinSuccessFraction:    c.Calibration.MinSuccessFraction,
			SignificanceThreshold: c.Calibration.SignificanceThreshold,
		},
	}
}

// Driver converts the configuration into driver settings.
func (c Config) Driver() pipeline.Config {
	return pipeline.Config{
		CheckpointDir:   c.Pipeline.CheckpointDir,
		ResultsDir:      c.Pipeline.ResultsDir,
		CheckpointEvery: c.Calibration.CheckpointEvery,
	}
}

// Synthetic converts the configuration into demo catalog parameters,
// reusing the null-model geometry for the generated halo.
func (c Config) Synthetic() ingest.SyntheticConfig {
	return ingest.SyntheticConfig{
		Target:     c.Target,
		Mass:       c.NullModel.Mass,
		Resolution: c.Grid.Resolution,
		Snapshots:  c.NullModel.Snapshots,
		ZStart:     c.NullModel.ZStart,
		ZEnd:       c.NullModel.ZEnd,
	}
}

// Telemetry converts the observability settings into a telemetry
// configuration. Disabled signals map to the "none" exporter.
func (c Config) Telemetry() telemetry.Config {
	t := telemetry.DefaultConfig()
	t.ServiceName = c.Observability.ServiceName
	t.PrometheusPort = c.Observability.PrometheusPort
	if c.Observability.OTLPEndpoint != "" {
		t.OTLPEndpoint = c.Observability.OTLPEndpoint
	}
	t.TraceExporter = "none"
	if c.Observability.TracingEnabled {
		t.TraceExporter = c.Observability.TraceExporter
	}
	t.MetricExporter = "none"
	if c.Observability.MetricsEnabled {
		t.MetricExporter = c.Observability.MetricExporter
	}
	return t
}
