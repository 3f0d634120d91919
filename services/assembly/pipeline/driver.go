// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline drives a full assembly-index run through its stages
// and persists a resumable checkpoint at every stage boundary.
//
// The stage machine is Ingest, FieldReconstruction, MutualInformation,
// Calibration, SignificanceReport, then Done, with Failed reachable from
// any non-terminal stage. Resume is the single re-entry point: it
// re-enters the stage recorded in a verified checkpoint and replays only
// work not captured there. Each run's parameters are frozen into its
// checkpoints, so a resume reproduces the original run even if the
// configuration on disk has changed since.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/accrete/services/assembly/calibration"
	"github.com/AleutianAI/accrete/services/assembly/field"
	"github.com/AleutianAI/accrete/services/assembly/integrate"
	"github.com/AleutianAI/accrete/services/assembly/nullmodel"
	"github.com/AleutianAI/accrete/services/assembly/report"
	"github.com/AleutianAI/accrete/services/assembly/rng"
)

var tracer = otel.Tracer("accrete.pipeline")

// DefaultCheckpointEvery is the calibration checkpoint cadence in
// ensemble members.
const DefaultCheckpointEvery = 25

// Ingestor supplies the observed temporal sequence. Implementations
// load catalogs, query archives, or synthesize demo data.
type Ingestor interface {
	Ingest(ctx context.Context) (*field.Sequence, error)
}

// Archiver receives the finished report for long-term storage. Archive
// failures are logged, never fatal to the run.
type Archiver interface {
	Archive(ctx context.Context, rep *report.Report) error
}

// EnsembleArchiver is an optional upgrade for archivers that can also
// store the run's null ensemble alongside its report.
type EnsembleArchiver interface {
	ArchiveEnsemble(ctx context.Context, runID string, ens *calibration.Ensemble) error
}

// Params are the computational parameters of a run. They are captured
// in every checkpoint so a resumed run reproduces the original exactly.
type Params struct {
	// Target labels the analyzed object in reports and filenames.
	Target string `json:"target" yaml:"target"`

	// Seed is the top-level seed all random streams derive from.
	Seed uint64 `json:"seed" yaml:"seed"`

	// SmoothingSigma is the reconstruction kernel width in voxels.
	// Zero skips the reconstruction smoothing.
	SmoothingSigma float64 `json:"smoothing_sigma" yaml:"smoothing_sigma"`

	Integration integrate.Config   `json:"integration" yaml:"integration"`
	NullModel   nullmodel.Config   `json:"null_model" yaml:"null_model"`
	Calibration calibration.Config `json:"calibration" yaml:"calibration"`
}

// DefaultParams returns the reference run parameters.
func DefaultParams() Params {
	return Params{
		Target:         "halo",
		Seed:           42,
		SmoothingSigma: 1.0,
		Integration:    integrate.DefaultConfig(),
		NullModel:      nullmodel.DefaultConfig(),
		Calibration:    calibration.DefaultConfig(),
	}
}

// Validate checks every parameter group before any computation starts.
func (p Params) Validate() error {
	if p.SmoothingSigma < 0 {
		return fmt.Errorf("%w: smoothing sigma must be >= 0, got %g", ErrInvalidInput, p.SmoothingSigma)
	}
	if err := p.Integration.Validate(); err != nil {
		return err
	}
	if err := p.NullModel.Validate(); err != nil {
		return err
	}
	return p.Calibration.Validate()
}

// Config holds the driver's operational settings, as opposed to the
// run's computational Params.
type Config struct {
	// CheckpointDir receives one checkpoint file per run.
	CheckpointDir string `json:"checkpoint_dir" yaml:"checkpoint_dir"`

	// ResultsDir receives finished report files.
	ResultsDir string `json:"results_dir" yaml:"results_dir"`

	// CheckpointEvery is the calibration checkpoint cadence in members.
	// Zero or negative uses DefaultCheckpointEvery.
	CheckpointEvery int `json:"checkpoint_every" yaml:"checkpoint_every"`
}

// Option configures a Driver.
type Option func(*Driver)

// WithArchiver registers an archive destination for finished reports.
func WithArchiver(a Archiver) Option {
	return func(d *Driver) {
		if a != nil {
			d.archivers = append(d.archivers, a)
		}
	}
}

// WithStageObserver registers a callback invoked as each stage starts.
// Callbacks run on the driver's goroutine and should return quickly.
func WithStageObserver(fn func(runID string, stage Stage)) Option {
	return func(d *Driver) {
		if fn != nil {
			d.observers = append(d.observers, fn)
		}
	}
}

// Driver owns the stage machine.
//
// Thread Safety: a Driver is safe for concurrent runs; per-run state
// lives in the run's State and runtime.
type Driver struct {
	cfg       Config
	params    Params
	ing       Ingestor
	logger    *slog.Logger
	archivers []Archiver
	observers []func(string, Stage)
}

// New creates a Driver.
//
// Inputs:
//   - cfg: operational settings. Checkpoint and results directories are
//     created if missing.
//   - params: computational parameters for new runs, validated here.
//   - ing: sequence source. Must not be nil.
//   - logger: structured logger; nil falls back to slog.Default().
func New(cfg Config, params Params, ing Ingestor, logger *slog.Logger, opts ...Option) (*Driver, error) {
	if ing == nil {
		return nil, fmt.Errorf("%w: ingestor must not be nil", ErrInvalidInput)
	}
	if cfg.CheckpointDir == "" {
		return nil, fmt.Errorf("%w: checkpoint directory must not be empty", ErrInvalidInput)
	}
	if cfg.ResultsDir == "" {
		return nil, fmt.Errorf("%w: results directory must not be empty", ErrInvalidInput)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.CheckpointDir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Driver{cfg: cfg, params: params, ing: ing, logger: logger}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// CheckpointPath returns where a run's checkpoint lives.
func (d *Driver) CheckpointPath(runID string) string {
	return filepath.Join(d.cfg.CheckpointDir, runID+".checkpoint.json")
}

// Run executes a fresh run from Ingest through Done.
func (d *Driver) Run(ctx context.Context) (*report.Report, error) {
	state := &State{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UnixMilli(),
		Stage:     StageIngest,
		Params:    d.params,
	}
	return d.run(ctx, state)
}

// Resume continues a run from a verified checkpoint.
//
// Description:
//
//	Loads and verifies the checkpoint, then re-enters the recorded
//	stage. A Failed checkpoint retries the stage that failed. The
//	checkpoint's own parameters drive the resumed run.
//
// Outputs:
//   - *report.Report: the finished report.
//   - error: ErrCheckpointVersionMismatch or ErrCheckpointCorrupt from
//     verification, ErrRunComplete for a Done checkpoint, or the first
//     stage failure.
func (d *Driver) Resume(ctx context.Context, path string) (*report.Report, error) {
	cp, err := Load(path)
	if err != nil {
		return nil, err
	}
	state := cp.State

	switch state.Stage {
	case StageDone:
		return nil, fmt.Errorf("%w: run %s", ErrRunComplete, state.RunID)
	case StageFailed:
		// Retry the stage that failed.
		if !state.FailedStage.Valid() || state.FailedStage.Terminal() {
			return nil, fmt.Errorf("%w: failed checkpoint names stage %q", ErrInvalidStage, state.FailedStage)
		}
		state.Stage = state.FailedStage
		state.FailedStage = ""
		state.Error = ""
	}

	d.logger.Info("resuming from checkpoint",
		slog.String("run_id", state.RunID),
		slog.String("stage", string(state.Stage)),
		slog.Time("checkpoint_time", cp.Timestamp),
	)
	return d.run(ctx, state)
}

// runtime holds the per-run computation objects, all derived from the
// state's frozen parameters.
type runtime struct {
	src   *rng.Source
	integ *integrate.Integrator
	gen   *nullmodel.Generator
	eng   *calibration.Engine
}

func (d *Driver) newRuntime(p Params) (*runtime, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	src := rng.NewSource(p.Seed)
	integ, err := integrate.New(p.Integration, d.logger)
	if err != nil {
		return nil, err
	}
	gen, err := nullmodel.NewGenerator(p.NullModel, d.logger)
	if err != nil {
		return nil, err
	}
	eng, err := calibration.NewEngine(p.Calibration, gen, integ, src, d.logger)
	if err != nil {
		return nil, err
	}
	return &runtime{src: src, integ: integ, gen: gen, eng: eng}, nil
}

// run advances the stage machine to a terminal stage.
func (d *Driver) run(ctx context.Context, state *State) (*report.Report, error) {
	rt, err := d.newRuntime(state.Params)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run.id", state.RunID),
		attribute.String("run.target", state.Params.Target),
		attribute.String("run.entry_stage", string(state.Stage)),
	))
	defer span.End()

	var rep *report.Report
	for !state.Stage.Terminal() {
		// Cancellation between stages leaves the last good checkpoint in
		// place; the run stays resumable.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		stage := state.Stage
		started := time.Now()
		d.logger.Info("stage starting",
			slog.String("run_id", state.RunID),
			slog.String("stage", string(stage)),
		)
		for _, obs := range d.observers {
			obs(state.RunID, stage)
		}

		var err error
		switch stage {
		case StageIngest:
			err = d.runIngest(ctx, state)
		case StageFieldReconstruction:
			err = d.runReconstruction(ctx, state)
		case StageMutualInformation:
			err = d.runMutualInformation(ctx, rt, state)
		case StageCalibration:
			err = d.runCalibration(ctx, rt, state)
		case StageSignificanceReport:
			rep, err = d.runReport(ctx, rt, state)
		default:
			err = fmt.Errorf("%w: %q", ErrInvalidStage, stage)
		}

		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			d.failRun(state, stage, err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("stage %s (run %s, seed %d): %w",
				stage, state.RunID, state.Params.Seed, err)
		}

		next, ok := stage.Next()
		if !ok {
			return nil, fmt.Errorf("%w: no stage follows %q", ErrInvalidStage, stage)
		}
		state.Stage = next
		if err := Save(state, d.CheckpointPath(state.RunID)); err != nil {
			return nil, fmt.Errorf("checkpoint after stage %s: %w", stage, err)
		}

		d.logger.Info("stage complete",
			slog.String("run_id", state.RunID),
			slog.String("stage", string(stage)),
			slog.Duration("elapsed", time.Since(started)),
		)
	}

	return rep, nil
}

// failRun records the failure in a terminal checkpoint, best effort.
func (d *Driver) failRun(state *State, stage Stage, cause error) {
	state.FailedStage = stage
	state.Error = cause.Error()
	state.Stage = StageFailed
	if err := Save(state, d.CheckpointPath(state.RunID)); err != nil {
		d.logger.Error("failed to write failure checkpoint",
			slog.String("run_id", state.RunID),
			slog.String("error", err.Error()),
		)
	}
}

func (d *Driver) runIngest(ctx context.Context, state *State) error {
	seq, err := d.ing.Ingest(ctx)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if seq == nil || seq.Len() < 2 {
		n := 0
		if seq != nil {
			n = seq.Len()
		}
		return fmt.Errorf("%w: ingested %d snapshots, need >= 2", integrate.ErrInsufficientHistory, n)
	}
	state.Sequence = encodeSequence(seq)
	return nil
}

func (d *Driver) runReconstruction(ctx context.Context, state *State) error {
	sigma := state.Params.SmoothingSigma
	if sigma == 0 {
		return nil
	}
	seq, err := state.Sequence.Decode()
	if err != nil {
		return err
	}
	smoothed, err := seq.Map(func(f *field.Field) (*field.Field, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return f.Smooth(sigma)
	})
	if err != nil {
		return fmt.Errorf("smoothing (sigma=%g): %w", sigma, err)
	}
	state.Sequence = encodeSequence(smoothed)
	return nil
}

func (d *Driver) runMutualInformation(ctx context.Context, rt *runtime, state *State) error {
	seq, err := state.Sequence.Decode()
	if err != nil {
		return err
	}
	// The observed stream is consumed only here and starts fresh on
	// every attempt, so a resume reproduces an uninterrupted run.
	res, err := rt.integ.Run(ctx, seq, rt.src.Observed())
	if err != nil {
		return err
	}
	state.Observed = res
	return nil
}

func (d *Driver) runCalibration(ctx context.Context, rt *runtime, state *State) error {
	every := d.cfg.CheckpointEvery
	if every <= 0 {
		every = DefaultCheckpointEvery
	}

	ens := state.Ensemble
	for ens == nil || !ens.Complete() {
		next, err := rt.eng.GrowEnsemble(ctx, ens, every)
		if err != nil {
			return err
		}
		ens = next
		state.Ensemble = ens
		if !ens.Complete() {
			if err := Save(state, d.CheckpointPath(state.RunID)); err != nil {
				return fmt.Errorf("mid-calibration checkpoint: %w", err)
			}
		}
	}
	return rt.eng.ValidateEnsemble(ens)
}

func (d *Driver) runReport(ctx context.Context, rt *runtime, state *State) (*report.Report, error) {
	if state.Observed == nil {
		return nil, fmt.Errorf("%w: no observed index in state", ErrInvalidInput)
	}
	assessment, err := rt.eng.Assess(state.Observed.Index, state.Ensemble)
	if err != nil {
		return nil, err
	}

	seq, err := state.Sequence.Decode()
	if err != nil {
		return nil, err
	}
	t0, t1 := seq.Span()
	zs := seq.Redshifts()

	rep := &report.Report{
		RunID:               state.RunID,
		Version:             CheckpointVersion,
		GeneratedAt:         time.Now().UTC(),
		Target:              state.Params.Target,
		Seed:                state.Params.Seed,
		Mass:                seq.At(0).Mass(),
		Resolution:          seq.Resolution(),
		Snapshots:           seq.Len(),
		RedshiftRange:       [2]float64{zs[0], zs[len(zs)-1]},
		TimeSpanGyr:         [2]float64{t0, t1},
		IndexBits:           state.Observed.Index,
		SystematicErrorBits: state.Observed.SystematicError,
		Steps:               state.Observed.Steps,
		Assessment:          assessment,
		Parameters:          state.Params,
	}

	w, err := report.NewWriter(d.cfg.ResultsDir)
	if err != nil {
		return nil, err
	}
	path, err := w.Write(rep)
	if err != nil {
		return nil, err
	}
	d.logger.Info("report written",
		slog.String("run_id", state.RunID),
		slog.String("path", path),
		slog.Float64("index_bits", rep.IndexBits),
		slog.Float64("z_score", assessment.ZScore),
		slog.String("status", string(assessment.Status)),
	)

	for _, a := range d.archivers {
		if err := a.Archive(ctx, rep); err != nil {
			d.logger.Warn("report archive failed",
				slog.String("run_id", state.RunID),
				slog.String("error", err.Error()),
			)
			continue
		}
		ea, ok := a.(EnsembleArchiver)
		if !ok || state.Ensemble == nil {
			continue
		}
		if err := ea.ArchiveEnsemble(ctx, state.RunID, state.Ensemble); err != nil {
			d.logger.Warn("ensemble archive failed",
				slog.String("run_id", state.RunID),
				slog.String("error", err.Error()),
			)
		}
	}
	return rep, nil
}
