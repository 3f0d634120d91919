// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/accrete/pkg/ux"
	"github.com/AleutianAI/accrete/services/assembly/ingest"
	"github.com/AleutianAI/accrete/services/assembly/pipeline"
	"github.com/AleutianAI/accrete/services/assembly/rng"
)

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// runResume continues an interrupted run from its checkpoint. The
// checkpoint's frozen parameters drive the resumed run; the current
// config only supplies directories and observability settings.
func runResume(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig()
	logger := newRunLogger(cfg)
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry := setupTelemetry(ctx, cfg, logger)
	defer shutdownTelemetry()
	startMetricsServer(cfg, logger)

	// Peek at the checkpoint so a run that died during ingest gets an
	// ingest source matching the original one.
	cp, err := pipeline.Load(resumeCheckpoint)
	if err != nil {
		ux.Error(fmt.Sprintf("checkpoint: %v", err))
		os.Exit(1)
	}
	if cp.State.Stage == pipeline.StageDone {
		ux.Info(fmt.Sprintf("Run %s already finished; nothing to resume", shortID(cp.State.RunID)))
		return
	}

	var ing pipeline.Ingestor
	if resumeCatalog != "" {
		ing, err = ingest.NewCatalog(resumeCatalog, logger.Slog())
	} else {
		ing, err = ingest.NewSynthetic(ingest.SyntheticConfig{
			Target:     cp.State.Params.Target,
			Mass:       cp.State.Params.NullModel.Mass,
			Resolution: cp.State.Params.NullModel.Resolution,
			Snapshots:  cp.State.Params.NullModel.Snapshots,
			ZStart:     cp.State.Params.NullModel.ZStart,
			ZEnd:       cp.State.Params.NullModel.ZEnd,
		}, rng.NewSource(cp.State.Params.Seed), logger.Slog())
	}
	if err != nil {
		ux.Error(fmt.Sprintf("ingest source: %v", err))
		os.Exit(1)
	}

	opts, uploader, closeArchivers, err := buildArchivers(ctx, cfg, logger)
	if err != nil {
		ux.Error(fmt.Sprintf("archive: %v", err))
		os.Exit(1)
	}
	defer closeArchivers()

	spin := ux.NewSpinner(fmt.Sprintf("Resuming run %s from %s",
		shortID(cp.State.RunID), cp.State.Stage))
	opts = append(opts, pipeline.WithStageObserver(func(id string, stage pipeline.Stage) {
		spin.UpdateMessage(stageMessage(stage))
	}))

	driver, err := pipeline.New(cfg.Driver(), cfg.Params(), ing, logger.Slog(), opts...)
	if err != nil {
		ux.Error(fmt.Sprintf("pipeline: %v", err))
		os.Exit(1)
	}

	spin.Start()
	rep, err := driver.Resume(ctx, resumeCheckpoint)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrRunComplete):
			spin.Stop()
			ux.Info(fmt.Sprintf("Run %s already finished; nothing to resume", shortID(cp.State.RunID)))
			return
		case ctx.Err() != nil:
			spin.StopWithWarning(fmt.Sprintf("Resume interrupted; checkpoint remains at %s", resumeCheckpoint))
			os.Exit(130)
		default:
			spin.StopWithError(fmt.Sprintf("Resume failed: %v", err))
			os.Exit(1)
		}
	}
	spin.StopWithSuccess(fmt.Sprintf("Analysis complete: run %s", shortID(rep.RunID)))
	uploadCheckpoint(ctx, uploader, driver.CheckpointPath(rep.RunID), logger)

	if resumeJSON {
		outputJSON(rep)
		return
	}
	outputReport(rep)
	ux.Info(fmt.Sprintf("Report written: %s", filepath.Join(cfg.Pipeline.ResultsDir, rep.Filename())))
}
