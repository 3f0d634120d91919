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
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/accrete/pkg/logging"
	"github.com/AleutianAI/accrete/pkg/ux"
	"github.com/AleutianAI/accrete/pkg/validation"
	"github.com/AleutianAI/accrete/services/assembly/archive/gcs"
	"github.com/AleutianAI/accrete/services/assembly/config"
	"github.com/AleutianAI/accrete/services/assembly/ingest"
	"github.com/AleutianAI/accrete/services/assembly/pipeline"
	"github.com/AleutianAI/accrete/services/assembly/rng"
)

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// runAnalyze executes the full pipeline: ingest, field reconstruction,
// index integration, calibration, and the significance report.
func runAnalyze(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig()
	applyAnalyzeOverrides(cmd, &cfg)

	logger := newRunLogger(cfg)
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry := setupTelemetry(ctx, cfg, logger)
	defer shutdownTelemetry()
	startMetricsServer(cfg, logger)

	ing, err := buildIngestor(cfg, logger)
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

	// The observer fires on this goroutine inside Run, so runID is
	// settled once Run returns.
	var runID string
	spin := ux.NewSpinner(fmt.Sprintf("Analyzing %s", cfg.Target))
	opts = append(opts, pipeline.WithStageObserver(func(id string, stage pipeline.Stage) {
		runID = id
		spin.UpdateMessage(stageMessage(stage))
	}))

	driver, err := pipeline.New(cfg.Driver(), cfg.Params(), ing, logger.Slog(), opts...)
	if err != nil {
		ux.Error(fmt.Sprintf("pipeline: %v", err))
		os.Exit(1)
	}

	spin.Start()
	rep, err := driver.Run(ctx)
	if err != nil {
		if ctx.Err() != nil && runID != "" {
			spin.StopWithWarning(fmt.Sprintf("Analysis interrupted; resume with: accrete resume --checkpoint %s",
				driver.CheckpointPath(runID)))
			os.Exit(130)
		}
		spin.StopWithError(fmt.Sprintf("Analysis failed: %v", err))
		os.Exit(1)
	}
	spin.StopWithSuccess(fmt.Sprintf("Analysis complete: run %s", shortID(rep.RunID)))
	uploadCheckpoint(ctx, uploader, driver.CheckpointPath(rep.RunID), logger)

	if analyzeJSON {
		outputJSON(rep)
		return
	}
	outputReport(rep)
	ux.Info(fmt.Sprintf("Report written: %s", filepath.Join(cfg.Pipeline.ResultsDir, rep.Filename())))
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func applyAnalyzeOverrides(cmd *cobra.Command, cfg *config.Config) {
	if analyzeTarget != "" {
		target, err := validation.SanitizeTarget(analyzeTarget)
		if err != nil {
			ux.Error(fmt.Sprintf("configuration: %v", err))
			os.Exit(1)
		}
		cfg.Target = target
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = analyzeSeed
	}
	if analyzeEnsemble > 0 {
		cfg.Calibration.EnsembleSize = analyzeEnsemble
	}
	if analyzeWorkers > 0 {
		cfg.Calibration.Workers = analyzeWorkers
	}
	if err := cfg.Validate(); err != nil {
		ux.Error(fmt.Sprintf("configuration: %v", err))
		os.Exit(1)
	}
}

// buildIngestor picks the snapshot source: an on-disk catalog when
// --catalog is given, otherwise the synthetic demo history.
func buildIngestor(cfg config.Config, logger *logging.Logger) (pipeline.Ingestor, error) {
	if analyzeCatalog != "" {
		return ingest.NewCatalog(analyzeCatalog, logger.Slog())
	}
	if !analyzeDemo {
		ux.Warning("no --catalog given, using the synthetic demo history")
	}
	return ingest.NewSynthetic(cfg.Synthetic(), rng.NewSource(cfg.Seed), logger.Slog())
}

// buildArchivers assembles the configured archive destinations. The
// returned uploader is non-nil when a GCS bucket is configured, so the
// caller can also mirror the final checkpoint off-machine.
func buildArchivers(ctx context.Context, cfg config.Config, logger *logging.Logger) ([]pipeline.Option, *gcs.Uploader, func(), error) {
	var opts []pipeline.Option
	var uploader *gcs.Uploader
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	if !cfg.Archive.Enabled {
		return opts, nil, closeAll, nil
	}

	if cfg.Archive.Dir != "" {
		store, err := openArchive(cfg, logger)
		if err != nil {
			return nil, nil, closeAll, fmt.Errorf("open archive store: %w", err)
		}
		closers = append(closers, func() {
			if err := store.Close(); err != nil {
				logger.Warn("archive store close failed", "error", err)
			}
		})
		opts = append(opts, pipeline.WithArchiver(store))
	}

	if cfg.Archive.GCS.Bucket != "" {
		var err error
		uploader, err = gcs.NewUploader(ctx, gcs.Config{
			Bucket:          cfg.Archive.GCS.Bucket,
			Prefix:          cfg.Archive.GCS.Prefix,
			CredentialsFile: cfg.Archive.GCS.CredentialsFile,
		}, logger.Slog())
		if err != nil {
			closeAll()
			return nil, nil, func() {}, fmt.Errorf("gcs uploader: %w", err)
		}
		closers = append(closers, func() {
			if err := uploader.Close(); err != nil {
				logger.Warn("gcs uploader close failed", "error", err)
			}
		})
		opts = append(opts, pipeline.WithArchiver(uploader))
	}

	return opts, uploader, closeAll, nil
}

// uploadCheckpoint mirrors a finished run's checkpoint file alongside the
// archived report, keeping an off-machine copy of the resumable state.
// Upload failures are logged and never fail the run.
func uploadCheckpoint(ctx context.Context, uploader *gcs.Uploader, localPath string, logger *logging.Logger) {
	if uploader == nil {
		return
	}
	if err := uploader.UploadFile(ctx, localPath, filepath.Base(localPath)); err != nil {
		logger.Warn("checkpoint upload failed", "path", localPath, "error", err)
	}
}
