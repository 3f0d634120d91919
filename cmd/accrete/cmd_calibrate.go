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
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/accrete/pkg/ux"
	"github.com/AleutianAI/accrete/services/assembly/calibration"
	"github.com/AleutianAI/accrete/services/assembly/integrate"
	"github.com/AleutianAI/accrete/services/assembly/nullmodel"
	"github.com/AleutianAI/accrete/services/assembly/rng"
)

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// runCalibrate resolves a full null ensemble for the configured
// geometry and writes it as JSON.
func runCalibrate(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig()
	if calibrateEnsemble > 0 {
		cfg.Calibration.EnsembleSize = calibrateEnsemble
	}
	if calibrateWorkers > 0 {
		cfg.Calibration.Workers = calibrateWorkers
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = calibrateSeed
	}
	if err := cfg.Validate(); err != nil {
		ux.Error(fmt.Sprintf("configuration: %v", err))
		os.Exit(1)
	}

	logger := newRunLogger(cfg)
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry := setupTelemetry(ctx, cfg, logger)
	defer shutdownTelemetry()
	startMetricsServer(cfg, logger)

	params := cfg.Params()
	src := rng.NewSource(params.Seed)
	integ, err := integrate.New(params.Integration, logger.Slog())
	if err != nil {
		ux.Error(fmt.Sprintf("integrator: %v", err))
		os.Exit(1)
	}
	gen, err := nullmodel.NewGenerator(params.NullModel, logger.Slog())
	if err != nil {
		ux.Error(fmt.Sprintf("null model: %v", err))
		os.Exit(1)
	}
	eng, err := calibration.NewEngine(params.Calibration, gen, integ, src, logger.Slog())
	if err != nil {
		ux.Error(fmt.Sprintf("calibration engine: %v", err))
		os.Exit(1)
	}

	target := params.Calibration.EnsembleSize
	batch := cfg.Calibration.CheckpointEvery
	if batch <= 0 {
		batch = target
	}

	spin := ux.NewProgressSpinner("Resolving null members", target)
	spin.Start()

	var ens *calibration.Ensemble
	for ens == nil || !ens.Complete() {
		next, err := eng.GrowEnsemble(ctx, ens, batch)
		if err != nil {
			if ctx.Err() != nil {
				spin.StopWithWarning("Calibration interrupted")
				os.Exit(130)
			}
			spin.StopWithError(fmt.Sprintf("Calibration failed: %v", err))
			os.Exit(1)
		}
		ens = next
		spin.SetProgress(ens.Size() + len(ens.Failed))
	}
	if err := eng.ValidateEnsemble(ens); err != nil {
		spin.StopWithError(fmt.Sprintf("Ensemble unusable: %v", err))
		os.Exit(1)
	}
	spin.StopWithSuccess(fmt.Sprintf("Null ensemble complete: %d members", ens.Size()))

	out := calibrateOutput
	if out == "" {
		out = fmt.Sprintf("ensemble_%d.json", ens.Seed)
	}
	data, err := json.MarshalIndent(ens, "", "  ")
	if err != nil {
		ux.Error(fmt.Sprintf("encode ensemble: %v", err))
		os.Exit(1)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		ux.Error(fmt.Sprintf("write ensemble: %v", err))
		os.Exit(1)
	}

	if calibrateJSON {
		mean, std := ens.Stats()
		outputJSON(map[string]any{
			"seed":      ens.Seed,
			"members":   ens.Size(),
			"failed":    len(ens.Failed),
			"mean_bits": mean,
			"std_bits":  std,
			"path":      out,
		})
		return
	}
	outputEnsembleStats(ens)
	ux.Info(fmt.Sprintf("Ensemble written: %s", out))
}
