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
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/accrete/pkg/ux"
	"github.com/AleutianAI/accrete/services/assembly/storage/badgerstore"
)

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// runRunsList prints the archived runs, newest first.
func runRunsList(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig()
	logger := newRunLogger(cfg)
	defer logger.Close()

	store, err := openArchive(cfg, logger)
	if err != nil {
		ux.Error(fmt.Sprintf("archive: %v", err))
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	runs, err := store.ListRuns(ctx)
	if err != nil {
		ux.Error(fmt.Sprintf("list runs: %v", err))
		os.Exit(1)
	}

	if runsListJSON {
		if runs == nil {
			runs = []badgerstore.RunSummary{}
		}
		outputJSON(runs)
		return
	}
	if len(runs) == 0 {
		ux.Info("No archived runs")
		return
	}
	fmt.Printf("%-36s  %-16s  %-19s  %10s  %7s  %s\n",
		"RUN ID", "TARGET", "GENERATED", "BITS", "Z", "STATUS")
	for _, r := range runs {
		fmt.Printf("%-36s  %-16s  %-19s  %10.2f  %7.2f  %s\n",
			r.RunID, r.Target, r.GeneratedAt.Format("2006-01-02 15:04:05"),
			r.IndexBits, r.ZScore, r.Status)
	}
}

// runRunsShow prints the archived report for one run.
func runRunsShow(cmd *cobra.Command, args []string) {
	runID := args[0]
	cfg := mustLoadConfig()
	logger := newRunLogger(cfg)
	defer logger.Close()

	store, err := openArchive(cfg, logger)
	if err != nil {
		ux.Error(fmt.Sprintf("archive: %v", err))
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rep, err := store.GetReport(ctx, runID)
	if err != nil {
		if errors.Is(err, badgerstore.ErrRunNotFound) {
			ux.Error(fmt.Sprintf("run %s not found in archive", runID))
		} else {
			ux.Error(fmt.Sprintf("load report: %v", err))
		}
		os.Exit(1)
	}

	if runsShowJSON {
		outputJSON(rep)
	} else {
		outputReport(rep)
	}

	if runsShowEnsemble {
		ens, err := store.GetEnsemble(ctx, runID)
		if err != nil {
			if errors.Is(err, badgerstore.ErrRunNotFound) {
				ux.Warning("no ensemble archived for this run")
				return
			}
			ux.Error(fmt.Sprintf("load ensemble: %v", err))
			os.Exit(1)
		}
		if runsShowJSON {
			outputJSON(ens)
		} else {
			outputEnsembleStats(ens)
		}
	}
}
