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
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/AleutianAI/accrete/pkg/logging"
	"github.com/AleutianAI/accrete/pkg/ux"
	"github.com/AleutianAI/accrete/services/assembly/calibration"
	"github.com/AleutianAI/accrete/services/assembly/config"
	"github.com/AleutianAI/accrete/services/assembly/pipeline"
	"github.com/AleutianAI/accrete/services/assembly/report"
	"github.com/AleutianAI/accrete/services/assembly/storage/badgerstore"
	"github.com/AleutianAI/accrete/services/assembly/telemetry"
)

// =============================================================================
// COMMAND BOOTSTRAP
// =============================================================================

// mustLoadConfig merges defaults, the optional --config file, ACCRETE_*
// environment overrides, and persistent CLI flags. Exits on bad input.
func mustLoadConfig() config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		ux.Error(fmt.Sprintf("configuration: %v", err))
		os.Exit(1)
	}
	if logLevelFlag != "" {
		cfg.Observability.LogLevel = logLevelFlag
		if err := cfg.Validate(); err != nil {
			ux.Error(fmt.Sprintf("configuration: %v", err))
			os.Exit(1)
		}
	}
	return cfg
}

// newRunLogger builds the process logger from config and persistent
// flags. Callers own Close.
func newRunLogger(cfg config.Config) *logging.Logger {
	level, err := logging.ParseLevel(cfg.Observability.LogLevel)
	if err != nil {
		level = logging.LevelInfo
	}
	return logging.New(logging.Config{
		Level:   level,
		LogDir:  logDirFlag,
		Service: cfg.Observability.ServiceName,
		JSON:    cfg.Observability.LogJSON,
		Quiet:   quietFlag,
	})
}

// setupTelemetry starts tracing and metrics per config and returns the
// flush-and-shutdown function. Telemetry failures never stop a run.
func setupTelemetry(ctx context.Context, cfg config.Config, logger *logging.Logger) func() {
	shutdown, err := telemetry.Init(ctx, cfg.Telemetry())
	if err != nil {
		logger.Warn("telemetry init failed, continuing without", "error", err)
		return func() {}
	}
	return func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}
}

// startMetricsServer exposes /metrics during long batch runs so a
// scraper can follow calibration progress. No-op unless the prometheus
// exporter is active.
func startMetricsServer(cfg config.Config, logger *logging.Logger) {
	if !cfg.Observability.MetricsEnabled || cfg.Observability.PrometheusPort <= 0 {
		return
	}
	handler := telemetry.MetricsHandler()
	if handler == nil {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	addr := fmt.Sprintf(":%d", cfg.Observability.PrometheusPort)
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Warn("metrics endpoint unavailable", "addr", addr, "error", err)
		}
	}()
	logger.Info("metrics endpoint started", "addr", addr)
}

// openArchive opens the local badger archive configured at archive.dir.
func openArchive(cfg config.Config, logger *logging.Logger) (*badgerstore.Store, error) {
	if cfg.Archive.Dir == "" {
		return nil, fmt.Errorf("no archive directory configured (set archive.dir)")
	}
	scfg := badgerstore.DefaultConfig()
	scfg.Path = cfg.Archive.Dir
	scfg.Logger = logger.Slog()
	return badgerstore.Open(scfg)
}

// stageMessage translates pipeline stages into progress text.
func stageMessage(stage pipeline.Stage) string {
	switch stage {
	case pipeline.StageIngest:
		return "Loading snapshot sequence"
	case pipeline.StageFieldReconstruction:
		return "Reconstructing density fields"
	case pipeline.StageMutualInformation:
		return "Integrating the assembly index"
	case pipeline.StageCalibration:
		return "Calibrating against the null ensemble"
	case pipeline.StageSignificanceReport:
		return "Assessing significance"
	default:
		return string(stage)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// =============================================================================
// OUTPUT FORMATTING
// =============================================================================

// outputJSON writes v as indented JSON for scripting and automation.
func outputJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		os.Exit(1)
	}
}

// outputReport renders the human-readable report summary.
func outputReport(rep *report.Report) {
	width := 66

	printBoxTop(width)
	printBoxCenter("ACCRETE ASSEMBLY REPORT", width)
	printBoxCenter(fmt.Sprintf("Generated: %s", rep.GeneratedAt.Format("2006-01-02 15:04:05")), width)
	printBoxSeparator(width)

	printBoxLine(fmt.Sprintf("Target: %s", rep.Target), width)
	printBoxLine(fmt.Sprintf("Run:    %s", rep.RunID), width)
	printBoxLine(fmt.Sprintf("Seed:   %d", rep.Seed), width)
	printBoxSeparator(width)

	printBoxLine(fmt.Sprintf("Mass: %.2e Msun   Grid: %d^3   Snapshots: %d",
		rep.Mass, rep.Resolution, rep.Snapshots), width)
	printBoxLine(fmt.Sprintf("Redshift: z=%.2f to z=%.2f   Span: %.2f to %.2f Gyr",
		rep.RedshiftRange[0], rep.RedshiftRange[1],
		rep.TimeSpanGyr[0], rep.TimeSpanGyr[1]), width)
	printBoxSeparator(width)

	printBoxLine(fmt.Sprintf("Assembly index: %.2f +/- %.2f bits",
		rep.IndexBits, rep.SystematicErrorBits), width)

	if a := rep.Assessment; a != nil {
		printBoxLine(fmt.Sprintf("Null ensemble:  %.2f +/- %.2f bits (%d members)",
			a.NullMean, a.NullStd, a.EnsembleSize), width)
		printBoxLine(fmt.Sprintf("z-score: %.2f   p-value: %.3g   percentile: %.1f",
			a.ZScore, a.PValue, a.Percentile), width)
		printBoxSeparator(width)

		icon := statusIcon(a.Status)
		color := statusColor(a.Status)
		printBoxLine(fmt.Sprintf("Verdict: %s%s %s%s (threshold z > %.2f)",
			color, icon, a.Status, colorReset, a.Threshold), width)
	}

	printBoxBottom(width)
}

// outputEnsembleStats renders null ensemble summary statistics.
func outputEnsembleStats(ens *calibration.Ensemble) {
	mean, std := ens.Stats()
	ux.Title("Null ensemble")
	ux.KeyValue("seed", fmt.Sprintf("%d", ens.Seed))
	ux.KeyValue("members", fmt.Sprintf("%d of %d", ens.Size(), ens.Target))
	ux.KeyValue("failed", fmt.Sprintf("%d", len(ens.Failed)))
	ux.KeyValue("mean", fmt.Sprintf("%.3f bits", mean))
	ux.KeyValue("std", fmt.Sprintf("%.3f bits", std))
}

// =============================================================================
// BOX DRAWING HELPERS
// =============================================================================

const (
	boxTopLeft     = "╔"
	boxTopRight    = "╗"
	boxBottomLeft  = "╚"
	boxBottomRight = "╝"
	boxHorizontal  = "═"
	boxVertical    = "║"
	boxLeftT       = "╠"
	boxRightT      = "╣"

	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func printBoxTop(width int) {
	fmt.Print(boxTopLeft)
	for i := 0; i < width-2; i++ {
		fmt.Print(boxHorizontal)
	}
	fmt.Println(boxTopRight)
}

func printBoxBottom(width int) {
	fmt.Print(boxBottomLeft)
	for i := 0; i < width-2; i++ {
		fmt.Print(boxHorizontal)
	}
	fmt.Println(boxBottomRight)
}

func printBoxSeparator(width int) {
	fmt.Print(boxLeftT)
	for i := 0; i < width-2; i++ {
		fmt.Print(boxHorizontal)
	}
	fmt.Println(boxRightT)
}

func printBoxLine(content string, width int) {
	// Pad by visible length so ANSI codes do not skew the border.
	visibleLen := visibleLength(content)
	padding := width - 4 - visibleLen
	if padding < 0 {
		padding = 0
	}

	fmt.Printf("%s %s%s %s\n", boxVertical, content, strings.Repeat(" ", padding), boxVertical)
}

func printBoxCenter(content string, width int) {
	visibleLen := visibleLength(content)
	totalPadding := width - 4 - visibleLen
	if totalPadding < 0 {
		totalPadding = 0
	}
	leftPad := totalPadding / 2
	rightPad := totalPadding - leftPad

	fmt.Printf("%s %s%s%s %s\n", boxVertical,
		strings.Repeat(" ", leftPad), content, strings.Repeat(" ", rightPad), boxVertical)
}

// visibleLength returns the visible length of a string, excluding ANSI escape codes.
func visibleLength(s string) int {
	inEscape := false
	visible := 0
	for _, r := range s {
		if r == '\033' {
			inEscape = true
			continue
		}
		if inEscape {
			if r == 'm' {
				inEscape = false
			}
			continue
		}
		visible++
	}
	return visible
}

// =============================================================================
// STATUS FORMATTING
// =============================================================================

func statusIcon(status calibration.Status) string {
	switch status {
	case calibration.StatusIntegrated:
		return ux.IconSuccess
	case calibration.StatusParticipatory:
		return ux.IconWarning
	case calibration.StatusRandom:
		return ux.IconPending
	default:
		return "?"
	}
}

func statusColor(status calibration.Status) string {
	switch status {
	case calibration.StatusIntegrated:
		return colorGreen
	case calibration.StatusParticipatory:
		return colorYellow
	case calibration.StatusRandom:
		return colorCyan
	default:
		return colorRed
	}
}
