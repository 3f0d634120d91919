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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath   string
	logLevelFlag string // CLI override for observability.log_level
	logDirFlag   string
	quietFlag    bool

	analyzeCatalog  string
	analyzeDemo     bool
	analyzeTarget   string
	analyzeSeed     uint64
	analyzeEnsemble int
	analyzeWorkers  int
	analyzeJSON     bool

	resumeCheckpoint string
	resumeCatalog    string
	resumeJSON       bool

	calibrateOutput   string
	calibrateEnsemble int
	calibrateWorkers  int
	calibrateSeed     uint64
	calibrateJSON     bool

	verifySamples int
	verifySeed    uint64
	verifyJSON    bool

	runsListJSON     bool
	runsShowJSON     bool
	runsShowEnsemble bool

	servePort  int
	serveDebug bool

	rootCmd = &cobra.Command{
		Use:   "accrete",
		Short: "Assembly-index analysis for cosmological accretion histories",
		Long: `Accrete reconstructs a halo's accretion history as a sequence of
				density fields, integrates the mutual information carried from
				epoch to epoch into an assembly index, and calibrates that index
				against randomized null ensembles to judge its significance.`,
	}

	// --- Pipeline ---
	analyzeCmd = &cobra.Command{
		Use:   "analyze",
		Short: "Run the full pipeline on an accretion history",
		Long: `Analyze ingests a snapshot catalog (or generates a synthetic demo
				history), reconstructs smoothed density fields, integrates the
				assembly index, and calibrates it against a null ensemble. The
				report is written to the results directory and, when archiving
				is enabled, to the local archive and GCS. Progress goes to
				stderr; pass --quiet to silence logs so only progress remains.`,
		Run: runAnalyze, // Defined in cmd_analyze.go
	}
	resumeCmd = &cobra.Command{
		Use:   "resume",
		Short: "Resume an interrupted run from its checkpoint",
		Run:   runResume, // Defined in cmd_resume.go
	}

	// --- Calibration ---
	calibrateCmd = &cobra.Command{
		Use:   "calibrate",
		Short: "Build a null ensemble without analyzing an observed history",
		Long: `Calibrate resolves a full null ensemble for the configured
				geometry and writes it as JSON. A precomputed ensemble is useful
				for inspecting the null distribution on its own.`,
		Run: runCalibrate, // Defined in cmd_calibrate.go
	}
	verifyCmd = &cobra.Command{
		Use:   "verify",
		Short: "Run estimator self-checks",
		Long: `Verify exercises the entropy estimator against known answers:
				the self-information of a sample must sit at the estimator's
				saturation bound, independent samples must carry near-zero
				mutual information, and repeated runs must agree bit for bit.`,
		Run: runVerify, // Defined in cmd_verify.go
	}

	// --- Archive ---
	runsCmd = &cobra.Command{
		Use:   "runs",
		Short: "Inspect archived runs",
	}
	runsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List archived runs, newest first",
		Run:   runRunsList, // Defined in cmd_runs.go
	}
	runsShowCmd = &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show the archived report for a run",
		Args:  cobra.ExactArgs(1),
		Run:   runRunsShow, // Defined in cmd_runs.go
	}

	// --- Server ---
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the run archive over HTTP",
		Long: `Serve exposes the local run archive through a read-only JSON
				API: run listings, reports, and null ensembles. Runs are created
				by the pipeline, never through this surface.`,
		Run: runServe, // Defined in cmd_serve.go
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run:   runVersion, // Defined in cmd_version.go
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to a YAML or JSON config file (default: built-in defaults plus ACCRETE_* env)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level override: debug, info, warn, or error")
	rootCmd.PersistentFlags().StringVar(&logDirFlag, "log-dir", "",
		"Also write JSON logs to this directory")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false,
		"Suppress stderr logging (file logging still applies)")

	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeCatalog, "catalog", "",
		"Path to a snapshot catalog JSON file")
	analyzeCmd.Flags().BoolVar(&analyzeDemo, "demo", false,
		"Generate a synthetic accretion history instead of reading a catalog")
	analyzeCmd.Flags().StringVar(&analyzeTarget, "target", "",
		"Target label override for reports and filenames")
	analyzeCmd.Flags().Uint64Var(&analyzeSeed, "seed", 0,
		"Top-level seed override; every random stream derives from it")
	analyzeCmd.Flags().IntVar(&analyzeEnsemble, "ensemble", 0,
		"Null ensemble size override")
	analyzeCmd.Flags().IntVar(&analyzeWorkers, "workers", 0,
		"Calibration worker count override")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false,
		"Print the report as JSON instead of the formatted summary")

	rootCmd.AddCommand(resumeCmd)
	resumeCmd.Flags().StringVar(&resumeCheckpoint, "checkpoint", "",
		"Path to the checkpoint file to resume from (required)")
	resumeCmd.Flags().StringVar(&resumeCatalog, "catalog", "",
		"Catalog path, needed only when the original catalog run died during ingest")
	resumeCmd.Flags().BoolVar(&resumeJSON, "json", false,
		"Print the report as JSON instead of the formatted summary")
	resumeCmd.MarkFlagRequired("checkpoint")

	rootCmd.AddCommand(calibrateCmd)
	calibrateCmd.Flags().StringVarP(&calibrateOutput, "output", "o", "",
		"Output filename (default: ensemble_{seed}.json)")
	calibrateCmd.Flags().IntVar(&calibrateEnsemble, "ensemble", 0,
		"Null ensemble size override")
	calibrateCmd.Flags().IntVar(&calibrateWorkers, "workers", 0,
		"Calibration worker count override")
	calibrateCmd.Flags().Uint64Var(&calibrateSeed, "seed", 0,
		"Top-level seed override")
	calibrateCmd.Flags().BoolVar(&calibrateJSON, "json", false,
		"Print ensemble statistics as JSON")

	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().IntVar(&verifySamples, "samples", 1024,
		"Sample size for each self-check")
	verifyCmd.Flags().Uint64Var(&verifySeed, "seed", 42,
		"Seed for the self-check samples")
	verifyCmd.Flags().BoolVar(&verifyJSON, "json", false,
		"Print check results as JSON")

	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsListCmd.Flags().BoolVar(&runsListJSON, "json", false,
		"Print the run list as JSON")
	runsCmd.AddCommand(runsShowCmd)
	runsShowCmd.Flags().BoolVar(&runsShowJSON, "json", false,
		"Print the report as JSON instead of the formatted summary")
	runsShowCmd.Flags().BoolVar(&runsShowEnsemble, "ensemble", false,
		"Include null ensemble statistics")

	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080,
		"Port to listen on")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false,
		"Run the HTTP engine in debug mode")

	rootCmd.AddCommand(versionCmd)
}
