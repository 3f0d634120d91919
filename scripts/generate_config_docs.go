// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// generate_config_docs generates a markdown reference for the accrete
// configuration file from the compiled-in defaults.
//
// Usage:
//
//	go run scripts/generate_config_docs.go > docs/config_reference.md
//
// The generated documentation includes:
//   - The full default configuration as YAML
//   - A key-by-key table with defaults, env overrides, and descriptions
//   - Precedence rules (env > file > defaults)
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/accrete/services/assembly/config"
)

// keyInfo documents one configuration key.
type keyInfo struct {
	Description string
	EnvVar      string
}

// keyDocs maps dotted YAML paths to their documentation. Keys absent here
// still appear in the table with an empty description, so a new config
// field never silently vanishes from the reference.
var keyDocs = map[string]keyInfo{
	"target": {"Label for the analyzed object, used in reports and filenames", "ACCRETE_TARGET"},
	"seed":   {"Top-level seed every random stream derives from", "ACCRETE_SEED"},

	"grid.resolution":      {"Voxels per axis of the analysis grid", ""},
	"grid.smoothing_sigma": {"Gaussian smoothing width in voxel units (0 disables)", ""},

	"estimator.neighbor_k":        {"k for the k-nearest-neighbor entropy estimator", ""},
	"estimator.sample_size":       {"Voxel samples drawn per field for estimation", "ACCRETE_SAMPLE_SIZE"},
	"estimator.norm":              {"Distance norm: chebyshev or euclidean", ""},
	"estimator.clamp_negative_mi": {"Clamp negative mutual information estimates to zero", ""},

	"integration.quadrature":         {"Quadrature rule: trapezoid or simpson", ""},
	"integration.adaptive_threshold": {"Relative step change above which a refinement warning logs", ""},

	"null_model.mass":        {"Halo mass in Msun for synthetic null histories", ""},
	"null_model.z_start":     {"Initial redshift of generated histories", ""},
	"null_model.z_end":       {"Final redshift of generated histories", ""},
	"null_model.snapshots":   {"Snapshots per generated history", ""},
	"null_model.noise_sigma": {"Lognormal noise amplitude in the null evolution", ""},

	"calibration.ensemble_size":          {"Null ensemble members per calibration", "ACCRETE_ENSEMBLE_SIZE"},
	"calibration.workers":                {"Parallel workers resolving null members", "ACCRETE_WORKERS"},
	"calibration.min_success_fraction":   {"Minimum fraction of members that must resolve", ""},
	"calibration.significance_threshold": {"z-score above which a run is INTEGRATED", ""},
	"calibration.checkpoint_every":       {"Members between calibration checkpoints (0 = end only)", ""},

	"pipeline.checkpoint_dir": {"Directory for run checkpoints", "ACCRETE_CHECKPOINT_DIR"},
	"pipeline.results_dir":    {"Directory for report JSON files", "ACCRETE_RESULTS_DIR"},

	"archive.enabled":              {"Archive finished reports after each run", "ACCRETE_ARCHIVE_ENABLED"},
	"archive.dir":                  {"Local archive database directory", ""},
	"archive.gcs.bucket":           {"GCS bucket for report uploads (empty disables)", "ACCRETE_GCS_BUCKET"},
	"archive.gcs.prefix":           {"Object key prefix inside the bucket", ""},
	"archive.gcs.credentials_file": {"Service account JSON path (empty uses ADC)", ""},

	"observability.tracing_enabled": {"Emit OpenTelemetry traces", "ACCRETE_TRACING_ENABLED"},
	"observability.metrics_enabled": {"Emit OpenTelemetry metrics", "ACCRETE_METRICS_ENABLED"},
	"observability.log_level":       {"Log level: debug, info, warn, or error", "ACCRETE_LOG_LEVEL"},
	"observability.log_json":        {"Log as JSON instead of text", ""},
	"observability.service_name":    {"Service name attached to logs, traces, and metrics", ""},
	"observability.trace_exporter":  {"Trace exporter: otlp, stdout, or none", ""},
	"observability.metric_exporter": {"Metric exporter: prometheus, stdout, or none", ""},
	"observability.otlp_endpoint":   {"OTLP gRPC collector endpoint", ""},
	"observability.prometheus_port": {"Sidecar /metrics port for batch commands (0 disables)", ""},
}

// configKey is one leaf of the default configuration, in file order.
type configKey struct {
	Path    string
	Default string
}

func main() {
	cfg := config.Default()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling default config: %v\n", err)
		os.Exit(1)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		fmt.Fprintf(os.Stderr, "Error reparsing default config: %v\n", err)
		os.Exit(1)
	}

	keys := collectKeys(root.Content[0], "")
	generateMarkdown(keys, string(data))
}

// collectKeys walks a YAML mapping and returns its leaves in file order.
func collectKeys(node *yaml.Node, prefix string) []configKey {
	var keys []configKey
	if node.Kind != yaml.MappingNode {
		return keys
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		value := node.Content[i+1]
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}

		if value.Kind == yaml.MappingNode {
			keys = append(keys, collectKeys(value, path)...)
			continue
		}
		keys = append(keys, configKey{Path: path, Default: value.Value})
	}
	return keys
}

// generateMarkdown outputs the full markdown reference.
func generateMarkdown(keys []configKey, defaultYAML string) {
	fmt.Println("# Configuration Reference")
	fmt.Println()
	fmt.Println("## Overview")
	fmt.Println()
	fmt.Println("This document describes every key accepted in an accrete configuration file.")
	fmt.Println("The file may be YAML or JSON; pass it with `accrete --config <path>`.")
	fmt.Println("Precedence is environment > file > compiled-in defaults.")
	fmt.Println()
	fmt.Printf("**Generated:** %s\n", time.Now().Format("2006-01-02 15:04:05 UTC"))
	fmt.Println()

	envOverridable := 0
	for _, k := range keys {
		if keyDocs[k.Path].EnvVar != "" {
			envOverridable++
		}
	}

	fmt.Println("## Summary")
	fmt.Println()
	fmt.Println("| Metric | Count |")
	fmt.Println("|--------|-------|")
	fmt.Printf("| Total Keys | %d |\n", len(keys))
	fmt.Printf("| Env-Overridable Keys | %d |\n", envOverridable)
	fmt.Printf("| Sections | %d |\n", countSections(keys))
	fmt.Println()

	fmt.Println("## Default Configuration")
	fmt.Println()
	fmt.Println("```yaml")
	fmt.Print(defaultYAML)
	fmt.Println("```")
	fmt.Println()

	fmt.Println("---")
	fmt.Println()
	fmt.Println("## Key Reference")
	fmt.Println()
	fmt.Println("| Key | Default | Env Override | Description |")
	fmt.Println("|-----|---------|--------------|-------------|")
	for _, k := range keys {
		doc := keyDocs[k.Path]
		def := k.Default
		if def == "" {
			def = `""`
		}
		env := doc.EnvVar
		if env == "" {
			env = "-"
		}
		fmt.Printf("| `%s` | `%s` | %s | %s |\n", k.Path, def, env, doc.Description)
	}
	fmt.Println()

	fmt.Println("---")
	fmt.Println()
	fmt.Println("## Notes")
	fmt.Println()
	fmt.Println("- Values are validated on load; an invalid merged configuration aborts the command.")
	fmt.Println("- `archive.enabled: true` requires at least one destination (`archive.dir` or `archive.gcs.bucket`).")
	fmt.Println("- Boolean env overrides accept `true`/`1`.")
}

// countSections counts distinct top-level sections among the keys.
func countSections(keys []configKey) int {
	seen := map[string]bool{}
	for _, k := range keys {
		top := k.Path
		if i := strings.Index(top, "."); i >= 0 {
			top = top[:i]
		}
		seen[top] = true
	}
	return len(seen)
}
