// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report defines the structured result a pipeline run hands to
// persistence and presentation layers.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/AleutianAI/accrete/services/assembly/calibration"
	"github.com/AleutianAI/accrete/services/assembly/integrate"
)

// ErrInvalidReport is returned for reports that cannot be persisted or
// parsed.
var ErrInvalidReport = errors.New("invalid report")

// Report is the complete record of one run: the observed index, the
// mutual-information series behind it, the null comparison, and the
// metadata needed to reproduce the run from scratch.
type Report struct {
	RunID       string    `json:"run_id"`
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`

	// Target is the analyzed object's label.
	Target string `json:"target"`

	// Seed reproduces every random draw of the run.
	Seed uint64 `json:"seed"`

	// Snapshot geometry and coverage.
	Mass          float64    `json:"mass"`
	Resolution    int        `json:"resolution"`
	Snapshots     int        `json:"snapshots"`
	RedshiftRange [2]float64 `json:"redshift_range"`
	TimeSpanGyr   [2]float64 `json:"time_span_gyr"`

	// IndexBits is the integrated assembly index, with its systematic
	// budget and the per-interval series it came from.
	IndexBits           float64          `json:"index_bits"`
	SystematicErrorBits float64          `json:"systematic_error_bits"`
	Steps               []integrate.Step `json:"steps"`

	// Assessment is the comparison against the null ensemble.
	Assessment *calibration.Assessment `json:"assessment"`

	// Parameters is the run's full parameter set, serialized verbatim.
	Parameters any `json:"parameters"`
}

// invalidNameChars matches everything not allowed in a report filename.
var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Filename returns the canonical report filename for this run.
func (r *Report) Filename() string {
	target := invalidNameChars.ReplaceAllString(r.Target, "_")
	if target == "" || target == "_" {
		target = "run"
	}
	id := r.RunID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("assembly_%s_%s.json", target, id)
}

// Writer persists reports as indented JSON under one directory.
type Writer struct {
	dir string
}

// NewWriter creates a Writer. The directory is created if missing.
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: results directory must not be empty", ErrInvalidReport)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create results directory: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Write persists the report and returns the path written.
func (w *Writer) Write(rep *Report) (string, error) {
	if rep == nil {
		return "", fmt.Errorf("%w: nil report", ErrInvalidReport)
	}
	if rep.RunID == "" {
		return "", fmt.Errorf("%w: missing run ID", ErrInvalidReport)
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	path := filepath.Join(w.dir, rep.Filename())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// Load reads a report back from disk.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}
	return &rep, nil
}
