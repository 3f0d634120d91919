// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AleutianAI/accrete/services/assembly/calibration"
	"github.com/AleutianAI/accrete/services/assembly/integrate"
)

func sampleReport() *Report {
	return &Report{
		RunID:               "0f4d9a2c-77b1-4e6f-9c3d-1f2e3a4b5c6d",
		Version:             "1.0.0",
		GeneratedAt:         time.Date(2025, 11, 3, 12, 30, 0, 0, time.UTC),
		Target:              "NGC-1275",
		Seed:                42,
		Mass:                5e11,
		Resolution:          64,
		Snapshots:           20,
		RedshiftRange:       [2]float64{20, 0},
		TimeSpanGyr:         [2]float64{0.1433, 13.8},
		IndexBits:           47.25,
		SystematicErrorBits: integrate.SystematicErrorBits,
		Steps: []integrate.Step{
			{TStart: 0.1433, TEnd: 0.25, ZFrom: 20, ZTo: 18.9, MIBits: 3.5},
			{TStart: 0.25, TEnd: 0.4, ZFrom: 18.9, ZTo: 17.8, MIBits: 3.75},
		},
		Assessment: &calibration.Assessment{
			Observed:     47.25,
			NullMean:     30.0,
			NullStd:      4.0,
			EnsembleSize: 200,
			ZScore:       4.3125,
			Threshold:    3.0,
			Significant:  true,
			Status:       calibration.StatusIntegrated,
		},
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		name   string
		target string
		runID  string
		want   string
	}{
		{"plain", "halo_042", "abcdef1234567890", "assembly_halo_042_abcdef12.json"},
		{"spaces and dots", "NGC 1275 v2.1", "abcdef1234567890", "assembly_NGC_1275_v2_1_abcdef12.json"},
		{"empty target", "", "abcdef1234567890", "assembly_run_abcdef12.json"},
		{"only junk", "///", "abcdef1234567890", "assembly_run_abcdef12.json"},
		{"short run id", "halo", "ab12", "assembly_halo_ab12.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Report{Target: tt.target, RunID: tt.runID}
			if got := r.Filename(); got != tt.want {
				t.Errorf("Filename() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	rep := sampleReport()
	path, err := w.Write(rep)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("report written outside results dir: %s", path)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.RunID != rep.RunID || got.Target != rep.Target || got.Seed != rep.Seed {
		t.Errorf("identity fields did not survive: %+v", got)
	}
	if got.IndexBits != rep.IndexBits {
		t.Errorf("index: got %v, want %v", got.IndexBits, rep.IndexBits)
	}
	if len(got.Steps) != len(rep.Steps) || got.Steps[1].MIBits != rep.Steps[1].MIBits {
		t.Errorf("step series did not survive: %+v", got.Steps)
	}
	if got.Assessment == nil || got.Assessment.ZScore != rep.Assessment.ZScore {
		t.Errorf("assessment did not survive: %+v", got.Assessment)
	}
	if got.Assessment.Status != calibration.StatusIntegrated {
		t.Errorf("status: got %s, want %s", got.Assessment.Status, calibration.StatusIntegrated)
	}
	if !got.GeneratedAt.Equal(rep.GeneratedAt) {
		t.Errorf("timestamp: got %v, want %v", got.GeneratedAt, rep.GeneratedAt)
	}
}

func TestWrite_Invalid(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	if _, err := w.Write(nil); !errors.Is(err, ErrInvalidReport) {
		t.Errorf("nil report: expected ErrInvalidReport, got %v", err)
	}
	rep := sampleReport()
	rep.RunID = ""
	if _, err := w.Write(rep); !errors.Is(err, ErrInvalidReport) {
		t.Errorf("missing run ID: expected ErrInvalidReport, got %v", err)
	}
}

func TestNewWriter_EmptyDir(t *testing.T) {
	if _, err := NewWriter(""); !errors.Is(err, ErrInvalidReport) {
		t.Errorf("expected ErrInvalidReport, got %v", err)
	}
}

func TestLoad_Malformed(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file should error")
	}

	path := filepath.Join(t.TempDir(), "garbage.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if _, err := Load(path); !errors.Is(err, ErrInvalidReport) {
		t.Errorf("expected ErrInvalidReport, got %v", err)
	}
}
