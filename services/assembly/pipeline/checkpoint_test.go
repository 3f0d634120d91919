// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/AleutianAI/accrete/services/assembly/calibration"
	"github.com/AleutianAI/accrete/services/assembly/field"
)

// uniformSequence builds a small normalized sequence for serialization
// tests.
func uniformSequence(t *testing.T, res, n int) *field.Sequence {
	t.Helper()
	fields := make([]*field.Field, n)
	for i := 0; i < n; i++ {
		data := make([]float64, res*res*res)
		for j := range data {
			// Mild per-snapshot variation so snapshots differ.
			data[j] = 1 + 0.01*float64(i)*float64(j%7)
		}
		f, err := field.New(data, res, field.Meta{
			Redshift: float64(n - 1 - i),
			Mass:     5e11,
		})
		if err != nil {
			t.Fatalf("field.New: %v", err)
		}
		fields[i] = f
	}
	seq, err := field.NewSequence(fields...)
	if err != nil {
		t.Fatalf("NewSequence: %v", err)
	}
	return seq
}

func testState(t *testing.T) *State {
	t.Helper()
	return &State{
		RunID:     "run-0001",
		StartedAt: 1700000000000,
		Stage:     StageCalibration,
		Params:    DefaultParams(),
		Sequence:  encodeSequence(uniformSequence(t, 4, 3)),
		Ensemble: &calibration.Ensemble{
			Seed:   42,
			Target: 4,
			Values: map[int]float64{0: 1.25, 2: 1.5},
			Failed: []int{1},
		},
	}
}

func TestSave_Basic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	if err := Save(testState(t), path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("checkpoint file not created: %v", err)
	}
}

func TestSave_InvalidInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint.json")

	if err := Save(nil, path); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("nil state: expected ErrInvalidInput, got %v", err)
	}

	st := testState(t)
	st.RunID = ""
	if err := Save(st, path); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty run ID: expected ErrInvalidInput, got %v", err)
	}

	st = testState(t)
	st.RunID = "bad id/with stuff"
	if err := Save(st, path); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad run ID: expected ErrInvalidInput, got %v", err)
	}

	st = testState(t)
	st.Stage = Stage("Nonsense")
	if err := Save(st, path); !errors.Is(err, ErrInvalidStage) {
		t.Errorf("bad stage: expected ErrInvalidStage, got %v", err)
	}

	if err := Save(testState(t), ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty path: expected ErrInvalidInput, got %v", err)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	st := testState(t)

	if err := Save(st, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	cp, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cp.Version != CheckpointVersion {
		t.Errorf("version: got %s, want %s", cp.Version, CheckpointVersion)
	}
	if cp.State.RunID != st.RunID {
		t.Errorf("run ID: got %s, want %s", cp.State.RunID, st.RunID)
	}
	if cp.State.Stage != st.Stage {
		t.Errorf("stage: got %s, want %s", cp.State.Stage, st.Stage)
	}
	if !reflect.DeepEqual(cp.State.Ensemble, st.Ensemble) {
		t.Errorf("ensemble did not round-trip: %+v", cp.State.Ensemble)
	}
	if !reflect.DeepEqual(cp.State.Params, st.Params) {
		t.Errorf("params did not round-trip: %+v", cp.State.Params)
	}
	if !cp.Verify() {
		t.Error("loaded checkpoint should verify")
	}
}

func TestSaveLoad_SequenceBitsPreserved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	st := testState(t)
	orig, err := st.Sequence.Decode()
	if err != nil {
		t.Fatalf("Decode original: %v", err)
	}

	if err := Save(st, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	cp, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := cp.State.Sequence.Decode()
	if err != nil {
		t.Fatalf("Decode loaded: %v", err)
	}

	if got.Len() != orig.Len() || got.Resolution() != orig.Resolution() {
		t.Fatalf("sequence shape changed: %d/%d vs %d/%d",
			got.Len(), got.Resolution(), orig.Len(), orig.Resolution())
	}
	for i := 0; i < orig.Len(); i++ {
		a, b := orig.At(i).Data(), got.At(i).Data()
		for j := range a {
			if math.Float64bits(a[j]) != math.Float64bits(b[j]) {
				t.Fatalf("snapshot %d voxel %d changed bits", i, j)
			}
		}
		if orig.At(i).CosmicTime() != got.At(i).CosmicTime() {
			t.Errorf("snapshot %d cosmic time changed", i)
		}
	}
}

func TestLoad_VersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	if err := Save(testState(t), path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	tampered := strings.Replace(string(data), `"version": "`+CheckpointVersion+`"`, `"version": "0.9.0"`, 1)
	if tampered == string(data) {
		t.Fatal("version string not found in checkpoint")
	}
	if err := os.WriteFile(path, []byte(tampered), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err = Load(path)
	if !errors.Is(err, ErrCheckpointVersionMismatch) {
		t.Fatalf("expected ErrCheckpointVersionMismatch, got: %v", err)
	}
	if !strings.Contains(err.Error(), "older than") {
		t.Errorf("expected stale diagnostic in error, got: %v", err)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	if err := Save(testState(t), path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	tampered := strings.Replace(string(data), `"run_id": "run-0001"`, `"run_id": "run-0002"`, 1)
	if tampered == string(data) {
		t.Fatal("run ID not found in checkpoint")
	}
	if err := os.WriteFile(path, []byte(tampered), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Load(path); !errors.Is(err, ErrCheckpointCorrupt) {
		t.Fatalf("expected ErrCheckpointCorrupt, got: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped os.ErrNotExist, got: %v", err)
	}
}

func TestCheckpoint_VerifyDetectsMutation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	if err := Save(testState(t), path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	cp, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !cp.Verify() {
		t.Fatal("fresh checkpoint should verify")
	}
	cp.State.RunID = "mutated"
	if cp.Verify() {
		t.Error("mutated checkpoint should fail verification")
	}
}

func TestSequenceState_DecodeNil(t *testing.T) {
	var ss *SequenceState
	if _, err := ss.Decode(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got: %v", err)
	}
}
