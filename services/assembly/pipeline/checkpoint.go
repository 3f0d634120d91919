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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"golang.org/x/mod/semver"

	"github.com/AleutianAI/accrete/services/assembly/calibration"
	"github.com/AleutianAI/accrete/services/assembly/field"
	"github.com/AleutianAI/accrete/services/assembly/integrate"
)

// validRunIDPattern defines valid characters for run IDs: alphanumeric,
// underscore, hyphen.
var validRunIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// CheckpointVersion is the current checkpoint format version (semver).
// A checkpoint resumes only into a pipeline running the same version.
const CheckpointVersion = "1.0.0"

// State is the JSON-serializable snapshot of a run at a stage boundary.
// Stage names the stage that executes next; the data fields hold
// whatever earlier stages produced.
type State struct {
	RunID     string `json:"run_id"`
	StartedAt int64  `json:"started_at"` // Unix milliseconds UTC
	Stage     Stage  `json:"stage"`
	Params    Params `json:"params"`

	// Sequence holds the snapshot data once Ingest has run; after
	// FieldReconstruction it holds the reconstructed fields.
	Sequence *SequenceState `json:"sequence,omitempty"`

	// Observed holds the integrated index once MutualInformation has
	// run.
	Observed *integrate.Result `json:"observed,omitempty"`

	// Ensemble holds the null ensemble, partial while Calibration is in
	// progress.
	Ensemble *calibration.Ensemble `json:"ensemble,omitempty"`

	// FailedStage and Error record what aborted a failed run.
	FailedStage Stage  `json:"failed_stage,omitempty"`
	Error       string `json:"error,omitempty"`
}

// SequenceState is the serialized form of a temporal sequence.
type SequenceState struct {
	Resolution int             `json:"resolution"`
	Snapshots  []SnapshotState `json:"snapshots"`
}

// SnapshotState is one serialized snapshot. Data is the base64 voxel
// encoding from the field package.
type SnapshotState struct {
	Redshift   float64 `json:"redshift"`
	CosmicTime float64 `json:"cosmic_time_gyr"`
	Mass       float64 `json:"mass"`
	Data       string  `json:"data"`
}

// encodeSequence captures a sequence for checkpointing, preserving exact
// float bits.
func encodeSequence(seq *field.Sequence) *SequenceState {
	ss := &SequenceState{
		Resolution: seq.Resolution(),
		Snapshots:  make([]SnapshotState, seq.Len()),
	}
	for i := 0; i < seq.Len(); i++ {
		f := seq.At(i)
		ss.Snapshots[i] = SnapshotState{
			Redshift:   f.Redshift(),
			CosmicTime: f.CosmicTime(),
			Mass:       f.Mass(),
			Data:       field.EncodeValues(f.Data()),
		}
	}
	return ss
}

// Decode rebuilds the temporal sequence from its serialized form.
func (ss *SequenceState) Decode() (*field.Sequence, error) {
	if ss == nil {
		return nil, fmt.Errorf("%w: state carries no sequence", ErrInvalidInput)
	}
	fields := make([]*field.Field, len(ss.Snapshots))
	for i, sn := range ss.Snapshots {
		data, err := field.DecodeValues(sn.Data)
		if err != nil {
			return nil, fmt.Errorf("snapshot %d: %w", i, err)
		}
		f, err := field.FromRaw(data, ss.Resolution, field.Meta{
			Redshift:   sn.Redshift,
			CosmicTime: sn.CosmicTime,
			Mass:       sn.Mass,
		})
		if err != nil {
			return nil, fmt.Errorf("snapshot %d: %w", i, err)
		}
		fields[i] = f
	}
	return field.NewSequence(fields...)
}

// Checkpoint is a verified on-disk snapshot of a run.
type Checkpoint struct {
	State     *State
	Timestamp time.Time
	Version   string
	Checksum  string
}

// serializableCheckpoint is the on-disk format for checkpoints.
type serializableCheckpoint struct {
	State     *State    `json:"state"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Checksum  string    `json:"checksum"`
}

// computeChecksum calculates SHA256 of the state for integrity
// verification. The checksum field itself is excluded.
func computeChecksum(state *State, timestamp time.Time) (string, error) {
	data := struct {
		State     *State    `json:"state"`
		Timestamp time.Time `json:"timestamp"`
		Version   string    `json:"version"`
	}{
		State:     state,
		Timestamp: timestamp,
		Version:   CheckpointVersion,
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal for checksum: %w", err)
	}

	hash := sha256.Sum256(jsonData)
	return hex.EncodeToString(hash[:]), nil
}

// Save serializes a run state to a file.
//
// Description:
//
//	Writes atomically using temp file + sync + rename, so a crash mid
//	write never leaves a partial checkpoint where a valid one stood.
//
// Inputs:
//
//	state - The run state. Must not be nil and must name a valid stage.
//	path - File path to write. Parent directory must exist.
//
// Outputs:
//
//	error - Non-nil if validation, serialization, or the file write
//	fails.
func Save(state *State, path string) error {
	if state == nil {
		return fmt.Errorf("%w: state must not be nil", ErrInvalidInput)
	}
	if state.RunID == "" {
		return fmt.Errorf("%w: run ID must not be empty", ErrInvalidInput)
	}
	if !validRunIDPattern.MatchString(state.RunID) {
		return fmt.Errorf("%w: run ID must match pattern [a-zA-Z0-9_-]+, got %q", ErrInvalidInput, state.RunID)
	}
	if !state.Stage.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStage, state.Stage)
	}
	if path == "" {
		return fmt.Errorf("%w: path must not be empty", ErrInvalidInput)
	}

	timestamp := time.Now().UTC()
	checksum, err := computeChecksum(state, timestamp)
	if err != nil {
		return fmt.Errorf("compute checksum: %w", err)
	}

	checkpoint := &serializableCheckpoint{
		State:     state,
		Timestamp: timestamp,
		Version:   CheckpointVersion,
		Checksum:  checksum,
	}

	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	dir := filepath.Dir(path)
	tempFile, err := os.CreateTemp(dir, ".checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("write checkpoint: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("sync checkpoint: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close checkpoint: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}

	success = true
	return nil
}

// Load reads and verifies a checkpoint from a file.
//
// Description:
//
//	Verifies the format version and the state checksum before returning
//	anything. No partial or ambiguous checkpoint is ever treated as
//	valid.
//
// Outputs:
//
//	*Checkpoint - The loaded checkpoint. Never nil on success.
//	error - ErrCheckpointVersionMismatch, ErrCheckpointCorrupt, or
//	ErrInvalidStage on verification failure; otherwise the underlying
//	read or parse error.
func Load(path string) (*Checkpoint, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: path must not be empty", ErrInvalidInput)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	var sc serializableCheckpoint
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}

	if sc.Version != CheckpointVersion {
		diag := "incompatible with"
		if semver.IsValid("v"+sc.Version) && semver.IsValid("v"+CheckpointVersion) {
			switch semver.Compare("v"+sc.Version, "v"+CheckpointVersion) {
			case -1:
				diag = "older than"
			case 1:
				diag = "newer than"
			}
		}
		return nil, fmt.Errorf("%w: checkpoint version %s is %s running version %s",
			ErrCheckpointVersionMismatch, sc.Version, diag, CheckpointVersion)
	}

	expectedChecksum, err := computeChecksum(sc.State, sc.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("compute checksum for verification: %w", err)
	}
	if sc.Checksum != expectedChecksum {
		return nil, ErrCheckpointCorrupt
	}

	if sc.State == nil {
		return nil, ErrCheckpointCorrupt
	}
	if !sc.State.Stage.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStage, sc.State.Stage)
	}

	return &Checkpoint{
		State:     sc.State,
		Timestamp: sc.Timestamp,
		Version:   sc.Version,
		Checksum:  sc.Checksum,
	}, nil
}

// Verify checks the checkpoint's integrity.
//
// Description:
//
//	Recalculates the checksum and compares it to the stored value.
//	Returns true if the checkpoint is valid.
func (c *Checkpoint) Verify() bool {
	if c == nil || c.State == nil {
		return false
	}
	expected, err := computeChecksum(c.State, c.Timestamp)
	if err != nil {
		return false
	}
	return c.Checksum == expected
}
