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

import "fmt"

// Stage identifies a phase of the assembly-index pipeline. A checkpoint
// stores the stage that should execute next, so checkpoints written at a
// stage boundary resume cleanly into the following stage.
type Stage string

const (
	// StageIngest loads the observed snapshot sequence.
	StageIngest Stage = "Ingest"

	// StageFieldReconstruction smooths raw snapshots into density
	// estimates.
	StageFieldReconstruction Stage = "FieldReconstruction"

	// StageMutualInformation runs the pairwise estimates and integrates
	// the observed index.
	StageMutualInformation Stage = "MutualInformation"

	// StageCalibration builds the null ensemble.
	StageCalibration Stage = "Calibration"

	// StageSignificanceReport evaluates significance and writes the
	// report.
	StageSignificanceReport Stage = "SignificanceReport"

	// StageDone marks a completed run.
	StageDone Stage = "Done"

	// StageFailed marks a run aborted by a stage error. The failing
	// stage is recorded separately so a resume can retry it.
	StageFailed Stage = "Failed"
)

// stageOrder is the forward path through the pipeline.
var stageOrder = []Stage{
	StageIngest,
	StageFieldReconstruction,
	StageMutualInformation,
	StageCalibration,
	StageSignificanceReport,
	StageDone,
}

// Valid reports whether s names a defined stage.
func (s Stage) Valid() bool {
	if s == StageFailed {
		return true
	}
	for _, st := range stageOrder {
		if s == st {
			return true
		}
	}
	return false
}

// Terminal reports whether the pipeline stops at s.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// Next returns the stage that follows s on the forward path. Terminal
// and unknown stages have no successor.
func (s Stage) Next() (Stage, bool) {
	for i, st := range stageOrder {
		if s == st && i+1 < len(stageOrder) {
			return stageOrder[i+1], true
		}
	}
	return s, false
}

// ParseStage validates a stage name from external input.
func ParseStage(s string) (Stage, error) {
	st := Stage(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStage, s)
	}
	return st, nil
}
