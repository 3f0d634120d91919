// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package calibration

import (
	"fmt"
	"math"
)

// Status is the qualitative reading of an observed index against the
// null distribution.
type Status string

// Classification bands. The band edges are fixed descriptive labels and
// do not move with the configurable significance threshold.
const (
	// StatusRandom: the observed index is consistent with memoryless
	// assembly.
	StatusRandom Status = "RANDOM"

	// StatusParticipatory: elevated but below firm significance.
	StatusParticipatory Status = "PARTICIPATORY"

	// StatusIntegrated: well outside the null distribution.
	StatusIntegrated Status = "INTEGRATED"
)

// classify maps a z-score to its descriptive band.
func classify(z float64) Status {
	switch {
	case z > 3:
		return StatusIntegrated
	case z > 1.5:
		return StatusParticipatory
	default:
		return StatusRandom
	}
}

// Assessment is the statistical comparison of one observed index with a
// null ensemble.
type Assessment struct {
	// Observed is the measured assembly index in bits.
	Observed float64 `json:"observed_index_bits"`

	// NullMean and NullStd summarize the ensemble in bits.
	NullMean float64 `json:"null_mean_bits"`
	NullStd  float64 `json:"null_std_bits"`

	// EnsembleSize is the number of successful members behind the
	// summary statistics.
	EnsembleSize int `json:"ensemble_size"`

	// ZScore is (observed - mean) / std.
	ZScore float64 `json:"z_score"`

	// PValue is the two-sided Gaussian tail probability of |ZScore|.
	PValue float64 `json:"p_value"`

	// Percentile locates the observed value within the null
	// distribution, in percent.
	Percentile float64 `json:"percentile"`

	// Threshold is the z-score the significance flag was judged at.
	Threshold float64 `json:"threshold"`

	// Significant reports ZScore > Threshold.
	Significant bool `json:"significant"`

	// Status is the descriptive band for ZScore.
	Status Status `json:"status"`
}

// Evaluate compares an observed index against a null ensemble.
//
// Description:
//
//	Forms z = (observed - mean) / std from the ensemble's population
//	statistics, derives the Gaussian two-sided p-value via the
//	complementary error function, and flags significance when z exceeds
//	the threshold.
//
// Outputs:
//   - *Assessment: the full comparison.
//   - error: ErrDegenerateEnsemble when the ensemble variance is zero,
//     which includes empty and single-member ensembles.
func Evaluate(observed float64, ens *Ensemble, threshold float64) (*Assessment, error) {
	if ens == nil {
		return nil, fmt.Errorf("%w: nil ensemble", ErrDegenerateEnsemble)
	}
	mean, std := ens.Stats()
	if std == 0 {
		return nil, fmt.Errorf("%w: %d members, mean %.6f bits", ErrDegenerateEnsemble, ens.Size(), mean)
	}

	z := (observed - mean) / std
	p := math.Erfc(math.Abs(z) / math.Sqrt2)

	return &Assessment{
		Observed:     observed,
		NullMean:     mean,
		NullStd:      std,
		EnsembleSize: ens.Size(),
		ZScore:       z,
		PValue:       p,
		Percentile:   100 * (1 - p/2),
		Threshold:    threshold,
		Significant:  z > threshold,
		Status:       classify(z),
	}, nil
}
