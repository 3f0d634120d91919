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
	"math"
	"sort"
)

// Ensemble is the null distribution of assembly-index values.
//
// Values maps ensemble-member index to that member's index in bits.
// Member order carries no statistical weight but the indices are kept
// so a run can be resumed or audited member by member. Failed lists
// members that were attempted and excluded; a resumed build skips them
// rather than re-deriving the same deterministic failure.
//
// The struct serializes cleanly to JSON for checkpointing.
type Ensemble struct {
	// Seed is the top-level seed every member stream derives from.
	Seed uint64 `json:"seed"`

	// Target is the configured ensemble size M.
	Target int `json:"target"`

	// Values holds the index value of each successful member.
	Values map[int]float64 `json:"values"`

	// Failed holds member indices excluded after a member-level error.
	Failed []int `json:"failed,omitempty"`
}

// Size returns the number of successful members.
func (e *Ensemble) Size() int { return len(e.Values) }

// Complete reports whether every member has been resolved, either with
// a value or an exclusion.
func (e *Ensemble) Complete() bool {
	return e.Size()+len(e.Failed) >= e.Target
}

// MemberIndices returns the successful member indices in ascending order.
func (e *Ensemble) MemberIndices() []int {
	idx := make([]int, 0, len(e.Values))
	for i := range e.Values {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// Stats returns the ensemble mean and population standard deviation in
// bits. An empty ensemble yields (0, 0).
//
// Summation runs in ascending member order so the statistics are
// bit-identical across processes and resumes.
func (e *Ensemble) Stats() (mean, std float64) {
	idx := e.MemberIndices()
	n := float64(len(idx))
	if n == 0 {
		return 0, 0
	}
	for _, i := range idx {
		mean += e.Values[i]
	}
	mean /= n

	var ss float64
	for _, i := range idx {
		d := e.Values[i] - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / n)
}
