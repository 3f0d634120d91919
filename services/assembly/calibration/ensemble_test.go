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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsembleStats(t *testing.T) {
	ens := &Ensemble{Values: map[int]float64{0: 2, 1: 4, 2: 6}}
	mean, std := ens.Stats()
	assert.InDelta(t, 4.0, mean, 1e-12)
	assert.InDelta(t, math.Sqrt(8.0/3.0), std, 1e-12)
}

func TestEnsembleStatsEmpty(t *testing.T) {
	ens := &Ensemble{Values: map[int]float64{}}
	mean, std := ens.Stats()
	assert.Zero(t, mean)
	assert.Zero(t, std)
}

func TestEnsembleStatsConstant(t *testing.T) {
	ens := &Ensemble{Values: map[int]float64{0: 3.5, 1: 3.5, 2: 3.5, 3: 3.5}}
	mean, std := ens.Stats()
	assert.InDelta(t, 3.5, mean, 1e-12)
	assert.Zero(t, std)
}

func TestEnsembleMemberIndicesSorted(t *testing.T) {
	ens := &Ensemble{Values: map[int]float64{7: 1, 0: 2, 3: 3}}
	assert.Equal(t, []int{0, 3, 7}, ens.MemberIndices())
}

func TestEnsembleComplete(t *testing.T) {
	ens := &Ensemble{Target: 4, Values: map[int]float64{0: 1, 1: 2, 3: 4}}
	assert.False(t, ens.Complete())

	ens.Failed = []int{2}
	assert.True(t, ens.Complete())
	assert.Equal(t, 3, ens.Size())
}
