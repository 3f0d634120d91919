// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package estimator

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutualInformationRejectsMismatchedSets(t *testing.T) {
	ctx := context.Background()
	a := [][]float64{{1}, {2}, {3}}
	b := [][]float64{{1}, {2}}
	_, err := MutualInformation(ctx, a, b, 1, Options{})
	require.ErrorIs(t, err, ErrSampleShape)

	_, err = MutualInformation(ctx, nil, nil, 1, Options{})
	require.ErrorIs(t, err, ErrSampleShape)
}

func TestSelfInformationHitsSaturationBound(t *testing.T) {
	// For identical sets under the Chebyshev norm the marginal and joint
	// neighbor distances coincide, so the estimate collapses to
	// psi(N)-psi(k) regardless of the data.
	rng := rand.New(rand.NewPCG(42, 0))
	pts := gaussianPoints(rng, 1000, 3)

	mi, err := MutualInformation(context.Background(), pts, pts, 4, Options{})
	require.NoError(t, err)
	assert.InDelta(t, SaturationBits(1000, 4), mi, 1e-9)
}

func TestIndependentSetsNearZero(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 1))
	a := gaussianPoints(rng, 1000, 3)
	b := gaussianPoints(rng, 1000, 3)

	mi, err := MutualInformation(context.Background(), a, b, 4, Options{})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, mi, 0.25, "independent samples should carry no information")
}

func TestCorrelatedGaussiansRecoverTheory(t *testing.T) {
	// For bivariate normals with correlation rho the true value is
	// -0.5*log2(1-rho^2) bits.
	const rho = 0.9
	rng := rand.New(rand.NewPCG(42, 2))

	n := 3000
	a := make([][]float64, n)
	b := make([][]float64, n)
	for i := 0; i < n; i++ {
		x := rng.NormFloat64()
		y := rho*x + math.Sqrt(1-rho*rho)*rng.NormFloat64()
		a[i] = []float64{x}
		b[i] = []float64{y}
	}

	mi, err := MutualInformation(context.Background(), a, b, 4, Options{})
	require.NoError(t, err)
	want := -0.5 * math.Log2(1-rho*rho)
	assert.InDelta(t, want, mi, 0.35)
}

func TestClampNegativePolicy(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 9))
	a := gaussianPoints(rng, 40, 2)
	b := gaussianPoints(rng, 40, 2)

	ctx := context.Background()
	raw, err := MutualInformation(ctx, a, b, 5, Options{})
	require.NoError(t, err)
	clamped, err := MutualInformation(ctx, a, b, 5, Options{ClampNegative: true})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, clamped, 0.0)
	assert.Equal(t, math.Max(raw, 0), clamped)
}

func TestMutualInformationPropagatesEntropyFailures(t *testing.T) {
	// Fully coincident sets collapse every neighbor distance.
	pts := make([][]float64, 10)
	for i := range pts {
		pts[i] = []float64{1, 2}
	}
	_, err := MutualInformation(context.Background(), pts, pts, 3, Options{})
	require.ErrorIs(t, err, ErrNumericalInstability)
}

func TestSaturationBitsMonotone(t *testing.T) {
	// More samples raise the bound; more neighbors lower it.
	assert.Greater(t, SaturationBits(2000, 4), SaturationBits(1000, 4))
	assert.Less(t, SaturationBits(1000, 8), SaturationBits(1000, 4))
}
