// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package integrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrapezoidExactOnLinear(t *testing.T) {
	// f(t) = 2t + 1 integrates exactly under the trapezoid rule.
	ts := []float64{0, 0.4, 1.1, 2.5, 4.0}
	ys := make([]float64, len(ts))
	for i, x := range ts {
		ys[i] = 2*x + 1
	}

	got, err := QuadratureTrapezoid.Integrate(ts, ys)
	require.NoError(t, err)
	want := 4.0*4.0 + 4.0 // t^2 + t over [0,4]
	assert.InDelta(t, want, got, 1e-12)
}

func TestSimpsonExactOnQuadratic(t *testing.T) {
	// With an even interval count every pair is fitted exactly.
	ts := []float64{0, 0.5, 1.2, 2.0, 3.1}
	ys := make([]float64, len(ts))
	for i, x := range ts {
		ys[i] = 3*x*x - x + 2
	}

	got, err := QuadratureSimpson.Integrate(ts, ys)
	require.NoError(t, err)
	// Antiderivative t^3 - t^2/2 + 2t over [0, 3.1].
	b := 3.1
	want := b*b*b - b*b/2 + 2*b
	assert.InDelta(t, want, got, 1e-12)
}

func TestSimpsonUniformMatchesClassicWeights(t *testing.T) {
	ts := []float64{0, 1, 2}
	ys := []float64{1, 4, 9}
	got, err := QuadratureSimpson.Integrate(ts, ys)
	require.NoError(t, err)
	assert.InDelta(t, (1.0+4*4.0+9.0)/3.0, got, 1e-12)
}

func TestSimpsonTwoPointsFallsBackToTrapezoid(t *testing.T) {
	ts := []float64{1, 3}
	ys := []float64{2, 6}

	s, err := QuadratureSimpson.Integrate(ts, ys)
	require.NoError(t, err)
	tr, err := QuadratureTrapezoid.Integrate(ts, ys)
	require.NoError(t, err)
	assert.Equal(t, tr, s)
}

func TestSimpsonOddIntervalTail(t *testing.T) {
	// Four points: one Simpson pair plus a trapezoid tail over [2,3].
	ts := []float64{0, 1, 2, 3}
	ys := []float64{0, 1, 4, 9}

	got, err := QuadratureSimpson.Integrate(ts, ys)
	require.NoError(t, err)
	pair := (0.0 + 4*1.0 + 4.0) / 3.0
	tail := (4.0 + 9.0) / 2.0
	assert.InDelta(t, pair+tail, got, 1e-12)
}

func TestIntegrateValidation(t *testing.T) {
	cases := []struct {
		name string
		ts   []float64
		ys   []float64
	}{
		{"length mismatch", []float64{1, 2}, []float64{1}},
		{"too short", []float64{1}, []float64{1}},
		{"non increasing", []float64{1, 1}, []float64{2, 3}},
		{"decreasing", []float64{2, 1}, []float64{2, 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := QuadratureTrapezoid.Integrate(tc.ts, tc.ys)
			require.ErrorIs(t, err, ErrInvalidSeries)
		})
	}
}

func TestParseQuadrature(t *testing.T) {
	q, err := ParseQuadrature("Simpson")
	require.NoError(t, err)
	assert.Equal(t, QuadratureSimpson, q)

	q, err = ParseQuadrature("")
	require.NoError(t, err)
	assert.Equal(t, QuadratureTrapezoid, q)

	_, err = ParseQuadrature("midpoint")
	require.ErrorIs(t, err, ErrBadConfig)

	assert.Equal(t, "trapezoid", QuadratureTrapezoid.String())
	assert.Equal(t, "simpson", QuadratureSimpson.String())
}
