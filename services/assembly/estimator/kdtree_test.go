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
	"math"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomPoints(rng *rand.Rand, n, d int) [][]float64 {
	pts := make([][]float64, n)
	for i := range pts {
		row := make([]float64, d)
		for j := range row {
			row[j] = rng.Float64() * 10
		}
		pts[i] = row
	}
	return pts
}

func trueDistance(a, b []float64, norm Norm) float64 {
	if norm == NormChebyshev {
		m := 0.0
		for i := range a {
			if d := math.Abs(a[i] - b[i]); d > m {
				m = d
			}
		}
		return m
	}
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return math.Sqrt(s)
}

func bruteKthDistance(pts [][]float64, qi, k int, norm Norm) float64 {
	ds := make([]float64, 0, len(pts)-1)
	for j := range pts {
		if j == qi {
			continue
		}
		ds = append(ds, trueDistance(pts[qi], pts[j], norm))
	}
	sort.Float64s(ds)
	return ds[k-1]
}

func TestKDTreeMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(17, 0))
	for _, norm := range []Norm{NormChebyshev, NormEuclidean} {
		for _, d := range []int{1, 2, 3, 6} {
			pts := randomPoints(rng, 200, d)
			tree := newKDTree(pts, norm)
			for _, k := range []int{1, 2, 5} {
				for qi := 0; qi < len(pts); qi += 7 {
					got := tree.kthDistance(qi, k)
					want := bruteKthDistance(pts, qi, k, norm)
					require.InDelta(t, want, got, 1e-12,
						"norm=%v d=%d k=%d qi=%d", norm, d, k, qi)
				}
			}
		}
	}
}

func TestKDTreeExcludesSelfButCountsDuplicates(t *testing.T) {
	// Three coincident points plus two distant ones.
	pts := [][]float64{
		{1, 1, 1},
		{1, 1, 1},
		{1, 1, 1},
		{5, 5, 5},
		{9, 9, 9},
	}
	tree := newKDTree(pts, NormChebyshev)

	// Nearest neighbor of point 0 is a coincident twin, not itself.
	assert.Equal(t, 0.0, tree.kthDistance(0, 1))
	assert.Equal(t, 0.0, tree.kthDistance(0, 2))
	// Third neighbor is the first distant point.
	assert.Equal(t, 4.0, tree.kthDistance(0, 3))
	assert.Equal(t, 8.0, tree.kthDistance(0, 4))
}

func TestBoundedMaxHeapKeepsSmallest(t *testing.T) {
	h := boundedMaxHeap{vals: make([]float64, 0, 3), limit: 3}
	assert.False(t, h.full())
	assert.True(t, math.IsInf(h.worst(), 1))

	for _, v := range []float64{9, 2, 7, 1, 8, 3} {
		h.offer(v)
	}
	require.True(t, h.full())
	// Smallest three of the stream are {1,2,3}; worst of those is 3.
	assert.Equal(t, 3.0, h.worst())
}
