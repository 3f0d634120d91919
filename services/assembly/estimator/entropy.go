// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package estimator implements non-parametric differential entropy and
// mutual-information estimation from nearest-neighbor distances
// (Kozachenko-Leonenko family).
//
// Entropy estimates are returned in nats; MutualInformation converts to
// bits at its single call site. All distance flooring happens in one
// place, Entropy, under the DistanceFloor policy documented there.
package estimator

import (
	"context"
	"fmt"
	"math"
)

// DistanceFloor is the clamping floor applied to every k-th neighbor
// distance before its logarithm is taken.
//
// Coincident sample points (common when sampling voxel centers of a
// concentrated field) produce zero neighbor distances; flooring keeps the
// log finite while preserving the relative scale of the remaining
// distances. This is the only flooring site in the estimator. If every
// distance in a sample falls at or below the floor, the sample carries no
// scale information and Entropy fails with ErrNumericalInstability
// instead of returning an arbitrary number.
const DistanceFloor = 1e-10

// cancelCheckStride bounds how many neighbor queries run between context
// checks.
const cancelCheckStride = 512

// Options configures an estimate.
type Options struct {
	// Norm selects the neighbor-distance metric. Zero value is
	// NormChebyshev.
	Norm Norm

	// ClampNegative forces slightly negative mutual-information estimates
	// to zero. Small negatives are expected finite-sample bias, so the
	// default leaves them visible; enable only when downstream consumers
	// require non-negative values. Ignored by Entropy.
	ClampNegative bool
}

// Entropy estimates differential entropy of a point sample in nats.
//
// Description:
//
//	Kozachenko-Leonenko estimator: for each of the N points find the
//	distance eps_i to its k-th nearest neighbor (excluding the point
//	itself, coincident duplicates still count), then
//
//	    H = psi(N) - psi(k) + log c_d + (d/N) * sum_i log eps_i
//
//	with psi the digamma function and c_d the unit-ball volume of the
//	chosen metric.
//
// Inputs:
//   - ctx: cancellation context, checked periodically during the
//     neighbor-search loop.
//   - points: N rows of d coordinates each. Must be rectangular.
//   - k: neighbor count, 1 <= k < N.
//
// Outputs:
//   - float64: entropy estimate in nats.
//   - error: ErrSampleShape for malformed input, ErrNumericalInstability
//     when all neighbor distances collapse, or the context error.
func Entropy(ctx context.Context, points [][]float64, k int, opts Options) (float64, error) {
	n := len(points)
	if n == 0 {
		return 0, fmt.Errorf("%w: empty sample", ErrSampleShape)
	}
	d := len(points[0])
	if d < 1 {
		return 0, fmt.Errorf("%w: zero-dimensional points", ErrSampleShape)
	}
	for i, p := range points {
		if len(p) != d {
			return 0, fmt.Errorf("%w: point %d has %d dims, expected %d", ErrSampleShape, i, len(p), d)
		}
	}
	if k < 1 {
		return 0, fmt.Errorf("%w: k must be >= 1, got %d", ErrSampleShape, k)
	}
	if n <= k {
		return 0, fmt.Errorf("%w: need more than k=%d samples, got %d", ErrSampleShape, k, n)
	}

	tree := newKDTree(points, opts.Norm)

	sumLog := 0.0
	floored := 0
	for i := 0; i < n; i++ {
		if i%cancelCheckStride == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		eps := tree.kthDistance(i, k)
		if eps <= DistanceFloor {
			eps = DistanceFloor
			floored++
		}
		sumLog += math.Log(eps)
	}
	if floored == n {
		return 0, fmt.Errorf("%w: all %d samples within %g of a neighbor",
			ErrNumericalInstability, n, DistanceFloor)
	}

	h := digamma(float64(n)) - digamma(float64(k)) +
		logUnitBallVolume(opts.Norm, d) +
		float64(d)*sumLog/float64(n)
	return h, nil
}
