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
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
)

// MutualInformation estimates I(A;B) in bits between two paired sample
// sets.
//
// Description:
//
//	I = H(A) + H(B) - H(A,B) in nats, converted to bits. The joint set
//	concatenates row i of a with row i of b, so a[i] and b[i] must be
//	paired observations. The three entropy estimates are independent and
//	run concurrently.
//
//	The estimate may come out slightly negative for finite samples; that
//	is expected bias, not an error. Opts.ClampNegative zeroes negative
//	results for callers that need a hard floor.
//
// Inputs:
//   - a, b: paired sample sets of equal cardinality N.
//   - k: neighbor count, 1 <= k < N.
//
// Outputs:
//   - float64: mutual information in bits.
//   - error: ErrSampleShape if cardinalities differ or either set is
//     malformed, plus any Entropy failure.
func MutualInformation(ctx context.Context, a, b [][]float64, k int, opts Options) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: paired sets must have equal cardinality, got %d and %d",
			ErrSampleShape, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("%w: empty sample", ErrSampleShape)
	}

	joint := make([][]float64, len(a))
	da := len(a[0])
	for i := range a {
		row := make([]float64, 0, da+len(b[i]))
		row = append(row, a[i]...)
		row = append(row, b[i]...)
		joint[i] = row
	}

	var ha, hb, hab float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ha, err = Entropy(gctx, a, k, opts)
		return err
	})
	g.Go(func() error {
		var err error
		hb, err = Entropy(gctx, b, k, opts)
		return err
	})
	g.Go(func() error {
		var err error
		hab, err = Entropy(gctx, joint, k, opts)
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, err
	}

	bits := (ha + hb - hab) / math.Ln2
	if opts.ClampNegative && bits < 0 {
		bits = 0
	}
	return bits, nil
}

// SaturationBits returns the largest mutual information the estimator can
// report for sample count n and neighbor count k, in bits.
//
// Identical sample sets under the Chebyshev norm estimate exactly this
// value: the marginal and joint neighbor distances coincide, so every
// data-dependent term cancels and psi(n) - psi(k) remains.
func SaturationBits(n, k int) float64 {
	return (digamma(float64(n)) - digamma(float64(k))) / math.Ln2
}
