// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package field models normalized 3-D density snapshots of a collapsing
// halo and time-ordered sequences of them.
//
// A Field is an N x N x N grid of non-negative voxel masses normalized to
// sum to one, so it can be read directly as a probability distribution over
// voxels. Fields are immutable after construction; the derivation operations
// (Smooth, Perturb) return new fields and never touch the receiver.
package field

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// normTolerance is the maximum allowed relative deviation of the voxel sum
// from 1.0 for a field accepted by FromRaw.
const normTolerance = 1e-9

// Meta carries the physical metadata attached to one snapshot.
type Meta struct {
	// Redshift of the snapshot. Must be >= 0.
	Redshift float64

	// CosmicTime in Gyr since the Big Bang. When zero or negative it is
	// derived from Redshift via TimeAtRedshift.
	CosmicTime float64

	// Mass is the total halo mass in solar masses.
	Mass float64
}

// Field is one normalized density snapshot on a cubic grid.
//
// Invariants:
//   - len(data) == resolution^3
//   - every voxel value is finite and >= 0
//   - voxel values sum to 1 within normTolerance
//   - cosmicTime > 0
//
// Thread Safety: immutable after construction; safe for concurrent use.
type Field struct {
	resolution int
	redshift   float64
	cosmicTime float64
	mass       float64
	data       []float64
}

// New builds a Field from raw (not necessarily normalized) voxel masses.
//
// Description:
//
//	Validates the grid shape and values, copies data, and normalizes the
//	copy so voxels sum to exactly 1. The input slice is never retained.
//
// Inputs:
//   - data: voxel masses in x-fastest order, length resolution^3.
//   - resolution: grid edge length N. Must be >= 2.
//   - meta: snapshot metadata. CosmicTime <= 0 is derived from Redshift.
//
// Outputs:
//   - *Field: the normalized snapshot.
//   - error: ErrInvalidField on shape or value violations.
func New(data []float64, resolution int, meta Meta) (*Field, error) {
	if resolution < 2 {
		return nil, fmt.Errorf("%w: resolution must be >= 2, got %d", ErrInvalidField, resolution)
	}
	want := resolution * resolution * resolution
	if len(data) != want {
		return nil, fmt.Errorf("%w: expected %d voxels for resolution %d, got %d",
			ErrInvalidField, want, resolution, len(data))
	}
	if meta.Redshift < 0 {
		return nil, fmt.Errorf("%w: redshift must be >= 0, got %g", ErrInvalidField, meta.Redshift)
	}

	sum := 0.0
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite value at voxel %d", ErrInvalidField, i)
		}
		if v < 0 {
			return nil, fmt.Errorf("%w: negative mass %g at voxel %d", ErrInvalidField, v, i)
		}
		sum += v
	}
	if sum <= 0 {
		return nil, fmt.Errorf("%w: total mass must be positive", ErrInvalidField)
	}

	norm := make([]float64, len(data))
	inv := 1.0 / sum
	for i, v := range data {
		norm[i] = v * inv
	}

	t := meta.CosmicTime
	if t <= 0 {
		t = TimeAtRedshift(meta.Redshift)
	}
	if t <= 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return nil, fmt.Errorf("%w: cosmic time must be positive and finite, got %g", ErrInvalidField, t)
	}

	return &Field{
		resolution: resolution,
		redshift:   meta.Redshift,
		cosmicTime: t,
		mass:       meta.Mass,
		data:       norm,
	}, nil
}

// FromRaw builds a Field from voxel values that are already normalized.
//
// Unlike New it rejects data whose sum deviates from 1 by more than the
// normalization tolerance instead of renormalizing. Used when restoring
// snapshots from checkpoints, where the stored bits must be trusted as-is.
func FromRaw(data []float64, resolution int, meta Meta) (*Field, error) {
	f, err := New(data, resolution, meta)
	if err != nil {
		return nil, err
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	if math.Abs(sum-1.0) > normTolerance {
		return nil, fmt.Errorf("%w: voxel sum %.12f is not normalized", ErrInvalidField, sum)
	}
	// Keep the caller's exact bits rather than the renormalized copy.
	copy(f.data, data)
	return f, nil
}

// Resolution returns the grid edge length N.
func (f *Field) Resolution() int { return f.resolution }

// Redshift returns the snapshot redshift.
func (f *Field) Redshift() float64 { return f.redshift }

// CosmicTime returns the snapshot cosmic time in Gyr.
func (f *Field) CosmicTime() float64 { return f.cosmicTime }

// Mass returns the total halo mass in solar masses.
func (f *Field) Mass() float64 { return f.mass }

// Voxels returns the number of voxels (N^3).
func (f *Field) Voxels() int { return len(f.data) }

// Value returns the normalized mass of voxel (x, y, z).
func (f *Field) Value(x, y, z int) float64 {
	return f.data[f.index(x, y, z)]
}

// Data returns a copy of the normalized voxel values in x-fastest order.
func (f *Field) Data() []float64 {
	out := make([]float64, len(f.data))
	copy(out, f.data)
	return out
}

// Meta returns the snapshot metadata.
func (f *Field) Meta() Meta {
	return Meta{Redshift: f.redshift, CosmicTime: f.cosmicTime, Mass: f.mass}
}

func (f *Field) index(x, y, z int) int {
	return x + f.resolution*(y+f.resolution*z)
}

// Smooth returns a new field convolved with an isotropic Gaussian kernel.
//
// Description:
//
//	Applies a separable 3-D Gaussian blur (one pass per axis, kernel
//	truncated at 3 sigma, edge-clamped boundaries) and renormalizes.
//	The receiver is unchanged.
//
// Inputs:
//   - sigma: kernel standard deviation in voxel units. Must be > 0.
func (f *Field) Smooth(sigma float64) (*Field, error) {
	if sigma <= 0 || math.IsNaN(sigma) {
		return nil, fmt.Errorf("%w: smoothing sigma must be positive, got %g", ErrInvalidField, sigma)
	}

	radius := int(math.Ceil(3 * sigma))
	if radius < 1 {
		radius = 1
	}
	kernel := make([]float64, 2*radius+1)
	ksum := 0.0
	for i := -radius; i <= radius; i++ {
		w := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		kernel[i+radius] = w
		ksum += w
	}
	for i := range kernel {
		kernel[i] /= ksum
	}

	n := f.resolution
	src := make([]float64, len(f.data))
	copy(src, f.data)
	dst := make([]float64, len(f.data))

	for axis := 0; axis < 3; axis++ {
		convolveAxis(dst, src, n, axis, kernel, radius)
		src, dst = dst, src
	}

	return New(src, n, f.Meta())
}

// convolveAxis convolves src along one axis into dst with edge clamping.
func convolveAxis(dst, src []float64, n, axis int, kernel []float64, radius int) {
	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				acc := 0.0
				for t := -radius; t <= radius; t++ {
					xx, yy, zz := x, y, z
					switch axis {
					case 0:
						xx = clampIndex(x+t, n)
					case 1:
						yy = clampIndex(y+t, n)
					default:
						zz = clampIndex(z+t, n)
					}
					acc += kernel[t+radius] * src[xx+n*(yy+n*zz)]
				}
				dst[x+n*(y+n*z)] = acc
			}
		}
	}
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// Perturb returns a new field with independent multiplicative log-normal
// noise applied per voxel, then renormalized.
//
// Description:
//
//	Each voxel is scaled by exp(sigma*g - sigma^2/2) with g ~ N(0,1), so
//	the noise factor has unit mean. Used by the null-model generator to
//	inject stochastic accretion scatter without temporal correlation.
//
// Inputs:
//   - rng: deterministic generator owning this draw. Must not be nil.
//   - sigma: log-space standard deviation. Must be > 0.
func (f *Field) Perturb(rng *rand.Rand, sigma float64) (*Field, error) {
	if rng == nil {
		return nil, fmt.Errorf("%w: nil random source", ErrInvalidField)
	}
	if sigma <= 0 || math.IsNaN(sigma) {
		return nil, fmt.Errorf("%w: noise sigma must be positive, got %g", ErrInvalidField, sigma)
	}

	// exp(-sigma^2/2) keeps the expected noise factor at 1.
	bias := -sigma * sigma / 2
	out := make([]float64, len(f.data))
	for i, v := range f.data {
		out[i] = v * math.Exp(sigma*rng.NormFloat64()+bias)
	}
	return New(out, f.resolution, f.Meta())
}
