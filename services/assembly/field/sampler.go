// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package field

import (
	"fmt"
	"math/rand/v2"
	"sort"
)

// Sampler draws spatial point samples from a field read as a categorical
// distribution over voxels.
//
// Description:
//
//	Construction computes the cumulative voxel weights once; each Sample
//	call is then O(n log V) inverse-transform sampling with replacement.
//	Samples are voxel-center coordinates in grid units, so downstream
//	nearest-neighbor estimators operate in a 3-D metric space.
//
// Thread Safety: the Sampler itself is immutable after construction, but
// Sample mutates the caller's generator; use one generator per goroutine.
type Sampler struct {
	field *Field
	cum   []float64
}

// NewSampler prepares a sampler for f.
func NewSampler(f *Field) (*Sampler, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil field", ErrInvalidField)
	}
	cum := make([]float64, len(f.data))
	sum := 0.0
	for i, v := range f.data {
		sum += v
		cum[i] = sum
	}
	// Pin the last entry so a draw of u -> 1-eps can never fall off the end.
	cum[len(cum)-1] = 1.0
	return &Sampler{field: f, cum: cum}, nil
}

// Sample draws n voxel-center positions with replacement.
//
// Inputs:
//   - rng: deterministic generator for this draw. Must not be nil.
//   - n: number of points. Must be > 0.
//
// Outputs:
//   - [][]float64: n points, each {x, y, z} voxel centers in grid units.
func (s *Sampler) Sample(rng *rand.Rand, n int) ([][]float64, error) {
	if rng == nil {
		return nil, fmt.Errorf("%w: nil random source", ErrInvalidField)
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: sample size must be positive, got %d", ErrInvalidField, n)
	}
	us := make([]float64, n)
	for i := range us {
		us[i] = rng.Float64()
	}
	return s.SampleWith(us)
}

// SampleWith maps caller-supplied uniforms in [0,1) to voxel centers.
//
// Feeding the same uniforms through the samplers of two snapshots yields
// coupled sample sets: where the two mass distributions agree the points
// coincide, and where mass has moved the points separate. Pairwise
// mutual-information estimation between consecutive snapshots relies on
// this common-random-number coupling; independent draws would erase the
// temporal signal entirely.
func (s *Sampler) SampleWith(us []float64) ([][]float64, error) {
	if len(us) == 0 {
		return nil, fmt.Errorf("%w: sample size must be positive, got 0", ErrInvalidField)
	}
	res := s.field.resolution
	points := make([][]float64, len(us))
	for i, u := range us {
		if u < 0 || u >= 1 {
			return nil, fmt.Errorf("%w: uniform draw %g outside [0,1)", ErrInvalidField, u)
		}
		idx := sort.SearchFloat64s(s.cum, u)
		if idx >= len(s.cum) {
			idx = len(s.cum) - 1
		}
		x := idx % res
		y := (idx / res) % res
		z := idx / (res * res)
		points[i] = []float64{
			float64(x) + 0.5,
			float64(y) + 0.5,
			float64(z) + 0.5,
		}
	}
	return points, nil
}
