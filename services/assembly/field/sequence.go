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
	"sort"
)

// Sequence is a time-ordered set of snapshots of one halo.
//
// Invariants:
//   - at least one snapshot
//   - all snapshots share one grid resolution
//   - cosmic times strictly increase (no duplicates)
//
// Construction sorts the snapshots by cosmic time, so callers may pass
// epochs in any order. A Sequence is immutable once built.
type Sequence struct {
	fields []*Field
}

// NewSequence builds a Sequence from snapshots in arbitrary order.
//
// Outputs:
//   - error: ErrInvalidField for empty/nil input, ErrGridMismatch for
//     inconsistent resolutions, ErrDuplicateEpoch for repeated times.
func NewSequence(fields ...*Field) (*Sequence, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: sequence requires at least one snapshot", ErrInvalidField)
	}
	for i, f := range fields {
		if f == nil {
			return nil, fmt.Errorf("%w: nil snapshot at position %d", ErrInvalidField, i)
		}
	}

	res := fields[0].Resolution()
	for i, f := range fields {
		if f.Resolution() != res {
			return nil, fmt.Errorf("%w: snapshot %d has resolution %d, expected %d",
				ErrGridMismatch, i, f.Resolution(), res)
		}
	}

	sorted := make([]*Field, len(fields))
	copy(sorted, fields)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CosmicTime() < sorted[j].CosmicTime()
	})

	for i := 1; i < len(sorted); i++ {
		if sorted[i].CosmicTime() == sorted[i-1].CosmicTime() {
			return nil, fmt.Errorf("%w: t=%g Gyr appears more than once",
				ErrDuplicateEpoch, sorted[i].CosmicTime())
		}
	}

	return &Sequence{fields: sorted}, nil
}

// Len returns the number of snapshots.
func (s *Sequence) Len() int { return len(s.fields) }

// At returns snapshot i in time order (earliest first).
func (s *Sequence) At(i int) *Field { return s.fields[i] }

// Resolution returns the shared grid resolution.
func (s *Sequence) Resolution() int { return s.fields[0].Resolution() }

// Times returns the cosmic times in ascending order.
func (s *Sequence) Times() []float64 {
	out := make([]float64, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.CosmicTime()
	}
	return out
}

// Redshifts returns the snapshot redshifts in time order.
func (s *Sequence) Redshifts() []float64 {
	out := make([]float64, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Redshift()
	}
	return out
}

// Span returns the first and last cosmic times.
func (s *Sequence) Span() (t0, t1 float64) {
	return s.fields[0].CosmicTime(), s.fields[len(s.fields)-1].CosmicTime()
}

// Map returns a new Sequence with fn applied to every snapshot.
//
// Used by the reconstruction stage to apply smoothing uniformly. fn must
// return a snapshot on the same grid; times must remain unique.
func (s *Sequence) Map(fn func(*Field) (*Field, error)) (*Sequence, error) {
	out := make([]*Field, len(s.fields))
	for i, f := range s.fields {
		g, err := fn(f)
		if err != nil {
			return nil, fmt.Errorf("snapshot %d (z=%.3f): %w", i, f.Redshift(), err)
		}
		out[i] = g
	}
	return NewSequence(out...)
}
