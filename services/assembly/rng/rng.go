// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rng provides deterministic, stream-partitioned random sources.
//
// Every stochastic component in the assembly pipeline draws from a Source
// stream identified by a fixed stream ID. Two runs with the same top-level
// seed therefore produce identical results regardless of worker scheduling:
// reproducibility is a function of (seed, stream ID) and nothing else.
package rng

import "math/rand/v2"

// Reserved stream identifiers. Calibration members occupy the half-open
// range [StreamMemberBase, StreamSyntheticBase).
const (
	// StreamObserved seeds sampling for the observed (measured) sequence.
	StreamObserved uint64 = 0

	// StreamMemberBase is the first calibration-member stream. Member i
	// draws from stream StreamMemberBase+i.
	StreamMemberBase uint64 = 1

	// StreamSyntheticBase seeds synthetic catalog generation. Snapshot i
	// of a synthetic catalog draws from stream StreamSyntheticBase+i.
	StreamSyntheticBase uint64 = 1 << 20
)

// Source derives independent deterministic generators from a single seed.
//
// Thread Safety: Source itself is immutable and safe for concurrent use.
// The *rand.Rand values it returns are NOT safe for concurrent use; each
// goroutine must hold its own stream.
type Source struct {
	seed uint64
}

// NewSource creates a Source rooted at the given seed.
func NewSource(seed uint64) *Source {
	return &Source{seed: seed}
}

// Seed returns the root seed this source was created with.
func (s *Source) Seed() uint64 {
	return s.seed
}

// Stream returns a fresh PCG generator for the given stream ID.
//
// Calling Stream twice with the same ID returns generators that produce
// identical sequences.
func (s *Source) Stream(id uint64) *rand.Rand {
	return rand.New(rand.NewPCG(s.seed, id))
}

// Member returns the generator for calibration ensemble member i.
func (s *Source) Member(i int) *rand.Rand {
	return s.Stream(StreamMemberBase + uint64(i))
}

// Observed returns the generator for the observed-sequence sampling stream.
func (s *Source) Observed() *rand.Rand {
	return s.Stream(StreamObserved)
}
