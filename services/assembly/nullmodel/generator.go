// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package nullmodel synthesizes stochastic-growth reference sequences.
//
// A null sequence models a halo that assembles with no structural memory:
// a smooth spherically-symmetric profile that concentrates toward the grid
// center as time advances, times independent multiplicative log-normal
// noise redrawn at every step. The per-step independence of the noise is
// the defining null property; mutual information beyond what the smooth
// profile alone produces cannot come from it.
package nullmodel

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/AleutianAI/accrete/services/assembly/field"
)

// Profile width bounds as fractions of the grid edge. Width shrinks
// linearly between them as the sequence advances, concentrating mass.
const (
	widthStartFraction = 0.25
	widthEndFraction   = 0.10
)

// Config parameterizes a Generator.
type Config struct {
	// Mass is the target halo mass attached to every snapshot, in solar
	// masses.
	Mass float64 `json:"mass" yaml:"mass"`

	// ZStart and ZEnd bound the redshift range; ZStart must exceed ZEnd.
	ZStart float64 `json:"z_start" yaml:"z_start"`
	ZEnd   float64 `json:"z_end" yaml:"z_end"`

	// Snapshots is the number of epochs, linearly spaced in redshift.
	Snapshots int `json:"snapshots" yaml:"snapshots"`

	// Resolution is the grid edge length N.
	Resolution int `json:"resolution" yaml:"resolution"`

	// NoiseSigma is the log-space standard deviation of the per-voxel
	// multiplicative noise.
	NoiseSigma float64 `json:"noise_sigma" yaml:"noise_sigma"`
}

// DefaultConfig returns the reference null-model parameters.
func DefaultConfig() Config {
	return Config{
		Mass:       5e11,
		ZStart:     20,
		ZEnd:       0,
		Snapshots:  20,
		Resolution: 32,
		NoiseSigma: 0.5,
	}
}

// Validate checks parameter ranges.
func (c Config) Validate() error {
	if c.Mass <= 0 {
		return fmt.Errorf("%w: mass must be positive, got %g", ErrInvalidConfig, c.Mass)
	}
	if c.ZStart <= c.ZEnd {
		return fmt.Errorf("%w: z_start=%g, z_end=%g", ErrRedshiftOrder, c.ZStart, c.ZEnd)
	}
	if c.ZEnd < 0 {
		return fmt.Errorf("%w: z_end must be >= 0, got %g", ErrInvalidConfig, c.ZEnd)
	}
	if c.Snapshots < 2 {
		return fmt.Errorf("%w: need at least 2 snapshots, got %d", ErrInvalidConfig, c.Snapshots)
	}
	if c.Resolution < 2 {
		return fmt.Errorf("%w: resolution must be >= 2, got %d", ErrInvalidConfig, c.Resolution)
	}
	if c.NoiseSigma <= 0 {
		return fmt.Errorf("%w: noise sigma must be positive, got %g", ErrInvalidConfig, c.NoiseSigma)
	}
	return nil
}

// Generator builds null sequences.
//
// Thread Safety: safe for concurrent Sequence calls; each call's state is
// confined to its frame and the caller-owned generator.
type Generator struct {
	cfg    Config
	logger *slog.Logger
}

// NewGenerator creates a Generator with validated configuration.
func NewGenerator(cfg Config, logger *slog.Logger) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{cfg: cfg, logger: logger}, nil
}

// Config returns the generator parameters.
func (g *Generator) Config() Config { return g.cfg }

// Sequence synthesizes one null sequence.
//
// Description:
//
//	Epoch j gets redshift z_j on a linear grid from ZStart down to ZEnd.
//	Its field is a Gaussian radial profile centered on the grid whose
//	width tightens from 25% to 10% of the edge across the sequence, then
//	perturbed with fresh log-normal noise and renormalized.
//
// Inputs:
//   - ctx: cancellation context, checked between snapshots.
//   - rng: deterministic generator owning every noise draw; one member
//     stream per ensemble member keeps members independent.
func (g *Generator) Sequence(ctx context.Context, rng *rand.Rand) (*field.Sequence, error) {
	if rng == nil {
		return nil, fmt.Errorf("%w: nil random source", ErrInvalidConfig)
	}

	zs := linspace(g.cfg.ZStart, g.cfg.ZEnd, g.cfg.Snapshots)
	fields := make([]*field.Field, len(zs))
	for j, z := range zs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frac := float64(j) / float64(len(zs)-1)
		width := float64(g.cfg.Resolution) * (widthStartFraction + frac*(widthEndFraction-widthStartFraction))

		profile, err := radialProfile(g.cfg.Resolution, width, field.Meta{Redshift: z, Mass: g.cfg.Mass})
		if err != nil {
			return nil, fmt.Errorf("snapshot %d (z=%.3f): %w", j, z, err)
		}
		noisy, err := profile.Perturb(rng, g.cfg.NoiseSigma)
		if err != nil {
			return nil, fmt.Errorf("snapshot %d (z=%.3f): %w", j, z, err)
		}
		fields[j] = noisy
	}

	return field.NewSequence(fields...)
}

// radialProfile builds a normalized isotropic Gaussian centered on the
// grid, with standard deviation width in voxel units.
func radialProfile(res int, width float64, meta field.Meta) (*field.Field, error) {
	center := float64(res) / 2
	inv2w2 := 1 / (2 * width * width)

	data := make([]float64, res*res*res)
	i := 0
	for z := 0; z < res; z++ {
		dz := float64(z) + 0.5 - center
		for y := 0; y < res; y++ {
			dy := float64(y) + 0.5 - center
			for x := 0; x < res; x++ {
				dx := float64(x) + 0.5 - center
				r2 := dx*dx + dy*dy + dz*dz
				data[i] = math.Exp(-r2 * inv2w2)
				i++
			}
		}
	}
	return field.New(data, res, meta)
}

// linspace returns n evenly spaced values from a to b inclusive.
func linspace(a, b float64, n int) []float64 {
	out := make([]float64, n)
	step := (b - a) / float64(n-1)
	for i := range out {
		out[i] = a + float64(i)*step
	}
	out[n-1] = b
	return out
}
