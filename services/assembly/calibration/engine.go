// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package calibration builds the null distribution an observed assembly
// index is judged against.
//
// Each ensemble member is an independent null sequence pushed through the
// same integrator as the observed data. Member i draws every random
// number from stream i of the top-level seed, so the ensemble is a pure
// function of (seed, parameters) regardless of worker count, scheduling,
// or how many resume cycles it took to finish.
package calibration

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/accrete/services/assembly/integrate"
	"github.com/AleutianAI/accrete/services/assembly/nullmodel"
	"github.com/AleutianAI/accrete/services/assembly/rng"
)

// Config parameterizes the calibration engine.
type Config struct {
	// EnsembleSize is the target member count M.
	EnsembleSize int `json:"ensemble_size" yaml:"ensemble_size"`

	// Workers bounds concurrent member computations.
	Workers int `json:"workers" yaml:"workers"`

	// MinSuccessFraction is the fraction of M that must succeed for the
	// ensemble to be usable. Members excluded by member-level errors
	// count against it.
	MinSuccessFraction float64 `json:"min_success_fraction" yaml:"min_success_fraction"`

	// SignificanceThreshold is the z-score at which an observed index is
	// flagged significant.
	SignificanceThreshold float64 `json:"significance_threshold" yaml:"significance_threshold"`
}

// DefaultConfig returns the reference calibration parameters.
func DefaultConfig() Config {
	return Config{
		EnsembleSize:          200,
		Workers:               4,
		MinSuccessFraction:    0.9,
		SignificanceThreshold: 3.0,
	}
}

// Validate checks parameter ranges.
func (c Config) Validate() error {
	if c.EnsembleSize < 2 {
		return fmt.Errorf("%w: ensemble size must be >= 2, got %d", ErrInvalidConfig, c.EnsembleSize)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be >= 1, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.MinSuccessFraction <= 0 || c.MinSuccessFraction > 1 {
		return fmt.Errorf("%w: min success fraction must be in (0, 1], got %g", ErrInvalidConfig, c.MinSuccessFraction)
	}
	if c.SignificanceThreshold <= 0 {
		return fmt.Errorf("%w: significance threshold must be positive, got %g", ErrInvalidConfig, c.SignificanceThreshold)
	}
	return nil
}

// Engine computes null ensembles and assesses observed indices against
// them.
//
// Thread Safety: safe for concurrent use. Ensemble state lives in call
// frames; the only shared mutable state is the rate-limited progress
// logger, which serializes internally.
type Engine struct {
	cfg      Config
	gen      *nullmodel.Generator
	integ    *integrate.Integrator
	src      *rng.Source
	logger   *slog.Logger
	progress rate.Sometimes
}

// NewEngine creates an Engine.
//
// Inputs:
//   - cfg: engine parameters, validated here.
//   - gen: null-sequence generator shared by all members.
//   - integ: the same integrator configuration used for observed data.
//   - src: top-level seed source; member i uses src.Member(i).
//   - logger: structured logger; nil falls back to slog.Default().
func NewEngine(cfg Config, gen *nullmodel.Generator, integ *integrate.Integrator, src *rng.Source, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if gen == nil || integ == nil || src == nil {
		return nil, fmt.Errorf("%w: generator, integrator, and seed source are required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:      cfg,
		gen:      gen,
		integ:    integ,
		src:      src,
		logger:   logger,
		progress: rate.Sometimes{First: 1, Interval: 5 * time.Second},
	}, nil
}

// Config returns the engine parameters.
func (e *Engine) Config() Config { return e.cfg }

// MinSuccesses returns the smallest member count that satisfies the
// configured success fraction.
func (e *Engine) MinSuccesses() int {
	return int(math.Ceil(e.cfg.MinSuccessFraction * float64(e.cfg.EnsembleSize)))
}

// BuildEnsemble resolves every member and checks the result is usable.
//
// Outputs:
//   - *Ensemble: the completed ensemble.
//   - error: ErrSeedMismatch for an incompatible prior, context errors
//     on cancellation, ErrEnsembleShortfall when member exclusions push
//     the ensemble below the minimum success fraction.
func (e *Engine) BuildEnsemble(ctx context.Context, prior *Ensemble) (*Ensemble, error) {
	ens, err := e.GrowEnsemble(ctx, prior, 0)
	if err != nil {
		return nil, err
	}
	if err := e.ValidateEnsemble(ens); err != nil {
		return nil, err
	}
	return ens, nil
}

// GrowEnsemble resolves up to limit additional members on top of prior.
//
// Description:
//
//	Unresolved member indices are taken in ascending order and computed
//	in parallel across the configured workers. A member-level failure
//	is logged and the member excluded; only cancellation aborts the
//	batch. The returned ensemble is a fresh snapshot, safe to
//	checkpoint while a later batch runs.
//
// Inputs:
//   - ctx: cancellation context, honored between member computations.
//   - prior: previously resolved members, or nil to start fresh. Its
//     seed must match the engine's source.
//   - limit: maximum new members to resolve; 0 or negative means all.
func (e *Engine) GrowEnsemble(ctx context.Context, prior *Ensemble, limit int) (*Ensemble, error) {
	if prior != nil && prior.Seed != e.src.Seed() {
		return nil, fmt.Errorf("%w: prior seed %d, engine seed %d", ErrSeedMismatch, prior.Seed, e.src.Seed())
	}

	m := e.cfg.EnsembleSize
	values := make([]float64, m)
	resolved := make([]bool, m)
	excluded := make([]bool, m)
	prev := 0
	if prior != nil {
		for i, v := range prior.Values {
			if i >= 0 && i < m {
				values[i], resolved[i] = v, true
				prev++
			}
		}
		for _, i := range prior.Failed {
			if i >= 0 && i < m && !resolved[i] {
				excluded[i] = true
				prev++
			}
		}
	}

	batch := make([]int, 0, m-prev)
	for i := 0; i < m && (limit <= 0 || len(batch) < limit); i++ {
		if !resolved[i] && !excluded[i] {
			batch = append(batch, i)
		}
	}

	ctx, span := tracer.Start(ctx, "calibration.grow_ensemble", trace.WithAttributes(
		attribute.Int("ensemble_size", m),
		attribute.Int("batch_size", len(batch)),
		attribute.Int("workers", e.cfg.Workers),
	))
	defer span.End()

	var done atomic.Int64
	done.Store(int64(prev))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for _, i := range batch {
		i := i // capture
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			start := time.Now()
			v, err := e.runMember(gCtx, i)
			recordMember(gCtx, time.Since(start), err == nil)
			if err != nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				e.logger.Warn("ensemble member excluded",
					slog.Int("member", i),
					slog.String("error", err.Error()),
				)
				excluded[i] = true
			} else {
				values[i], resolved[i] = v, true
			}
			n := done.Add(1)
			e.progress.Do(func() {
				e.logger.Info("calibration progress",
					slog.Int64("resolved", n),
					slog.Int("target", m),
				)
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Ensemble{Seed: e.src.Seed(), Target: m, Values: make(map[int]float64, m)}
	for i := 0; i < m; i++ {
		switch {
		case resolved[i]:
			out.Values[i] = values[i]
		case excluded[i]:
			out.Failed = append(out.Failed, i)
		}
	}
	return out, nil
}

// ValidateEnsemble checks a completed ensemble against the minimum
// success fraction.
func (e *Engine) ValidateEnsemble(ens *Ensemble) error {
	if need := e.MinSuccesses(); ens.Size() < need {
		return fmt.Errorf("%w: %d of %d succeeded, need %d",
			ErrEnsembleShortfall, ens.Size(), e.cfg.EnsembleSize, need)
	}
	return nil
}

// Assess evaluates an observed index against the ensemble using the
// configured significance threshold.
func (e *Engine) Assess(observed float64, ens *Ensemble) (*Assessment, error) {
	return Evaluate(observed, ens, e.cfg.SignificanceThreshold)
}

// runMember computes one member's index. The member's stream covers both
// the null-field noise and the estimator's sampling draws, so the value
// depends only on (seed, member index, parameters).
func (e *Engine) runMember(ctx context.Context, i int) (float64, error) {
	r := e.src.Member(i)
	seq, err := e.gen.Sequence(ctx, r)
	if err != nil {
		return 0, fmt.Errorf("null sequence: %w", err)
	}
	res, err := e.integ.Run(ctx, seq, r)
	if err != nil {
		return 0, fmt.Errorf("index integration: %w", err)
	}
	return res.Index, nil
}
