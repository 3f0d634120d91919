// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ingest supplies observed snapshot sequences to the pipeline,
// either from a catalog file on disk or from a synthetic generator used
// for demos and tests.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/AleutianAI/accrete/services/assembly/field"
)

// Meta is the catalog-level halo description, reported back to callers
// that need the target label or mass for run parameters.
type Meta struct {
	Target     string
	Mass       float64
	Resolution int
	Snapshots  int
}

// catalogDocument is the on-disk catalog shape. Snapshot voxel data is
// raw little-endian float64, base64 encoded, in x-fastest order.
type catalogDocument struct {
	Target     string            `json:"target"`
	MassMsun   float64           `json:"mass_msun"`
	Resolution int               `json:"resolution"`
	Snapshots  []catalogSnapshot `json:"snapshots"`
}

type catalogSnapshot struct {
	Redshift      float64 `json:"redshift"`
	CosmicTimeGyr float64 `json:"cosmic_time_gyr,omitempty"`

	// Resolution overrides the catalog-level resolution when set.
	Resolution int `json:"resolution,omitempty"`

	Data string `json:"data"`
}

// Load reads a catalog file into a time-ordered sequence.
//
// Description:
//
//	Decodes every snapshot's voxel payload, builds normalized fields,
//	and assembles them into a Sequence. Snapshots may appear in any
//	order; the sequence sorts by cosmic time. Voxel masses need not be
//	pre-normalized.
//
// Outputs:
//   - *field.Sequence: the observed sequence.
//   - Meta: catalog-level metadata (target, mass, grid).
//   - error: ErrInvalidCatalog for undecodable files, field errors
//     (ErrInvalidField, ErrGridMismatch, ErrDuplicateEpoch) for bad
//     snapshot data.
func Load(path string) (*field.Sequence, Meta, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("read catalog: %w", err)
	}

	var doc catalogDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, Meta{}, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if len(doc.Snapshots) == 0 {
		return nil, Meta{}, fmt.Errorf("%w: catalog has no snapshots", ErrInvalidCatalog)
	}

	fields := make([]*field.Field, len(doc.Snapshots))
	for i, snap := range doc.Snapshots {
		values, err := field.DecodeValues(snap.Data)
		if err != nil {
			return nil, Meta{}, fmt.Errorf("snapshot %d: %w", i, err)
		}
		res := snap.Resolution
		if res == 0 {
			res = doc.Resolution
		}
		f, err := field.New(values, res, field.Meta{
			Redshift:   snap.Redshift,
			CosmicTime: snap.CosmicTimeGyr,
			Mass:       doc.MassMsun,
		})
		if err != nil {
			return nil, Meta{}, fmt.Errorf("snapshot %d (z=%g): %w", i, snap.Redshift, err)
		}
		fields[i] = f
	}

	seq, err := field.NewSequence(fields...)
	if err != nil {
		return nil, Meta{}, err
	}
	meta := Meta{
		Target:     doc.Target,
		Mass:       doc.MassMsun,
		Resolution: seq.Resolution(),
		Snapshots:  seq.Len(),
	}
	return seq, meta, nil
}

// Catalog ingests a catalog file. The file is re-read on every Ingest
// call, so a retried stage observes the file as it is now.
type Catalog struct {
	path   string
	logger *slog.Logger
}

// NewCatalog creates a catalog ingestor for the given path.
func NewCatalog(path string, logger *slog.Logger) (*Catalog, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: catalog path must not be empty", ErrInvalidCatalog)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{path: path, logger: logger}, nil
}

// Ingest loads the catalog and returns its sequence.
func (c *Catalog) Ingest(ctx context.Context) (*field.Sequence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seq, meta, err := Load(c.path)
	if err != nil {
		return nil, err
	}
	c.logger.Info("catalog loaded",
		slog.String("path", c.path),
		slog.String("target", meta.Target),
		slog.Int("snapshots", meta.Snapshots),
		slog.Int("resolution", meta.Resolution),
	)
	return seq, nil
}
