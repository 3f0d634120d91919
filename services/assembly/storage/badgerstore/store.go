// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badgerstore archives finished runs in an embedded BadgerDB so
// reports and null ensembles survive process restarts and can be listed
// or served without recomputing anything.
//
// Keys follow one flat layout:
//
//	run:<run-id>:report    report JSON
//	run:<run-id>:ensemble  null ensemble JSON
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/accrete/services/assembly/calibration"
	"github.com/AleutianAI/accrete/services/assembly/report"
)

const (
	runKeyPrefix   = "run:"
	reportSuffix   = ":report"
	ensembleSuffix = ":ensemble"
)

// Config holds configuration for the run archive.
type Config struct {
	// Path is the directory for database files. Required unless
	// InMemory is true.
	Path string

	// InMemory enables in-memory mode with no disk persistence.
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's own log output. If nil, BadgerDB's
	// internal logging is disabled.
	Logger *slog.Logger

	// GCInterval is how often to run value log garbage collection.
	// Zero disables GC.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum ratio of discardable data before
	// a GC pass rewrites the value log.
	GCDiscardRatio float64
}

// DefaultConfig returns production defaults: durable writes and a
// five-minute GC cadence.
func DefaultConfig() Config {
	return Config{
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns configuration for tests: no disk I/O, no GC.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Store is the local run archive.
//
// Thread Safety: safe for concurrent use.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
	gc     *gcRunner
}

// Open creates the archive at cfg.Path, or in memory when cfg.InMemory
// is set. The directory is created if missing. Callers must Close the
// store when done.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, fmt.Errorf("%w: path is required for a persistent store", ErrInvalidInput)
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open run archive: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{db: db, logger: logger}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.gc = &gcRunner{
			db:       db,
			interval: cfg.GCInterval,
			ratio:    cfg.GCDiscardRatio,
			stopCh:   make(chan struct{}),
			doneCh:   make(chan struct{}),
			logger:   logger,
		}
		s.gc.start()
	}
	return s, nil
}

// Close stops garbage collection and closes the database.
func (s *Store) Close() error {
	if s.gc != nil {
		s.gc.stop()
	}
	return s.db.Close()
}

func reportKey(runID string) []byte {
	return []byte(runKeyPrefix + runID + reportSuffix)
}

func ensembleKey(runID string) []byte {
	return []byte(runKeyPrefix + runID + ensembleSuffix)
}

// SaveReport persists the report under its run ID, replacing any
// previous version.
func (s *Store) SaveReport(ctx context.Context, rep *report.Report) error {
	if rep == nil {
		return fmt.Errorf("%w: nil report", ErrInvalidInput)
	}
	if rep.RunID == "" {
		return fmt.Errorf("%w: missing run ID", ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(reportKey(rep.RunID), data)
	})
	if err != nil {
		return fmt.Errorf("store report %s: %w", rep.RunID, err)
	}
	return nil
}

// GetReport loads the report for a run.
//
// Outputs:
//   - *report.Report: the stored report.
//   - error: ErrRunNotFound if no report exists for the ID,
//     ErrCorruptRecord if the stored record fails to decode.
func (s *Store) GetReport(ctx context.Context, runID string) (*report.Report, error) {
	data, err := s.get(ctx, reportKey(runID), runID)
	if err != nil {
		return nil, err
	}
	var rep report.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("%w: report %s: %v", ErrCorruptRecord, runID, err)
	}
	return &rep, nil
}

// SaveEnsemble persists a run's null ensemble, replacing any previous
// version.
func (s *Store) SaveEnsemble(ctx context.Context, runID string, ens *calibration.Ensemble) error {
	if runID == "" {
		return fmt.Errorf("%w: missing run ID", ErrInvalidInput)
	}
	if ens == nil {
		return fmt.Errorf("%w: nil ensemble", ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(ens)
	if err != nil {
		return fmt.Errorf("marshal ensemble: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(ensembleKey(runID), data)
	})
	if err != nil {
		return fmt.Errorf("store ensemble %s: %w", runID, err)
	}
	return nil
}

// GetEnsemble loads the null ensemble for a run.
func (s *Store) GetEnsemble(ctx context.Context, runID string) (*calibration.Ensemble, error) {
	data, err := s.get(ctx, ensembleKey(runID), runID)
	if err != nil {
		return nil, err
	}
	var ens calibration.Ensemble
	if err := json.Unmarshal(data, &ens); err != nil {
		return nil, fmt.Errorf("%w: ensemble %s: %v", ErrCorruptRecord, runID, err)
	}
	return &ens, nil
}

func (s *Store) get(ctx context.Context, key []byte, runID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("read record for %s: %w", runID, err)
	}
	return data, nil
}

// RunSummary is the listing view of one archived run.
type RunSummary struct {
	RunID       string             `json:"run_id"`
	Target      string             `json:"target"`
	GeneratedAt time.Time          `json:"generated_at"`
	IndexBits   float64            `json:"index_bits"`
	ZScore      float64            `json:"z_score"`
	Status      calibration.Status `json:"status"`
}

// ListRuns returns summaries of every archived report, most recent
// first. Records that fail to decode are logged and skipped so one bad
// entry cannot hide the rest of the archive.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	prefix := []byte(runKeyPrefix)
	var runs []RunSummary

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			key := string(item.Key())
			if !strings.HasSuffix(key, reportSuffix) {
				continue
			}

			var rep report.Report
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rep)
			})
			if err != nil {
				s.logger.Warn("skipping undecodable report record",
					slog.String("key", key),
					slog.String("error", err.Error()))
				continue
			}

			sum := RunSummary{
				RunID:       rep.RunID,
				Target:      rep.Target,
				GeneratedAt: rep.GeneratedAt,
				IndexBits:   rep.IndexBits,
			}
			if rep.Assessment != nil {
				sum.ZScore = rep.Assessment.ZScore
				sum.Status = rep.Assessment.Status
			}
			runs = append(runs, sum)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].GeneratedAt.Equal(runs[j].GeneratedAt) {
			return runs[i].GeneratedAt.After(runs[j].GeneratedAt)
		}
		return runs[i].RunID < runs[j].RunID
	})
	return runs, nil
}

// Archive stores a finished report. It satisfies the pipeline's
// archiver contract so a Store can be handed straight to the driver.
func (s *Store) Archive(ctx context.Context, rep *report.Report) error {
	return s.SaveReport(ctx, rep)
}

// ArchiveEnsemble stores a run's null ensemble. It satisfies the
// pipeline's optional ensemble contract, so runs archived through the
// driver can later serve their ensemble from the archive.
func (s *Store) ArchiveEnsemble(ctx context.Context, runID string, ens *calibration.Ensemble) error {
	return s.SaveEnsemble(ctx, runID, ens)
}

// gcRunner periodically triggers BadgerDB value log garbage collection.
type gcRunner struct {
	db       *badger.DB
	interval time.Duration
	ratio    float64
	stopCh   chan struct{}
	doneCh   chan struct{}
	logger   *slog.Logger
}

func (r *gcRunner) start() { go r.run() }

func (r *gcRunner) stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *gcRunner) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.runGC()
		}
	}
}

func (r *gcRunner) runGC() {
	// RunValueLogGC returns ErrNoRewrite when nothing needed collecting.
	err := r.db.RunValueLogGC(r.ratio)
	switch {
	case err == nil:
		r.logger.Debug("badger value log GC completed")
	case !errors.Is(err, badger.ErrNoRewrite):
		r.logger.Warn("badger value log GC error", slog.String("error", err.Error()))
	}
}
