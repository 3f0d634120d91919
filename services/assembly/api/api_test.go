// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/accrete/services/assembly/calibration"
	"github.com/AleutianAI/accrete/services/assembly/report"
	"github.com/AleutianAI/accrete/services/assembly/storage/badgerstore"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testRouter(t *testing.T) (*badgerstore.Store, *gin.Engine) {
	t.Helper()
	cfg := badgerstore.InMemoryConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := badgerstore.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	handlers := NewHandlers(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return store, NewRouter(handlers, "accrete-test")
}

func seedReport(t *testing.T, store *badgerstore.Store, runID, target string, at time.Time) *report.Report {
	t.Helper()
	rep := &report.Report{
		RunID:       runID,
		Version:     "1.0.0",
		GeneratedAt: at,
		Target:      target,
		Seed:        42,
		Mass:        5e11,
		Resolution:  32,
		Snapshots:   20,
		IndexBits:   47.25,
		Assessment: &calibration.Assessment{
			Observed:     47.25,
			NullMean:     31.5,
			NullStd:      3.5,
			EnsembleSize: 200,
			ZScore:       4.5,
			Threshold:    3.0,
			Significant:  true,
			Status:       calibration.StatusIntegrated,
		},
	}
	require.NoError(t, store.SaveReport(context.Background(), rep))
	return rep
}

func doGet(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", path, nil)
	router.ServeHTTP(w, req)
	return w
}

// =============================================================================
// Health Tests
// =============================================================================

func TestHealthz_ReturnsOK(t *testing.T) {
	_, router := testRouter(t)

	w := doGet(router, "/healthz")

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "ok", response["status"])
}

// =============================================================================
// ListRuns Tests
// =============================================================================

func TestListRuns_EmptyArchive(t *testing.T) {
	_, router := testRouter(t)

	w := doGet(router, "/v1/runs")

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Runs  []badgerstore.RunSummary `json:"runs"`
		Count int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 0, response.Count)
	assert.NotNil(t, response.Runs)
	assert.Empty(t, response.Runs)
}

func TestListRuns_NewestFirst(t *testing.T) {
	store, router := testRouter(t)
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	seedReport(t, store, "run-old", "NGC-1275", base)
	seedReport(t, store, "run-new", "NGC-1275", base.Add(2*time.Hour))

	w := doGet(router, "/v1/runs")

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Runs  []badgerstore.RunSummary `json:"runs"`
		Count int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, 2, response.Count)
	assert.Equal(t, "run-new", response.Runs[0].RunID)
	assert.Equal(t, "run-old", response.Runs[1].RunID)
	assert.Equal(t, "NGC-1275", response.Runs[0].Target)
	assert.InDelta(t, 47.25, response.Runs[0].IndexBits, 1e-12)
	assert.InDelta(t, 4.5, response.Runs[0].ZScore, 1e-12)
	assert.Equal(t, calibration.StatusIntegrated, response.Runs[0].Status)
}

// =============================================================================
// GetReport Tests
// =============================================================================

func TestGetReport_ReturnsFullReport(t *testing.T) {
	store, router := testRouter(t)
	seeded := seedReport(t, store, "run-a", "halo-7", time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))

	w := doGet(router, "/v1/runs/run-a/report")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	var got report.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, seeded.RunID, got.RunID)
	assert.Equal(t, seeded.Target, got.Target)
	assert.InDelta(t, seeded.IndexBits, got.IndexBits, 1e-12)
	require.NotNil(t, got.Assessment)
	assert.InDelta(t, 4.5, got.Assessment.ZScore, 1e-12)
	assert.True(t, got.Assessment.Significant)
}

func TestGetReport_NotFound(t *testing.T) {
	_, router := testRouter(t)

	w := doGet(router, "/v1/runs/no-such-run/report")

	assert.Equal(t, http.StatusNotFound, w.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "run not found", response["error"])
	assert.Equal(t, "no-such-run", response["run_id"])
}

// =============================================================================
// GetEnsemble Tests
// =============================================================================

func TestGetEnsemble_ReturnsEnsemble(t *testing.T) {
	store, router := testRouter(t)
	ens := &calibration.Ensemble{
		Seed:   42,
		Target: 4,
		Values: map[int]float64{0: 30.5, 1: 31.25, 3: 29.75},
		Failed: []int{2},
	}
	require.NoError(t, store.SaveEnsemble(context.Background(), "run-a", ens))

	w := doGet(router, "/v1/runs/run-a/ensemble")

	assert.Equal(t, http.StatusOK, w.Code)

	var got calibration.Ensemble
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, ens.Target, got.Target)
	assert.Equal(t, ens.Values, got.Values)
	assert.Equal(t, ens.Failed, got.Failed)
	assert.True(t, got.Complete())
}

func TestGetEnsemble_NotFound(t *testing.T) {
	store, router := testRouter(t)
	// A run with a report but no stored ensemble still 404s here.
	seedReport(t, store, "run-a", "halo-7", time.Now().UTC())

	w := doGet(router, "/v1/runs/run-a/ensemble")

	assert.Equal(t, http.StatusNotFound, w.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ensemble not found", response["error"])
}
