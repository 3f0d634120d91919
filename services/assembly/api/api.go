// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package api serves the run archive over HTTP.
//
// The API is read-only: runs are created by the pipeline, never through
// this surface. All responses are JSON.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/accrete/services/assembly/storage/badgerstore"
	"github.com/AleutianAI/accrete/services/assembly/telemetry"
)

// Handlers answers archive queries from a run store.
type Handlers struct {
	store  *badgerstore.Store
	logger *slog.Logger
}

// NewHandlers creates the handler set. A nil logger falls back to
// slog.Default().
func NewHandlers(store *badgerstore.Store, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{store: store, logger: logger}
}

// NewRouter assembles the full engine: recovery and tracing middleware,
// health and metrics endpoints, and the versioned archive routes. The
// metrics endpoint appears only when the Prometheus exporter is active.
func NewRouter(handlers *Handlers, service string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(service))

	router.GET("/healthz", handlers.HandleHealth)
	if mh := telemetry.MetricsHandler(); mh != nil {
		router.GET("/metrics", gin.WrapH(mh))
	}

	v1 := router.Group("/v1")
	RegisterRoutes(v1, handlers)
	return router
}

// RegisterRoutes registers the archive routes with the router group.
//
// Endpoints:
//
//	GET /v1/runs              - List archived runs, most recent first
//	GET /v1/runs/:id/report   - Full significance report for one run
//	GET /v1/runs/:id/ensemble - Null ensemble behind the report
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	runs := rg.Group("/runs")
	{
		runs.GET("", handlers.HandleListRuns)
		runs.GET("/:id/report", handlers.HandleGetReport)
		runs.GET("/:id/ensemble", handlers.HandleGetEnsemble)
	}
}

// HandleHealth reports service liveness.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleListRuns returns summaries of every archived run.
func (h *Handlers) HandleListRuns(c *gin.Context) {
	runs, err := h.store.ListRuns(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list archived runs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}
	if runs == nil {
		runs = []badgerstore.RunSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

// HandleGetReport returns the full report for one run.
func (h *Handlers) HandleGetReport(c *gin.Context) {
	runID := c.Param("id")
	rep, err := h.store.GetReport(c.Request.Context(), runID)
	if err != nil {
		if errors.Is(err, badgerstore.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found", "run_id": runID})
			return
		}
		h.logger.Error("failed to load report",
			slog.String("run_id", runID),
			slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load report"})
		return
	}
	c.JSON(http.StatusOK, rep)
}

// HandleGetEnsemble returns the stored null ensemble for one run. Runs
// archived without their ensemble return 404.
func (h *Handlers) HandleGetEnsemble(c *gin.Context) {
	runID := c.Param("id")
	ens, err := h.store.GetEnsemble(c.Request.Context(), runID)
	if err != nil {
		if errors.Is(err, badgerstore.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ensemble not found", "run_id": runID})
			return
		}
		h.logger.Error("failed to load ensemble",
			slog.String("run_id", runID),
			slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load ensemble"})
		return
	}
	c.JSON(http.StatusOK, ens)
}
