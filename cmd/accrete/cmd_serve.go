// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/accrete/pkg/ux"
	"github.com/AleutianAI/accrete/services/assembly/api"
)

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// runServe exposes the run archive through the read-only JSON API.
// Metrics appear on the same listener when the prometheus exporter is
// enabled.
func runServe(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig()
	logger := newRunLogger(cfg)
	defer logger.Close()

	shutdownTelemetry := setupTelemetry(context.Background(), cfg, logger)
	defer shutdownTelemetry()

	if !serveDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := openArchive(cfg, logger)
	if err != nil {
		ux.Error(fmt.Sprintf("archive: %v", err))
		os.Exit(1)
	}
	defer store.Close()

	handlers := api.NewHandlers(store, logger.Slog())
	router := api.NewRouter(handlers, cfg.Observability.ServiceName)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", servePort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("archive API listening", "addr", srv.Addr)
	ux.Info(fmt.Sprintf("Serving run archive on %s", srv.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			ux.Error(fmt.Sprintf("server: %v", err))
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown failed", "error", err)
		}
	}
}
