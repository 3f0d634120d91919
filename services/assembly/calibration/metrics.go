// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package calibration

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level tracer and meter for calibration operations.
var (
	tracer = otel.Tracer("accrete.calibration")
	meter  = otel.Meter("accrete.calibration")
)

// Metrics for ensemble construction.
var (
	memberDuration metric.Float64Histogram
	membersTotal   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		memberDuration, err = meter.Float64Histogram(
			"calibration_member_duration_seconds",
			metric.WithDescription("Duration of one ensemble member's generation and integration"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		membersTotal, err = meter.Int64Counter(
			"calibration_members_total",
			metric.WithDescription("Total ensemble members attempted"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordMember records metrics for one attempted ensemble member.
func recordMember(ctx context.Context, duration time.Duration, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	memberDuration.Record(ctx, duration.Seconds(), attrs)
	membersTotal.Add(ctx, 1, attrs)
}
