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
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/AleutianAI/Veracity/services/eval/telemetry"
)

// MetricsMiddleware records request counts and latency for every route.
//
// Description:
//
//	Uses the route template (c.FullPath) rather than the raw URL so
//	per-run requests share one label set instead of exploding metric
//	cardinality.
//
// Inputs:
//
//	m - The registered instrument set; nil disables recording.
//
// Outputs:
//
//	gin.HandlerFunc - The middleware.
func MetricsMiddleware(m *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		attrs := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("path", path),
			attribute.String("status", strconv.Itoa(c.Writer.Status())),
		)

		ctx := c.Request.Context()
		m.HTTPRequestsTotal.Add(ctx, 1, attrs)
		m.HTTPRequestDuration.Record(ctx, time.Since(start).Seconds(), attrs)
		if c.Writer.Status() >= http.StatusInternalServerError {
			m.ErrorsTotal.Add(ctx, 1, metric.WithAttributes(
				attribute.String("component", "api"),
				attribute.String("path", path),
			))
		}
	}
}
