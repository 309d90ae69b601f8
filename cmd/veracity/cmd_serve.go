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
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/Veracity/services/eval/agreement"
	"github.com/AleutianAI/Veracity/services/eval/api"
	"github.com/AleutianAI/Veracity/services/eval/significance"
	"github.com/AleutianAI/Veracity/services/eval/telemetry"
)

const shutdownGrace = 10 * time.Second

func runServe(cmd *cobra.Command, _ []string) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetryCfg := telemetry.DefaultConfig()
	telemetryCfg.TraceExporter = cfg.Telemetry.TraceExporter
	telemetryCfg.MetricExporter = cfg.Telemetry.MetricExporter
	telemetryCfg.PrometheusPort = cfg.Telemetry.PrometheusPort

	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		slog.Error("Failed to initialize telemetry", "error", err)
		return
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if shutdownErr := telemetryShutdown(shutdownCtx); shutdownErr != nil {
			slog.Warn("Telemetry shutdown failed", "error", shutdownErr)
		}
	}()

	st, err := openStore()
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		return
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Warn("Failed to close store", "error", closeErr)
		}
	}()

	var (
		metrics    *telemetry.Metrics
		middleware []gin.HandlerFunc
	)
	if cfg.Telemetry.MetricExporter == "prometheus" {
		metrics, err = telemetry.NewMetrics(otel.GetMeterProvider().Meter("veracity"))
		if err != nil {
			slog.Error("Failed to register metrics", "error", err)
			return
		}
		middleware = append(middleware, api.MetricsMiddleware(metrics))

		// The Prometheus scrape endpoint runs beside the API so metrics
		// stay reachable even when the API is behind auth upstream.
		if metricsHandler := telemetry.MetricsHandler(); metricsHandler != nil {
			go serveMetrics(cfg.Telemetry.PrometheusPort, metricsHandler)
		}
	}

	gin.SetMode(gin.ReleaseMode)
	handlers := api.NewHandlers(st,
		agreementEngine(agreement.WithMetrics(metrics)),
		significanceEngine(significance.WithMetrics(metrics)),
		logger.Slog())
	router := api.NewRouter(handlers, middleware...)

	server := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("Results API listening", "addr", cfg.API.Addr)
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("Server failed", "error", serveErr)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Server shutdown failed", "error", err)
	}
}

func serveMetrics(port int, handler http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	addr := fmt.Sprintf(":%d", port)
	slog.Info("Prometheus metrics listening", "addr", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Warn("Metrics server failed", "error", err)
	}
}
