// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package significance decides whether one system's mean composite
// score is reliably higher than another's, using a paired bootstrap
// over the documents both systems were scored on.
package significance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/Veracity/services/eval/stats"
	"github.com/AleutianAI/Veracity/services/eval/telemetry"
)

// ErrMismatchedSeries reports score series of different lengths. The
// comparison is paired per document, so unequal lengths are a contract
// violation upstream.
var ErrMismatchedSeries = errors.New("significance: score series length mismatch")

// minUsableSample is the floor below which comparisons carry a low-N
// warning.
const minUsableSample = 5

const confidenceLevel = 0.95

// -----------------------------------------------------------------------------
// Results
// -----------------------------------------------------------------------------

// Comparison is the outcome of one pairwise system comparison.
type Comparison struct {
	SystemA string `json:"system_a"`
	SystemB string `json:"system_b"`

	// MeanDiff is mean(A) - mean(B) over the shared documents.
	MeanDiff float64                  `json:"mean_diff"`
	CI       stats.ConfidenceInterval `json:"ci_95"`

	// Significant is true iff the 95% interval excludes zero.
	Significant bool `json:"significant"`

	// Winner names the higher-mean system, and only when the
	// difference is significant. Empty otherwise.
	Winner string `json:"winner,omitempty"`

	N        int      `json:"n"`
	Warnings []string `json:"warnings,omitempty"`
}

// -----------------------------------------------------------------------------
// Engine
// -----------------------------------------------------------------------------

// Engine runs paired bootstrap mean comparisons.
//
// Thread Safety: Safe for concurrent use after construction.
type Engine struct {
	iterations int
	workers    int
	seed       uint64
	logger     *slog.Logger
	metrics    *telemetry.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithIterations sets the bootstrap iteration count (floor 1000).
func WithIterations(n int) Option {
	return func(e *Engine) { e.iterations = n }
}

// WithWorkers caps bootstrap parallelism.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithSeed makes bootstrap draws deterministic.
func WithSeed(seed uint64) Option {
	return func(e *Engine) { e.seed = seed }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics enables instrument recording; nil leaves it off.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an Engine with default bootstrap settings.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		iterations: stats.DefaultBootstrapIterations,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CompareMeans compares two systems' scores over the same documents.
//
// Description:
//
//	scoresA[i] and scoresB[i] must score the same document, so each
//	bootstrap iteration resamples document indices once and applies
//	the same draw to both series. Resampling the series independently
//	would discard the pairing and inflate the interval, since both
//	systems face identical per-document difficulty.
//
// Inputs:
//   - ctx: Context for bootstrap cancellation.
//   - systemA, systemB: Display names carried into the Comparison.
//   - scoresA, scoresB: Per-document composite scores, index-aligned.
//
// Outputs:
//   - Comparison: Mean difference, 95% CI, significance verdict.
//   - error: ErrMismatchedSeries, empty input, or cancellation.
//
// Thread Safety: Safe for concurrent use.
func (e *Engine) CompareMeans(ctx context.Context, systemA, systemB string, scoresA, scoresB []float64) (Comparison, error) {
	tracer := otel.Tracer("significance")
	ctx, span := tracer.Start(ctx, "significance.Engine.CompareMeans",
		trace.WithAttributes(
			attribute.String("system_a", systemA),
			attribute.String("system_b", systemB),
			attribute.Int("n", len(scoresA)),
		))
	defer span.End()

	if len(scoresA) != len(scoresB) {
		err := fmt.Errorf("%w: %d vs %d", ErrMismatchedSeries, len(scoresA), len(scoresB))
		span.RecordError(err)
		return Comparison{}, err
	}
	if len(scoresA) == 0 {
		err := fmt.Errorf("significance: %w", stats.ErrNoObservations)
		span.RecordError(err)
		return Comparison{}, err
	}

	cmp := Comparison{
		SystemA:  systemA,
		SystemB:  systemB,
		MeanDiff: stats.Mean(scoresA) - stats.Mean(scoresB),
		N:        len(scoresA),
	}
	if cmp.N < minUsableSample {
		cmp.Warnings = append(cmp.Warnings,
			fmt.Sprintf("small sample (n=%d): interpret with caution", cmp.N))
	}

	cfg := stats.BootstrapConfig{Iterations: e.iterations, Workers: e.workers, Seed: e.seed}
	diffs, err := stats.Bootstrap(ctx, cmp.N, cfg, func(idx []int) float64 {
		var sumA, sumB float64
		for _, j := range idx {
			sumA += scoresA[j]
			sumB += scoresB[j]
		}
		return (sumA - sumB) / float64(len(idx))
	})
	if err != nil {
		span.RecordError(err)
		return Comparison{}, fmt.Errorf("bootstrap mean diff: %w", err)
	}

	cmp.CI = stats.PercentileCI(diffs, confidenceLevel)
	cmp.Significant = !cmp.CI.Contains(0)
	if cmp.Significant {
		if cmp.MeanDiff > 0 {
			cmp.Winner = systemA
		} else {
			cmp.Winner = systemB
		}
	}

	if e.metrics != nil {
		e.metrics.SignificanceComparisonsTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.Bool("significant", cmp.Significant)))
		e.metrics.BootstrapIterationsTotal.Add(ctx, int64(e.iterations),
			metric.WithAttributes(attribute.String("engine", "significance")))
	}
	e.logger.Info("mean comparison",
		"system_a", systemA, "system_b", systemB,
		"mean_diff", cmp.MeanDiff, "significant", cmp.Significant)
	return cmp, nil
}
