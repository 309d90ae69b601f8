// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agreement

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/Veracity/services/eval"
	"github.com/AleutianAI/Veracity/services/eval/stats"
	"github.com/AleutianAI/Veracity/services/eval/telemetry"
)

// minUsableSample is the floor below which results carry a low-N
// warning; they are reported, not suppressed.
const minUsableSample = 5

// -----------------------------------------------------------------------------
// Results
// -----------------------------------------------------------------------------

// Result is the agreement report for one rater pair on one dimension.
//
// Kappa and Tau answer different questions and are never collapsed into
// one number: kappa measures chance-corrected absolute agreement on the
// ordinal scale, tau measures whether the raters order items the same
// way. Nil statistics mean the pair was degenerate (constant vectors or
// zero overlap); the accompanying warning says why.
type Result struct {
	RaterA    string         `json:"rater_a"`
	RaterB    string         `json:"rater_b"`
	Dimension eval.Dimension `json:"dimension"`

	Kappa     *float64                  `json:"kappa"`
	KappaCI   *stats.ConfidenceInterval `json:"kappa_ci"`
	KappaBand string                    `json:"kappa_band,omitempty"`

	Tau     *float64                  `json:"tau"`
	TauCI   *stats.ConfidenceInterval `json:"tau_ci"`
	TauBand string                    `json:"tau_band,omitempty"`

	// PValue is the two-sided p-value for tau against its null
	// distribution (permutation below N=20, asymptotic otherwise).
	PValue *float64 `json:"p_value"`

	// N counts the overlapping (document, system) observations.
	N int `json:"n"`

	Warnings []string `json:"warnings,omitempty"`
}

// -----------------------------------------------------------------------------
// Engine
// -----------------------------------------------------------------------------

// Engine computes pairwise inter-rater agreement with bootstrap
// confidence intervals.
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

// WithSeed makes bootstrap and permutation draws deterministic.
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

// Compare computes agreement between two raters, one Result per
// dimension.
//
// Description:
//
//	Ratings are matched on (document, system); only pairs both raters
//	scored enter the statistics. Zero overlap and constant rating
//	vectors are missing-data conditions: the Result carries nil
//	statistics plus a warning instead of a misleading number. Samples
//	below five observations are reported with a low-N warning.
//
// Inputs:
//   - ctx: Context for bootstrap cancellation.
//   - raterA, raterB: The rater pair. Order does not affect kappa.
//   - ratings: The rating pool; ratings from other raters are ignored.
//
// Outputs:
//   - []Result: One Result per rating dimension.
//   - error: Non-nil on invalid ratings or cancellation.
//
// Thread Safety: Safe for concurrent use.
func (e *Engine) Compare(ctx context.Context, raterA, raterB string, ratings []eval.RaterRating) ([]Result, error) {
	start := time.Now()
	tracer := otel.Tracer("agreement")
	ctx, span := tracer.Start(ctx, "agreement.Engine.Compare",
		trace.WithAttributes(
			attribute.String("rater_a", raterA),
			attribute.String("rater_b", raterB),
			attribute.Int("ratings", len(ratings)),
		))
	defer span.End()

	byA := make(map[string]eval.RaterRating)
	byB := make(map[string]eval.RaterRating)
	for _, r := range ratings {
		if r.RaterID != raterA && r.RaterID != raterB {
			continue
		}
		if err := r.Validate(); err != nil {
			span.RecordError(err)
			return nil, err
		}
		key := r.DocumentID + "\x00" + r.SystemID
		if r.RaterID == raterA {
			byA[key] = r
		} else {
			byB[key] = r
		}
	}

	var keys []string
	for k := range byA {
		if _, ok := byB[k]; ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	results := make([]Result, 0, 2)
	for _, dim := range eval.Dimensions() {
		a := make([]int, 0, len(keys))
		b := make([]int, 0, len(keys))
		for _, k := range keys {
			a = append(a, byA[k].Value(dim))
			b = append(b, byB[k].Value(dim))
		}
		res, err := e.compareDimension(ctx, raterA, raterB, dim, a, b)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		results = append(results, res)
	}

	if e.metrics != nil {
		e.metrics.AgreementComparisonsTotal.Add(ctx, int64(len(results)))
		e.metrics.AgreementDuration.Record(ctx, time.Since(start).Seconds())
	}
	e.logger.Info("agreement computed",
		"rater_a", raterA, "rater_b", raterB, "n", len(keys))
	return results, nil
}

// AllPairs computes agreement for every distinct rater pair in the pool.
func (e *Engine) AllPairs(ctx context.Context, ratings []eval.RaterRating) ([]Result, error) {
	seen := make(map[string]bool)
	for _, r := range ratings {
		seen[r.RaterID] = true
	}
	raters := make([]string, 0, len(seen))
	for id := range seen {
		raters = append(raters, id)
	}
	sort.Strings(raters)

	var out []Result
	for i := 0; i < len(raters); i++ {
		for j := i + 1; j < len(raters); j++ {
			results, err := e.Compare(ctx, raters[i], raters[j], ratings)
			if err != nil {
				return nil, err
			}
			out = append(out, results...)
		}
	}
	return out, nil
}

// compareDimension computes both statistics for one dimension's aligned
// vectors.
func (e *Engine) compareDimension(ctx context.Context, raterA, raterB string, dim eval.Dimension, a, b []int) (Result, error) {
	res := Result{RaterA: raterA, RaterB: raterB, Dimension: dim, N: len(a)}

	if len(a) == 0 {
		res.Warnings = append(res.Warnings, "no overlapping ratings for this rater pair")
		return res, nil
	}
	if distinct(a) < 2 || distinct(b) < 2 {
		res.Warnings = append(res.Warnings,
			"constant rating vector; agreement is undefined for this pair")
		return res, nil
	}
	if len(a) < minUsableSample {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("small sample (n=%d): interpret with caution", len(a)))
	}

	kappa := WeightedKappa(a, b)
	res.Kappa = &kappa
	res.KappaBand = KappaBand(kappa)

	af := make([]float64, len(a))
	bf := make([]float64, len(b))
	for i := range a {
		af[i] = float64(a[i])
		bf[i] = float64(b[i])
	}
	tau, ok := KendallTau(af, bf)
	if ok {
		res.Tau = &tau
		res.TauBand = TauBand(tau)

		var p float64
		if len(a) < permutationThreshold {
			p = tauPValuePermutation(af, bf, tau, stats.NewRNG(e.seed))
		} else {
			p = tauPValueAsymptotic(tau, len(a))
		}
		res.PValue = &p
	} else {
		res.Warnings = append(res.Warnings,
			"rank correlation undefined (all pairs tied)")
	}

	cfg := stats.BootstrapConfig{Iterations: e.iterations, Workers: e.workers, Seed: e.seed}

	kappaStats, err := stats.Bootstrap(ctx, len(a), cfg, func(idx []int) float64 {
		ra := make([]int, len(idx))
		rb := make([]int, len(idx))
		for i, j := range idx {
			ra[i] = a[j]
			rb[i] = b[j]
		}
		return WeightedKappa(ra, rb)
	})
	if err != nil {
		return Result{}, fmt.Errorf("bootstrap kappa: %w", err)
	}
	e.countBootstrap(ctx)
	kappaCI := stats.PercentileCI(kappaStats, 0.95)
	res.KappaCI = &kappaCI

	if res.Tau != nil {
		observedTau := *res.Tau
		tauStats, err := stats.Bootstrap(ctx, len(a), cfg, func(idx []int) float64 {
			ra := make([]float64, len(idx))
			rb := make([]float64, len(idx))
			for i, j := range idx {
				ra[i] = af[j]
				rb[i] = bf[j]
			}
			t, ok := KendallTau(ra, rb)
			if !ok {
				// Degenerate resample: fall back to the point estimate
				return observedTau
			}
			return t
		})
		if err != nil {
			return Result{}, fmt.Errorf("bootstrap tau: %w", err)
		}
		e.countBootstrap(ctx)
		tauCI := stats.PercentileCI(tauStats, 0.95)
		res.TauCI = &tauCI
	}

	return res, nil
}

// countBootstrap records one completed bootstrap run's iterations.
func (e *Engine) countBootstrap(ctx context.Context) {
	if e.metrics == nil {
		return
	}
	e.metrics.BootstrapIterationsTotal.Add(ctx, int64(e.iterations),
		metric.WithAttributes(attribute.String("engine", "agreement")))
}

// distinct counts distinct values in a rating vector.
func distinct(xs []int) int {
	seen := make(map[int]bool, len(xs))
	for _, x := range xs {
		seen[x] = true
	}
	return len(seen)
}
