// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scoring builds composite faithfulness scores: it merges
// per-document pillar signals under a missing-pillar renormalization
// policy and normalizes judge-panel ratings into the judge pillar.
package scoring

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/AleutianAI/Veracity/services/eval"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrInvalidWeights indicates a weight map that does not sum to 1.
	ErrInvalidWeights = errors.New("pillar weights must sum to 1")

	// ErrValueOutOfRange indicates a pillar value outside [0,1].
	ErrValueOutOfRange = errors.New("pillar value outside [0,1]")
)

// weightSumTolerance is how far from 1.0 a configured weight sum may
// drift before the config is rejected as a contract violation.
const weightSumTolerance = 1e-6

// -----------------------------------------------------------------------------
// Pillar Aggregator
// -----------------------------------------------------------------------------

// DefaultWeights returns the configured composite weights.
func DefaultWeights() map[eval.Pillar]float64 {
	return map[eval.Pillar]float64{
		eval.PillarNLI:      0.35,
		eval.PillarJudge:    0.40,
		eval.PillarCoverage: 0.25,
	}
}

// Aggregator merges per-document pillar scores into one composite under
// a missing-pillar renormalization policy.
//
// Description:
//
//	A missing pillar must not silently count as a zero score (which
//	would crater comparisons), nor be ignored without flagging
//	incomparability. The aggregator renormalizes the remaining weights
//	and downgrades the result to PROVISIONAL instead.
//
// Thread Safety: Safe for concurrent use after construction.
type Aggregator struct {
	weights map[eval.Pillar]float64
	logger  *slog.Logger
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithAggregatorLogger sets the structured logger.
func WithAggregatorLogger(logger *slog.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAggregator creates an Aggregator with the given fixed weights.
//
// Inputs:
//   - weights: Pillar weight map. Nil means DefaultWeights(). Must be
//     non-negative and sum to 1 within tolerance; a bad map is a config
//     error and fails fast.
//   - opts: Optional configuration.
//
// Outputs:
//   - *Aggregator: The configured aggregator.
//   - error: ErrInvalidWeights on a malformed weight map.
func NewAggregator(weights map[eval.Pillar]float64, opts ...AggregatorOption) (*Aggregator, error) {
	if weights == nil {
		weights = DefaultWeights()
	}
	var sum float64
	for p, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("%w: negative weight %v for pillar %s", ErrInvalidWeights, w, p)
		}
		sum += w
	}
	if math.Abs(sum-1) > weightSumTolerance {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidWeights, sum)
	}

	a := &Aggregator{
		weights: weights,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Weights returns a copy of the configured weight map.
func (a *Aggregator) Weights() map[eval.Pillar]float64 {
	out := make(map[eval.Pillar]float64, len(a.weights))
	for p, w := range a.weights {
		out[p] = w
	}
	return out
}

// Combine merges one document's pillar scores into a composite.
//
// Description:
//
//	Only pillars with a non-nil value are available. With no available
//	pillar the result is UNSCORABLE with a nil score. Otherwise weights
//	are renormalized over the available pillars (w'_i = w_i / sum) to
//	produce weights_used, and score and confidence are the renormalized
//	weighted sums, clamped to [0,1]. Mode is FULL only when every
//	configured pillar contributed; any missing pillar downgrades to
//	PROVISIONAL with a warning naming it.
//
// Inputs:
//   - pillars: Per-pillar scores for one (document, system) pair. Keys
//     must be configured pillars; values in [0,1] or nil.
//
// Outputs:
//   - eval.CompositeResult: Score, mode, weights_used, and warnings.
//   - error: Non-nil on contract violations (unknown pillar, value out
//     of range). Missing data is not an error.
//
// Thread Safety: Safe for concurrent use.
func (a *Aggregator) Combine(pillars map[eval.Pillar]eval.PillarScore) (eval.CompositeResult, error) {
	var missing []string
	available := make(map[eval.Pillar]eval.PillarScore)
	var availableWeight float64

	for p := range pillars {
		if _, ok := a.weights[p]; !ok {
			return eval.CompositeResult{}, fmt.Errorf("%w: %s", eval.ErrUnknownPillar, p)
		}
	}

	for p, w := range a.weights {
		ps, ok := pillars[p]
		if !ok || !ps.Available() {
			missing = append(missing, string(p))
			continue
		}
		if *ps.Value < 0 || *ps.Value > 1 {
			return eval.CompositeResult{}, fmt.Errorf("%w: pillar %s value %v", ErrValueOutOfRange, p, *ps.Value)
		}
		available[p] = ps
		availableWeight += w
	}
	sort.Strings(missing)

	if len(available) == 0 {
		a.logger.Warn("composite unscorable", "missing_pillars", missing)
		return eval.CompositeResult{
			Score:       nil,
			Mode:        eval.ModeUnscorable,
			WeightsUsed: map[eval.Pillar]float64{},
			Warnings:    []string{"no pillar available; document cannot be scored"},
		}, nil
	}

	weightsUsed := make(map[eval.Pillar]float64, len(available))
	var score, confidence float64
	for p, ps := range available {
		w := a.weights[p] / availableWeight
		weightsUsed[p] = w
		score += w * *ps.Value
		confidence += w * ps.Confidence
	}
	score = clamp01(score)
	confidence = clamp01(confidence)

	result := eval.CompositeResult{
		Score:       &score,
		Confidence:  confidence,
		Mode:        eval.ModeFull,
		WeightsUsed: weightsUsed,
	}
	if len(missing) > 0 {
		result.Mode = eval.ModeProvisional
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"pillar(s) missing: %s; provisional score is not comparable to runs with full pillar coverage",
			strings.Join(missing, ", ")))
		a.logger.Warn("composite provisional", "missing_pillars", missing, "score", score)
	}
	return result, nil
}

// clamp01 bounds v to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
