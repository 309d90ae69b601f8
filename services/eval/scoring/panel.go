// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scoring

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/Veracity/services/eval"
	"github.com/AleutianAI/Veracity/services/eval/stats"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrInsufficientRatings indicates a judge panel with zero raters.
	// The caller must then treat the judge pillar as unavailable
	// (value=nil), never as zero.
	ErrInsufficientRatings = errors.New("no ratings for judge panel")

	// ErrInvalidRaterWeights indicates an explicit rater weight map with
	// non-positive entries.
	ErrInvalidRaterWeights = errors.New("rater weights must be positive")
)

// Confidence model constants. Confidence starts at a base level, grows
// with each additional contributing rater, and shrinks with the panel's
// pairwise disagreement (variance of per-rater normalized values).
const (
	baseConfidence     = 0.60
	perRaterConfidence = 0.10
	maxRaterConfidence = 0.95
	variancePenalty    = 2.0
)

// -----------------------------------------------------------------------------
// Judge Panel Normalizer
// -----------------------------------------------------------------------------

// Normalizer converts a panel of ordinal 1-5 ratings into the judge
// pillar value.
//
// Description:
//
//	Each rating's two dimensions are averaged onto [1,5] and mapped to
//	[0,1]; the panel value is the arithmetic mean across raters. The
//	panel is unweighted by default — no single AI rater is treated as
//	ground truth. A caller that has run the consistency audit may opt
//	in to explicit rater weights instead.
//
// Thread Safety: Safe for concurrent use after construction.
type Normalizer struct {
	raterWeights map[string]float64
	pillarWeight float64
	logger       *slog.Logger
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithRaterWeights opts in to explicit per-rater weights. Raters absent
// from the map keep weight 1. This is deliberately opt-in: the default
// panel stays unweighted.
func WithRaterWeights(weights map[string]float64) NormalizerOption {
	return func(n *Normalizer) {
		n.raterWeights = weights
	}
}

// WithPillarWeight sets the Weight field stamped on produced scores.
func WithPillarWeight(w float64) NormalizerOption {
	return func(n *Normalizer) {
		n.pillarWeight = w
	}
}

// WithNormalizerLogger sets the structured logger.
func WithNormalizerLogger(logger *slog.Logger) NormalizerOption {
	return func(n *Normalizer) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts ...NormalizerOption) (*Normalizer, error) {
	n := &Normalizer{logger: slog.Default()}
	for _, opt := range opts {
		opt(n)
	}
	for raterID, w := range n.raterWeights {
		if w <= 0 {
			return nil, fmt.Errorf("%w: rater %s weight %v", ErrInvalidRaterWeights, raterID, w)
		}
	}
	return n, nil
}

// Normalize collapses the ratings for one (document, system) pair into
// a single judge PillarScore.
//
// Inputs:
//   - ratings: All raters' ratings for one (document, system) pair.
//     Each rating must be on the 1-5 scale; out-of-range ratings fail
//     fast.
//
// Outputs:
//   - eval.PillarScore: Normalized panel value in [0,1] with a
//     rater-count and disagreement driven confidence.
//   - error: ErrInsufficientRatings when the panel is empty, or the
//     validation error for an out-of-range rating.
//
// Thread Safety: Safe for concurrent use.
func (n *Normalizer) Normalize(ratings []eval.RaterRating) (eval.PillarScore, error) {
	if len(ratings) == 0 {
		return eval.PillarScore{}, ErrInsufficientRatings
	}

	values := make([]float64, 0, len(ratings))
	var weighted, weightSum float64
	for _, r := range ratings {
		if err := r.Validate(); err != nil {
			return eval.PillarScore{}, err
		}
		v := r.Normalized()
		values = append(values, v)

		w := 1.0
		if n.raterWeights != nil {
			if rw, ok := n.raterWeights[r.RaterID]; ok {
				w = rw
			}
		}
		weighted += w * v
		weightSum += w
	}

	value := weighted / weightSum
	confidence := panelConfidence(len(ratings), stats.Variance(values))

	n.logger.Debug("judge panel normalized",
		"raters", len(ratings),
		"value", value,
		"confidence", confidence,
	)

	return eval.PillarScore{
		Value:      &value,
		Confidence: confidence,
		Weight:     n.pillarWeight,
	}, nil
}

// panelConfidence grows with rater count and shrinks with disagreement.
func panelConfidence(raters int, variance float64) float64 {
	c := baseConfidence + perRaterConfidence*float64(raters-1)
	if c > maxRaterConfidence {
		c = maxRaterConfidence
	}
	c -= variancePenalty * variance
	return clamp01(c)
}
