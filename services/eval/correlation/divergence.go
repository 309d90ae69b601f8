// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package correlation

import (
	"fmt"
	"sort"
)

// defaultDisagreementThreshold is the minimum baseline/composite score
// gap that counts as a disagreement.
const defaultDisagreementThreshold = 0.15

// -----------------------------------------------------------------------------
// Divergence
// -----------------------------------------------------------------------------

// DivergenceReport compares a baseline metric series against the
// composite series.
//
// Low or negative correlation is the expected outcome here: it is
// evidence that the composite captures something the lexical or
// embedding baseline does not. High correlation would mean the
// composite merely restates the baseline.
type DivergenceReport struct {
	Rank    Result `json:"rank"`
	Linear  Result `json:"linear"`
	Diverge bool   `json:"diverges"`
}

// Divergence correlates a baseline metric series against composite
// scores over the same observations.
func Divergence(baseline, composite []*float64) (DivergenceReport, error) {
	rank, err := Correlate(baseline, composite, MethodRank)
	if err != nil {
		return DivergenceReport{}, fmt.Errorf("rank divergence: %w", err)
	}
	linear, err := Correlate(baseline, composite, MethodLinear)
	if err != nil {
		return DivergenceReport{}, fmt.Errorf("linear divergence: %w", err)
	}

	report := DivergenceReport{Rank: rank, Linear: linear}
	if rank.Coefficient != nil {
		report.Diverge = *rank.Coefficient < 0.7
	}
	return report, nil
}

// -----------------------------------------------------------------------------
// Disagreement finder
// -----------------------------------------------------------------------------

// Disagreement is one observation where the baseline and the composite
// strongly disagree. These are the interesting cases: they show what
// the multi-pillar score catches that the baseline misses, or vice
// versa.
type Disagreement struct {
	DocumentID string  `json:"document_id"`
	SystemID   string  `json:"system_id"`
	Baseline   float64 `json:"baseline"`
	Composite  float64 `json:"composite"`
	Gap        float64 `json:"gap"`

	// Direction is "baseline_higher" or "composite_higher".
	Direction string `json:"direction"`
}

// Observation pairs a baseline score and a composite score for one
// (document, system).
type Observation struct {
	DocumentID string
	SystemID   string
	Baseline   *float64
	Composite  *float64
}

// FindDisagreements returns the top-k observations whose baseline and
// composite scores differ by more than threshold, largest gap first.
// A non-positive threshold falls back to the default, a non-positive k
// returns all matches.
func FindDisagreements(obs []Observation, threshold float64, k int) []Disagreement {
	if threshold <= 0 {
		threshold = defaultDisagreementThreshold
	}

	var out []Disagreement
	for _, o := range obs {
		if o.Baseline == nil || o.Composite == nil {
			continue
		}
		gap := *o.Baseline - *o.Composite
		abs := gap
		if abs < 0 {
			abs = -abs
		}
		if abs <= threshold {
			continue
		}
		direction := "composite_higher"
		if gap > 0 {
			direction = "baseline_higher"
		}
		out = append(out, Disagreement{
			DocumentID: o.DocumentID,
			SystemID:   o.SystemID,
			Baseline:   *o.Baseline,
			Composite:  *o.Composite,
			Gap:        abs,
			Direction:  direction,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Gap != out[j].Gap {
			return out[i].Gap > out[j].Gap
		}
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].SystemID < out[j].SystemID
	})

	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}
