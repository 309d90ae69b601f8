// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package consistency audits test-retest reliability: the same rater
// scoring the same (document, system) twice should land on the same
// score. The audit never changes past scores; it only produces a trust
// annotation for downstream reporting.
package consistency

import (
	"errors"
	"fmt"
	"sort"

	"github.com/AleutianAI/Veracity/services/eval/stats"
)

// ErrNoRetests reports an audit with no retest pairs.
var ErrNoRetests = errors.New("consistency: no retest pairs")

const (
	// closeMatchDelta is the |delta| ceiling for a close match.
	closeMatchDelta = 0.1

	// minUsableSample is the floor below which audits carry a low-N
	// warning.
	minUsableSample = 5
)

// -----------------------------------------------------------------------------
// Inputs
// -----------------------------------------------------------------------------

// RetestPair holds an original and a retest score for the same
// (rater, document, system) triple.
type RetestPair struct {
	RaterID    string  `json:"rater_id"`
	DocumentID string  `json:"document_id"`
	SystemID   string  `json:"system_id"`
	Original   float64 `json:"original"`
	Retest     float64 `json:"retest"`
}

// Delta returns |retest - original|.
func (p RetestPair) Delta() float64 {
	d := p.Retest - p.Original
	if d < 0 {
		return -d
	}
	return d
}

// -----------------------------------------------------------------------------
// Results
// -----------------------------------------------------------------------------

// Band labels a rater's stability.
type Band int

const (
	// BandHighlyConsistent means every retest reproduced its original
	// score exactly.
	BandHighlyConsistent Band = iota
	// BandAcceptableVariation means retests stay close even when not
	// exact.
	BandAcceptableVariation
	// BandUnreliable means the rater should be excluded or
	// down-weighted in future ratings.
	BandUnreliable
)

// String returns the band label.
func (b Band) String() string {
	switch b {
	case BandHighlyConsistent:
		return "highly consistent"
	case BandAcceptableVariation:
		return "acceptable variation"
	case BandUnreliable:
		return "unreliable"
	default:
		return fmt.Sprintf("Band(%d)", int(b))
	}
}

// MarshalJSON renders the band label.
func (b Band) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.String() + `"`), nil
}

// Report is the test-retest audit for one rater.
type Report struct {
	RaterID string `json:"rater_id"`
	N       int    `json:"n_retests"`

	MeanAbsDelta   float64 `json:"mean_abs_delta"`
	MaxAbsDelta    float64 `json:"max_abs_delta"`
	ExactMatchRate float64 `json:"exact_match_rate"`
	CloseMatchRate float64 `json:"close_match_rate"`

	Band           Band   `json:"band"`
	Interpretation string `json:"interpretation"`

	Warnings []string `json:"warnings,omitempty"`
}

// -----------------------------------------------------------------------------
// Bands
// -----------------------------------------------------------------------------

type bandRule struct {
	match func(Report) bool
	band  Band
}

var bandRules = []bandRule{
	{func(r Report) bool { return r.ExactMatchRate == 1 && r.MeanAbsDelta == 0 }, BandHighlyConsistent},
	{func(r Report) bool { return r.CloseMatchRate >= 0.8 && r.MeanAbsDelta <= 0.1 }, BandAcceptableVariation},
	{func(r Report) bool { return true }, BandUnreliable},
}

func classifyBand(r Report) Band {
	for _, rule := range bandRules {
		if rule.match(r) {
			return rule.band
		}
	}
	return BandUnreliable
}

// interpretDelta renders the human-readable reliability text from the
// mean absolute delta alone.
func interpretDelta(meanAbsDelta float64) string {
	switch {
	case meanAbsDelta <= 0.05:
		return "highly consistent (excellent test-retest reliability)"
	case meanAbsDelta <= 0.1:
		return "good consistency (acceptable variation)"
	case meanAbsDelta <= 0.2:
		return "moderate consistency (some variation, use caution)"
	default:
		return "poor consistency (unreliable rater)"
	}
}

// -----------------------------------------------------------------------------
// Audit
// -----------------------------------------------------------------------------

// Audit aggregates one rater's retest pairs into a stability report.
//
// Description:
//
//	Computes the absolute score delta per pair, classifies exact
//	(delta of zero) and close (|delta| at most 0.1) matches, and
//	labels the rater with a stability band. Past scores are never
//	modified.
//
// Inputs:
//   - raterID: The rater under audit.
//   - pairs: Retest pairs; pairs for other raters are ignored.
//
// Outputs:
//   - Report: Per-rater aggregate with band and warnings.
//   - error: ErrNoRetests when the rater has no pairs.
//
// Thread Safety: Safe for concurrent use.
func Audit(raterID string, pairs []RetestPair) (Report, error) {
	var deltas []float64
	for _, p := range pairs {
		if p.RaterID != raterID {
			continue
		}
		deltas = append(deltas, p.Delta())
	}
	if len(deltas) == 0 {
		return Report{}, fmt.Errorf("%w (rater %s)", ErrNoRetests, raterID)
	}

	report := Report{RaterID: raterID, N: len(deltas)}

	var exact, closeCount int
	for _, d := range deltas {
		if d == 0 {
			exact++
		}
		if d <= closeMatchDelta {
			closeCount++
		}
		if d > report.MaxAbsDelta {
			report.MaxAbsDelta = d
		}
	}
	report.MeanAbsDelta = stats.Mean(deltas)
	report.ExactMatchRate = float64(exact) / float64(len(deltas))
	report.CloseMatchRate = float64(closeCount) / float64(len(deltas))
	report.Band = classifyBand(report)
	report.Interpretation = interpretDelta(report.MeanAbsDelta)

	if report.N < minUsableSample {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("small sample (n=%d): interpret with caution", report.N))
	}
	return report, nil
}

// AuditAll audits every rater present in the pairs, sorted by rater ID.
func AuditAll(pairs []RetestPair) ([]Report, error) {
	seen := make(map[string]bool)
	for _, p := range pairs {
		seen[p.RaterID] = true
	}
	raters := make([]string, 0, len(seen))
	for id := range seen {
		raters = append(raters, id)
	}
	sort.Strings(raters)

	reports := make([]Report, 0, len(raters))
	for _, id := range raters {
		r, err := Audit(id, pairs)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// -----------------------------------------------------------------------------
// Retest sampling
// -----------------------------------------------------------------------------

// Scored names an item eligible for retesting together with its
// original score.
type Scored struct {
	ID    string
	Score float64
}

// SelectDiverse picks n items spread evenly across the sorted score
// range, so retests cover low, mid, and high scorers rather than
// clustering. Returns all items when n is not smaller than the input.
func SelectDiverse(items []Scored, n int) []string {
	sorted := make([]Scored, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score < sorted[j].Score
		}
		return sorted[i].ID < sorted[j].ID
	})

	if n <= 0 {
		return nil
	}
	if len(sorted) <= n {
		out := make([]string, len(sorted))
		for i, s := range sorted {
			out[i] = s.ID
		}
		return out
	}

	if n == 1 {
		return []string{sorted[0].ID}
	}

	out := make([]string, 0, n)
	step := float64(len(sorted)-1) / float64(n-1)
	prev := -1
	for i := 0; i < n; i++ {
		idx := int(float64(i) * step)
		if idx == prev {
			continue
		}
		prev = idx
		out = append(out, sorted[idx].ID)
	}
	return out
}
