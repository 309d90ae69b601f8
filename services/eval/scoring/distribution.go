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
	"fmt"
	"sort"

	"github.com/AleutianAI/Veracity/services/eval"
	"github.com/AleutianAI/Veracity/services/eval/stats"
)

// Discriminative-power thresholds for rater score distributions. A
// rater whose ratings barely vary cannot separate good summaries from
// bad ones.
const (
	lowStdDevThreshold  = 0.5
	narrowRangeMaximum  = 1.0
	histogramBucketBase = 1 // ratings occupy [1,5]
)

// RaterDistribution summarizes one rater's raw rating behavior across
// all documents and systems, for the reliability report.
type RaterDistribution struct {
	RaterID string `json:"rater_id"`

	// N counts individual dimension ratings (two per RaterRating).
	N int `json:"n"`

	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`

	// RangeUsed is Max - Min, how much of the 1-5 scale the rater used.
	RangeUsed float64 `json:"range_used"`

	// Histogram counts ratings per scale point 1..5.
	Histogram [5]int `json:"histogram"`

	// Warnings flags low discriminative power.
	Warnings []string `json:"warnings,omitempty"`
}

// Distributions computes per-rater raw score distributions.
//
// Description:
//
//	Both dimensions of every rating are pooled onto the 1-5 scale per
//	rater. A standard deviation under 0.5 or a used range of one scale
//	point or less is flagged: such a rater contributes little signal to
//	agreement statistics, and its high nominal agreement with peers is
//	an artifact of compression rather than shared judgment.
//
// Inputs:
//   - ratings: Ratings across any documents/systems. Must be valid 1-5.
//
// Outputs:
//   - []RaterDistribution: One entry per rater, sorted by rater ID.
//   - error: The validation error for an out-of-range rating.
func Distributions(ratings []eval.RaterRating) ([]RaterDistribution, error) {
	byRater := make(map[string][]float64)
	for _, r := range ratings {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		byRater[r.RaterID] = append(byRater[r.RaterID],
			float64(r.FactualAccuracy), float64(r.Completeness))
	}

	raters := make([]string, 0, len(byRater))
	for id := range byRater {
		raters = append(raters, id)
	}
	sort.Strings(raters)

	out := make([]RaterDistribution, 0, len(raters))
	for _, id := range raters {
		values := byRater[id]
		d := RaterDistribution{
			RaterID: id,
			N:       len(values),
			Mean:    stats.Mean(values),
			StdDev:  stats.StdDev(values),
			Min:     values[0],
			Max:     values[0],
		}
		for _, v := range values {
			if v < d.Min {
				d.Min = v
			}
			if v > d.Max {
				d.Max = v
			}
			d.Histogram[int(v)-histogramBucketBase]++
		}
		d.RangeUsed = d.Max - d.Min

		if d.StdDev < lowStdDevThreshold {
			d.Warnings = append(d.Warnings, fmt.Sprintf(
				"low discriminative power: std dev %.3f below %.1f", d.StdDev, lowStdDevThreshold))
		}
		if d.RangeUsed <= narrowRangeMaximum {
			d.Warnings = append(d.Warnings, fmt.Sprintf(
				"narrow scale use: range %.1f spans at most one point of the 1-5 scale", d.RangeUsed))
		}
		out = append(out, d)
	}
	return out, nil
}
