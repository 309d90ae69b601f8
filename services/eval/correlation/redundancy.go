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
	"math"

	"github.com/AleutianAI/Veracity/services/eval"
)

// -----------------------------------------------------------------------------
// Redundancy bands
// -----------------------------------------------------------------------------

type redundancyBand struct {
	match func(float64) bool
	label string
}

// Pillars should measure distinct things; strong correlation between
// two of them means one carries little extra information.
var redundancyBands = []redundancyBand{
	{func(rho float64) bool { return math.Abs(rho) > 0.7 }, "redundant"},
	{func(rho float64) bool { return math.Abs(rho) >= 0.3 }, "overlapping"},
	{func(rho float64) bool { return true }, "complementary"},
}

// RedundancyBand labels a pillar-pair rank coefficient.
func RedundancyBand(rho float64) string {
	for _, b := range redundancyBands {
		if b.match(rho) {
			return b.label
		}
	}
	return "complementary"
}

// -----------------------------------------------------------------------------
// Pillar matrix
// -----------------------------------------------------------------------------

// PillarPair is the redundancy report for one pair of pillars.
type PillarPair struct {
	PillarA eval.Pillar `json:"pillar_a"`
	PillarB eval.Pillar `json:"pillar_b"`
	Result  Result      `json:"result"`

	// Band is empty when the coefficient is undefined.
	Band string `json:"band,omitempty"`
}

// PillarMatrix computes rank correlation for every pillar pair over the
// score records.
//
// Description:
//
//	Each record contributes one observation per pillar. Unavailable
//	pillar values enter as nil and are dropped pairwise by Correlate,
//	so a record missing coverage still counts toward the nli/judge
//	pair.
//
// Inputs:
//   - records: Score records, typically Matrix.Records().
//
// Outputs:
//   - []PillarPair: One entry per unordered pillar pair, in Pillars()
//     order.
//   - error: Non-nil only on an internal series-construction bug.
//
// Thread Safety: Safe for concurrent use.
func PillarMatrix(records []eval.ScoreRecord) ([]PillarPair, error) {
	pillars := eval.Pillars()

	series := make(map[eval.Pillar][]*float64, len(pillars))
	for _, rec := range records {
		for _, p := range pillars {
			ps, ok := rec.Pillars[p]
			if ok && ps.Available() {
				v := *ps.Value
				series[p] = append(series[p], &v)
			} else {
				series[p] = append(series[p], nil)
			}
		}
	}

	var out []PillarPair
	for i := 0; i < len(pillars); i++ {
		for j := i + 1; j < len(pillars); j++ {
			res, err := Correlate(series[pillars[i]], series[pillars[j]], MethodRank)
			if err != nil {
				return nil, err
			}
			pair := PillarPair{PillarA: pillars[i], PillarB: pillars[j], Result: res}
			if res.Coefficient != nil {
				pair.Band = RedundancyBand(*res.Coefficient)
			}
			out = append(out, pair)
		}
	}
	return out, nil
}
