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
	"math"

	"github.com/AleutianAI/Veracity/services/eval"
	"github.com/AleutianAI/Veracity/services/eval/stats"
)

// lengthBiasThreshold is the |r| above which a length correlation is
// treated as detected bias.
const lengthBiasThreshold = 0.3

// LengthSample pairs one rating with the word length of the output it
// rated.
type LengthSample struct {
	Rating eval.RaterRating
	Length int
}

// LengthStats summarizes the lengths in a bias audit.
type LengthStats struct {
	Mean float64 `json:"mean"`
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Std  float64 `json:"std"`
}

// LengthBiasReport is the length-bias audit for one rater.
//
// A positive correlation with completeness is expected and benign:
// longer summaries naturally cover more content. A positive correlation
// with factual accuracy is the combination that matters, since length
// should not affect truthfulness.
type LengthBiasReport struct {
	RaterID string `json:"rater_id"`
	N       int    `json:"n"`

	Pearson  Result `json:"pearson"`
	Spearman Result `json:"spearman"`

	FactualAccuracyR *float64 `json:"factual_accuracy_r"`
	CompletenessR    *float64 `json:"completeness_r"`

	Lengths LengthStats `json:"summary_lengths"`

	// BiasDetected is true when |pearson r| of length versus the
	// rater's overall score exceeds the threshold.
	BiasDetected bool `json:"bias_detected"`

	// Concerning is true only when the factual-accuracy correlation is
	// itself positive past the threshold.
	Concerning bool `json:"concerning"`

	Interpretation string `json:"interpretation"`
}

// LengthBias audits one rater's scores against output lengths.
//
// Description:
//
//	Correlates output length with the rater's overall score, then
//	breaks the correlation down per dimension. Only a positive
//	length/factual-accuracy correlation is reported as concerning.
//
// Inputs:
//   - raterID: The rater under audit; carried into the report.
//   - samples: Length-rating pairs for that rater. Ratings are
//     validated and fail fast when out of range.
//
// Outputs:
//   - LengthBiasReport: Per-rater audit with warnings surfaced via the
//     embedded Results.
//   - error: Non-nil on invalid ratings.
//
// Thread Safety: Safe for concurrent use.
func LengthBias(raterID string, samples []LengthSample) (LengthBiasReport, error) {
	report := LengthBiasReport{RaterID: raterID, N: len(samples)}
	if len(samples) == 0 {
		report.Interpretation = "no samples"
		return report, nil
	}

	lengths := make([]*float64, len(samples))
	overall := make([]*float64, len(samples))
	fa := make([]*float64, len(samples))
	comp := make([]*float64, len(samples))
	raw := make([]float64, len(samples))

	for i, s := range samples {
		if err := s.Rating.Validate(); err != nil {
			return LengthBiasReport{}, fmt.Errorf("sample %d: %w", i, err)
		}
		l := float64(s.Length)
		o := s.Rating.Raw()
		f := float64(s.Rating.FactualAccuracy)
		c := float64(s.Rating.Completeness)
		lengths[i], overall[i], fa[i], comp[i] = &l, &o, &f, &c
		raw[i] = l
	}

	pearsonRes, err := Correlate(lengths, overall, MethodLinear)
	if err != nil {
		return LengthBiasReport{}, err
	}
	spearmanRes, err := Correlate(lengths, overall, MethodRank)
	if err != nil {
		return LengthBiasReport{}, err
	}
	faRes, err := Correlate(lengths, fa, MethodLinear)
	if err != nil {
		return LengthBiasReport{}, err
	}
	compRes, err := Correlate(lengths, comp, MethodLinear)
	if err != nil {
		return LengthBiasReport{}, err
	}

	report.Pearson = pearsonRes
	report.Spearman = spearmanRes
	report.FactualAccuracyR = faRes.Coefficient
	report.CompletenessR = compRes.Coefficient
	report.Lengths = lengthStats(raw)

	if pearsonRes.Coefficient != nil {
		r := *pearsonRes.Coefficient
		report.BiasDetected = math.Abs(r) > lengthBiasThreshold
		report.Interpretation = interpretLengthBias(r)
	} else {
		report.Interpretation = "correlation undefined"
	}
	if report.FactualAccuracyR != nil && *report.FactualAccuracyR > lengthBiasThreshold {
		report.Concerning = true
	}
	return report, nil
}

// interpretLengthBias renders the human-readable length-bias band.
func interpretLengthBias(r float64) string {
	abs := math.Abs(r)
	direction := "shorter"
	if r > 0 {
		direction = "longer"
	}
	switch {
	case abs > 0.5:
		return fmt.Sprintf("strong bias toward %s summaries (r=%.3f)", direction, r)
	case abs > 0.3:
		return fmt.Sprintf("moderate bias toward %s summaries (r=%.3f)", direction, r)
	case abs > 0.1:
		return fmt.Sprintf("slight tendency toward %s summaries (r=%.3f), not significant", direction, r)
	default:
		return fmt.Sprintf("no length bias detected (r=%.3f)", r)
	}
}

// lengthStats summarizes the raw length distribution.
func lengthStats(lengths []float64) LengthStats {
	min := lengths[0]
	max := lengths[0]
	for _, l := range lengths {
		if l < min {
			min = l
		}
		if l > max {
			max = l
		}
	}
	return LengthStats{
		Mean: stats.Mean(lengths),
		Min:  int(min),
		Max:  int(max),
		Std:  stats.StdDev(lengths),
	}
}
