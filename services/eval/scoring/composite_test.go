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
	"math"
	"testing"

	"github.com/AleutianAI/Veracity/services/eval"
)

func pillar(value float64, confidence float64) eval.PillarScore {
	v := value
	return eval.PillarScore{Value: &v, Confidence: confidence}
}

func missingPillar() eval.PillarScore {
	return eval.PillarScore{}
}

func mustAggregator(t *testing.T) *Aggregator {
	t.Helper()
	a, err := NewAggregator(nil)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}
	return a
}

func TestNewAggregator_RejectsBadWeights(t *testing.T) {
	tests := []struct {
		name    string
		weights map[eval.Pillar]float64
	}{
		{"sum below one", map[eval.Pillar]float64{eval.PillarNLI: 0.5}},
		{"sum above one", map[eval.Pillar]float64{eval.PillarNLI: 0.8, eval.PillarJudge: 0.8}},
		{"negative weight", map[eval.Pillar]float64{eval.PillarNLI: 1.5, eval.PillarJudge: -0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAggregator(tt.weights)
			if !errors.Is(err, ErrInvalidWeights) {
				t.Errorf("err = %v, want ErrInvalidWeights", err)
			}
		})
	}
}

func TestCombine_FullCoverage(t *testing.T) {
	// weights {nli:0.35, judge:0.40, coverage:0.25},
	// pillars {nli:{0.80,0.9}, judge:{1.0,0.95}, coverage:{0.90,0.9}}
	// -> score = 0.35*0.80 + 0.40*1.0 + 0.25*0.90 = 0.905, FULL
	a := mustAggregator(t)

	res, err := a.Combine(map[eval.Pillar]eval.PillarScore{
		eval.PillarNLI:      pillar(0.80, 0.9),
		eval.PillarJudge:    pillar(1.0, 0.95),
		eval.PillarCoverage: pillar(0.90, 0.9),
	})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	if res.Mode != eval.ModeFull {
		t.Errorf("mode = %v, want FULL", res.Mode)
	}
	if res.Score == nil || math.Abs(*res.Score-0.905) > 1e-9 {
		t.Errorf("score = %v, want 0.905", res.Score)
	}
	wantConf := 0.35*0.9 + 0.40*0.95 + 0.25*0.9
	if math.Abs(res.Confidence-wantConf) > 1e-9 {
		t.Errorf("confidence = %v, want %v", res.Confidence, wantConf)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", res.Warnings)
	}
	assertWeightsSumToOne(t, res)
}

func TestCombine_MissingPillarRenormalizes(t *testing.T) {
	// coverage=null -> weights_used {nli:0.4667, judge:0.5333},
	// score = 0.4667*0.80 + 0.5333*1.0 = 0.9067, PROVISIONAL, one warning
	a := mustAggregator(t)

	res, err := a.Combine(map[eval.Pillar]eval.PillarScore{
		eval.PillarNLI:      pillar(0.80, 0.9),
		eval.PillarJudge:    pillar(1.0, 0.95),
		eval.PillarCoverage: missingPillar(),
	})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	if res.Mode != eval.ModeProvisional {
		t.Errorf("mode = %v, want PROVISIONAL", res.Mode)
	}
	if res.Score == nil || math.Abs(*res.Score-0.906666666) > 1e-4 {
		t.Errorf("score = %v, want ~0.9067", res.Score)
	}
	if math.Abs(res.WeightsUsed[eval.PillarNLI]-0.4667) > 1e-4 {
		t.Errorf("nli weight = %v, want ~0.4667", res.WeightsUsed[eval.PillarNLI])
	}
	if math.Abs(res.WeightsUsed[eval.PillarJudge]-0.5333) > 1e-4 {
		t.Errorf("judge weight = %v, want ~0.5333", res.WeightsUsed[eval.PillarJudge])
	}
	if _, ok := res.WeightsUsed[eval.PillarCoverage]; ok {
		t.Error("missing pillar must not appear in weights_used")
	}
	if len(res.Warnings) != 1 {
		t.Errorf("warnings = %v, want exactly one", res.Warnings)
	}
	assertWeightsSumToOne(t, res)
}

func TestCombine_AllMissingIsUnscorable(t *testing.T) {
	a := mustAggregator(t)

	res, err := a.Combine(map[eval.Pillar]eval.PillarScore{
		eval.PillarNLI:      missingPillar(),
		eval.PillarJudge:    missingPillar(),
		eval.PillarCoverage: missingPillar(),
	})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	if res.Mode != eval.ModeUnscorable {
		t.Errorf("mode = %v, want UNSCORABLE", res.Mode)
	}
	if res.Score != nil {
		t.Errorf("score = %v, want nil", *res.Score)
	}
	if len(res.WeightsUsed) != 0 {
		t.Errorf("weights_used = %v, want empty", res.WeightsUsed)
	}
	if len(res.Warnings) == 0 {
		t.Error("unscorable result must carry a warning")
	}
}

func TestCombine_AbsentKeyTreatedAsMissing(t *testing.T) {
	// A pillar absent from the input map is the same as a nil value.
	a := mustAggregator(t)

	res, err := a.Combine(map[eval.Pillar]eval.PillarScore{
		eval.PillarJudge: pillar(0.5, 0.8),
	})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if res.Mode != eval.ModeProvisional {
		t.Errorf("mode = %v, want PROVISIONAL", res.Mode)
	}
	if math.Abs(res.WeightsUsed[eval.PillarJudge]-1.0) > 1e-9 {
		t.Errorf("judge weight = %v, want 1.0", res.WeightsUsed[eval.PillarJudge])
	}
	assertWeightsSumToOne(t, res)
}

func TestCombine_ValueOutOfRangeFailsFast(t *testing.T) {
	a := mustAggregator(t)

	_, err := a.Combine(map[eval.Pillar]eval.PillarScore{
		eval.PillarNLI: pillar(1.2, 0.9),
	})
	if !errors.Is(err, ErrValueOutOfRange) {
		t.Errorf("err = %v, want ErrValueOutOfRange", err)
	}
}

func TestCombine_UnknownPillarFailsFast(t *testing.T) {
	a := mustAggregator(t)

	_, err := a.Combine(map[eval.Pillar]eval.PillarScore{
		eval.Pillar("sentiment"): pillar(0.5, 0.5),
	})
	if !errors.Is(err, eval.ErrUnknownPillar) {
		t.Errorf("err = %v, want ErrUnknownPillar", err)
	}
}

func TestCombine_ScoreStaysInRange(t *testing.T) {
	a := mustAggregator(t)

	res, err := a.Combine(map[eval.Pillar]eval.PillarScore{
		eval.PillarNLI:      pillar(1.0, 1.0),
		eval.PillarJudge:    pillar(1.0, 1.0),
		eval.PillarCoverage: pillar(1.0, 1.0),
	})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if *res.Score < 0 || *res.Score > 1 {
		t.Errorf("score = %v, want within [0,1]", *res.Score)
	}
	if res.Confidence < 0 || res.Confidence > 1 {
		t.Errorf("confidence = %v, want within [0,1]", res.Confidence)
	}
}

func assertWeightsSumToOne(t *testing.T, res eval.CompositeResult) {
	t.Helper()
	var sum float64
	for _, w := range res.WeightsUsed {
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("weights_used sum = %v, want 1.0 +/- 1e-9", sum)
	}
}
