// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"log/slog"
	"sort"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/Veracity/services/eval"
	"github.com/AleutianAI/Veracity/services/eval/consistency"
	"github.com/AleutianAI/Veracity/services/eval/correlation"
	"github.com/AleutianAI/Veracity/services/eval/taxonomy"
)

func runAgreement(cmd *cobra.Command, _ []string) {
	ctx := context.Background()

	var ratings []eval.RaterRating
	if inputPath != "" {
		if err := decodeFile(inputPath, &ratings); err != nil {
			slog.Error("Failed to read ratings file", "error", err)
			return
		}
	} else {
		if !requireFlag("run", runID) {
			return
		}
		st, err := openStore()
		if err != nil {
			slog.Error("Failed to open store", "error", err)
			return
		}
		defer func() { _ = st.Close() }()

		ratings, err = st.Ratings(ctx, runID)
		if err != nil {
			slog.Error("Failed to load ratings", "run_id", runID, "error", err)
			return
		}
	}

	results, err := agreementEngine().AllPairs(ctx, ratings)
	if err != nil {
		slog.Error("Agreement analysis failed", "error", err)
		return
	}
	printJSON(results)
}

func runConsistency(cmd *cobra.Command, args []string) {
	if selectN > 0 {
		runSelectRetests()
		return
	}
	if len(args) != 1 {
		slog.Error("Provide a retest pairs file, or --run with --select")
		return
	}

	var pairs []consistency.RetestPair
	if err := decodeFile(args[0], &pairs); err != nil {
		slog.Error("Failed to read retest pairs", "error", err)
		return
	}

	reports, err := consistency.AuditAll(pairs)
	if err != nil {
		slog.Error("Consistency audit failed", "error", err)
		return
	}
	printJSON(reports)
}

// runSelectRetests picks documents spanning the composite score range so
// a retest round covers easy and hard cases alike.
func runSelectRetests() {
	if !requireFlag("run", runID) {
		return
	}

	st, err := openStore()
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		return
	}
	defer func() { _ = st.Close() }()

	scores, err := st.Scores(context.Background(), runID)
	if err != nil {
		slog.Error("Failed to load scores", "run_id", runID, "error", err)
		return
	}

	var items []consistency.Scored
	for _, rec := range scores {
		if rec.Composite.Score == nil {
			continue
		}
		items = append(items, consistency.Scored{
			ID:    rec.DocumentID + "/" + rec.SystemID,
			Score: *rec.Composite.Score,
		})
	}
	printJSON(consistency.SelectDiverse(items, selectN))
}

// lengthSample is one entry in the bias samples file: a rating paired
// with the rated summary's length.
type lengthSample struct {
	RaterID         string `json:"rater_id"`
	DocumentID      string `json:"document_id"`
	SystemID        string `json:"system_id"`
	FactualAccuracy int    `json:"factual_accuracy"`
	Completeness    int    `json:"completeness"`
	Length          int    `json:"length"`
}

func runBias(cmd *cobra.Command, args []string) {
	var inputs []lengthSample
	if err := decodeFile(args[0], &inputs); err != nil {
		slog.Error("Failed to read bias samples", "error", err)
		return
	}

	byRater := make(map[string][]correlation.LengthSample)
	for _, in := range inputs {
		byRater[in.RaterID] = append(byRater[in.RaterID], correlation.LengthSample{
			Rating: eval.RaterRating{
				RaterID:         in.RaterID,
				DocumentID:      in.DocumentID,
				SystemID:        in.SystemID,
				FactualAccuracy: in.FactualAccuracy,
				Completeness:    in.Completeness,
			},
			Length: in.Length,
		})
	}

	raters := make([]string, 0, len(byRater))
	for r := range byRater {
		raters = append(raters, r)
	}
	sort.Strings(raters)

	reports := make([]correlation.LengthBiasReport, 0, len(raters))
	for _, r := range raters {
		report, err := correlation.LengthBias(r, byRater[r])
		if err != nil {
			slog.Error("Length-bias audit failed", "rater_id", r, "error", err)
			return
		}
		reports = append(reports, report)
	}
	printJSON(reports)
}

func runCompare(cmd *cobra.Command, _ []string) {
	if !requireFlag("run", runID) || !requireFlag("system-a", systemA) || !requireFlag("system-b", systemB) {
		return
	}

	st, err := openStore()
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		return
	}
	defer func() { _ = st.Close() }()

	ctx := context.Background()
	matrix, err := st.Matrix(ctx, runID)
	if err != nil {
		slog.Error("Failed to load score matrix", "run_id", runID, "error", err)
		return
	}

	scoresA, scoresB, docIDs := matrix.PairedScores(systemA, systemB, includeProvisional)
	if len(docIDs) == 0 {
		slog.Error("No documents scored by both systems",
			"system_a", systemA, "system_b", systemB)
		return
	}

	comparison, err := significanceEngine().CompareMeans(ctx, systemA, systemB, scoresA, scoresB)
	if err != nil {
		slog.Error("Comparison failed", "error", err)
		return
	}
	printJSON(comparison)
}

// baselineScore is one entry in the optional baseline scores file, e.g.
// a lexical-overlap metric computed outside this engine.
type baselineScore struct {
	DocumentID string   `json:"document_id"`
	SystemID   string   `json:"system_id"`
	Score      *float64 `json:"score"`
}

// correlateReport is the combined output of the correlate command.
type correlateReport struct {
	Pillars       []correlation.PillarPair      `json:"pillars"`
	Divergence    *correlation.DivergenceReport `json:"divergence,omitempty"`
	Disagreements []correlation.Disagreement    `json:"disagreements,omitempty"`
}

func runCorrelate(cmd *cobra.Command, _ []string) {
	if !requireFlag("run", runID) {
		return
	}

	st, err := openStore()
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		return
	}
	defer func() { _ = st.Close() }()

	ctx := context.Background()
	scores, err := st.Scores(ctx, runID)
	if err != nil {
		slog.Error("Failed to load scores", "run_id", runID, "error", err)
		return
	}

	pairs, err := correlation.PillarMatrix(scores)
	if err != nil {
		slog.Error("Pillar correlation failed", "error", err)
		return
	}
	report := correlateReport{Pillars: pairs}

	if inputPath != "" {
		divergence, disagreements, divErr := baselineDivergence(scores, inputPath, topK)
		if divErr != nil {
			slog.Error("Baseline divergence failed", "error", divErr)
			return
		}
		report.Divergence = divergence
		report.Disagreements = disagreements
	}
	printJSON(report)
}

// baselineDivergence correlates an external baseline metric against the
// stored composites and surfaces the largest per-document disagreements.
func baselineDivergence(scores []eval.ScoreRecord, path string, k int) (*correlation.DivergenceReport, []correlation.Disagreement, error) {
	var baselines []baselineScore
	if err := decodeFile(path, &baselines); err != nil {
		return nil, nil, err
	}

	baseline := make(map[string]*float64, len(baselines))
	for _, b := range baselines {
		baseline[b.DocumentID+"\x00"+b.SystemID] = b.Score
	}

	obs := make([]correlation.Observation, 0, len(scores))
	for _, rec := range scores {
		obs = append(obs, correlation.Observation{
			DocumentID: rec.DocumentID,
			SystemID:   rec.SystemID,
			Baseline:   baseline[rec.DocumentID+"\x00"+rec.SystemID],
			Composite:  rec.Composite.Score,
		})
	}
	sort.Slice(obs, func(i, j int) bool {
		if obs[i].DocumentID != obs[j].DocumentID {
			return obs[i].DocumentID < obs[j].DocumentID
		}
		return obs[i].SystemID < obs[j].SystemID
	})

	baselineSeries := make([]*float64, len(obs))
	compositeSeries := make([]*float64, len(obs))
	for i, o := range obs {
		baselineSeries[i] = o.Baseline
		compositeSeries[i] = o.Composite
	}

	divergence, err := correlation.Divergence(baselineSeries, compositeSeries)
	if err != nil {
		return nil, nil, err
	}
	return &divergence, correlation.FindDisagreements(obs, 0, k), nil
}

// tagInput is one free-form error tag in the tags input file. Kind and
// severity arrive as the labels the judging collaborator emits.
type tagInput struct {
	RaterID    string `json:"rater_id"`
	SystemID   string `json:"system_id"`
	DocumentID string `json:"document_id"`
	Kind       string `json:"kind"`
	Issue      string `json:"issue"`
	Quote      string `json:"quote"`
	Severity   string `json:"severity"`
}

func runTaxonomy(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	var tags []eval.ErrorTag
	switch {
	case len(args) == 1:
		var inputs []tagInput
		if err := decodeFile(args[0], &inputs); err != nil {
			slog.Error("Failed to read tags file", "error", err)
			return
		}
		for _, in := range inputs {
			kind := eval.KindFactual
			if in.Kind == "omission" || in.Kind == "OMISSION" {
				kind = eval.KindOmission
			}
			tags = append(tags, eval.ErrorTag{
				RaterID:    in.RaterID,
				SystemID:   in.SystemID,
				DocumentID: in.DocumentID,
				Kind:       kind,
				Issue:      in.Issue,
				Quote:      in.Quote,
				Severity:   eval.ParseSeverity(in.Severity),
			})
		}

		// With a run ID, the classified tags are also recorded so the
		// API can serve them later.
		if runID != "" {
			if err := appendTags(ctx, runID, tags); err != nil {
				slog.Error("Failed to store tags", "run_id", runID, "error", err)
				return
			}
		}
	case runID != "":
		st, err := openStore()
		if err != nil {
			slog.Error("Failed to open store", "error", err)
			return
		}
		defer func() { _ = st.Close() }()

		tags, err = st.Tags(ctx, runID)
		if err != nil {
			slog.Error("Failed to load tags", "run_id", runID, "error", err)
			return
		}
	default:
		slog.Error("Provide a tags file or --run")
		return
	}

	printJSON(map[string]any{
		"report":      taxonomy.Aggregate(tags),
		"rater_rates": taxonomy.OverFlagging(tags),
	})
}

func appendTags(ctx context.Context, run string, tags []eval.ErrorTag) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	return st.AppendTags(ctx, run, tags)
}
