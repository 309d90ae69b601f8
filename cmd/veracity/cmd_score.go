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
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/Veracity/services/eval"
	"github.com/AleutianAI/Veracity/services/eval/scoring"
)

// pillarInput is one machine-computed pillar signal in the score input
// file. A null value means the pillar could not be computed.
type pillarInput struct {
	Value      *float64 `json:"value"`
	Confidence float64  `json:"confidence"`
}

// documentInput is one (document, system) entry in the score input file.
type documentInput struct {
	DocumentID string `json:"document_id"`
	SystemID   string `json:"system_id"`

	NLI      *pillarInput `json:"nli"`
	Coverage *pillarInput `json:"coverage"`

	// Ratings is the judge panel for this pair. An empty panel leaves
	// the judge pillar unavailable.
	Ratings []eval.RaterRating `json:"ratings"`
}

func runScore(cmd *cobra.Command, args []string) {
	var docs []documentInput
	if err := decodeFile(args[0], &docs); err != nil {
		slog.Error("Failed to read score input", "error", err)
		return
	}
	if len(docs) == 0 {
		slog.Error("Score input is empty", "path", args[0])
		return
	}

	weights, err := cfg.PillarWeights()
	if err != nil {
		slog.Error("Invalid pillar weights", "error", err)
		return
	}
	aggregator, err := scoring.NewAggregator(weights, scoring.WithAggregatorLogger(logger.Slog()))
	if err != nil {
		slog.Error("Failed to build aggregator", "error", err)
		return
	}
	normalizer, err := scoring.NewNormalizer(
		scoring.WithRaterWeights(cfg.RaterWeights),
		scoring.WithPillarWeight(weights[eval.PillarJudge]),
		scoring.WithNormalizerLogger(logger.Slog()),
	)
	if err != nil {
		slog.Error("Failed to build judge normalizer", "error", err)
		return
	}

	st, err := openStore()
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		return
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Warn("Failed to close store", "error", closeErr)
		}
	}()

	ctx := context.Background()
	newRunID, err := st.NewRun(ctx)
	if err != nil {
		slog.Error("Failed to create run", "error", err)
		return
	}

	fmt.Printf("\nStarting Scoring Run: %s\n", newRunID)
	fmt.Printf("   Documents: %d\n", len(docs))
	fmt.Println("---------------------------------------------------")

	var full, provisional, unscorable int
	for _, doc := range docs {
		record, scoreErr := scoreDocument(aggregator, normalizer, weights, newRunID, doc)
		if scoreErr != nil {
			slog.Error("Scoring failed", "document_id", doc.DocumentID,
				"system_id", doc.SystemID, "error", scoreErr)
			return
		}

		switch record.Composite.Mode {
		case eval.ModeFull:
			full++
		case eval.ModeProvisional:
			provisional++
		case eval.ModeUnscorable:
			unscorable++
		}

		if err := st.AppendScore(ctx, record); err != nil {
			slog.Error("Failed to store score", "document_id", doc.DocumentID, "error", err)
			return
		}
		for _, rating := range doc.Ratings {
			if rating.DocumentID == "" {
				rating.DocumentID = doc.DocumentID
			}
			if rating.SystemID == "" {
				rating.SystemID = doc.SystemID
			}
			if err := st.AppendRating(ctx, newRunID, rating); err != nil {
				slog.Error("Failed to store rating", "rater_id", rating.RaterID, "error", err)
				return
			}
		}
	}

	matrix, err := st.Matrix(ctx, newRunID)
	if err != nil {
		slog.Error("Failed to load score matrix", "error", err)
		return
	}

	fmt.Printf("\nScoring completed.\n")
	fmt.Printf("   Run ID:      %s\n", newRunID)
	fmt.Printf("   Full:        %d\n", full)
	fmt.Printf("   Provisional: %d\n", provisional)
	fmt.Printf("   Unscorable:  %d\n", unscorable)
	printJSON(matrix.Leaderboard(includeProvisional))
}

// scoreDocument combines one document's pillar inputs into a stored
// score record.
func scoreDocument(aggregator *scoring.Aggregator, normalizer *scoring.Normalizer,
	weights map[eval.Pillar]float64, runID string, doc documentInput) (eval.ScoreRecord, error) {

	pillars := make(map[eval.Pillar]eval.PillarScore)
	if doc.NLI != nil {
		pillars[eval.PillarNLI] = eval.PillarScore{
			Value:      doc.NLI.Value,
			Confidence: doc.NLI.Confidence,
			Weight:     weights[eval.PillarNLI],
		}
	}
	if doc.Coverage != nil {
		pillars[eval.PillarCoverage] = eval.PillarScore{
			Value:      doc.Coverage.Value,
			Confidence: doc.Coverage.Confidence,
			Weight:     weights[eval.PillarCoverage],
		}
	}
	if len(doc.Ratings) > 0 {
		judge, err := normalizer.Normalize(doc.Ratings)
		if err != nil {
			if errors.Is(err, scoring.ErrInsufficientRatings) {
				return eval.ScoreRecord{}, fmt.Errorf("document %s: %w", doc.DocumentID, err)
			}
			return eval.ScoreRecord{}, err
		}
		pillars[eval.PillarJudge] = judge
	}

	composite, err := aggregator.Combine(pillars)
	if err != nil {
		return eval.ScoreRecord{}, err
	}

	return eval.ScoreRecord{
		RunID:      runID,
		DocumentID: doc.DocumentID,
		SystemID:   doc.SystemID,
		Pillars:    pillars,
		Composite:  composite,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

func runListRuns(cmd *cobra.Command, _ []string) {
	st, err := openStore()
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		return
	}
	defer func() { _ = st.Close() }()

	runs, err := st.Runs(context.Background())
	if err != nil {
		slog.Error("Failed to list runs", "error", err)
		return
	}
	printJSON(runs)
}

func runLeaderboard(cmd *cobra.Command, _ []string) {
	if !requireFlag("run", runID) {
		return
	}
	st, err := openStore()
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		return
	}
	defer func() { _ = st.Close() }()

	matrix, err := st.Matrix(context.Background(), runID)
	if err != nil {
		slog.Error("Failed to load score matrix", "run_id", runID, "error", err)
		return
	}
	printJSON(matrix.Leaderboard(includeProvisional))
}
