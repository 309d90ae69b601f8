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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath         string
	inputPath          string
	runID              string
	systemA            string
	systemB            string
	includeProvisional bool
	topK               int
	selectN            int

	rootCmd = &cobra.Command{
		Use:   "veracity",
		Short: "A cli for scoring summary faithfulness and auditing rater reliability",
		Long: `Veracity combines contradiction, judge-panel, and coverage signals
			into composite faithfulness scores, then audits the judges
			themselves: agreement, consistency, bias, and error taxonomy.`,
	}

	// --- Scoring ---
	scoreCmd = &cobra.Command{
		Use:   "score [input.json]",
		Short: "Score pillar inputs into composites and record them as a new run",
		Args:  cobra.ExactArgs(1),
		Run:   runScore, // Defined in cmd_score.go
	}

	runsCmd = &cobra.Command{
		Use:   "runs",
		Short: "List recorded evaluation runs",
		Run:   runListRuns, // Defined in cmd_score.go
	}

	leaderboardCmd = &cobra.Command{
		Use:   "leaderboard",
		Short: "Rank systems by mean composite score for a run",
		Run:   runLeaderboard, // Defined in cmd_score.go
	}

	// --- Rater Reliability ---
	agreementCmd = &cobra.Command{
		Use:   "agreement",
		Short: "Compute inter-rater agreement (weighted kappa, Kendall tau) for a run",
		Run:   runAgreement, // Defined in cmd_reports.go
	}

	consistencyCmd = &cobra.Command{
		Use:   "consistency [retests.json]",
		Short: "Audit rater test-retest stability, or select documents to retest",
		Args:  cobra.MaximumNArgs(1),
		Run:   runConsistency, // Defined in cmd_reports.go
	}

	biasCmd = &cobra.Command{
		Use:   "bias [samples.json]",
		Short: "Audit raters for summary-length bias",
		Args:  cobra.ExactArgs(1),
		Run:   runBias, // Defined in cmd_reports.go
	}

	// --- Cross-System Analysis ---
	compareCmd = &cobra.Command{
		Use:   "compare",
		Short: "Bootstrap a paired significance comparison between two systems",
		Run:   runCompare, // Defined in cmd_reports.go
	}

	correlateCmd = &cobra.Command{
		Use:   "correlate",
		Short: "Correlate pillars across a run and band their redundancy",
		Run:   runCorrelate, // Defined in cmd_reports.go
	}

	// --- Error Taxonomy ---
	taxonomyCmd = &cobra.Command{
		Use:   "taxonomy [tags.json]",
		Short: "Classify free-form error tags and aggregate them by category",
		Args:  cobra.MaximumNArgs(1),
		Run:   runTaxonomy, // Defined in cmd_reports.go
	}

	// --- Server ---
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve stored results over the read-only HTTP API",
		Run:   runServe, // Defined in cmd_serve.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a veracity.yaml scenario file (defaults are used when omitted)")

	scoreCmd.Flags().BoolVar(&includeProvisional, "include-provisional", false,
		"Admit provisional composites into the printed leaderboard")

	runsCmd.Flags().StringVar(&runID, "run", "", "Run ID (unused; lists all runs)")

	leaderboardCmd.Flags().StringVar(&runID, "run", "", "Run ID (required)")
	leaderboardCmd.Flags().BoolVar(&includeProvisional, "include-provisional", false,
		"Admit provisional composites into the ranking")

	consistencyCmd.Flags().StringVar(&runID, "run", "",
		"Run ID to select retest documents from (used with --select)")
	consistencyCmd.Flags().IntVar(&selectN, "select", 0,
		"Select this many score-diverse documents for retesting instead of auditing")

	agreementCmd.Flags().StringVar(&runID, "run", "", "Run ID (required)")
	agreementCmd.Flags().StringVar(&inputPath, "ratings", "",
		"Ratings JSON file to analyze instead of stored ratings")

	compareCmd.Flags().StringVar(&runID, "run", "", "Run ID (required)")
	compareCmd.Flags().StringVar(&systemA, "system-a", "", "First system ID (required)")
	compareCmd.Flags().StringVar(&systemB, "system-b", "", "Second system ID (required)")
	compareCmd.Flags().BoolVar(&includeProvisional, "include-provisional", false,
		"Pair provisional composites as well")

	correlateCmd.Flags().StringVar(&runID, "run", "", "Run ID (required)")
	correlateCmd.Flags().StringVar(&inputPath, "baseline", "",
		"Baseline scores JSON for divergence analysis (optional)")
	correlateCmd.Flags().IntVar(&topK, "top", 15,
		"How many baseline/composite disagreements to report")

	taxonomyCmd.Flags().StringVar(&runID, "run", "",
		"Run ID to read stored tags from (alternative to a tags file)")

	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(agreementCmd)
	rootCmd.AddCommand(consistencyCmd)
	rootCmd.AddCommand(biasCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(correlateCmd)
	rootCmd.AddCommand(taxonomyCmd)
	rootCmd.AddCommand(serveCmd)
}
