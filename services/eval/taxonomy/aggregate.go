// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package taxonomy

import (
	"sort"

	"github.com/AleutianAI/Veracity/services/eval"
)

// overFlagFactor is how far above the peer mean a rater's tag count
// must sit before the rater is flagged as trigger-happy.
const overFlagFactor = 1.5

// hardestDocumentLimit caps the hardest-documents list.
const hardestDocumentLimit = 10

// -----------------------------------------------------------------------------
// Aggregates
// -----------------------------------------------------------------------------

// DocumentCount counts severe failures on one document.
type DocumentCount struct {
	DocumentID string `json:"document_id"`
	Count      int    `json:"count"`
}

// Report is the full taxonomy aggregate over a tag set.
type Report struct {
	TotalFactual  int `json:"total_factual"`
	TotalOmission int `json:"total_omission"`

	// ByCategory counts tags by primary category.
	ByCategory map[Category]int `json:"by_category"`

	// BySystem breaks category counts down per system under test.
	BySystem map[string]map[Category]int `json:"by_system"`

	// BySeverity breaks each category down by tag severity.
	BySeverity map[Category]map[string]int `json:"by_severity"`

	// ByRater counts how many tags each rater contributed.
	ByRater map[string]int `json:"by_rater"`

	// HardestDocuments lists the documents with the most critical or
	// major tags, worst first.
	HardestDocuments []DocumentCount `json:"hardest_documents"`
}

// Aggregate classifies every tag and produces summary counts.
//
// Description:
//
//	Each tag contributes once, under its primary category. Tags arrive
//	with severity already normalized through ParseSeverity, so the
//	loose severity strings raters emit fold into the canonical set
//	before they reach this aggregation.
//
// Inputs:
//   - tags: Error tags from all raters, systems, and documents.
//
// Outputs:
//   - Report: Counts by category, system, severity, and rater.
//
// Thread Safety: Safe for concurrent use.
func Aggregate(tags []eval.ErrorTag) Report {
	report := Report{
		ByCategory: make(map[Category]int),
		BySystem:   make(map[string]map[Category]int),
		BySeverity: make(map[Category]map[string]int),
		ByRater:    make(map[string]int),
	}

	hard := make(map[string]int)
	for _, tag := range tags {
		cat := Classify(tag)

		if tag.Kind == eval.KindOmission {
			report.TotalOmission++
		} else {
			report.TotalFactual++
		}

		report.ByCategory[cat]++
		if report.BySystem[tag.SystemID] == nil {
			report.BySystem[tag.SystemID] = make(map[Category]int)
		}
		report.BySystem[tag.SystemID][cat]++
		if report.BySeverity[cat] == nil {
			report.BySeverity[cat] = make(map[string]int)
		}
		report.BySeverity[cat][tag.Severity.String()]++
		report.ByRater[tag.RaterID]++

		if tag.Severity == eval.SeverityCritical || tag.Severity == eval.SeverityMajor {
			hard[tag.DocumentID]++
		}
	}

	report.HardestDocuments = topDocuments(hard, hardestDocumentLimit)
	return report
}

func topDocuments(counts map[string]int, limit int) []DocumentCount {
	out := make([]DocumentCount, 0, len(counts))
	for id, c := range counts {
		out = append(out, DocumentCount{DocumentID: id, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].DocumentID < out[j].DocumentID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// -----------------------------------------------------------------------------
// Over-flagging
// -----------------------------------------------------------------------------

// RaterTagRate relates one rater's tag volume to the peer average.
//
// A rater who both over-flags and disagrees with peers in the agreement
// audit is a stronger exclusion candidate than one who merely
// disagrees; this report supplies the over-flagging half of that
// cross-reference.
type RaterTagRate struct {
	RaterID  string  `json:"rater_id"`
	Tags     int     `json:"tags"`
	PeerMean float64 `json:"peer_mean"`

	// OverFlagging is true when the rater's count exceeds the peer
	// mean by the over-flag factor.
	OverFlagging bool `json:"over_flagging"`
}

// OverFlagging computes per-rater tag volumes against the peer mean,
// sorted by rater ID. With fewer than two raters nothing can be
// flagged.
func OverFlagging(tags []eval.ErrorTag) []RaterTagRate {
	counts := make(map[string]int)
	for _, tag := range tags {
		counts[tag.RaterID]++
	}

	raters := make([]string, 0, len(counts))
	total := 0
	for id, c := range counts {
		raters = append(raters, id)
		total += c
	}
	sort.Strings(raters)

	out := make([]RaterTagRate, 0, len(raters))
	for _, id := range raters {
		rate := RaterTagRate{RaterID: id, Tags: counts[id]}
		if len(raters) > 1 {
			rate.PeerMean = float64(total-counts[id]) / float64(len(raters)-1)
			rate.OverFlagging = rate.PeerMean > 0 && float64(counts[id]) > overFlagFactor*rate.PeerMean
		}
		out = append(out, rate)
	}
	return out
}
