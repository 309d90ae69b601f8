// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package eval

import (
	"sort"
	"sync"
)

// -----------------------------------------------------------------------------
// Score Matrix
// -----------------------------------------------------------------------------

// Matrix is the append-only score matrix (document x system x pillar)
// that feeds every reliability engine.
//
// Description:
//
//	New runs append new ScoreRecords rather than overwriting, so
//	concurrent readers never observe a record mid-mutation and past
//	records remain available for consistency auditing.
//
// Thread Safety: Safe for concurrent use.
type Matrix struct {
	mu      sync.RWMutex
	records []ScoreRecord
}

// NewMatrix creates an empty score matrix.
func NewMatrix() *Matrix {
	return &Matrix{records: make([]ScoreRecord, 0, 256)}
}

// Append adds records to the matrix. Existing records are never replaced.
//
// Thread Safety: Safe for concurrent use.
func (m *Matrix) Append(records ...ScoreRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
}

// Records returns a copy of all records in append order.
//
// Thread Safety: Safe for concurrent use.
func (m *Matrix) Records() []ScoreRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ScoreRecord, len(m.records))
	copy(out, m.records)
	return out
}

// Len returns the number of records.
func (m *Matrix) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Systems returns all distinct system IDs, sorted.
func (m *Matrix) Systems() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	for _, r := range m.records {
		seen[r.SystemID] = true
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// BySystem returns all records for one system, in append order.
func (m *Matrix) BySystem(systemID string) []ScoreRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ScoreRecord
	for _, r := range m.records {
		if r.SystemID == systemID {
			out = append(out, r)
		}
	}
	return out
}

// PairedScores extracts per-document composite scores for two systems
// over the shared document set, suitable for paired significance testing.
//
// Description:
//
//	Documents are matched by ID; a document missing from either system,
//	or whose composite is UNSCORABLE on either side, is dropped. When a
//	document was scored more than once the most recent record wins.
//	Provisional records are excluded unless includeProvisional is set,
//	because provisional scores are not comparable across systems.
//
// Outputs:
//   - scoresA, scoresB: aligned score slices, one entry per shared document.
//   - docIDs: the shared documents in sorted order.
func (m *Matrix) PairedScores(systemA, systemB string, includeProvisional bool) (scoresA, scoresB []float64, docIDs []string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	latestA := latestBySystem(m.records, systemA, includeProvisional)
	latestB := latestBySystem(m.records, systemB, includeProvisional)

	for doc := range latestA {
		if _, ok := latestB[doc]; ok {
			docIDs = append(docIDs, doc)
		}
	}
	sort.Strings(docIDs)

	scoresA = make([]float64, 0, len(docIDs))
	scoresB = make([]float64, 0, len(docIDs))
	for _, doc := range docIDs {
		scoresA = append(scoresA, *latestA[doc].Composite.Score)
		scoresB = append(scoresB, *latestB[doc].Composite.Score)
	}
	return scoresA, scoresB, docIDs
}

// latestBySystem indexes the most recent scorable record per document.
func latestBySystem(records []ScoreRecord, systemID string, includeProvisional bool) map[string]ScoreRecord {
	out := make(map[string]ScoreRecord)
	for _, r := range records {
		if r.SystemID != systemID || r.Composite.Score == nil {
			continue
		}
		if r.Composite.Mode == ModeProvisional && !includeProvisional {
			continue
		}
		prev, ok := out[r.DocumentID]
		if !ok || r.CreatedAt.After(prev.CreatedAt) {
			out[r.DocumentID] = r
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Per-System Aggregation
// -----------------------------------------------------------------------------

// SystemSummary aggregates one system's composite scores across documents.
type SystemSummary struct {
	SystemID string `json:"system_id"`

	// MeanScore averages the system's comparable composite scores.
	MeanScore float64 `json:"mean_score"`

	// N counts the records behind MeanScore.
	N int `json:"n"`

	// ProvisionalCount counts records excluded (or flagged, when
	// included) for having partial pillar coverage.
	ProvisionalCount int `json:"provisional_count"`

	// UnscorableCount counts records with no score at all.
	UnscorableCount int `json:"unscorable_count"`

	// Warnings flags incomparability when provisional records exist.
	Warnings []string `json:"warnings,omitempty"`
}

// Leaderboard ranks systems by mean composite score, best first.
//
// Description:
//
//	Provisional records are excluded from the mean by default: a score
//	built from partial pillar coverage is not comparable to full-mode
//	scores, so mixing them would bias the ranking. Systems whose every
//	record is unscorable appear with N=0 and sort last.
//
// Thread Safety: Safe for concurrent use.
func (m *Matrix) Leaderboard(includeProvisional bool) []SystemSummary {
	m.mu.RLock()
	records := make([]ScoreRecord, len(m.records))
	copy(records, m.records)
	m.mu.RUnlock()

	bySystem := make(map[string]*SystemSummary)
	sums := make(map[string]float64)

	for _, r := range records {
		s, ok := bySystem[r.SystemID]
		if !ok {
			s = &SystemSummary{SystemID: r.SystemID}
			bySystem[r.SystemID] = s
		}

		switch r.Composite.Mode {
		case ModeUnscorable:
			s.UnscorableCount++
		case ModeProvisional:
			s.ProvisionalCount++
			if includeProvisional && r.Composite.Score != nil {
				sums[r.SystemID] += *r.Composite.Score
				s.N++
			}
		case ModeFull:
			if r.Composite.Score != nil {
				sums[r.SystemID] += *r.Composite.Score
				s.N++
			}
		}
	}

	out := make([]SystemSummary, 0, len(bySystem))
	for id, s := range bySystem {
		if s.N > 0 {
			s.MeanScore = sums[id] / float64(s.N)
		}
		if s.ProvisionalCount > 0 {
			s.Warnings = append(s.Warnings,
				"system has provisional records; their scores are not comparable across systems")
		}
		out = append(out, *s)
	}

	sort.Slice(out, func(i, j int) bool {
		// Unscored systems sort last, by ID among themselves.
		if (out[i].N == 0) != (out[j].N == 0) {
			return out[j].N == 0
		}
		if out[i].MeanScore != out[j].MeanScore {
			return out[i].MeanScore > out[j].MeanScore
		}
		return out[i].SystemID < out[j].SystemID
	})
	return out
}
