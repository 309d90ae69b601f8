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
	"sync"
	"testing"
	"time"
)

func record(doc, system string, score float64, mode Mode, at time.Time) ScoreRecord {
	r := ScoreRecord{
		RunID:      "run-1",
		DocumentID: doc,
		SystemID:   system,
		Composite:  CompositeResult{Mode: mode},
		CreatedAt:  at,
	}
	if mode != ModeUnscorable {
		s := score
		r.Composite.Score = &s
	}
	return r
}

func TestMatrix_AppendAndRecords(t *testing.T) {
	m := NewMatrix()
	now := time.Now()

	m.Append(record("d1", "sysA", 0.9, ModeFull, now))
	m.Append(record("d2", "sysA", 0.8, ModeFull, now))

	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}

	recs := m.Records()
	recs[0].DocumentID = "mutated"
	if m.Records()[0].DocumentID != "d1" {
		t.Error("Records() should return a copy")
	}
}

func TestMatrix_Systems(t *testing.T) {
	m := NewMatrix()
	now := time.Now()
	m.Append(
		record("d1", "sysB", 0.5, ModeFull, now),
		record("d1", "sysA", 0.7, ModeFull, now),
		record("d2", "sysA", 0.6, ModeFull, now),
	)

	systems := m.Systems()
	if len(systems) != 2 || systems[0] != "sysA" || systems[1] != "sysB" {
		t.Errorf("Systems() = %v, want [sysA sysB]", systems)
	}
}

func TestMatrix_PairedScores(t *testing.T) {
	m := NewMatrix()
	now := time.Now()
	m.Append(
		record("d1", "sysA", 0.9, ModeFull, now),
		record("d2", "sysA", 0.8, ModeFull, now),
		record("d3", "sysA", 0.7, ModeFull, now),
		record("d1", "sysB", 0.5, ModeFull, now),
		record("d2", "sysB", 0.4, ModeFull, now),
		// d3 missing for sysB: must be dropped from the pairing
	)

	a, b, docs := m.PairedScores("sysA", "sysB", false)
	if len(docs) != 2 {
		t.Fatalf("paired docs = %v, want 2 shared documents", docs)
	}
	if docs[0] != "d1" || docs[1] != "d2" {
		t.Errorf("docs = %v, want [d1 d2]", docs)
	}
	if a[0] != 0.9 || a[1] != 0.8 || b[0] != 0.5 || b[1] != 0.4 {
		t.Errorf("scores misaligned: a=%v b=%v", a, b)
	}
}

func TestMatrix_PairedScores_ExcludesProvisional(t *testing.T) {
	m := NewMatrix()
	now := time.Now()
	m.Append(
		record("d1", "sysA", 0.9, ModeProvisional, now),
		record("d1", "sysB", 0.5, ModeFull, now),
	)

	a, _, docs := m.PairedScores("sysA", "sysB", false)
	if len(a) != 0 || len(docs) != 0 {
		t.Error("provisional records should be excluded by default")
	}

	a, _, _ = m.PairedScores("sysA", "sysB", true)
	if len(a) != 1 {
		t.Error("provisional records should be included on request")
	}
}

func TestMatrix_PairedScores_LatestRecordWins(t *testing.T) {
	m := NewMatrix()
	old := time.Now().Add(-time.Hour)
	now := time.Now()
	m.Append(
		record("d1", "sysA", 0.2, ModeFull, old),
		record("d1", "sysA", 0.9, ModeFull, now), // re-evaluation
		record("d1", "sysB", 0.5, ModeFull, now),
	)

	a, _, _ := m.PairedScores("sysA", "sysB", false)
	if len(a) != 1 || a[0] != 0.9 {
		t.Errorf("expected latest record score 0.9, got %v", a)
	}
}

func TestMatrix_Leaderboard(t *testing.T) {
	m := NewMatrix()
	now := time.Now()
	m.Append(
		record("d1", "sysA", 0.9, ModeFull, now),
		record("d2", "sysA", 0.7, ModeFull, now),
		record("d1", "sysB", 0.6, ModeFull, now),
		record("d2", "sysB", 0.6, ModeFull, now),
		record("d3", "sysB", 0.95, ModeProvisional, now),
		record("d1", "sysC", 0, ModeUnscorable, now),
	)

	board := m.Leaderboard(false)
	if len(board) != 3 {
		t.Fatalf("leaderboard size = %d, want 3", len(board))
	}
	if board[0].SystemID != "sysA" {
		t.Errorf("winner = %s, want sysA", board[0].SystemID)
	}
	if board[0].MeanScore != 0.8 {
		t.Errorf("sysA mean = %v, want 0.8", board[0].MeanScore)
	}
	if board[1].SystemID != "sysB" || board[1].N != 2 {
		t.Errorf("sysB summary wrong: %+v", board[1])
	}
	if board[1].ProvisionalCount != 1 || len(board[1].Warnings) == 0 {
		t.Error("provisional record should be counted and flagged")
	}
	if board[2].SystemID != "sysC" || board[2].N != 0 || board[2].UnscorableCount != 1 {
		t.Errorf("sysC summary wrong: %+v", board[2])
	}
}

func TestMatrix_Leaderboard_UnscoredOrderDeterministic(t *testing.T) {
	now := time.Now()
	var want []string
	for run := 0; run < 10; run++ {
		m := NewMatrix()
		m.Append(
			record("d1", "sysA", 0.9, ModeFull, now),
			record("d1", "sysZ", 0, ModeUnscorable, now),
			record("d1", "sysM", 0, ModeUnscorable, now),
			record("d1", "sysB", 0, ModeUnscorable, now),
		)

		board := m.Leaderboard(false)
		got := make([]string, len(board))
		for i, s := range board {
			got[i] = s.SystemID
		}
		if run == 0 {
			want = got
			if got[0] != "sysA" {
				t.Fatalf("scored system should lead, got %v", got)
			}
			if got[1] != "sysB" || got[2] != "sysM" || got[3] != "sysZ" {
				t.Fatalf("unscored systems not in ID order: %v", got)
			}
			continue
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("run %d order %v differs from first run %v", run, got, want)
			}
		}
	}
}

func TestMatrix_Leaderboard_IncludeProvisional(t *testing.T) {
	m := NewMatrix()
	now := time.Now()
	m.Append(
		record("d1", "sysA", 0.5, ModeFull, now),
		record("d2", "sysA", 0.9, ModeProvisional, now),
	)

	board := m.Leaderboard(true)
	if board[0].N != 2 {
		t.Fatalf("N = %d, want 2 with provisional included", board[0].N)
	}
	if board[0].MeanScore != 0.7 {
		t.Errorf("mean = %v, want 0.7", board[0].MeanScore)
	}
}

func TestMatrix_ConcurrentAppend(t *testing.T) {
	m := NewMatrix()
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Append(record("d", "sys", 0.5, ModeFull, now))
			_ = m.Records()
			_ = m.Leaderboard(false)
		}()
	}
	wg.Wait()

	if m.Len() != 50 {
		t.Errorf("Len() = %d, want 50", m.Len())
	}
}
