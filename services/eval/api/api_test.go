// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/AleutianAI/Veracity/services/eval"
	"github.com/AleutianAI/Veracity/services/eval/agreement"
	"github.com/AleutianAI/Veracity/services/eval/significance"
	"github.com/AleutianAI/Veracity/services/eval/store"
	"github.com/AleutianAI/Veracity/services/eval/telemetry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// seededRouter opens an in-memory store, loads a small run, and returns
// a router plus the run ID.
func seededRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()

	st, err := store.Open(store.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	runID, err := st.NewRun(ctx)
	require.NoError(t, err)

	for doc := 0; doc < 6; doc++ {
		for sys, base := range map[string]float64{"sys-a": 0.9, "sys-b": 0.6} {
			score := base - float64(doc)*0.02
			require.NoError(t, st.AppendScore(ctx, scoreRecord(runID, fmt.Sprintf("doc-%d", doc), sys, score)))
		}
	}

	for doc := 0; doc < 6; doc++ {
		for _, rater := range []string{"rater-1", "rater-2"} {
			require.NoError(t, st.AppendRating(ctx, runID, eval.RaterRating{
				RaterID:         rater,
				DocumentID:      fmt.Sprintf("doc-%d", doc),
				SystemID:        "sys-a",
				FactualAccuracy: 1 + doc%5,
				Completeness:    1 + (doc+1)%5,
			}))
		}
	}

	require.NoError(t, st.AppendTags(ctx, runID, []eval.ErrorTag{
		{
			RaterID:    "rater-1",
			SystemID:   "sys-a",
			DocumentID: "doc-0",
			Kind:       eval.KindFactual,
			Issue:      "Misstates the holding of the case",
			Severity:   eval.SeverityCritical,
		},
		{
			RaterID:    "rater-2",
			SystemID:   "sys-b",
			DocumentID: "doc-1",
			Kind:       eval.KindOmission,
			Issue:      "The dissent is not mentioned at all",
			Severity:   eval.SeverityMajor,
		},
	}))

	handlers := NewHandlers(st,
		agreement.NewEngine(agreement.WithSeed(7), agreement.WithIterations(200)),
		significance.NewEngine(significance.WithSeed(7), significance.WithIterations(200)),
		nil)
	return NewRouter(handlers), runID
}

func scoreRecord(runID, docID, sysID string, score float64) eval.ScoreRecord {
	s := score
	return eval.ScoreRecord{
		RunID:      runID,
		DocumentID: docID,
		SystemID:   sysID,
		Pillars: map[eval.Pillar]eval.PillarScore{
			eval.PillarNLI:      {Value: &s, Confidence: 0.9, Weight: 0.35},
			eval.PillarJudge:    {Value: &s, Confidence: 0.8, Weight: 0.40},
			eval.PillarCoverage: {Value: &s, Confidence: 0.7, Weight: 0.25},
		},
		Composite: eval.CompositeResult{
			Score:      &s,
			Confidence: 0.8,
			Mode:       eval.ModeFull,
			WeightsUsed: map[eval.Pillar]float64{
				eval.PillarNLI:      0.35,
				eval.PillarJudge:    0.40,
				eval.PillarCoverage: 0.25,
			},
		},
		CreatedAt: time.Now().UTC(),
	}
}

func get(t *testing.T, router *gin.Engine, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)

	var body map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestHealth(t *testing.T) {
	router, _ := seededRouter(t)
	w, body := get(t, router, "/v1/veracity/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestListRuns(t *testing.T) {
	router, runID := seededRouter(t)
	w, body := get(t, router, "/v1/veracity/runs")

	require.Equal(t, http.StatusOK, w.Code)
	runs := body["runs"].([]any)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].(map[string]any)["run_id"])
}

func TestScores(t *testing.T) {
	router, runID := seededRouter(t)
	w, body := get(t, router, "/v1/veracity/runs/"+runID+"/scores")

	require.Equal(t, http.StatusOK, w.Code)
	scores := body["scores"].([]any)
	assert.Len(t, scores, 12)
}

func TestScores_UnknownRun(t *testing.T) {
	router, _ := seededRouter(t)
	w, body := get(t, router, "/v1/veracity/runs/no-such-run/scores")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RUN_NOT_FOUND", body["code"])
}

func TestLeaderboard(t *testing.T) {
	router, runID := seededRouter(t)
	w, body := get(t, router, "/v1/veracity/runs/"+runID+"/leaderboard")

	require.Equal(t, http.StatusOK, w.Code)
	board := body["leaderboard"].([]any)
	require.Len(t, board, 2)
	// sys-a scores strictly higher and must lead.
	first := board[0].(map[string]any)
	assert.Equal(t, "sys-a", first["system_id"])
}

func TestAgreement(t *testing.T) {
	router, runID := seededRouter(t)
	w, body := get(t, router, "/v1/veracity/runs/"+runID+"/agreement")

	require.Equal(t, http.StatusOK, w.Code)
	// One rater pair, two dimensions. Both raters gave identical
	// non-constant ratings, so kappa is defined and perfect.
	pairs := body["pairs"].([]any)
	require.Len(t, pairs, 2)
	first := pairs[0].(map[string]any)
	require.NotNil(t, first["kappa"])
	assert.InDelta(t, 1.0, first["kappa"].(float64), 1e-9)
}

func TestDistributions(t *testing.T) {
	router, runID := seededRouter(t)
	w, body := get(t, router, "/v1/veracity/runs/"+runID+"/distributions")

	require.Equal(t, http.StatusOK, w.Code)
	raters := body["raters"].([]any)
	assert.Len(t, raters, 2)
}

func TestSignificance(t *testing.T) {
	router, runID := seededRouter(t)
	w, body := get(t, router,
		"/v1/veracity/runs/"+runID+"/significance?system_a=sys-a&system_b=sys-b")

	require.Equal(t, http.StatusOK, w.Code)
	comparison := body["comparison"].(map[string]any)
	assert.InDelta(t, 0.3, comparison["mean_diff"].(float64), 1e-9)
	assert.Equal(t, true, comparison["significant"])
	assert.Equal(t, "sys-a", comparison["winner"])
	assert.Len(t, body["documents"].([]any), 6)
}

func TestSignificance_MissingParams(t *testing.T) {
	router, runID := seededRouter(t)
	w, body := get(t, router, "/v1/veracity/runs/"+runID+"/significance?system_a=sys-a")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", body["code"])
}

func TestSignificance_NoPairedScores(t *testing.T) {
	router, runID := seededRouter(t)
	w, body := get(t, router,
		"/v1/veracity/runs/"+runID+"/significance?system_a=sys-a&system_b=sys-z")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "NO_PAIRED_SCORES", body["code"])
}

func TestCorrelations(t *testing.T) {
	router, runID := seededRouter(t)
	w, body := get(t, router, "/v1/veracity/runs/"+runID+"/correlations")

	require.Equal(t, http.StatusOK, w.Code)
	// Three pillars, three unordered pairs. Every pillar carries the
	// same value per record, so each pair is fully redundant.
	pairs := body["pairs"].([]any)
	require.Len(t, pairs, 3)
	for _, p := range pairs {
		assert.Equal(t, "redundant", p.(map[string]any)["band"])
	}
}

func TestTaxonomy(t *testing.T) {
	router, runID := seededRouter(t)
	w, body := get(t, router, "/v1/veracity/runs/"+runID+"/taxonomy")

	require.Equal(t, http.StatusOK, w.Code)
	report := body["report"].(map[string]any)
	assert.Equal(t, float64(1), report["total_factual"])
	assert.Equal(t, float64(1), report["total_omission"])
	assert.Len(t, body["rater_rates"].([]any), 2)
}

func TestMetricsMiddleware(t *testing.T) {
	st, err := store.Open(store.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	metrics, err := telemetry.NewMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	handlers := NewHandlers(st, agreement.NewEngine(), significance.NewEngine(), nil)
	router := NewRouter(handlers, MetricsMiddleware(metrics))

	w, body := get(t, router, "/v1/veracity/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])

	// Nil instruments disable recording without breaking the chain.
	router = NewRouter(handlers, MetricsMiddleware(nil))
	w, _ = get(t, router, "/v1/veracity/health")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDPropagated(t *testing.T) {
	router, _ := seededRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/veracity/runs/no-such-run/scores", nil)
	req.Header.Set("X-Request-ID", "req-123")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
