// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package api exposes stored evaluation results over a read-only HTTP
// API. Responses are flat JSON records; presentation is left to the
// caller.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/Veracity/services/eval/agreement"
	"github.com/AleutianAI/Veracity/services/eval/correlation"
	"github.com/AleutianAI/Veracity/services/eval/scoring"
	"github.com/AleutianAI/Veracity/services/eval/significance"
	"github.com/AleutianAI/Veracity/services/eval/store"
	"github.com/AleutianAI/Veracity/services/eval/taxonomy"
)

// ServiceVersion is the results API version.
const ServiceVersion = "0.1.0"

// ErrorResponse is the JSON body returned on failure.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`
}

// Handlers contains the HTTP handlers for the results API.
type Handlers struct {
	store        *store.Store
	agreement    *agreement.Engine
	significance *significance.Engine
	logger       *slog.Logger
}

// NewHandlers creates handlers backed by the given store.
func NewHandlers(st *store.Store, agr *agreement.Engine, sig *significance.Engine, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{store: st, agreement: agr, significance: sig, logger: logger}
}

// HandleHealth handles GET /v1/veracity/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": ServiceVersion})
}

// HandleListRuns handles GET /v1/veracity/runs.
//
// Response:
//
//	200 OK: list of runs sorted oldest first
func (h *Handlers) HandleListRuns(c *gin.Context) {
	runs, err := h.store.Runs(c.Request.Context())
	if err != nil {
		h.internalError(c, "HandleListRuns", "failed to list runs", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// HandleScores handles GET /v1/veracity/runs/:id/scores.
//
// Response:
//
//	200 OK: stored score records for the run
//	404 Not Found: unknown run ID
func (h *Handlers) HandleScores(c *gin.Context) {
	runID := c.Param("id")
	scores, err := h.store.Scores(c.Request.Context(), runID)
	if err != nil {
		h.storeError(c, "HandleScores", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "scores": scores})
}

// HandleLeaderboard handles GET /v1/veracity/runs/:id/leaderboard.
//
// Query Parameters:
//
//	include_provisional: admit provisional scores (default false)
//
// Response:
//
//	200 OK: per-system summaries sorted by mean composite
//	404 Not Found: unknown run ID
func (h *Handlers) HandleLeaderboard(c *gin.Context) {
	runID := c.Param("id")
	matrix, err := h.store.Matrix(c.Request.Context(), runID)
	if err != nil {
		h.storeError(c, "HandleLeaderboard", err)
		return
	}
	includeProvisional := c.Query("include_provisional") == "true"
	c.JSON(http.StatusOK, gin.H{
		"run_id":      runID,
		"leaderboard": matrix.Leaderboard(includeProvisional),
	})
}

// HandleAgreement handles GET /v1/veracity/runs/:id/agreement.
//
// Description:
//
//	Computes inter-rater agreement for every rater pair in the run's
//	stored ratings. Degenerate pairs come back with nil statistics and
//	a warning rather than an error.
//
// Response:
//
//	200 OK: per-pair, per-dimension agreement results
//	404 Not Found: unknown run ID
func (h *Handlers) HandleAgreement(c *gin.Context) {
	runID := c.Param("id")
	ratings, err := h.store.Ratings(c.Request.Context(), runID)
	if err != nil {
		h.storeError(c, "HandleAgreement", err)
		return
	}
	results, err := h.agreement.AllPairs(c.Request.Context(), ratings)
	if err != nil {
		h.internalError(c, "HandleAgreement", "failed to compute agreement", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "pairs": results})
}

// HandleDistributions handles GET /v1/veracity/runs/:id/distributions.
func (h *Handlers) HandleDistributions(c *gin.Context) {
	runID := c.Param("id")
	ratings, err := h.store.Ratings(c.Request.Context(), runID)
	if err != nil {
		h.storeError(c, "HandleDistributions", err)
		return
	}
	dists, err := scoring.Distributions(ratings)
	if err != nil {
		h.internalError(c, "HandleDistributions", "failed to compute distributions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "raters": dists})
}

// HandleSignificance handles GET /v1/veracity/runs/:id/significance.
//
// Description:
//
//	Runs a paired bootstrap comparison between two systems over the
//	documents both scored.
//
// Query Parameters:
//
//	system_a: first system ID (required)
//	system_b: second system ID (required)
//	include_provisional: admit provisional scores (default false)
//
// Response:
//
//	200 OK: significance comparison
//	400 Bad Request: missing system parameters or no paired documents
//	404 Not Found: unknown run ID
func (h *Handlers) HandleSignificance(c *gin.Context) {
	runID := c.Param("id")
	systemA := c.Query("system_a")
	systemB := c.Query("system_b")
	if systemA == "" || systemB == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "system_a and system_b are required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	matrix, err := h.store.Matrix(c.Request.Context(), runID)
	if err != nil {
		h.storeError(c, "HandleSignificance", err)
		return
	}
	includeProvisional := c.Query("include_provisional") == "true"
	scoresA, scoresB, docIDs := matrix.PairedScores(systemA, systemB, includeProvisional)
	if len(docIDs) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "no documents scored by both systems",
			Code:  "NO_PAIRED_SCORES",
		})
		return
	}

	comparison, err := h.significance.CompareMeans(c.Request.Context(), systemA, systemB, scoresA, scoresB)
	if err != nil {
		h.internalError(c, "HandleSignificance", "failed to compare systems", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "comparison": comparison, "documents": docIDs})
}

// HandleCorrelations handles GET /v1/veracity/runs/:id/correlations.
//
// Response:
//
//	200 OK: rank correlations for every pillar pair, with redundancy bands
//	404 Not Found: unknown run ID
func (h *Handlers) HandleCorrelations(c *gin.Context) {
	runID := c.Param("id")
	scores, err := h.store.Scores(c.Request.Context(), runID)
	if err != nil {
		h.storeError(c, "HandleCorrelations", err)
		return
	}
	pairs, err := correlation.PillarMatrix(scores)
	if err != nil {
		h.internalError(c, "HandleCorrelations", "failed to correlate pillars", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "pairs": pairs})
}

// HandleTaxonomy handles GET /v1/veracity/runs/:id/taxonomy.
//
// Response:
//
//	200 OK: classified error-tag aggregates and per-rater flag rates
//	404 Not Found: unknown run ID
func (h *Handlers) HandleTaxonomy(c *gin.Context) {
	runID := c.Param("id")
	tags, err := h.store.Tags(c.Request.Context(), runID)
	if err != nil {
		h.storeError(c, "HandleTaxonomy", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":      runID,
		"report":      taxonomy.Aggregate(tags),
		"rater_rates": taxonomy.OverFlagging(tags),
	})
}

// storeError maps store failures to HTTP statuses.
func (h *Handlers) storeError(c *gin.Context, handler string, err error) {
	if errors.Is(err, store.ErrRunNotFound) || errors.Is(err, store.ErrMissingRunID) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "run not found",
			Code:  "RUN_NOT_FOUND",
		})
		return
	}
	h.internalError(c, handler, "storage failure", err)
}

func (h *Handlers) internalError(c *gin.Context, handler, msg string, err error) {
	requestID := getOrCreateRequestID(c)
	h.logger.Error(msg, "handler", handler, "request_id", requestID, "error", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: msg,
		Code:  "INTERNAL_ERROR",
	})
}

func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
