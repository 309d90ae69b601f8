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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all results API routes with the router.
//
// Description:
//
//	Registers all /v1/veracity/* endpoints with the given Gin router
//	group. Every endpoint is read-only; runs are written through the
//	CLI and the store, never through HTTP.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	GET /v1/veracity/health - Health check
//	GET /v1/veracity/runs - List evaluation runs
//	GET /v1/veracity/runs/:id/scores - Composite score records
//	GET /v1/veracity/runs/:id/leaderboard - Per-system summaries
//	GET /v1/veracity/runs/:id/agreement - Inter-rater agreement
//	GET /v1/veracity/runs/:id/distributions - Per-rater rating distributions
//	GET /v1/veracity/runs/:id/significance - Paired system comparison
//	GET /v1/veracity/runs/:id/correlations - Pillar redundancy matrix
//	GET /v1/veracity/runs/:id/taxonomy - Error-tag taxonomy report
//
// Example:
//
//	handlers := api.NewHandlers(st, agreementEngine, significanceEngine, logger)
//
//	v1 := router.Group("/v1")
//	api.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	veracity := rg.Group("/veracity")
	{
		veracity.GET("/health", handlers.HandleHealth)
		veracity.GET("/runs", handlers.HandleListRuns)

		runs := veracity.Group("/runs/:id")
		{
			runs.GET("/scores", handlers.HandleScores)
			runs.GET("/leaderboard", handlers.HandleLeaderboard)
			runs.GET("/agreement", handlers.HandleAgreement)
			runs.GET("/distributions", handlers.HandleDistributions)
			runs.GET("/significance", handlers.HandleSignificance)
			runs.GET("/correlations", handlers.HandleCorrelations)
			runs.GET("/taxonomy", handlers.HandleTaxonomy)
		}
	}
}

// NewRouter builds a ready-to-serve Gin engine with recovery middleware,
// any extra middleware, and all results API routes registered.
func NewRouter(handlers *Handlers, middleware ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware...)

	v1 := router.Group("/v1")
	RegisterRoutes(v1, handlers)
	return router
}
