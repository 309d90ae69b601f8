// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package agreement computes inter-rater reliability: quadratic-weighted
// ordinal agreement (Cohen's kappa) and tie-corrected rank correlation
// (Kendall's tau-b), each with bootstrap confidence intervals.
package agreement

// scalePoints is the size of the ordinal rating scale (1-5).
const scalePoints = 5

// WeightedKappa computes quadratic-weighted Cohen's kappa for two
// aligned 1-5 rating vectors.
//
// Description:
//
//	Chance-corrected agreement where the disagreement penalty grows with
//	the square of the rating gap: a 1-vs-5 disagreement counts far more
//	than a 3-vs-4 one. The observed confusion matrix is compared against
//	the chance matrix built from the outer product of the marginals;
//	kappa = 1 - weightedObserved/weightedExpected. When the expected
//	disagreement is zero (both marginals concentrated on one category)
//	there is no chance disagreement to correct for and kappa is 1 by
//	convention — callers screen degenerate vectors out beforehand.
//
// Inputs:
//   - a, b: Aligned rating vectors with values in [1,5]. Must be the
//     same non-zero length (callers enforce).
//
// Outputs:
//   - float64: Kappa in [-1, 1].
//
// Thread Safety: This function is stateless and safe for concurrent use.
func WeightedKappa(a, b []int) float64 {
	n := float64(len(a))

	// Normalized confusion matrix
	var observed [scalePoints][scalePoints]float64
	for i := range a {
		observed[a[i]-1][b[i]-1] += 1 / n
	}

	// Marginals
	var marginA, marginB [scalePoints]float64
	for i := 0; i < scalePoints; i++ {
		for j := 0; j < scalePoints; j++ {
			marginA[i] += observed[i][j]
			marginB[j] += observed[i][j]
		}
	}

	// Quadratic disagreement weights against the chance matrix
	denom := float64((scalePoints - 1) * (scalePoints - 1))
	var observedDis, expectedDis float64
	for i := 0; i < scalePoints; i++ {
		for j := 0; j < scalePoints; j++ {
			gap := float64(i - j)
			w := gap * gap / denom
			observedDis += w * observed[i][j]
			expectedDis += w * marginA[i] * marginB[j]
		}
	}

	if expectedDis == 0 {
		return 1
	}
	return 1 - observedDis/expectedDis
}
