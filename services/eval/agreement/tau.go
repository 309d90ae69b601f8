// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agreement

import (
	"math"

	"github.com/AleutianAI/Veracity/services/eval/stats"
)

// permutationThreshold is the sample size below which the asymptotic
// null distribution for tau is unreliable and a permutation test is
// used instead.
const permutationThreshold = 20

// permutationRounds is the number of label shuffles for the small-N
// permutation p-value.
const permutationRounds = 2000

// KendallTau computes tie-corrected Kendall's tau-b for two aligned
// numeric vectors.
//
// Description:
//
//	Counts concordant and discordant pairs and corrects the denominator
//	for ties in either vector (the tau-b formulation). Answers whether
//	two raters order items the same way even when their absolute scores
//	differ.
//
// Inputs:
//   - a, b: Aligned vectors of equal non-zero length.
//
// Outputs:
//   - float64: Tau-b in [-1, 1].
//   - bool: False when either vector is constant (denominator zero);
//     the statistic is undefined and the caller must report null.
//
// Thread Safety: This function is stateless and safe for concurrent use.
func KendallTau(a, b []float64) (float64, bool) {
	n := len(a)
	var concordant, discordant float64
	var tiesA, tiesB float64

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			da := a[i] - a[j]
			db := b[i] - b[j]
			switch {
			case da == 0 && db == 0:
				tiesA++
				tiesB++
			case da == 0:
				tiesA++
			case db == 0:
				tiesB++
			case da*db > 0:
				concordant++
			default:
				discordant++
			}
		}
	}

	n0 := float64(n*(n-1)) / 2
	denom := math.Sqrt((n0 - tiesA) * (n0 - tiesB))
	if denom == 0 {
		return 0, false
	}
	return (concordant - discordant) / denom, true
}

// tauPValueAsymptotic returns the two-sided p-value for tau under its
// asymptotic normal null distribution.
func tauPValueAsymptotic(tau float64, n int) float64 {
	if n < 2 {
		return 1
	}
	// Var(tau) under H0 is 2(2n+5) / (9n(n-1))
	z := 3 * tau * math.Sqrt(float64(n*(n-1))) / math.Sqrt(2*float64(2*n+5))
	return stats.TwoSidedNormalP(z)
}

// tauPValuePermutation estimates the two-sided p-value by shuffling one
// vector's labels and counting permutations with |tau| at least as
// extreme as observed. Add-one smoothing keeps the estimate away from
// an impossible exact zero.
func tauPValuePermutation(a, b []float64, observed float64, rng *stats.RNG) float64 {
	shuffled := make([]float64, len(b))
	extreme := 0
	for round := 0; round < permutationRounds; round++ {
		perm := rng.Perm(len(b))
		for i, p := range perm {
			shuffled[i] = b[p]
		}
		t, ok := KendallTau(a, shuffled)
		if ok && math.Abs(t) >= math.Abs(observed) {
			extreme++
		}
	}
	return (float64(extreme) + 1) / float64(permutationRounds+1)
}
