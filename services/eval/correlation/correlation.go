// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package correlation relates score series to each other: pillar
// redundancy, baseline-versus-composite divergence, and length bias.
//
// The same coefficient answers very different questions depending on
// what the two series are, so the three applications live in dedicated
// helpers rather than being conflated behind one call site.
package correlation

import (
	"errors"
	"fmt"
	"math"

	"github.com/AleutianAI/Veracity/services/eval/stats"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrLengthMismatch reports series of different lengths. Mismatched
	// series indicate an upstream pairing bug and are rejected outright.
	ErrLengthMismatch = errors.New("correlation: series length mismatch")

	// ErrUnknownMethod reports a Method outside the defined set.
	ErrUnknownMethod = errors.New("correlation: unknown method")
)

// minUsableSample is the floor below which coefficients carry a low-N
// warning.
const minUsableSample = 5

// -----------------------------------------------------------------------------
// Methods
// -----------------------------------------------------------------------------

// Method selects the correlation statistic.
type Method int

const (
	// MethodRank is Spearman rank correlation.
	MethodRank Method = iota
	// MethodLinear is Pearson linear correlation.
	MethodLinear
)

// String returns the method name.
func (m Method) String() string {
	switch m {
	case MethodRank:
		return "RANK"
	case MethodLinear:
		return "LINEAR"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// -----------------------------------------------------------------------------
// Results
// -----------------------------------------------------------------------------

// Result is a correlation coefficient with its significance.
//
// A nil Coefficient means the pair was degenerate after null dropping
// (fewer than two pairs, or a constant series); the warning says why.
type Result struct {
	Method      Method   `json:"method"`
	Coefficient *float64 `json:"coefficient"`
	PValue      *float64 `json:"p_value"`

	// N counts the pairs remaining after pairwise null dropping.
	N int `json:"n"`

	Warnings []string `json:"warnings,omitempty"`
}

// -----------------------------------------------------------------------------
// Correlate
// -----------------------------------------------------------------------------

// Correlate computes the correlation between two paired series.
//
// Description:
//
//	Indices where either series is nil are dropped pairwise before the
//	coefficient is computed. Degenerate inputs (under two surviving
//	pairs, or a constant series) yield a nil coefficient plus a
//	warning. Mismatched lengths fail fast.
//
// Inputs:
//   - a, b: Equal-length paired series; nil marks a missing value.
//   - method: MethodRank (Spearman) or MethodLinear (Pearson).
//
// Outputs:
//   - Result: Coefficient, two-sided p-value, and surviving pair count.
//   - error: ErrLengthMismatch or ErrUnknownMethod.
//
// Thread Safety: Safe for concurrent use.
func Correlate(a, b []*float64, method Method) (Result, error) {
	if len(a) != len(b) {
		return Result{}, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(a), len(b))
	}
	if method != MethodRank && method != MethodLinear {
		return Result{}, fmt.Errorf("%w: %d", ErrUnknownMethod, int(method))
	}

	var xs, ys []float64
	for i := range a {
		if a[i] == nil || b[i] == nil {
			continue
		}
		xs = append(xs, *a[i])
		ys = append(ys, *b[i])
	}

	res := Result{Method: method, N: len(xs)}
	if len(xs) < 2 {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("too few paired observations (n=%d) after dropping missing values", len(xs)))
		return res, nil
	}
	if constant(xs) || constant(ys) {
		res.Warnings = append(res.Warnings,
			"constant series; correlation is undefined")
		return res, nil
	}
	if len(xs) < minUsableSample {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("small sample (n=%d): interpret with caution", len(xs)))
	}

	var r float64
	switch method {
	case MethodRank:
		r = pearson(stats.Ranks(xs), stats.Ranks(ys))
	case MethodLinear:
		r = pearson(xs, ys)
	}
	res.Coefficient = &r

	p := coefficientPValue(r, len(xs))
	res.PValue = &p
	return res, nil
}

// pearson computes the Pearson product-moment coefficient. Inputs are
// assumed non-constant and equal length.
func pearson(xs, ys []float64) float64 {
	meanX := stats.Mean(xs)
	meanY := stats.Mean(ys)

	var cov, varX, varY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	denom := math.Sqrt(varX * varY)
	if denom == 0 {
		return 0
	}
	r := cov / denom
	// Guard rounding just past the boundary.
	if r > 1 {
		return 1
	}
	if r < -1 {
		return -1
	}
	return r
}

// coefficientPValue converts a coefficient to a two-sided p-value via
// the t transform with n-2 degrees of freedom.
func coefficientPValue(r float64, n int) float64 {
	if n < 3 {
		return 1
	}
	if math.Abs(r) >= 1 {
		return 0
	}
	t := r * math.Sqrt(float64(n-2)/(1-r*r))
	return stats.TDistPValue(t, float64(n-2))
}

// constant reports whether the series has fewer than two distinct
// values.
func constant(xs []float64) bool {
	for i := 1; i < len(xs); i++ {
		if xs[i] != xs[0] {
			return false
		}
	}
	return true
}
