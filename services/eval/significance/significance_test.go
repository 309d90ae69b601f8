// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package significance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/Veracity/services/eval/stats"
)

func TestCompareMeans_SelfComparisonNotSignificant(t *testing.T) {
	scores := []float64{0.8, 0.6, 0.9, 0.7, 0.5, 0.85}
	e := NewEngine(WithSeed(42))

	cmp, err := e.CompareMeans(context.Background(), "sys", "sys", scores, scores)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, cmp.MeanDiff, 1e-12)
	assert.False(t, cmp.Significant)
	assert.Empty(t, cmp.Winner)
	assert.InDelta(t, 0.0, cmp.CI.Lower, 1e-12)
	assert.InDelta(t, 0.0, cmp.CI.Upper, 1e-12)
}

func TestCompareMeans_ClearWinner(t *testing.T) {
	a := []float64{0.9, 0.9, 0.9}
	b := []float64{0.2, 0.2, 0.2}
	e := NewEngine(WithSeed(42))

	cmp, err := e.CompareMeans(context.Background(), "strong", "weak", a, b)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, cmp.MeanDiff, 1e-12)
	// Every paired resample yields the same difference.
	assert.InDelta(t, 0.7, cmp.CI.Lower, 1e-12)
	assert.InDelta(t, 0.7, cmp.CI.Upper, 1e-12)
	assert.True(t, cmp.Significant)
	assert.Equal(t, "strong", cmp.Winner)
	require.Len(t, cmp.Warnings, 1)
	assert.Contains(t, cmp.Warnings[0], "small sample")
}

func TestCompareMeans_WinnerIsLowerSeries(t *testing.T) {
	a := []float64{0.1, 0.1, 0.1, 0.1, 0.1}
	b := []float64{0.8, 0.8, 0.8, 0.8, 0.8}
	e := NewEngine(WithSeed(1))

	cmp, err := e.CompareMeans(context.Background(), "sysA", "sysB", a, b)
	require.NoError(t, err)
	assert.True(t, cmp.Significant)
	assert.Equal(t, "sysB", cmp.Winner)
	assert.Empty(t, cmp.Warnings)
}

func TestCompareMeans_OverlappingSeriesNotSignificant(t *testing.T) {
	// Differences alternate in sign with mean near zero.
	a := []float64{0.5, 0.7, 0.4, 0.6, 0.55, 0.65, 0.45, 0.6}
	b := []float64{0.55, 0.65, 0.45, 0.62, 0.5, 0.7, 0.4, 0.58}
	e := NewEngine(WithSeed(9))

	cmp, err := e.CompareMeans(context.Background(), "sysA", "sysB", a, b)
	require.NoError(t, err)
	assert.False(t, cmp.Significant)
	assert.Empty(t, cmp.Winner)
	assert.True(t, cmp.CI.Contains(0))
}

func TestCompareMeans_PairingControlsDifficulty(t *testing.T) {
	// B beats A by exactly 0.05 on every document even though both
	// series vary widely across documents. Pairing makes the constant
	// gap significant.
	a := []float64{0.1, 0.9, 0.3, 0.7, 0.5, 0.2, 0.8}
	b := make([]float64, len(a))
	for i := range a {
		b[i] = a[i] + 0.05
	}
	e := NewEngine(WithSeed(4))

	cmp, err := e.CompareMeans(context.Background(), "sysA", "sysB", a, b)
	require.NoError(t, err)
	assert.InDelta(t, -0.05, cmp.MeanDiff, 1e-12)
	assert.InDelta(t, -0.05, cmp.CI.Lower, 1e-12)
	assert.InDelta(t, -0.05, cmp.CI.Upper, 1e-12)
	assert.True(t, cmp.Significant)
	assert.Equal(t, "sysB", cmp.Winner)
}

func TestCompareMeans_MismatchedLengthsFailFast(t *testing.T) {
	e := NewEngine()
	_, err := e.CompareMeans(context.Background(), "a", "b",
		[]float64{0.1, 0.2}, []float64{0.1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMismatchedSeries)
}

func TestCompareMeans_EmptyInput(t *testing.T) {
	e := NewEngine()
	_, err := e.CompareMeans(context.Background(), "a", "b", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, stats.ErrNoObservations)
}

func TestCompareMeans_DeterministicUnderSeed(t *testing.T) {
	a := []float64{0.5, 0.7, 0.4, 0.6, 0.55, 0.9, 0.3}
	b := []float64{0.45, 0.72, 0.5, 0.58, 0.6, 0.8, 0.35}

	run := func() Comparison {
		e := NewEngine(WithSeed(77), WithWorkers(4))
		cmp, err := e.CompareMeans(context.Background(), "a", "b", a, b)
		require.NoError(t, err)
		return cmp
	}
	first := run()
	second := run()
	assert.Equal(t, first.CI, second.CI)
	assert.Equal(t, first.Significant, second.Significant)
}

func TestCompareMeans_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEngine()
	_, err := e.CompareMeans(ctx, "a", "b",
		[]float64{0.1, 0.2, 0.3, 0.4, 0.5}, []float64{0.2, 0.3, 0.4, 0.5, 0.6})
	assert.Error(t, err)
}
