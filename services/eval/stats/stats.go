// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package stats is the shared statistical kernel for the reliability
// engines: descriptive statistics, rank transforms, a deterministic
// seedable RNG, and a parallel bootstrap executor.
package stats

import (
	"errors"
	"math"
	"sort"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrNoObservations indicates an empty sample set.
	ErrNoObservations = errors.New("no observations")
)

// -----------------------------------------------------------------------------
// Descriptive Statistics
// -----------------------------------------------------------------------------

// Mean calculates the arithmetic mean. Returns 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Variance calculates population variance. Returns 0 for an empty slice.
func Variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := Mean(xs)
	var sumSq float64
	for _, x := range xs {
		d := x - m
		sumSq += d * d
	}
	return sumSq / float64(len(xs))
}

// StdDev calculates population standard deviation.
func StdDev(xs []float64) float64 {
	return math.Sqrt(Variance(xs))
}

// Percentile returns the p-th percentile (p in [0,100]) of xs using
// linear interpolation between closest ranks. xs need not be sorted.
func Percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	return percentileSorted(sorted, p)
}

// percentileSorted is Percentile over an already-sorted slice.
func percentileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[n-1]
	}
	pos := p / 100 * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// -----------------------------------------------------------------------------
// Rank Transform
// -----------------------------------------------------------------------------

// Ranks returns the 1-based ranks of xs, averaging ranks within tie
// groups (the convention required for tie-corrected rank correlation).
func Ranks(xs []float64) []float64 {
	n := len(xs)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return xs[idx[i]] < xs[idx[j]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && xs[idx[j+1]] == xs[idx[i]] {
			j++
		}
		// Average rank over the tie group [i, j]
		avg := (float64(i) + float64(j)) / 2.0
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg + 1
		}
		i = j + 1
	}
	return ranks
}

// -----------------------------------------------------------------------------
// Normal Distribution Helpers
// -----------------------------------------------------------------------------

// NormalCDF approximates the standard normal CDF.
func NormalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt(2)))
}

// TwoSidedNormalP returns the two-tailed p-value for a standard normal
// test statistic.
func TwoSidedNormalP(z float64) float64 {
	p := 2 * (1 - NormalCDF(math.Abs(z)))
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// TDistPValue computes the two-tailed p-value for a t statistic with
// df degrees of freedom, via the identity
// P(|T| > t) = I_x(df/2, 1/2) with x = df/(df + t^2).
func TDistPValue(t, df float64) float64 {
	if df <= 0 {
		return 1
	}
	p := regularizedIncompleteBeta(df/2, 0.5, df/(df+t*t))
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// regularizedIncompleteBeta computes I_x(a, b) for a, b > 0 and x in
// [0, 1], switching to the symmetry relation so the continued fraction
// is only evaluated in its fast-converging region.
func regularizedIncompleteBeta(a, b, x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	lgab, _ := math.Lgamma(a + b)
	lga, _ := math.Lgamma(a)
	lgb, _ := math.Lgamma(b)
	front := math.Exp(lgab - lga - lgb + a*math.Log(x) + b*math.Log(1-x))
	if x < (a+1)/(a+b+2) {
		return front * betaContinuedFraction(a, b, x) / a
	}
	return 1 - front*betaContinuedFraction(b, a, 1-x)/b
}

// betaContinuedFraction evaluates the incomplete beta continued
// fraction with the modified Lentz algorithm.
func betaContinuedFraction(a, b, x float64) float64 {
	const (
		maxIterations = 200
		epsilon       = 3e-14
		tiny          = 1e-30
	)

	qab := a + b
	qap := a + 1
	qam := a - 1

	c := 1.0
	d := 1 - qab*x/qap
	if math.Abs(d) < tiny {
		d = tiny
	}
	d = 1 / d
	h := d

	for m := 1; m <= maxIterations; m++ {
		mf := float64(m)
		m2 := 2 * mf

		// Even step.
		aa := mf * (b - mf) * x / ((qam + m2) * (a + m2))
		d = 1 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		h *= d * c

		// Odd step.
		aa = -(a + mf) * (qab + mf) * x / ((a + m2) * (qap + m2))
		d = 1 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		del := d * c
		h *= del
		if math.Abs(del-1) < epsilon {
			break
		}
	}
	return h
}

// -----------------------------------------------------------------------------
// Deterministic RNG
// -----------------------------------------------------------------------------

// RNG is a small linear congruential generator used for deterministic
// bootstrap resampling. Production runs may seed it from the clock;
// tests seed it explicitly.
//
// Thread Safety: NOT safe for concurrent use; give each worker its own
// stream via Split.
type RNG struct {
	state uint64
}

// NewRNG creates a generator from the given seed.
func NewRNG(seed uint64) *RNG {
	// Avoid the degenerate all-zero state
	return &RNG{state: seed ^ 0x9e3779b97f4a7c15}
}

// Uint64 advances the generator and returns the next value.
func (r *RNG) Uint64() uint64 {
	r.state = r.state*6364136223846793005 + 1442695040888963407
	return r.state
}

// Intn returns a value in [0, n). Panics if n <= 0.
func (r *RNG) Intn(n int) int {
	if n <= 0 {
		panic("stats: Intn with non-positive n")
	}
	return int(r.Uint64() % uint64(n))
}

// Float64 returns a value in [0, 1).
func (r *RNG) Float64() float64 {
	return float64(r.Uint64()>>11) / float64(1<<53)
}

// Split derives an independent stream for worker i.
func (r *RNG) Split(i int) *RNG {
	// splitmix-style scramble so worker streams do not overlap
	s := r.state + uint64(i+1)*0x9e3779b97f4a7c15
	s ^= s >> 30
	s *= 0xbf58476d1ce4e5b9
	s ^= s >> 27
	s *= 0x94d049bb133111eb
	s ^= s >> 31
	return &RNG{state: s}
}

// Perm returns a Fisher-Yates permutation of [0, n).
func (r *RNG) Perm(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		p[i], p[j] = p[j], p[i]
	}
	return p
}

// ResampleIndices fills idx with a with-replacement draw from [0, n).
func (r *RNG) ResampleIndices(idx []int, n int) {
	for i := range idx {
		idx[i] = r.Intn(n)
	}
}
