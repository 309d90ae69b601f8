// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package stats

import (
	"context"
	"errors"
	"math"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrInsufficientSamples indicates not enough observations to resample.
	ErrInsufficientSamples = errors.New("insufficient samples for bootstrap")
)

// DefaultBootstrapIterations is the floor required for stable percentile
// confidence intervals.
const DefaultBootstrapIterations = 1000

// -----------------------------------------------------------------------------
// Confidence Intervals
// -----------------------------------------------------------------------------

// ConfidenceInterval is a percentile bootstrap interval.
type ConfidenceInterval struct {
	// Lower is the lower bound.
	Lower float64 `json:"lower"`

	// Upper is the upper bound.
	Upper float64 `json:"upper"`

	// Level is the confidence level (e.g., 0.95).
	Level float64 `json:"level"`
}

// Contains returns true if the interval contains the value.
func (ci ConfidenceInterval) Contains(v float64) bool {
	return v >= ci.Lower && v <= ci.Upper
}

// Width returns the interval width.
func (ci ConfidenceInterval) Width() float64 {
	return ci.Upper - ci.Lower
}

// PercentileCI builds a percentile interval from bootstrap statistics.
func PercentileCI(values []float64, level float64) ConfidenceInterval {
	if len(values) == 0 {
		return ConfidenceInterval{Lower: math.NaN(), Upper: math.NaN(), Level: level}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	alpha := (1 - level) / 2 * 100
	return ConfidenceInterval{
		Lower: percentileSorted(sorted, alpha),
		Upper: percentileSorted(sorted, 100-alpha),
		Level: level,
	}
}

// -----------------------------------------------------------------------------
// Bootstrap Executor
// -----------------------------------------------------------------------------

// BootstrapConfig controls a bootstrap run.
type BootstrapConfig struct {
	// Iterations is the number of resamples; values below the 1000
	// floor are raised to it.
	Iterations int

	// Workers caps parallelism. Zero means GOMAXPROCS.
	Workers int

	// Seed makes the run deterministic. Zero seeds from the clock,
	// which is what production runs want.
	Seed uint64
}

func (c BootstrapConfig) normalized() BootstrapConfig {
	if c.Iterations < DefaultBootstrapIterations {
		c.Iterations = DefaultBootstrapIterations
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.Workers > c.Iterations {
		c.Workers = c.Iterations
	}
	if c.Seed == 0 {
		c.Seed = uint64(time.Now().UnixNano())
	}
	return c
}

// Bootstrap runs the statistic over resampled index draws in parallel.
//
// Description:
//
//	Each of the B iterations draws n indices with replacement and
//	evaluates stat over that draw; every engine built on paired data
//	passes the SAME draw to both series, which is what makes the
//	resampling paired. Iterations are split across workers, each with
//	its own RNG stream, and merged at the end — ordering of the merged
//	statistics is irrelevant because consumers only take percentiles.
//
//	Cancellation stops submitting further resamples; partial results
//	are never returned as final results (the call errors instead).
//
// Inputs:
//   - ctx: Context for cancellation.
//   - n: Number of observations to resample (must be >= 1).
//   - cfg: Iteration count, parallelism, and seed.
//   - stat: Statistic over one resampled index draw. Must be safe for
//     concurrent use (engines pass closures over immutable inputs).
//
// Outputs:
//   - []float64: One statistic per iteration, unordered.
//   - error: Non-nil on empty input or cancellation.
//
// Thread Safety: Safe for concurrent use.
func Bootstrap(ctx context.Context, n int, cfg BootstrapConfig, stat func(idx []int) float64) ([]float64, error) {
	if n < 1 {
		return nil, ErrInsufficientSamples
	}
	cfg = cfg.normalized()

	root := NewRNG(cfg.Seed)
	results := make([][]float64, cfg.Workers)

	// Split iterations as evenly as possible across workers
	base := cfg.Iterations / cfg.Workers
	extra := cfg.Iterations % cfg.Workers

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Workers; w++ {
		iters := base
		if w < extra {
			iters++
		}
		rng := root.Split(w)
		slot := w
		g.Go(func() error {
			out := make([]float64, 0, iters)
			idx := make([]int, n)
			for i := 0; i < iters; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				rng.ResampleIndices(idx, n)
				out = append(out, stat(idx))
			}
			results[slot] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make([]float64, 0, cfg.Iterations)
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged, nil
}
