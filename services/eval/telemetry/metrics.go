// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics contains pre-defined metrics for the evaluation service.
//
// Description:
//
//	Provides counters and histograms for the reliability engines and
//	the results API. All metrics use the "veracity_" prefix for
//	consistent naming.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// --- Reliability Metrics ---

	// AgreementComparisonsTotal counts rater-pair agreement computations.
	AgreementComparisonsTotal metric.Int64Counter

	// AgreementDuration records agreement computation duration in seconds.
	AgreementDuration metric.Float64Histogram

	// BootstrapIterationsTotal counts bootstrap resample iterations.
	BootstrapIterationsTotal metric.Int64Counter

	// SignificanceComparisonsTotal counts pairwise mean comparisons by verdict.
	SignificanceComparisonsTotal metric.Int64Counter

	// --- HTTP Metrics ---

	// HTTPRequestsTotal counts API requests by method, path, and status.
	HTTPRequestsTotal metric.Int64Counter

	// HTTPRequestDuration records API request duration in seconds.
	HTTPRequestDuration metric.Float64Histogram

	// --- Error Metrics ---

	// ErrorsTotal counts errors by type and component.
	ErrorsTotal metric.Int64Counter
}

// NewMetrics creates a Metrics instance with all metrics registered.
//
// Inputs:
//   - meter: The OTel meter to use for metric registration.
//
// Outputs:
//   - *Metrics: Counters and histograms, all initialized.
//   - error: Non-nil if any registration fails.
//
// Thread Safety: Safe for concurrent use after creation.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.AgreementComparisonsTotal, err = meter.Int64Counter(
		"veracity_agreement_comparisons_total",
		metric.WithDescription("Rater-pair agreement computations"),
		metric.WithUnit("{comparison}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create agreement_comparisons_total: %w", err)
	}

	m.AgreementDuration, err = meter.Float64Histogram(
		"veracity_agreement_duration_seconds",
		metric.WithDescription("Agreement computation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5),
	)
	if err != nil {
		return nil, fmt.Errorf("create agreement_duration: %w", err)
	}

	m.BootstrapIterationsTotal, err = meter.Int64Counter(
		"veracity_bootstrap_iterations_total",
		metric.WithDescription("Bootstrap resample iterations executed"),
		metric.WithUnit("{iteration}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create bootstrap_iterations_total: %w", err)
	}

	m.SignificanceComparisonsTotal, err = meter.Int64Counter(
		"veracity_significance_comparisons_total",
		metric.WithDescription("Pairwise mean comparisons, by verdict"),
		metric.WithUnit("{comparison}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create significance_comparisons_total: %w", err)
	}

	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"veracity_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_requests_total: %w", err)
	}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"veracity_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_request_duration: %w", err)
	}

	m.ErrorsTotal, err = meter.Int64Counter(
		"veracity_errors_total",
		metric.WithDescription("Total errors by type and component"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create errors_total: %w", err)
	}

	return m, nil
}
