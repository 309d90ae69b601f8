// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package eval

import (
	"errors"
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrRatingOutOfRange indicates an ordinal rating outside [1,5].
	ErrRatingOutOfRange = errors.New("rating outside the 1-5 ordinal scale")

	// ErrUnknownPillar indicates a pillar name not in the configured set.
	ErrUnknownPillar = errors.New("unknown pillar")
)

// -----------------------------------------------------------------------------
// Pillars
// -----------------------------------------------------------------------------

// Pillar identifies one independent scoring signal contributing to a
// composite score.
type Pillar string

const (
	// PillarNLI is the contradiction-detection signal.
	PillarNLI Pillar = "nli"

	// PillarJudge is the judge-panel signal.
	PillarJudge Pillar = "judge"

	// PillarCoverage is the semantic-coverage signal.
	PillarCoverage Pillar = "coverage"
)

// Pillars returns the configured pillar set in canonical order.
func Pillars() []Pillar {
	return []Pillar{PillarNLI, PillarJudge, PillarCoverage}
}

// PillarScore is one pillar's value for a single (document, system) pair.
//
// A nil Value means the pillar could not be computed for this document
// (e.g., no reference available). It must never be treated as zero.
type PillarScore struct {
	// Value is the pillar score in [0,1], or nil when unavailable.
	Value *float64 `json:"value"`

	// Confidence is the pillar's self-reported confidence in [0,1].
	Confidence float64 `json:"confidence"`

	// Weight is the pillar's configured weight in the composite.
	Weight float64 `json:"weight"`
}

// Available reports whether the pillar has a computed value.
func (p PillarScore) Available() bool {
	return p.Value != nil
}

// -----------------------------------------------------------------------------
// Composite Results
// -----------------------------------------------------------------------------

// Mode classifies how complete a composite score is.
//
// Modes are a closed sum type: consumers must switch exhaustively so a
// provisional result can never be accidentally treated as comparable to
// a full one.
type Mode int

const (
	// ModeFull means every configured pillar contributed.
	ModeFull Mode = iota

	// ModeProvisional means a strict subset of pillars contributed; the
	// score is not comparable to full-mode scores.
	ModeProvisional

	// ModeUnscorable means no pillar was available; there is no score.
	ModeUnscorable
)

// String returns the string representation.
func (m Mode) String() string {
	switch m {
	case ModeFull:
		return "FULL"
	case ModeProvisional:
		return "PROVISIONAL"
	case ModeUnscorable:
		return "UNSCORABLE"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON renders the mode as its string name.
func (m Mode) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON parses a mode from its string name.
func (m *Mode) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"FULL"`:
		*m = ModeFull
	case `"PROVISIONAL"`:
		*m = ModeProvisional
	case `"UNSCORABLE"`:
		*m = ModeUnscorable
	default:
		return fmt.Errorf("invalid mode %s", string(data))
	}
	return nil
}

// CompositeResult is the weighted combination of all available pillars for
// one (document, system) pair.
//
// Invariant: WeightsUsed values sum to 1.0 whenever Mode != ModeUnscorable,
// and a pillar with a nil value never appears in WeightsUsed.
type CompositeResult struct {
	// Score is the composite in [0,1], or nil when Mode is ModeUnscorable.
	Score *float64 `json:"score"`

	// Confidence is the weighted pillar confidence in [0,1].
	Confidence float64 `json:"confidence"`

	// Mode classifies pillar coverage (FULL / PROVISIONAL / UNSCORABLE).
	Mode Mode `json:"mode"`

	// WeightsUsed maps each contributing pillar to its renormalized weight.
	WeightsUsed map[Pillar]float64 `json:"weights_used"`

	// Warnings carries missing-pillar and small-sample annotations. They
	// must be surfaced verbatim to any reporting layer.
	Warnings []string `json:"warnings,omitempty"`
}

// -----------------------------------------------------------------------------
// Rater Ratings
// -----------------------------------------------------------------------------

// Dimension names one of the two ordinal rating dimensions.
type Dimension string

const (
	// DimensionFactualAccuracy rates whether the summary is true to the
	// reference.
	DimensionFactualAccuracy Dimension = "factual_accuracy"

	// DimensionCompleteness rates whether the summary covers the
	// reference's key content.
	DimensionCompleteness Dimension = "completeness"
)

// Dimensions returns both rating dimensions in canonical order.
func Dimensions() []Dimension {
	return []Dimension{DimensionFactualAccuracy, DimensionCompleteness}
}

// RaterRating is one rater's ordinal assessment of a (document, system)
// pair. Immutable once recorded.
type RaterRating struct {
	RaterID    string `json:"rater_id"`
	DocumentID string `json:"document_id"`
	SystemID   string `json:"system_id"`

	// FactualAccuracy is the 1-5 factual accuracy rating.
	FactualAccuracy int `json:"factual_accuracy"`

	// Completeness is the 1-5 completeness rating.
	Completeness int `json:"completeness"`
}

// Validate checks both ratings are on the 1-5 ordinal scale.
//
// Out-of-range ratings are contract violations upstream and fail fast
// rather than being clamped.
func (r RaterRating) Validate() error {
	if r.FactualAccuracy < 1 || r.FactualAccuracy > 5 {
		return fmt.Errorf("%w: factual_accuracy=%d (rater %s, document %s)",
			ErrRatingOutOfRange, r.FactualAccuracy, r.RaterID, r.DocumentID)
	}
	if r.Completeness < 1 || r.Completeness > 5 {
		return fmt.Errorf("%w: completeness=%d (rater %s, document %s)",
			ErrRatingOutOfRange, r.Completeness, r.RaterID, r.DocumentID)
	}
	return nil
}

// Value returns the rating on the requested dimension.
func (r RaterRating) Value(d Dimension) int {
	if d == DimensionCompleteness {
		return r.Completeness
	}
	return r.FactualAccuracy
}

// Raw averages the two dimensions onto the [1,5] scale.
func (r RaterRating) Raw() float64 {
	return (float64(r.FactualAccuracy) + float64(r.Completeness)) / 2
}

// Normalized maps the raw [1,5] average onto [0,1].
func (r RaterRating) Normalized() float64 {
	return (r.Raw() - 1) / 4
}

// -----------------------------------------------------------------------------
// Error Tags
// -----------------------------------------------------------------------------

// ErrorKind distinguishes factual errors from omissions; the two are
// classified against separate taxonomies.
type ErrorKind int

const (
	// KindFactual marks a factual error (wrong or invented content).
	KindFactual ErrorKind = iota

	// KindOmission marks missing key content.
	KindOmission
)

// String returns the string representation.
func (k ErrorKind) String() string {
	switch k {
	case KindFactual:
		return "FACTUAL"
	case KindOmission:
		return "OMISSION"
	default:
		return "UNKNOWN"
	}
}

// Severity grades how damaging a tagged error is.
type Severity int

const (
	// SeverityUnknown is used when the tagging rater supplied no severity.
	SeverityUnknown Severity = iota

	// SeverityMinor marks cosmetic or low-impact errors.
	SeverityMinor

	// SeverityMajor marks errors that materially distort the summary.
	SeverityMajor

	// SeverityCritical marks errors that invert or fabricate the outcome.
	SeverityCritical
)

// String returns the string representation.
func (s Severity) String() string {
	switch s {
	case SeverityMinor:
		return "MINOR"
	case SeverityMajor:
		return "MAJOR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ParseSeverity maps free-form severity labels from the judging
// collaborator onto the fixed scale. Unrecognized labels become
// SeverityUnknown rather than failing: severity is advisory metadata.
func ParseSeverity(label string) Severity {
	switch label {
	case "Minor", "minor", "MINOR":
		return SeverityMinor
	case "Major", "major", "MAJOR", "Substantial", "Major Issue":
		return SeverityMajor
	case "Critical", "critical", "CRITICAL":
		return SeverityCritical
	default:
		return SeverityUnknown
	}
}

// ErrorTag is one free-form error or omission record produced by the
// external judging collaborator. The engine only classifies and
// aggregates tags; it never mutates the source text.
type ErrorTag struct {
	RaterID    string    `json:"rater_id"`
	SystemID   string    `json:"system_id"`
	DocumentID string    `json:"document_id"`
	Kind       ErrorKind `json:"kind"`

	// Issue is the rater's free-text description of the problem.
	Issue string `json:"issue"`

	// Quote is the offending span quoted from the summary, when present.
	Quote string `json:"quote"`

	Severity Severity `json:"severity"`
}

// -----------------------------------------------------------------------------
// Score Records
// -----------------------------------------------------------------------------

// ScoreRecord is one (document, system) pair's full scoring output for a
// single evaluation run.
//
// Lifecycle: created once per run, immutable afterward. Re-evaluation
// produces a new record with a new RunID; previous records are retained
// for consistency auditing.
type ScoreRecord struct {
	RunID      string `json:"run_id"`
	DocumentID string `json:"document_id"`
	SystemID   string `json:"system_id"`

	// Pillars holds the per-pillar inputs that produced the composite.
	Pillars map[Pillar]PillarScore `json:"pillars"`

	// Composite is the aggregated result, mode and warnings included.
	Composite CompositeResult `json:"composite"`

	CreatedAt time.Time `json:"created_at"`
}
