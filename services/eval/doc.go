// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package eval defines the shared data model for the summary-faithfulness
// scoring and reliability engine.
//
// The engine combines several independent per-document signals ("pillars")
// into one composite score and statistically validates that the signals
// themselves are trustworthy. This package holds the types every engine
// consumes and produces:
//
//   - PillarScore and CompositeResult: per-document scoring outputs with a
//     FULL / PROVISIONAL / UNSCORABLE mode so a score computed from partial
//     signals can never be mistaken for a fully scored one.
//   - RaterRating and ErrorTag: ordinal judge-panel inputs.
//   - Matrix: the append-only score matrix (document x system x pillar)
//     feeding the reliability engines.
//
// The engines themselves live in subpackages:
//
//   - scoring: pillar aggregation and judge-panel normalization
//   - agreement: inter-rater reliability (weighted kappa, Kendall tau)
//   - correlation: pillar redundancy, baseline divergence, length bias
//   - significance: paired bootstrap comparison of competing systems
//   - consistency: test-retest stability auditing
//   - taxonomy: error/omission classification and aggregation
//   - stats: the shared statistical kernel (bootstrap, ranks, percentiles)
//
// All engines are pure functions over immutable inputs. Recoverable
// missing-data conditions are expressed as nil values plus warnings carried
// inside result structs; contract violations (out-of-range ratings, bad
// weight maps, mismatched series) fail fast with an error.
package eval
