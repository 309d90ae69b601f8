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

// Interpretation bands are ordered tables of (matcher -> label), first
// match wins. They exist for reporting only, never for gating logic,
// and new bands can be added without touching control flow.

// band pairs a matcher predicate with its report label.
type band struct {
	match func(v float64) bool
	label string
}

// kappaBands follows the Landis-Koch convention for chance-corrected
// agreement.
var kappaBands = []band{
	{func(v float64) bool { return v >= 0.81 }, "near-perfect"},
	{func(v float64) bool { return v >= 0.61 }, "substantial"},
	{func(v float64) bool { return v >= 0.41 }, "moderate"},
	{func(v float64) bool { return v >= 0.21 }, "fair"},
	{func(v float64) bool { return true }, "poor"},
}

// tauBands grades rank correlation strength.
var tauBands = []band{
	{func(v float64) bool { return v > 0.7 }, "strong"},
	{func(v float64) bool { return v >= 0.4 }, "moderate"},
	{func(v float64) bool { return true }, "weak"},
}

// KappaBand returns the reporting label for a kappa value.
func KappaBand(kappa float64) string {
	return firstBand(kappaBands, kappa)
}

// TauBand returns the reporting label for a tau value.
func TauBand(tau float64) string {
	return firstBand(tauBands, tau)
}

func firstBand(bands []band, v float64) string {
	for _, b := range bands {
		if b.match(v) {
			return b.label
		}
	}
	return ""
}
