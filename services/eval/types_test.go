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
	"encoding/json"
	"errors"
	"testing"
)

func TestMode_String(t *testing.T) {
	tests := []struct {
		mode Mode
		want string
	}{
		{ModeFull, "FULL"},
		{ModeProvisional, "PROVISIONAL"},
		{ModeUnscorable, "UNSCORABLE"},
		{Mode(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.mode.String(); got != tt.want {
				t.Errorf("Mode.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMode_JSONRoundTrip(t *testing.T) {
	for _, mode := range []Mode{ModeFull, ModeProvisional, ModeUnscorable} {
		t.Run(mode.String(), func(t *testing.T) {
			data, err := json.Marshal(mode)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			var back Mode
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if back != mode {
				t.Errorf("round trip = %v, want %v", back, mode)
			}
		})
	}

	var m Mode
	if err := json.Unmarshal([]byte(`"BOGUS"`), &m); err == nil {
		t.Error("expected error for invalid mode string")
	}
}

func TestRaterRating_Validate(t *testing.T) {
	tests := []struct {
		name    string
		fa      int
		comp    int
		wantErr bool
	}{
		{"valid mid", 3, 4, false},
		{"valid bounds", 1, 5, false},
		{"fa too low", 0, 3, true},
		{"fa too high", 6, 3, true},
		{"comp too low", 3, 0, true},
		{"comp too high", 3, 6, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := RaterRating{
				RaterID: "r1", DocumentID: "d1", SystemID: "s1",
				FactualAccuracy: tt.fa, Completeness: tt.comp,
			}
			err := r.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrRatingOutOfRange) {
					t.Errorf("Validate() = %v, want ErrRatingOutOfRange", err)
				}
			} else if err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestRaterRating_Normalized(t *testing.T) {
	tests := []struct {
		name    string
		fa      int
		comp    int
		wantRaw float64
		want    float64
	}{
		{"floor", 1, 1, 1.0, 0.0},
		{"ceiling", 5, 5, 5.0, 1.0},
		{"mixed", 4, 5, 4.5, 0.875},
		{"midpoint", 3, 3, 3.0, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := RaterRating{FactualAccuracy: tt.fa, Completeness: tt.comp}
			if got := r.Raw(); got != tt.wantRaw {
				t.Errorf("Raw() = %v, want %v", got, tt.wantRaw)
			}
			if got := r.Normalized(); got != tt.want {
				t.Errorf("Normalized() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRaterRating_Value(t *testing.T) {
	r := RaterRating{FactualAccuracy: 2, Completeness: 5}
	if got := r.Value(DimensionFactualAccuracy); got != 2 {
		t.Errorf("Value(factual_accuracy) = %d, want 2", got)
	}
	if got := r.Value(DimensionCompleteness); got != 5 {
		t.Errorf("Value(completeness) = %d, want 5", got)
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		label string
		want  Severity
	}{
		{"Minor", SeverityMinor},
		{"Major", SeverityMajor},
		{"Substantial", SeverityMajor},
		{"Major Issue", SeverityMajor},
		{"Critical", SeverityCritical},
		{"?", SeverityUnknown},
		{"", SeverityUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			if got := ParseSeverity(tt.label); got != tt.want {
				t.Errorf("ParseSeverity(%q) = %v, want %v", tt.label, got, tt.want)
			}
		})
	}
}

func TestPillarScore_Available(t *testing.T) {
	v := 0.8
	if (PillarScore{Value: &v}).Available() != true {
		t.Error("score with value should be available")
	}
	if (PillarScore{}).Available() != false {
		t.Error("score without value should be unavailable")
	}
}
