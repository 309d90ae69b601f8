// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for identifiers
// that end up in storage keys or file paths.
//
// Document, system, rater, and run identifiers are embedded directly in
// composite store keys, so characters with structural meaning there
// (slashes, control bytes) must be rejected before they reach the
// database.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// idPattern matches valid evaluation identifiers.
// Allows: letters, digits, dots, hyphens, underscores.
// Max length: 128 characters.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]{0,127}$`)

// ValidateID validates an evaluation identifier (document, system,
// rater, or run ID) before it is embedded in a store key.
//
// Valid identifiers:
//   - 1-128 characters
//   - Letters and digits
//   - Dots (.), hyphens (-), underscores (_) after the first character
//
// Returns an error if the identifier is invalid.
//
// Example:
//
//	if err := validation.ValidateID(docID); err != nil {
//	    return fmt.Errorf("invalid document id: %w", err)
//	}
//	// Safe to embed in a store key
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("identifier cannot be empty")
	}

	if !idPattern.MatchString(id) {
		return fmt.Errorf("invalid identifier: %q (must be 1-128 alphanumeric chars, dots, hyphens, or underscores)", id)
	}

	return nil
}

// ValidateIDs validates multiple identifiers.
// Returns an error listing all invalid identifiers if any fail.
func ValidateIDs(ids ...string) error {
	var invalid []string
	for _, id := range ids {
		if err := ValidateID(id); err != nil {
			invalid = append(invalid, id)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid identifiers: %v", invalid)
	}
	return nil
}

// SanitizeID trims surrounding whitespace and validates the result.
// Returns the trimmed identifier if valid, or an error if invalid.
func SanitizeID(id string) (string, error) {
	normalized := strings.TrimSpace(id)
	if err := ValidateID(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
