// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation for identifiers that end up
// in file paths and archive records.
//
// Target labels flow from config and CLI flags into report filenames and
// archived run summaries. Validating them at the boundary rejects names
// that would otherwise be silently rewritten (or worse, traverse out of
// the results directory) instead of surfacing a clear error to the user.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// targetPattern matches valid target labels. The character set mirrors what
// report filenames accept verbatim, so a valid target appears unmangled in
// "assembly_<target>_<id>.json".
// Allows: letters, digits, underscores, hyphens. First character must be
// alphanumeric. Max length: 64 characters.
var targetPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// ValidateTarget validates a target label before it is used in filenames
// or archive keys.
//
// Valid targets:
//   - 1-64 characters
//   - letters A-Z a-z and digits 0-9
//   - underscores (halo_8596) and hyphens (demo-halo)
//   - first character alphanumeric
//
// Returns an error describing the constraint if the target is invalid.
//
// Example:
//
//	if err := validation.ValidateTarget(cfg.Target); err != nil {
//	    return fmt.Errorf("invalid target: %w", err)
//	}
func ValidateTarget(target string) error {
	if target == "" {
		return fmt.Errorf("target cannot be empty")
	}

	if !targetPattern.MatchString(target) {
		return fmt.Errorf("invalid target %q (must be 1-64 letters, digits, underscores, or hyphens, starting with a letter or digit)", target)
	}

	return nil
}

// SanitizeTarget trims surrounding whitespace and validates the result.
// Returns the trimmed target if valid, or an error if invalid.
//
// Use this at flag boundaries where stray whitespace is likely:
//
//	target, err := validation.SanitizeTarget(flagValue)
//	if err != nil {
//	    return err
//	}
func SanitizeTarget(target string) (string, error) {
	trimmed := strings.TrimSpace(target)
	if err := ValidateTarget(trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}
