// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package field

import "errors"

// Sentinel errors for density field and sequence operations.
var (
	// ErrInvalidField is returned when field data violates a structural
	// constraint (wrong length, negative mass, NaN/Inf, zero total).
	ErrInvalidField = errors.New("invalid field data")

	// ErrGridMismatch is returned when snapshots with different grid
	// resolutions are combined into one sequence or comparison.
	ErrGridMismatch = errors.New("grid resolution mismatch")

	// ErrDuplicateEpoch is returned when two snapshots in a sequence share
	// the same cosmic time.
	ErrDuplicateEpoch = errors.New("duplicate cosmic time in sequence")
)
