// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package integrate

import "errors"

// Sentinel errors for temporal integration.
var (
	// ErrInsufficientHistory is returned when a sequence has fewer than
	// two snapshots and therefore no interval to integrate over.
	ErrInsufficientHistory = errors.New("sequence too short to integrate")

	// ErrInvalidSeries is returned for malformed quadrature input:
	// mismatched lengths, fewer than two points, or non-increasing
	// abscissae.
	ErrInvalidSeries = errors.New("invalid integration series")

	// ErrBadConfig is returned when integrator configuration fails
	// validation.
	ErrBadConfig = errors.New("invalid integrator configuration")
)
