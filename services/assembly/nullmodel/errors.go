// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package nullmodel

import "errors"

// Sentinel errors for null-model generation.
var (
	// ErrInvalidConfig is returned when generator parameters fail
	// validation.
	ErrInvalidConfig = errors.New("invalid null-model configuration")

	// ErrRedshiftOrder is returned when the redshift range does not
	// decrease (z_start must exceed z_end).
	ErrRedshiftOrder = errors.New("redshift range must decrease")
)
