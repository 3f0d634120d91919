// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package estimator

import "errors"

// Sentinel errors for entropy and mutual-information estimation.
var (
	// ErrSampleShape is returned for malformed sample sets: empty input,
	// ragged dimensions, k < 1, N <= k, or mismatched set cardinalities.
	ErrSampleShape = errors.New("sample set shape invalid")

	// ErrNumericalInstability is returned when every k-th neighbor
	// distance collapses to the distance floor, leaving no usable scale
	// information in the sample.
	ErrNumericalInstability = errors.New("neighbor distances collapsed to the floor")

	// ErrUnknownNorm is returned when a norm name cannot be parsed.
	ErrUnknownNorm = errors.New("unknown distance norm")
)
