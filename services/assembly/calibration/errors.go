// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package calibration

import "errors"

// ErrInvalidConfig is returned when engine parameters fail validation.
var ErrInvalidConfig = errors.New("invalid calibration configuration")

// ErrDegenerateEnsemble is returned when the null ensemble has zero
// variance and a z-score cannot be formed.
var ErrDegenerateEnsemble = errors.New("degenerate null ensemble: zero variance")

// ErrEnsembleShortfall is returned when too few ensemble members succeed
// to meet the configured minimum success fraction.
var ErrEnsembleShortfall = errors.New("ensemble shortfall: too few members succeeded")

// ErrSeedMismatch is returned when a prior ensemble was built from a
// different seed than the engine's source, which would break resume
// determinism.
var ErrSeedMismatch = errors.New("prior ensemble seed does not match engine seed")
