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

import "math"

// UniverseAgeGyr is the present-day age of the universe used by the
// flat-universe time approximation.
const UniverseAgeGyr = 13.8

// TimeAtRedshift converts redshift to cosmic time in Gyr using the
// matter-dominated flat-universe approximation t = t0 * (1+z)^(-3/2).
//
// The approximation keeps interval lengths between snapshot epochs
// consistent with the analysis this pipeline calibrates against; it is not
// meant to replace a full cosmology calculator. z=0 maps to UniverseAgeGyr
// and time decreases monotonically with increasing redshift.
func TimeAtRedshift(z float64) float64 {
	return UniverseAgeGyr * math.Pow(1+z, -1.5)
}
