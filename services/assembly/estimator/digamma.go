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

import "math"

// digamma computes the logarithmic derivative of the gamma function for
// x > 0.
//
// Uses the recurrence psi(x) = psi(x+1) - 1/x to shift the argument above
// 6, then the Bernoulli asymptotic expansion
//
//	psi(x) ~ ln x - 1/(2x) - 1/(12x^2) + 1/(120x^4) - 1/(252x^6) + 1/(240x^8)
//
// which is accurate to better than 1e-12 there. The estimator only ever
// evaluates positive integer arguments (sample counts and neighbor
// counts), but the implementation accepts any positive real. Returns NaN
// for x <= 0.
func digamma(x float64) float64 {
	if x <= 0 || math.IsNaN(x) {
		return math.NaN()
	}

	result := 0.0
	for x < 6 {
		result -= 1 / x
		x++
	}

	inv := 1 / x
	inv2 := inv * inv
	result += math.Log(x) - 0.5*inv
	result -= inv2 * (1.0/12 - inv2*(1.0/120-inv2*(1.0/252-inv2/240)))
	return result
}
