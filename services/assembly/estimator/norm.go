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

import (
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

// Norm selects the distance metric for neighbor searches.
type Norm int

const (
	// NormChebyshev is the max-coordinate (L-infinity) distance. With the
	// log-volume convention used here it contributes no volume term,
	// matching the estimator this pipeline is calibrated against.
	NormChebyshev Norm = iota

	// NormEuclidean is the L2 distance, with the usual d-ball volume term
	// pi^(d/2) / Gamma(d/2 + 1).
	NormEuclidean
)

// String returns the configuration name of the norm.
func (n Norm) String() string {
	switch n {
	case NormChebyshev:
		return "chebyshev"
	case NormEuclidean:
		return "euclidean"
	default:
		return "unknown"
	}
}

// ParseNorm maps a configuration string to a Norm. Accepts "max" as an
// alias for chebyshev.
func ParseNorm(s string) (Norm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "chebyshev", "max", "":
		return NormChebyshev, nil
	case "euclidean", "l2":
		return NormEuclidean, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownNorm, s)
	}
}

// MarshalText encodes the norm by name for JSON configs.
func (n Norm) MarshalText() ([]byte, error) {
	if n != NormChebyshev && n != NormEuclidean {
		return nil, fmt.Errorf("%w: %d", ErrUnknownNorm, int(n))
	}
	return []byte(n.String()), nil
}

// UnmarshalText decodes a norm name.
func (n *Norm) UnmarshalText(text []byte) error {
	parsed, err := ParseNorm(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// MarshalYAML encodes the norm by name. yaml.v3 does not consult
// encoding.TextMarshaler, so the YAML interfaces are implemented
// directly.
func (n Norm) MarshalYAML() (interface{}, error) {
	if n != NormChebyshev && n != NormEuclidean {
		return nil, fmt.Errorf("%w: %d", ErrUnknownNorm, int(n))
	}
	return n.String(), nil
}

// UnmarshalYAML decodes a norm name from a YAML scalar.
func (n *Norm) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return n.UnmarshalText([]byte(s))
}

// logUnitBallVolume returns log c_d for the metric in d dimensions.
func logUnitBallVolume(n Norm, d int) float64 {
	if n == NormChebyshev {
		return 0
	}
	lg, _ := math.Lgamma(float64(d)/2 + 1)
	return float64(d)/2*math.Log(math.Pi) - lg
}
