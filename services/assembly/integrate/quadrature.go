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

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Quadrature selects the numerical integration rule.
type Quadrature int

const (
	// QuadratureTrapezoid is the composite trapezoidal rule. Handles any
	// strictly increasing abscissae.
	QuadratureTrapezoid Quadrature = iota

	// QuadratureSimpson is composite Simpson's rule generalized to
	// non-uniform spacing. Interval pairs are fitted with quadratics; an
	// unpaired trailing interval falls back to a trapezoid, as does a
	// series with only two points.
	QuadratureSimpson
)

// String returns the configuration name of the rule.
func (q Quadrature) String() string {
	switch q {
	case QuadratureTrapezoid:
		return "trapezoid"
	case QuadratureSimpson:
		return "simpson"
	default:
		return "unknown"
	}
}

// ParseQuadrature maps a configuration string to a Quadrature.
func ParseQuadrature(s string) (Quadrature, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trapezoid", "trapezoidal", "":
		return QuadratureTrapezoid, nil
	case "simpson", "simpsons":
		return QuadratureSimpson, nil
	default:
		return 0, fmt.Errorf("%w: unknown quadrature %q", ErrBadConfig, s)
	}
}

// MarshalText encodes the rule by name for JSON configs.
func (q Quadrature) MarshalText() ([]byte, error) {
	if q != QuadratureTrapezoid && q != QuadratureSimpson {
		return nil, fmt.Errorf("%w: unknown quadrature %d", ErrBadConfig, int(q))
	}
	return []byte(q.String()), nil
}

// UnmarshalText decodes a rule name.
func (q *Quadrature) UnmarshalText(text []byte) error {
	parsed, err := ParseQuadrature(string(text))
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// MarshalYAML encodes the rule by name. yaml.v3 does not consult
// encoding.TextMarshaler, so the YAML interfaces are implemented
// directly.
func (q Quadrature) MarshalYAML() (interface{}, error) {
	if q != QuadratureTrapezoid && q != QuadratureSimpson {
		return nil, fmt.Errorf("%w: unknown quadrature %d", ErrBadConfig, int(q))
	}
	return q.String(), nil
}

// UnmarshalYAML decodes a rule name from a YAML scalar.
func (q *Quadrature) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return q.UnmarshalText([]byte(s))
}

// Integrate computes the integral of the sampled function (ts, ys).
//
// Inputs:
//   - ts: strictly increasing abscissae, len >= 2.
//   - ys: ordinates, same length as ts.
//
// Outputs:
//   - float64: the integral over [ts[0], ts[len-1]].
//   - error: ErrInvalidSeries on malformed input.
func (q Quadrature) Integrate(ts, ys []float64) (float64, error) {
	if len(ts) != len(ys) {
		return 0, fmt.Errorf("%w: %d abscissae vs %d ordinates", ErrInvalidSeries, len(ts), len(ys))
	}
	if len(ts) < 2 {
		return 0, fmt.Errorf("%w: need at least 2 points, got %d", ErrInvalidSeries, len(ts))
	}
	for i := 1; i < len(ts); i++ {
		if ts[i] <= ts[i-1] {
			return 0, fmt.Errorf("%w: abscissae must strictly increase (t[%d]=%g, t[%d]=%g)",
				ErrInvalidSeries, i-1, ts[i-1], i, ts[i])
		}
	}

	if q == QuadratureSimpson {
		return simpson(ts, ys), nil
	}
	return trapezoid(ts, ys), nil
}

func trapezoid(ts, ys []float64) float64 {
	total := 0.0
	for i := 1; i < len(ts); i++ {
		total += (ys[i] + ys[i-1]) / 2 * (ts[i] - ts[i-1])
	}
	return total
}

// simpson integrates consecutive interval pairs with the non-uniform
// three-point rule
//
//	I = (h0+h1)/6 * [(2 - h1/h0) f0 + (h0+h1)^2/(h0 h1) f1 + (2 - h0/h1) f2]
//
// which reduces to the classic h/3 weights for equal spacing. A leftover
// unpaired interval is integrated with a trapezoid.
func simpson(ts, ys []float64) float64 {
	total := 0.0
	i := 0
	for ; i+2 < len(ts); i += 2 {
		h0 := ts[i+1] - ts[i]
		h1 := ts[i+2] - ts[i+1]
		sum := h0 + h1
		total += sum / 6 * ((2-h1/h0)*ys[i] +
			sum*sum/(h0*h1)*ys[i+1] +
			(2-h0/h1)*ys[i+2])
	}
	if i+1 < len(ts) {
		total += (ys[i+1] + ys[i]) / 2 * (ts[i+1] - ts[i])
	}
	return total
}
