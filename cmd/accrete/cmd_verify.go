// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/accrete/pkg/ux"
	"github.com/AleutianAI/accrete/services/assembly/estimator"
	"github.com/AleutianAI/accrete/services/assembly/rng"
)

// verifyCheck is one self-check result.
type verifyCheck struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value_bits"`
	Expected  float64 `json:"expected_bits"`
	Tolerance float64 `json:"tolerance_bits"`
	Passed    bool    `json:"passed"`
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// runVerify exercises the entropy estimator against known answers. The
// checks run under the Chebyshev norm, where the saturation identity
// I(X;X) = psi(N) - psi(k) holds exactly.
func runVerify(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig()
	logger := newRunLogger(cfg)
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n := verifySamples
	k := cfg.Estimator.NeighborK
	if n < 16 {
		ux.Error("need at least 16 samples")
		os.Exit(1)
	}
	if k >= n {
		ux.Error(fmt.Sprintf("neighbor count %d must be below sample size %d", k, n))
		os.Exit(1)
	}
	opts := estimator.Options{Norm: estimator.NormChebyshev}

	src := rng.NewSource(verifySeed)
	x := gaussianSample(src.Stream(1), n)
	y := gaussianSample(src.Stream(2), n)

	checks := make([]verifyCheck, 0, 3)

	// A variable shares everything with itself, so the estimate must
	// sit at the estimator's saturation bound.
	selfMI, err := estimator.MutualInformation(ctx, x, x, k, opts)
	if err != nil {
		ux.Error(fmt.Sprintf("self-information check: %v", err))
		os.Exit(1)
	}
	bound := estimator.SaturationBits(n, k)
	checks = append(checks, verifyCheck{
		Name:      "self-information saturates",
		Value:     selfMI,
		Expected:  bound,
		Tolerance: 0.05,
		Passed:    math.Abs(selfMI-bound) <= 0.05,
	})

	// Independent samples carry nothing beyond finite-sample bias.
	indepMI, err := estimator.MutualInformation(ctx, x, y, k, opts)
	if err != nil {
		ux.Error(fmt.Sprintf("independence check: %v", err))
		os.Exit(1)
	}
	checks = append(checks, verifyCheck{
		Name:      "independent samples near zero",
		Value:     indepMI,
		Expected:  0,
		Tolerance: 0.15,
		Passed:    math.Abs(indepMI) <= 0.15,
	})

	// Rebuilding the streams from the same seed must reproduce the
	// estimate exactly.
	src2 := rng.NewSource(verifySeed)
	x2 := gaussianSample(src2.Stream(1), n)
	y2 := gaussianSample(src2.Stream(2), n)
	repeatMI, err := estimator.MutualInformation(ctx, x2, y2, k, opts)
	if err != nil {
		ux.Error(fmt.Sprintf("reproducibility check: %v", err))
		os.Exit(1)
	}
	checks = append(checks, verifyCheck{
		Name:      "estimates reproduce bit for bit",
		Value:     repeatMI,
		Expected:  indepMI,
		Tolerance: 0,
		Passed:    repeatMI == indepMI,
	})

	logger.Debug("self-checks complete",
		"samples", n, "neighbor_k", k,
		"self_mi_bits", selfMI, "saturation_bits", bound, "indep_mi_bits", indepMI)

	allPassed := true
	for _, c := range checks {
		if !c.Passed {
			allPassed = false
		}
	}

	if verifyJSON {
		outputJSON(map[string]any{"checks": checks, "passed": allPassed})
	} else {
		for _, c := range checks {
			line := fmt.Sprintf("%s: %.4f bits (expected %.4f, tolerance %.2f)",
				c.Name, c.Value, c.Expected, c.Tolerance)
			if c.Passed {
				ux.Success(line)
			} else {
				ux.Error(line)
			}
		}
	}
	if !allPassed {
		os.Exit(1)
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func gaussianSample(r *rand.Rand, n int) [][]float64 {
	pts := make([][]float64, n)
	for i := range pts {
		pts[i] = []float64{r.NormFloat64()}
	}
	return pts
}
