// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command accrete measures how much of a halo's accretion history is
// retained in its present-day structure. It ingests a snapshot
// sequence, integrates the mutual information between epochs into an
// assembly index, and calibrates the index against randomized null
// ensembles to decide whether the assembly signal is significant.
package main

import (
	"os"
)

func main() {
	// Cobra prints the failing command's error itself.
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
