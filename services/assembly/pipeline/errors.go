// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import "errors"

// ErrInvalidInput is returned for malformed driver or checkpoint
// arguments.
var ErrInvalidInput = errors.New("invalid input")

// ErrCheckpointVersionMismatch is returned when a checkpoint was written
// by a different pipeline version and cannot be resumed.
var ErrCheckpointVersionMismatch = errors.New("checkpoint version mismatch")

// ErrCheckpointCorrupt is returned when a checkpoint fails checksum
// verification.
var ErrCheckpointCorrupt = errors.New("checkpoint corrupt: checksum verification failed")

// ErrInvalidStage is returned when a checkpoint names a stage this
// pipeline does not define.
var ErrInvalidStage = errors.New("invalid pipeline stage")

// ErrRunComplete is returned when resuming a checkpoint whose run
// already finished.
var ErrRunComplete = errors.New("run already complete")
