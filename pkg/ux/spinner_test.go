// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// NewSpinner Tests
// =============================================================================

func TestNewSpinner_ReturnsNonNil(t *testing.T) {
	spin := NewSpinner("Loading...")
	if spin == nil {
		t.Fatal("NewSpinner returned nil")
	}
}

func TestNewSpinner_SetsMessage(t *testing.T) {
	spin := NewSpinner("Reconstructing fields")
	if spin.message != "Reconstructing fields" {
		t.Errorf("expected message 'Reconstructing fields', got %q", spin.message)
	}
}

func TestNewSpinner_DefaultsToDotsType(t *testing.T) {
	spin := NewSpinner("Loading...")
	if spin.spinType != SpinnerDots {
		t.Errorf("expected SpinnerDots, got %v", spin.spinType)
	}
}

func TestNewSpinner_InitializesChannels(t *testing.T) {
	spin := NewSpinner("Loading...")
	if spin.stop == nil {
		t.Error("stop channel should be initialized")
	}
	if spin.done == nil {
		t.Error("done channel should be initialized")
	}
}

// =============================================================================
// WithType Tests
// =============================================================================

func TestSpinner_WithType_Line(t *testing.T) {
	spin := NewSpinner("Loading...").WithType(SpinnerLine)
	if spin.spinType != SpinnerLine {
		t.Errorf("expected SpinnerLine, got %v", spin.spinType)
	}
}

func TestSpinner_WithType_Orbit(t *testing.T) {
	spin := NewSpinner("Loading...").WithType(SpinnerOrbit)
	if spin.spinType != SpinnerOrbit {
		t.Errorf("expected SpinnerOrbit, got %v", spin.spinType)
	}
}

func TestSpinner_WithType_Chaining(t *testing.T) {
	spin := NewSpinner("Loading...").WithType(SpinnerLine)
	if spin == nil {
		t.Error("WithType should return the spinner for chaining")
	}
}

// =============================================================================
// Start/Stop Tests (Plain Mode)
// =============================================================================

func TestSpinner_Start_PlainMode(t *testing.T) {
	orig := styleEnabled
	defer func() { styleEnabled = orig }()
	styleEnabled = func(*os.File) bool { return false }

	spin := NewSpinner("Processing...")
	output := captureStderr(func() {
		spin.Start()
	})

	if output != "PROGRESS: Processing...\n" {
		t.Errorf("expected 'PROGRESS: Processing...', got %q", output)
	}
}

func TestSpinner_Stop_PlainMode(t *testing.T) {
	orig := styleEnabled
	defer func() { styleEnabled = orig }()
	styleEnabled = func(*os.File) bool { return false }

	spin := NewSpinner("Processing...")
	spin.Start()
	spin.Stop() // Should not panic or hang
}

func TestSpinner_Start_AlreadyRunning(t *testing.T) {
	orig := styleEnabled
	defer func() { styleEnabled = orig }()
	styleEnabled = func(*os.File) bool { return false }

	spin := NewSpinner("Processing...")
	output := captureStderr(func() {
		spin.Start()
		spin.Start() // Second start should be no-op
	})
	spin.Stop()

	if strings.Count(output, "PROGRESS:") != 1 {
		t.Errorf("expected a single progress line, got %q", output)
	}
}

func TestSpinner_Stop_NotRunning(t *testing.T) {
	spin := NewSpinner("Processing...")
	spin.Stop() // Should not panic when not running
}

// =============================================================================
// Start/Stop Tests (Animated - Brief)
// =============================================================================

func TestSpinner_StartStop_Animated(t *testing.T) {
	orig := styleEnabled
	defer func() { styleEnabled = orig }()
	styleEnabled = func(*os.File) bool { return true }

	var output string
	output = captureStderr(func() {
		spin := NewSpinner("Processing...")
		spin.Start()

		// Give it a moment to render a few frames
		time.Sleep(200 * time.Millisecond)

		spin.Stop()
	})

	if !strings.Contains(output, "Processing...") {
		t.Errorf("expected animation frames containing the message, got %q", output)
	}
}

func TestSpinner_RestartAfterStop(t *testing.T) {
	orig := styleEnabled
	defer func() { styleEnabled = orig }()
	styleEnabled = func(*os.File) bool { return true }

	captureStderr(func() {
		spin := NewSpinner("Processing...")
		spin.Start()
		time.Sleep(100 * time.Millisecond)
		spin.Stop()

		spin.Start()
		time.Sleep(100 * time.Millisecond)
		spin.Stop()
	})
}

// =============================================================================
// UpdateMessage Tests
// =============================================================================

func TestSpinner_UpdateMessage(t *testing.T) {
	spin := NewSpinner("Initial message")

	spin.UpdateMessage("Updated message")

	if spin.message != "Updated message" {
		t.Errorf("expected 'Updated message', got %q", spin.message)
	}
}

func TestSpinner_UpdateMessage_WhileRunning(t *testing.T) {
	orig := styleEnabled
	defer func() { styleEnabled = orig }()
	styleEnabled = func(*os.File) bool { return false }

	spin := NewSpinner("Initial")
	captureStderr(func() {
		spin.Start()
	})

	spin.UpdateMessage("Updated")

	if spin.message != "Updated" {
		t.Errorf("expected 'Updated', got %q", spin.message)
	}

	spin.Stop()
}

// =============================================================================
// StopWithSuccess Tests
// =============================================================================

func TestSpinner_StopWithSuccess_PlainMode(t *testing.T) {
	orig := styleEnabled
	defer func() { styleEnabled = orig }()
	styleEnabled = func(*os.File) bool { return false }

	spin := NewSpinner("Processing...")
	captureStderr(func() {
		spin.Start()
	})

	output := captureStdout(func() {
		spin.StopWithSuccess("Done successfully")
	})

	if output != "OK: Done successfully\n" {
		t.Errorf("expected success message, got %q", output)
	}
}

// =============================================================================
// StopWithError Tests
// =============================================================================

func TestSpinner_StopWithError_PlainMode(t *testing.T) {
	orig := styleEnabled
	defer func() { styleEnabled = orig }()
	styleEnabled = func(*os.File) bool { return false }

	spin := NewSpinner("Processing...")
	captureStderr(func() {
		spin.Start()
	})

	output := captureStderr(func() {
		spin.StopWithError("Operation failed")
	})

	if output != "ERROR: Operation failed\n" {
		t.Errorf("expected error message, got %q", output)
	}
}

// =============================================================================
// StopWithWarning Tests
// =============================================================================

func TestSpinner_StopWithWarning_PlainMode(t *testing.T) {
	orig := styleEnabled
	defer func() { styleEnabled = orig }()
	styleEnabled = func(*os.File) bool { return false }

	spin := NewSpinner("Processing...")
	captureStderr(func() {
		spin.Start()
	})

	output := captureStderr(func() {
		spin.StopWithWarning("Completed with warnings")
	})

	if output != "WARN: Completed with warnings\n" {
		t.Errorf("expected warning message, got %q", output)
	}
}

// =============================================================================
// WithSpinner Tests
// =============================================================================

func TestWithSpinner_Success(t *testing.T) {
	orig := styleEnabled
	defer func() { styleEnabled = orig }()
	styleEnabled = func(*os.File) bool { return false }

	called := false
	var err error
	captureAll(func() {
		err = WithSpinner("Calibrating", func() error {
			called = true
			return nil
		})
	})

	if !called {
		t.Error("function should have been called")
	}
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestWithSpinner_Error(t *testing.T) {
	orig := styleEnabled
	defer func() { styleEnabled = orig }()
	styleEnabled = func(*os.File) bool { return false }

	testErr := errors.New("test error")
	var err error
	captureAll(func() {
		err = WithSpinner("Calibrating", func() error {
			return testErr
		})
	})

	if !errors.Is(err, testErr) {
		t.Errorf("expected test error, got %v", err)
	}
}

func TestWithSpinner_PlainMode_SuccessOutput(t *testing.T) {
	orig := styleEnabled
	defer func() { styleEnabled = orig }()
	styleEnabled = func(*os.File) bool { return false }

	var output string
	captureStderr(func() {
		output = captureStdout(func() {
			_ = WithSpinner("Building density fields", func() error {
				return nil
			})
		})
	})

	if output != "OK: Building density fields\n" {
		t.Errorf("expected success line, got %q", output)
	}
}

// =============================================================================
// ProgressSpinner Tests
// =============================================================================

func TestNewProgressSpinner_ReturnsNonNil(t *testing.T) {
	ps := NewProgressSpinner("Evaluating null members", 10)
	if ps == nil {
		t.Fatal("NewProgressSpinner returned nil")
	}
}

func TestNewProgressSpinner_SetsTotal(t *testing.T) {
	ps := NewProgressSpinner("Evaluating", 100)
	if ps.total != 100 {
		t.Errorf("expected total 100, got %d", ps.total)
	}
}

func TestNewProgressSpinner_StartsAtZero(t *testing.T) {
	ps := NewProgressSpinner("Evaluating", 100)
	if ps.current != 0 {
		t.Errorf("expected current 0, got %d", ps.current)
	}
}

// =============================================================================
// ProgressSpinner.Increment Tests
// =============================================================================

func TestProgressSpinner_Increment(t *testing.T) {
	ps := NewProgressSpinner("Evaluating", 10)

	ps.Increment()

	if ps.current != 1 {
		t.Errorf("expected current 1, got %d", ps.current)
	}
}

func TestProgressSpinner_Increment_Multiple(t *testing.T) {
	ps := NewProgressSpinner("Evaluating", 10)

	for i := 0; i < 5; i++ {
		ps.Increment()
	}

	if ps.current != 5 {
		t.Errorf("expected current 5, got %d", ps.current)
	}
}

func TestProgressSpinner_Increment_KeepsBaseMessage(t *testing.T) {
	ps := NewProgressSpinner("Evaluating", 10)

	ps.Increment()
	ps.Increment()

	if ps.message != "Evaluating [2/10]" {
		t.Errorf("expected 'Evaluating [2/10]', got %q", ps.message)
	}
}

// =============================================================================
// ProgressSpinner.SetProgress Tests
// =============================================================================

func TestProgressSpinner_SetProgress(t *testing.T) {
	ps := NewProgressSpinner("Evaluating", 100)

	ps.SetProgress(50)

	if ps.current != 50 {
		t.Errorf("expected current 50, got %d", ps.current)
	}
}

func TestProgressSpinner_SetProgress_Zero(t *testing.T) {
	ps := NewProgressSpinner("Evaluating", 100)
	ps.current = 25

	ps.SetProgress(0)

	if ps.current != 0 {
		t.Errorf("expected current 0, got %d", ps.current)
	}
}

func TestProgressSpinner_SetProgress_UpdatesMessage(t *testing.T) {
	ps := NewProgressSpinner("Evaluating", 100)

	ps.SetProgress(75)

	if ps.message != "Evaluating [75/100]" {
		t.Errorf("expected 'Evaluating [75/100]', got %q", ps.message)
	}
}

// =============================================================================
// SpinnerType Constants Tests
// =============================================================================

func TestSpinnerType_Constants(t *testing.T) {
	// Verify spinner type constants
	if SpinnerDots != 0 {
		t.Errorf("expected SpinnerDots = 0, got %d", SpinnerDots)
	}
	if SpinnerLine != 1 {
		t.Errorf("expected SpinnerLine = 1, got %d", SpinnerLine)
	}
	if SpinnerOrbit != 2 {
		t.Errorf("expected SpinnerOrbit = 2, got %d", SpinnerOrbit)
	}
}

func TestSpinnerFrames_Exists(t *testing.T) {
	spinnerTypes := []SpinnerType{SpinnerDots, SpinnerLine, SpinnerOrbit}
	for _, st := range spinnerTypes {
		frames := spinnerFrames[st]
		if len(frames) == 0 {
			t.Errorf("spinner type %d has no frames", st)
		}
	}
}
