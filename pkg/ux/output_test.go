// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

// Helper to capture stdout
func captureStdout(f func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	f()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

// Helper to capture stderr
func captureStderr(f func()) string {
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	f()

	w.Close()
	os.Stderr = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

// Helper to capture both streams when the test only cares about
// silencing them
func captureAll(f func()) {
	captureStdout(func() {
		captureStderr(f)
	})
}

// =============================================================================
// Success Tests
// =============================================================================

func TestSuccess_PlainMode(t *testing.T) {
	orig := styleEnabled
	defer func() { styleEnabled = orig }()
	styleEnabled = func(*os.File) bool { return false }

	output := captureStdout(func() {
		Success("Operation completed")
	})

	if output != "OK: Operation completed\n" {
		t.Errorf("expected 'OK: Operation completed', got %q", output)
	}
}

func TestSuccess_Styled(t *testing.T) {
	orig := styleEnabled
	defer func() { styleEnabled = orig }()
	styleEnabled = func(*os.File) bool { return true }

	output := captureStdout(func() {
		Success("Operation completed")
	})

	if !strings.Contains(output, IconSuccess) {
		t.Errorf("expected success icon in styled output, got %q", output)
	}
	if !strings.Contains(output, "Operation completed") {
		t.Errorf("expected message in styled output, got %q", output)
	}
	if !strings.Contains(output, "\033[") {
		t.Errorf("expected ANSI escape in styled output, got %q", output)
	}
}

// =============================================================================
// Warning Tests
// =============================================================================

func TestWarning_PlainMode(t *testing.T) {
	orig := styleEnabled
	defer func() { styleEnabled = orig }()
	styleEnabled = func(*os.File) bool { return false }

	output := captureStderr(func() {
		Warning("Something might be wrong")
	})

	if output != "WARN: Something might be wrong\n" {
		t.Errorf("expected 'WARN: Something might be wrong', got %q", output)
	}
}

func TestWarning_Styled(t *testing.T) {
	orig := styleEnabled
	defer func() { styleEnabled = orig }()
	styleEnabled = func(*os.File) bool { return true }

	output := captureStderr(func() {
		Warning("Something might be wrong")
	})

	if !strings.Contains(output, IconWarning) {
		t.Errorf("expected warning icon in styled output, got %q", output)
	}
}

// =============================================================================
// Error Tests
// =============================================================================

func TestError_PlainMode(t *testing.T) {
	orig := styleEnabled
	defer func() { styleEnabled = orig }()
	styleEnabled = func(*os.File) bool { return false }

	output := captureStderr(func() {
		Error("Something went wrong")
	})

	if output != "ERROR: Something went wrong\n" {
		t.Errorf("expected 'ERROR: Something went wrong', got %q", output)
	}
}

func TestError_Styled(t *testing.T) {
	orig := styleEnabled
	defer func() { styleEnabled = orig }()
	styleEnabled = func(*os.File) bool { return true }

	output := captureStderr(func() {
		Error("Something went wrong")
	})

	if !strings.Contains(output, IconError) {
		t.Errorf("expected error icon in styled output, got %q", output)
	}
}

// =============================================================================
// Info Tests
// =============================================================================

func TestInfo_PlainMode(t *testing.T) {
	orig := styleEnabled
	defer func() { styleEnabled = orig }()
	styleEnabled = func(*os.File) bool { return false }

	output := captureStdout(func() {
		Info("Information message")
	})

	if output != "Information message\n" {
		t.Errorf("expected plain 'Information message', got %q", output)
	}
}

func TestInfo_Styled(t *testing.T) {
	orig := styleEnabled
	defer func() { styleEnabled = orig }()
	styleEnabled = func(*os.File) bool { return true }

	output := captureStdout(func() {
		Info("Information message")
	})

	if !strings.Contains(output, "Information message") {
		t.Errorf("expected message in styled output, got %q", output)
	}
}

// =============================================================================
// Title Tests
// =============================================================================

func TestTitle_PlainMode(t *testing.T) {
	orig := styleEnabled
	defer func() { styleEnabled = orig }()
	styleEnabled = func(*os.File) bool { return false }

	output := captureStdout(func() {
		Title("Assembly Report")
	})

	// In plain mode, Title should output nothing
	if output != "" {
		t.Errorf("expected no output in plain mode, got %q", output)
	}
}

func TestTitle_Styled(t *testing.T) {
	orig := styleEnabled
	defer func() { styleEnabled = orig }()
	styleEnabled = func(*os.File) bool { return true }

	output := captureStdout(func() {
		Title("Assembly Report")
	})

	if output == "" {
		t.Error("expected styled output")
	}
}

// =============================================================================
// Muted Tests
// =============================================================================

func TestMuted_PlainMode(t *testing.T) {
	orig := styleEnabled
	defer func() { styleEnabled = orig }()
	styleEnabled = func(*os.File) bool { return false }

	output := captureStdout(func() {
		Muted("Secondary text")
	})

	// In plain mode, Muted should output nothing
	if output != "" {
		t.Errorf("expected no output in plain mode, got %q", output)
	}
}

func TestMuted_Styled(t *testing.T) {
	orig := styleEnabled
	defer func() { styleEnabled = orig }()
	styleEnabled = func(*os.File) bool { return true }

	output := captureStdout(func() {
		Muted("Secondary text")
	})

	if output == "" {
		t.Error("expected styled output")
	}
}

// =============================================================================
// KeyValue Tests
// =============================================================================

func TestKeyValue_PlainMode(t *testing.T) {
	orig := styleEnabled
	defer func() { styleEnabled = orig }()
	styleEnabled = func(*os.File) bool { return false }

	output := captureStdout(func() {
		KeyValue("z-score", "4.52")
	})

	if output != "z-score: 4.52\n" {
		t.Errorf("expected 'z-score: 4.52', got %q", output)
	}
}

func TestKeyValue_Styled(t *testing.T) {
	orig := styleEnabled
	defer func() { styleEnabled = orig }()
	styleEnabled = func(*os.File) bool { return true }

	output := captureStdout(func() {
		KeyValue("z-score", "4.52")
	})

	if !strings.Contains(output, "z-score") || !strings.Contains(output, "4.52") {
		t.Errorf("expected key and value in styled output, got %q", output)
	}
}

// =============================================================================
// ProgressBar Tests
// =============================================================================

func TestProgressBar_PlainMode(t *testing.T) {
	orig := styleEnabled
	defer func() { styleEnabled = orig }()
	styleEnabled = func(*os.File) bool { return false }

	result := ProgressBar(5, 10, 20)

	if result != "5/10" {
		t.Errorf("expected '5/10', got %q", result)
	}
}

func TestProgressBar_Styled_HalfFull(t *testing.T) {
	orig := styleEnabled
	defer func() { styleEnabled = orig }()
	styleEnabled = func(*os.File) bool { return true }

	result := ProgressBar(5, 10, 20)

	if !strings.Contains(result, "5/10") {
		t.Errorf("expected counter in styled bar, got %q", result)
	}
	if strings.Count(result, "█") != 10 {
		t.Errorf("expected 10 filled cells, got %q", result)
	}
}

func TestProgressBar_Styled_Empty(t *testing.T) {
	orig := styleEnabled
	defer func() { styleEnabled = orig }()
	styleEnabled = func(*os.File) bool { return true }

	result := ProgressBar(0, 10, 20)

	if strings.Count(result, "█") != 0 {
		t.Errorf("expected no filled cells, got %q", result)
	}
	if strings.Count(result, "░") != 20 {
		t.Errorf("expected 20 empty cells, got %q", result)
	}
}

func TestProgressBar_Styled_Full(t *testing.T) {
	orig := styleEnabled
	defer func() { styleEnabled = orig }()
	styleEnabled = func(*os.File) bool { return true }

	result := ProgressBar(10, 10, 20)

	if strings.Count(result, "█") != 20 {
		t.Errorf("expected 20 filled cells, got %q", result)
	}
}

func TestProgressBar_ZeroTotal(t *testing.T) {
	result := ProgressBar(3, 0, 20)

	if result != "3/0" {
		t.Errorf("expected '3/0' for zero total, got %q", result)
	}
}

// =============================================================================
// repeatChar Tests
// =============================================================================

func TestRepeatChar_Positive(t *testing.T) {
	result := repeatChar('X', 5)
	if result != "XXXXX" {
		t.Errorf("expected 'XXXXX', got %q", result)
	}
}

func TestRepeatChar_Zero(t *testing.T) {
	result := repeatChar('X', 0)
	if result != "" {
		t.Errorf("expected empty string, got %q", result)
	}
}

func TestRepeatChar_Negative(t *testing.T) {
	result := repeatChar('X', -5)
	if result != "" {
		t.Errorf("expected empty string for negative count, got %q", result)
	}
}

func TestRepeatChar_Unicode(t *testing.T) {
	result := repeatChar('█', 3)
	if result != "███" {
		t.Errorf("expected '███', got %q", result)
	}
}

// =============================================================================
// Icon Constants Tests
// =============================================================================

func TestIconConstants(t *testing.T) {
	icons := map[string]string{
		"Success": IconSuccess,
		"Warning": IconWarning,
		"Error":   IconError,
		"Pending": IconPending,
		"Bullet":  IconBullet,
		"Arrow":   IconArrow,
	}

	for name, icon := range icons {
		if icon == "" {
			t.Errorf("icon %s is empty", name)
		}
	}
}
