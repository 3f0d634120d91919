// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides terminal output helpers for the accrete CLI.
//
// Output comes in two flavors. When the destination stream is a
// terminal, messages are colored and icon-prefixed. When it is not
// (pipes, CI logs, redirection), the same calls emit stable plain-text
// lines (OK:, WARN:, ERROR:, PROGRESS:) that scripts can match on.
// Status messages go to stderr so stdout stays clean for report JSON.
package ux

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
)

// ANSI escape sequences. Only applied when the stream is a terminal.
const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
)

// Icons used in styled output.
const (
	IconSuccess = "✓"
	IconWarning = "⚠"
	IconError   = "✗"
	IconPending = "○"
	IconBullet  = "•"
	IconArrow   = "→"
)

// styleEnabled reports whether styled output should be written to f.
// A variable so tests can pin the answer.
var styleEnabled = func(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Success prints a completion message to stdout.
func Success(text string) {
	if styleEnabled(os.Stdout) {
		fmt.Fprintf(os.Stdout, "%s%s %s%s\n", ansiGreen, IconSuccess, text, ansiReset)
		return
	}
	fmt.Fprintf(os.Stdout, "OK: %s\n", text)
}

// Warning prints a warning message to stderr.
func Warning(text string) {
	if styleEnabled(os.Stderr) {
		fmt.Fprintf(os.Stderr, "%s%s %s%s\n", ansiYellow, IconWarning, text, ansiReset)
		return
	}
	fmt.Fprintf(os.Stderr, "WARN: %s\n", text)
}

// Error prints an error message to stderr.
func Error(text string) {
	if styleEnabled(os.Stderr) {
		fmt.Fprintf(os.Stderr, "%s%s %s%s\n", ansiRed, IconError, text, ansiReset)
		return
	}
	fmt.Fprintf(os.Stderr, "ERROR: %s\n", text)
}

// Info prints an informational message to stdout. Plain mode prints the
// bare message so machine consumers are not forced to strip a prefix.
func Info(text string) {
	if styleEnabled(os.Stdout) {
		fmt.Fprintf(os.Stdout, "%s%s%s %s\n", ansiCyan, IconArrow, ansiReset, text)
		return
	}
	fmt.Fprintf(os.Stdout, "%s\n", text)
}

// Title prints a bold section heading to stdout. Plain mode prints
// nothing: headings are decoration, not data.
func Title(text string) {
	if !styleEnabled(os.Stdout) {
		return
	}
	fmt.Fprintf(os.Stdout, "%s%s%s\n", ansiBold, text, ansiReset)
}

// Muted prints secondary text to stdout, dimmed. Plain mode prints
// nothing.
func Muted(text string) {
	if !styleEnabled(os.Stdout) {
		return
	}
	fmt.Fprintf(os.Stdout, "%s%s%s\n", ansiDim, text, ansiReset)
}

// KeyValue prints an aligned "key: value" detail line to stdout.
func KeyValue(key, value string) {
	if styleEnabled(os.Stdout) {
		fmt.Fprintf(os.Stdout, "  %s%-22s%s %s\n", ansiDim, key+":", ansiReset, value)
		return
	}
	fmt.Fprintf(os.Stdout, "%s: %s\n", key, value)
}

// ProgressBar returns a textual progress bar of the given width.
// Plain mode returns just "current/total".
func ProgressBar(current, total, width int) string {
	if total <= 0 {
		return fmt.Sprintf("%d/%d", current, total)
	}
	if !styleEnabled(os.Stdout) {
		return fmt.Sprintf("%d/%d", current, total)
	}
	filled := width * current / total
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	bar := repeatChar('█', filled) + repeatChar('░', width-filled)
	return fmt.Sprintf("%s%s%s %d/%d", ansiCyan, bar, ansiReset, current, total)
}

// repeatChar builds a string of n copies of c. Negative counts yield
// the empty string.
func repeatChar(c rune, n int) string {
	if n <= 0 {
		return ""
	}
	runes := make([]rune, n)
	for i := range runes {
		runes[i] = c
	}
	return string(runes)
}
