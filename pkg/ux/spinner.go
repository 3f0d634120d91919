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
	"fmt"
	"os"
	"sync"
	"time"
)

// SpinnerType defines the animation style
type SpinnerType int

const (
	// SpinnerDots uses braille dot frames
	SpinnerDots SpinnerType = iota
	// SpinnerLine uses the classic rotating bar
	SpinnerLine
	// SpinnerOrbit uses lunar phase frames
	SpinnerOrbit
)

var spinnerFrames = map[SpinnerType][]string{
	SpinnerDots:  {"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	SpinnerLine:  {"|", "/", "-", "\\"},
	SpinnerOrbit: {"◐", "◓", "◑", "◒"},
}

// Spinner shows progress for long-running operations on stderr.
//
// When stderr is a terminal the spinner animates in place. When it is
// not, Start emits a single "PROGRESS: <message>" line and the
// animation is skipped, which keeps CI logs readable.
type Spinner struct {
	message  string
	spinType SpinnerType

	mu       sync.Mutex
	running  bool
	animated bool
	stop     chan struct{}
	done     chan struct{}
}

// NewSpinner creates a spinner with the given message.
func NewSpinner(message string) *Spinner {
	return &Spinner{
		message:  message,
		spinType: SpinnerDots,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// WithType sets the animation style. Call before Start.
func (s *Spinner) WithType(t SpinnerType) *Spinner {
	s.spinType = t
	return s
}

// Start begins the animation. Calling Start on a running spinner is a
// no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.animated = styleEnabled(os.Stderr)
	if s.animated {
		// Fresh channels each run so a stopped spinner can restart.
		s.stop = make(chan struct{})
		s.done = make(chan struct{})
	}
	msg := s.message
	animated := s.animated
	s.mu.Unlock()

	if !animated {
		fmt.Fprintf(os.Stderr, "PROGRESS: %s\n", msg)
		return
	}
	go s.animate()
}

func (s *Spinner) animate() {
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	frames := spinnerFrames[s.spinType]
	i := 0
	for {
		select {
		case <-s.stop:
			fmt.Fprint(os.Stderr, "\r\033[K")
			close(s.done)
			return
		case <-ticker.C:
			s.mu.Lock()
			msg := s.message
			s.mu.Unlock()
			fmt.Fprintf(os.Stderr, "\r\033[K%s%s%s %s", ansiCyan, frames[i%len(frames)], ansiReset, msg)
			i++
		}
	}
}

// Stop halts the animation and clears the line. Safe to call on a
// spinner that never started.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	animated := s.animated
	stop, done := s.stop, s.done
	s.mu.Unlock()

	if !animated {
		return
	}
	close(stop)
	<-done
}

// UpdateMessage changes the text shown next to the spinner.
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// StopWithSuccess stops the spinner and prints a success line.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	Success(message)
}

// StopWithError stops the spinner and prints an error line.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	Error(message)
}

// StopWithWarning stops the spinner and prints a warning line.
func (s *Spinner) StopWithWarning(message string) {
	s.Stop()
	Warning(message)
}

// WithSpinner runs fn under a spinner and reports the outcome.
func WithSpinner(message string, fn func() error) error {
	spin := NewSpinner(message)
	spin.Start()

	if err := fn(); err != nil {
		spin.StopWithError(fmt.Sprintf("%s failed: %v", message, err))
		return err
	}
	spin.StopWithSuccess(message)
	return nil
}

// ProgressSpinner is a spinner that appends a [current/total] counter
// to its message.
type ProgressSpinner struct {
	*Spinner
	base    string
	total   int
	current int
}

// NewProgressSpinner creates a progress spinner for total steps.
func NewProgressSpinner(message string, total int) *ProgressSpinner {
	return &ProgressSpinner{
		Spinner: NewSpinner(message),
		base:    message,
		total:   total,
	}
}

// Increment advances progress by one step.
func (p *ProgressSpinner) Increment() {
	p.SetProgress(p.current + 1)
}

// SetProgress sets the current step count.
func (p *ProgressSpinner) SetProgress(current int) {
	p.current = current
	p.UpdateMessage(fmt.Sprintf("%s [%d/%d]", p.base, p.current, p.total))
}
