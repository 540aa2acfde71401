// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"fmt"
	"sync"
	"time"
)

// SpinnerType defines the animation style
type SpinnerType int

const (
	SpinnerDots SpinnerType = iota
	SpinnerHammer
	SpinnerSpark
)

var spinnerFrames = map[SpinnerType][]string{
	SpinnerDots:   {"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	SpinnerHammer: {"🔨", "🔨 ", "🔨  ", "🔨 "},
	SpinnerSpark:  {"✶", "✸", "✹", "✺", "✹", "✸"},
}

// Spinner provides an animated loading indicator
type Spinner struct {
	spinType SpinnerType
	stop     chan struct{}
	done     chan struct{}
	mu       sync.Mutex
	running  bool

	// msgMu guards message separately so UpdateMessage never contends
	// with Start/Stop lifecycle locking.
	msgMu   sync.Mutex
	message string
}

// NewSpinner creates a spinner with the given message.
func NewSpinner(message string, spinType SpinnerType) *Spinner {
	return &Spinner{
		message:  message,
		spinType: spinType,
	}
}

// Start begins the animation on its own goroutine. No-op while running
// or when stdout is not a terminal.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || !colorEnabled() {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		frames := spinnerFrames[s.spinType]
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		i := 0
		for {
			select {
			case <-s.stop:
				fmt.Printf("\r\033[K")
				return
			case <-ticker.C:
				frame := frames[i%len(frames)]
				s.msgMu.Lock()
				msg := s.message
				s.msgMu.Unlock()
				fmt.Printf("\r%s %s", render(Styles.Subtitle, frame), msg)
				i++
			}
		}
	}()
}

// Stop halts the animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.stop)
	<-s.done
	s.running = false
}

// UpdateMessage changes the text shown next to the spinner.
func (s *Spinner) UpdateMessage(message string) {
	s.msgMu.Lock()
	s.message = message
	s.msgMu.Unlock()
}
