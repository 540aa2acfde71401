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
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// UserPrompter gates destructive operations behind an explicit yes.
// The workbench receives it as its Confirmer.
type UserPrompter interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// -----------------------------------------------------------------------------
// InteractivePrompter
// -----------------------------------------------------------------------------

// InteractivePrompter asks on the terminal and reads one line. Anything
// but y/yes (case-insensitive) is a no; EOF is a no.
type InteractivePrompter struct {
	reader io.Reader
	writer io.Writer
}

// NewInteractivePrompter prompts on stderr and reads stdin.
func NewInteractivePrompter() *InteractivePrompter {
	return NewInteractivePrompterWithIO(os.Stdin, os.Stderr)
}

// NewInteractivePrompterWithIO injects the streams for tests.
func NewInteractivePrompterWithIO(reader io.Reader, writer io.Writer) *InteractivePrompter {
	return &InteractivePrompter{reader: reader, writer: writer}
}

func (p *InteractivePrompter) Confirm(ctx context.Context, prompt string) (bool, error) {
	fmt.Fprintf(p.writer, "%s [y/N]: ", prompt)

	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		scanner := bufio.NewScanner(p.reader)
		if scanner.Scan() {
			ch <- answer{line: scanner.Text()}
			return
		}
		// EOF or read error both decline.
		ch <- answer{err: scanner.Err()}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case a := <-ch:
		if a.err != nil {
			return false, a.err
		}
		switch strings.ToLower(strings.TrimSpace(a.line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}

// -----------------------------------------------------------------------------
// NonInteractivePrompter
// -----------------------------------------------------------------------------

// NonInteractivePrompter answers every prompt the same way without
// blocking. Used for --yes and for declining in non-TTY contexts.
type NonInteractivePrompter struct {
	approve bool
	writer  io.Writer
}

// NewAutoApprovePrompter approves everything (--yes).
func NewAutoApprovePrompter() *NonInteractivePrompter {
	return &NonInteractivePrompter{approve: true, writer: os.Stderr}
}

// NewDeclinePrompter declines everything.
func NewDeclinePrompter() *NonInteractivePrompter {
	return &NonInteractivePrompter{approve: false, writer: os.Stderr}
}

func (p *NonInteractivePrompter) Confirm(ctx context.Context, prompt string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if p.approve {
		fmt.Fprintf(p.writer, "%s [auto-approved]\n", prompt)
	} else {
		fmt.Fprintf(p.writer, "%s [declined: non-interactive]\n", prompt)
	}
	return p.approve, nil
}

// -----------------------------------------------------------------------------
// MockPrompter
// -----------------------------------------------------------------------------

// MockPrompter records prompts and returns a scripted answer.
type MockPrompter struct {
	Response bool
	Err      error
	Prompts  []string
}

func (p *MockPrompter) Confirm(_ context.Context, prompt string) (bool, error) {
	p.Prompts = append(p.Prompts, prompt)
	return p.Response, p.Err
}

// newPrompter picks the prompter for the current invocation.
func newPrompter() UserPrompter {
	if autoYes {
		return NewAutoApprovePrompter()
	}
	return NewInteractivePrompter()
}
