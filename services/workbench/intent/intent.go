// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package intent recognizes free-text editing instructions.
//
// # Description
//
// The recognizer is a fixed, ordered table of exact surface-form rules,
// not a language model. Each rule pairs a compiled pattern with a builder
// that produces a workbench.Operation from the captured operands. Input
// matching no rule yields ErrNoIntent carrying the original text; no
// operation is ever inferred heuristically.
//
// New phrasings are added as new table entries, first match wins.
package intent

import (
	"fmt"
	"regexp"

	"github.com/AleutianAI/codesmith/services/workbench"
)

// ErrNoIntent is wrapped into the error returned for unrecognized input.
var ErrNoIntent = fmt.Errorf("no recognized instruction")

// rule is one surface form. The verb is matched case-insensitively;
// quoted operands are literal and case-sensitive.
type rule struct {
	name    string
	pattern *regexp.Regexp
	build   func(groups []string) workbench.Operation
}

// quoted matches a single- or double-quoted literal with no escape
// support; the quote character simply terminates the operand.
const quoted = `(?:'([^']*)'|"([^"]*)")`

// rules is the ordered recognizer table. First match wins.
var rules = []rule{
	{
		name:    "replace-with",
		pattern: regexp.MustCompile(`(?i)replace\s+` + quoted + `\s+with\s+` + quoted),
		build: func(g []string) workbench.Operation {
			return workbench.Replace{
				Pattern:     firstOf(g[1], g[2]),
				Replacement: firstOf(g[3], g[4]),
			}
		},
	},
}

// Parse recognizes a free-text instruction and returns its Operation.
//
// Unrecognized input returns an error wrapping ErrNoIntent together with
// the original text, so callers can echo it back verbatim.
func Parse(text string) (workbench.Operation, error) {
	for _, r := range rules {
		if g := r.pattern.FindStringSubmatch(text); g != nil {
			return r.build(g), nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoIntent, text)
}

// firstOf picks the populated capture between the single- and
// double-quoted alternatives. Both empty means the operand was an empty
// literal, which callers reject downstream.
func firstOf(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
