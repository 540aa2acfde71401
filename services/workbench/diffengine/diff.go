// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package diffengine computes human-readable previews of proposed file
// mutations as unified diffs with per-file change statistics.
package diffengine

import (
	"bytes"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
	godiff "github.com/sourcegraph/go-diff/diff"
)

// contextLines is the unified diff context width.
const contextLines = 3

// Result is the preview for one file.
type Result struct {
	// RelPath is the file's path relative to the workspace root.
	RelPath string

	// Unified is the unified-diff text, empty when Changed is false.
	Unified string

	// Changed reports whether proposed bytes differ from the original.
	Changed bool

	// Added and Removed count changed lines, for preview summaries.
	Added   int
	Removed int
}

// Unified computes the diff between original and proposed bytes for one
// file.
//
// A Result with Changed == false carries no diff text; such files are
// excluded from the applied set by the orchestrator. Line statistics are
// derived by re-parsing the generated diff, which also guards against
// emitting a malformed preview.
func Unified(relPath string, original, proposed []byte) (Result, error) {
	res := Result{RelPath: relPath}
	if bytes.Equal(original, proposed) {
		return res, nil
	}
	res.Changed = true

	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(original)),
		B:        difflib.SplitLines(string(proposed)),
		FromFile: relPath + " (before)",
		ToFile:   relPath + " (after)",
		Context:  contextLines,
	})
	if err != nil {
		return Result{}, fmt.Errorf("diff generation for %s: %w", relPath, err)
	}
	res.Unified = text

	fd, err := godiff.ParseFileDiff([]byte(text))
	if err != nil {
		return Result{}, fmt.Errorf("diff self-check for %s: %w", relPath, err)
	}
	stat := fd.Stat()
	res.Added = int(stat.Added + stat.Changed)
	res.Removed = int(stat.Deleted + stat.Changed)

	return res, nil
}
