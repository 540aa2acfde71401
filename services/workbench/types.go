// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package workbench

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/codesmith/services/workbench/diffengine"
	"github.com/AleutianAI/codesmith/services/workbench/docedit"
)

// =============================================================================
// Operations
// =============================================================================

// Kind identifies an operation variant.
type Kind string

const (
	// KindReplace substitutes a literal across matching files.
	KindReplace Kind = "replace"

	// KindAddFile creates a new file with given content.
	KindAddFile Kind = "add-file"

	// KindMoveFile moves a file to a new path.
	KindMoveFile Kind = "move-file"

	// KindEditDocument applies key-path edits to a JSON or YAML file.
	KindEditDocument Kind = "edit-document"

	// KindRollback restores a previous backup set.
	KindRollback Kind = "rollback"
)

// Operation is a single tagged unit of intended repository mutation.
// Exactly one variant is constructed per invocation.
type Operation interface {
	// Kind returns the variant tag.
	Kind() Kind

	// Summary returns a one-line human-readable description, used in
	// confirmation prompts and backup manifests.
	Summary() string
}

// Replace substitutes every occurrence of Pattern with Replacement in
// each file whose content contains Pattern. Matching is literal,
// case-sensitive, non-overlapping, left-to-right.
type Replace struct {
	Pattern     string
	Replacement string
}

func (r Replace) Kind() Kind { return KindReplace }

func (r Replace) Summary() string {
	return fmt.Sprintf("replace %q with %q", r.Pattern, r.Replacement)
}

// AddFile creates a new file at Path with Content. Parent directories
// are created as needed.
type AddFile struct {
	Path    string
	Content string
}

func (a AddFile) Kind() Kind { return KindAddFile }

func (a AddFile) Summary() string {
	return fmt.Sprintf("add file %s (%d bytes)", a.Path, len(a.Content))
}

// MoveFile moves Source to Destination. Backup controls whether a
// BackupSet is written first; disabling it is an explicit operator choice.
type MoveFile struct {
	Source      string
	Destination string
	Backup      bool
}

func (m MoveFile) Kind() Kind { return KindMoveFile }

func (m MoveFile) Summary() string {
	return fmt.Sprintf("move %s to %s", m.Source, m.Destination)
}

// SetEntry assigns a parsed literal value to a dotted key path.
type SetEntry struct {
	KeyPath string
	Literal string
}

// EditDocument applies Set entries then Delete paths, in order, to the
// structured document at Path.
type EditDocument struct {
	Path   string
	Format docedit.Format
	Set    []SetEntry
	Delete []string
}

func (e EditDocument) Kind() Kind { return KindEditDocument }

func (e EditDocument) Summary() string {
	var parts []string
	for _, s := range e.Set {
		parts = append(parts, fmt.Sprintf("set %s=%s", s.KeyPath, s.Literal))
	}
	for _, d := range e.Delete {
		parts = append(parts, "delete "+d)
	}
	return fmt.Sprintf("edit %s document %s: %s", e.Format, e.Path, strings.Join(parts, ", "))
}

// Rollback restores the repository from the BackupSet at BackupDir.
type Rollback struct {
	BackupDir string
}

func (r Rollback) Kind() Kind { return KindRollback }

func (r Rollback) Summary() string {
	return "rollback from " + r.BackupDir
}

// =============================================================================
// Preview
// =============================================================================

// PreviewBundle is the ordered set of per-file diffs shown to the
// operator before any mutation.
type PreviewBundle struct {
	// Diffs holds one entry per affected file, in apply order.
	Diffs []diffengine.Result

	// Truncated is set when the scanner found more candidates than the
	// preview limit. The apply step still acts only on Diffs.
	Truncated bool

	// TotalCandidates counts every file the scanner matched, including
	// those dropped by truncation.
	TotalCandidates int
}

// Changed returns the diffs whose content actually changes. Files with
// an empty diff are never backed up or rewritten.
func (p PreviewBundle) Changed() []diffengine.Result {
	out := make([]diffengine.Result, 0, len(p.Diffs))
	for _, d := range p.Diffs {
		if d.Changed {
			out = append(out, d)
		}
	}
	return out
}
