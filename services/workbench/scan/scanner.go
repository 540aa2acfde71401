// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scan walks a working tree to find files eligible for an
// operation.
//
// The walk is depth-first in lexical order, skips a fixed ignore set
// (version-control metadata, virtual environments, the tool's own state
// directory), and searches file contents in parallel. Results keep walk
// order so previews and applies are deterministic.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/codesmith/pkg/logging"
)

// DefaultIgnoreDirs is the fixed directory ignore set.
var DefaultIgnoreDirs = []string{".git", "__pycache__", ".venv", "node_modules", ".codesmith"}

// DefaultPreviewLimit bounds how many matching files enter a preview.
const DefaultPreviewLimit = 20

// Match is one file whose content contains the search literal.
type Match struct {
	// RelPath is slash-separated, relative to the scanner root.
	RelPath string

	// Offsets holds the 0-based byte offset of each non-overlapping
	// occurrence, left to right.
	Offsets []int

	// Content is the file's bytes at scan time, reused by the diff
	// engine so preview and apply see the same original.
	Content []byte
}

// Result is a bounded match set.
type Result struct {
	// Matches holds at most the preview limit, in walk order.
	Matches []Match

	// Total counts every matching file found, including those dropped
	// by truncation.
	Total int

	// Truncated is set when Total exceeded the preview limit.
	Truncated bool
}

// Scanner walks one workspace root.
type Scanner struct {
	root   string
	ignore map[string]bool
	logger *logging.Logger
}

// New creates a Scanner rooted at root. A nil or empty ignoreDirs uses
// DefaultIgnoreDirs.
func New(root string, ignoreDirs []string, logger *logging.Logger) *Scanner {
	if len(ignoreDirs) == 0 {
		ignoreDirs = DefaultIgnoreDirs
	}
	if logger == nil {
		logger = logging.Default()
	}
	ignore := make(map[string]bool, len(ignoreDirs))
	for _, d := range ignoreDirs {
		ignore[d] = true
	}
	return &Scanner{root: root, ignore: ignore, logger: logger}
}

// FindLiteral returns every regular file under the root whose content
// contains needle, up to limit matches (limit <= 0 means
// DefaultPreviewLimit). Unreadable files are skipped with a warning;
// a missing or unreadable root aborts the scan.
func (s *Scanner) FindLiteral(ctx context.Context, needle string, limit int) (*Result, error) {
	if needle == "" {
		return nil, fmt.Errorf("empty search literal")
	}
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}

	candidates, err := s.walk(ctx)
	if err != nil {
		return nil, err
	}

	// Search contents in parallel; results slot back into walk order.
	found := make([]*Match, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, rel := range candidates {
		i, rel := i, rel
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(rel)))
			if err != nil {
				s.logger.Warn("skipping unreadable file", "path", rel, "error", err)
				return nil
			}
			offsets := literalOffsets(content, needle)
			if len(offsets) > 0 {
				found[i] = &Match{RelPath: rel, Offsets: offsets, Content: content}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{}
	for _, m := range found {
		if m == nil {
			continue
		}
		res.Total++
		if len(res.Matches) < limit {
			res.Matches = append(res.Matches, *m)
		}
	}
	res.Truncated = res.Total > limit
	return res, nil
}

// walk returns every eligible regular file as a slash-relative path,
// in lexical depth-first order.
func (s *Scanner) walk(ctx context.Context) ([]string, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		return nil, fmt.Errorf("scan root %s: %w", s.root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s is not a directory", s.root)
	}

	var out []string
	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walking %s: %w", path, err)
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		name := d.Name()
		if d.IsDir() {
			if path != s.root && s.ignore[name] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, rerr := filepath.Rel(s.root, path)
		if rerr != nil {
			return rerr
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// literalOffsets finds non-overlapping occurrences, left to right.
func literalOffsets(content []byte, needle string) []int {
	var offsets []int
	text := string(content)
	for start := 0; ; {
		i := strings.Index(text[start:], needle)
		if i < 0 {
			return offsets
		}
		offsets = append(offsets, start+i)
		start += i + len(needle)
	}
}
