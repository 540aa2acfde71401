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
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/codesmith/pkg/logging"
	"github.com/AleutianAI/codesmith/services/workbench/backup"
	"github.com/AleutianAI/codesmith/services/workbench/diffengine"
	"github.com/AleutianAI/codesmith/services/workbench/docedit"
	"github.com/AleutianAI/codesmith/services/workbench/scan"
)

// =============================================================================
// Configuration
// =============================================================================

// Config parameterizes one Orchestrator.
type Config struct {
	// WorkRoot is the repository being edited.
	WorkRoot string

	// StateRoot holds backups and other tool state. Defaults to
	// <WorkRoot>/.codesmith.
	StateRoot string

	// IgnoreDirs overrides the scanner's directory ignore set.
	IgnoreDirs []string

	// PreviewLimit bounds how many files enter a replace preview.
	PreviewLimit int

	Logger *logging.Logger
}

// Confirmer gates the transition from PREVIEWED to CONFIRMED.
type Confirmer interface {
	// Confirm presents the prompt and reports the operator's decision.
	Confirm(ctx context.Context, prompt string) (bool, error)
}

type state int

const (
	stateParsed state = iota
	statePreviewed
	stateApplied
	stateFailed
)

// =============================================================================
// Orchestrator
// =============================================================================

// Orchestrator drives one operation through preview, confirmation,
// backup and apply.
//
// # Description
//
// Preview computes the full write plan (per-file proposed bytes and
// unified diffs) without touching the tree. Apply then acts on exactly
// that plan: it re-checks nothing against the live tree, so the change
// set the operator confirmed is the change set written. A mid-batch
// write failure restores the files already written from the backup
// taken moments before and surfaces ErrApplyFailed.
//
// # Thread Safety
//
// Single-use, single-goroutine. Create one per operation.
type Orchestrator struct {
	cfg     Config
	scanner *scan.Scanner
	backups *backup.Manager
	logger  *logging.Logger

	state state

	// writeFile is swapped out by tests to inject mid-batch failures.
	writeFile func(path string, data []byte) error
}

// NewOrchestrator creates an Orchestrator for one operation.
func NewOrchestrator(cfg Config) *Orchestrator {
	if cfg.StateRoot == "" {
		cfg.StateRoot = filepath.Join(cfg.WorkRoot, ".codesmith")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Orchestrator{
		cfg:     cfg,
		scanner: scan.New(cfg.WorkRoot, cfg.IgnoreDirs, cfg.Logger),
		backups: backup.NewManager(cfg.StateRoot, cfg.Logger),
		logger:  cfg.Logger,
		writeFile: func(path string, data []byte) error {
			return os.WriteFile(path, data, 0644)
		},
	}
}

// plannedWrite is one file mutation the preview committed to.
type plannedWrite struct {
	relPath  string
	content  []byte // ignored when remove is set
	remove   bool
	existed  bool   // file existed before the operation
	original []byte // pre-operation bytes, empty when !existed
	changed  bool
}

// Preview holds the diffs shown to the operator plus the frozen write
// plan the apply step executes.
type Preview struct {
	Op     Operation
	Bundle PreviewBundle

	writes []plannedWrite
	backup bool
}

// ApplyResult reports a finished (or failed-and-restored) apply.
type ApplyResult struct {
	// BackupDir is the BackupSet written before the first mutation.
	// Empty when the operation opted out of backups.
	BackupDir string

	// Written lists the paths mutated, in apply order.
	Written []string

	// Restored lists the paths restored after a mid-batch failure.
	Restored []string
}

// =============================================================================
// Preview
// =============================================================================

// Preview computes the write plan and diffs for op without mutating
// anything. Rollback operations do not go through preview; use the
// Rollback method.
func (o *Orchestrator) Preview(ctx context.Context, op Operation) (*Preview, error) {
	if o.state != stateParsed {
		return nil, fmt.Errorf("%w: preview after preview", ErrInvalidTransition)
	}

	p := &Preview{Op: op, backup: true}
	var err error
	switch v := op.(type) {
	case Replace:
		err = o.previewReplace(ctx, p, v)
	case AddFile:
		err = o.previewAddFile(p, v)
	case MoveFile:
		p.backup = v.Backup
		err = o.previewMoveFile(p, v)
	case EditDocument:
		err = o.previewEditDocument(p, v)
	case Rollback:
		return nil, fmt.Errorf("rollback is not previewed; call Rollback directly")
	default:
		return nil, fmt.Errorf("unknown operation kind %q", op.Kind())
	}
	if err != nil {
		return nil, err
	}

	o.state = statePreviewed
	return p, nil
}

func (o *Orchestrator) previewReplace(ctx context.Context, p *Preview, op Replace) error {
	if op.Pattern == "" {
		return fmt.Errorf("replace pattern must not be empty")
	}
	res, err := o.scanner.FindLiteral(ctx, op.Pattern, o.cfg.PreviewLimit)
	if err != nil {
		return err
	}
	p.Bundle.Truncated = res.Truncated
	p.Bundle.TotalCandidates = res.Total

	for _, m := range res.Matches {
		proposed := bytes.ReplaceAll(m.Content, []byte(op.Pattern), []byte(op.Replacement))
		d, err := diffengine.Unified(m.RelPath, m.Content, proposed)
		if err != nil {
			return err
		}
		p.Bundle.Diffs = append(p.Bundle.Diffs, d)
		p.writes = append(p.writes, plannedWrite{
			relPath:  m.RelPath,
			content:  proposed,
			existed:  true,
			original: m.Content,
			changed:  d.Changed,
		})
	}
	return nil
}

func (o *Orchestrator) previewAddFile(p *Preview, op AddFile) error {
	rel, err := o.cleanRel(op.Path)
	if err != nil {
		return err
	}
	original, existed, err := o.readIfExists(rel)
	if err != nil {
		return err
	}

	d, err := diffengine.Unified(rel, original, []byte(op.Content))
	if err != nil {
		return err
	}
	p.Bundle.Diffs = append(p.Bundle.Diffs, d)
	p.writes = append(p.writes, plannedWrite{
		relPath:  rel,
		content:  []byte(op.Content),
		existed:  existed,
		original: original,
		changed:  d.Changed,
	})
	return nil
}

func (o *Orchestrator) previewMoveFile(p *Preview, op MoveFile) error {
	src, err := o.cleanRel(op.Source)
	if err != nil {
		return err
	}
	dst, err := o.cleanRel(op.Destination)
	if err != nil {
		return err
	}
	if src == dst {
		return fmt.Errorf("move source and destination are the same path %s", src)
	}

	content, existed, err := o.readIfExists(src)
	if err != nil {
		return err
	}
	if !existed {
		return fmt.Errorf("move source %s does not exist", src)
	}
	if _, dstExists, err := o.readIfExists(dst); err != nil {
		return err
	} else if dstExists {
		return fmt.Errorf("move destination %s already exists", dst)
	}

	srcDiff, err := diffengine.Unified(src, content, nil)
	if err != nil {
		return err
	}
	dstDiff, err := diffengine.Unified(dst, nil, content)
	if err != nil {
		return err
	}
	p.Bundle.Diffs = append(p.Bundle.Diffs, srcDiff, dstDiff)
	p.writes = append(p.writes,
		plannedWrite{relPath: src, remove: true, existed: true, original: content, changed: true},
		plannedWrite{relPath: dst, content: content, existed: false, changed: true},
	)
	return nil
}

func (o *Orchestrator) previewEditDocument(p *Preview, op EditDocument) error {
	rel, err := o.cleanRel(op.Path)
	if err != nil {
		return err
	}
	original, existed, err := o.readIfExists(rel)
	if err != nil {
		return err
	}

	doc, err := docedit.Parse(original, op.Format)
	if err != nil {
		return err
	}
	for _, s := range op.Set {
		if err := doc.Set(s.KeyPath, s.Literal); err != nil {
			return err
		}
	}
	for _, keyPath := range op.Delete {
		if _, err := doc.Delete(keyPath); err != nil {
			return err
		}
	}
	proposed, err := doc.Serialize()
	if err != nil {
		return err
	}

	d, err := diffengine.Unified(rel, original, proposed)
	if err != nil {
		return err
	}
	p.Bundle.Diffs = append(p.Bundle.Diffs, d)
	p.writes = append(p.writes, plannedWrite{
		relPath:  rel,
		content:  proposed,
		existed:  existed,
		original: original,
		changed:  d.Changed,
	})
	return nil
}

// =============================================================================
// Apply
// =============================================================================

// Apply runs the confirmation gate, writes a BackupSet, then executes
// the preview's write plan in order.
//
// A declined confirmation returns ErrNotConfirmed with nothing written.
// A backup failure returns ErrBackupFailed with nothing written. A
// mid-batch write failure restores the files already written and
// returns ErrApplyFailed; the ApplyResult still carries the backup
// directory and restored paths.
func (o *Orchestrator) Apply(ctx context.Context, p *Preview, confirmer Confirmer) (*ApplyResult, error) {
	if o.state != statePreviewed {
		return nil, fmt.Errorf("%w: apply without preview", ErrInvalidTransition)
	}

	var writes []plannedWrite
	for _, w := range p.writes {
		if w.changed {
			writes = append(writes, w)
		}
	}
	if len(writes) == 0 {
		return nil, ErrNothingToDo
	}

	ok, err := confirmer.Confirm(ctx, confirmPrompt(p, writes))
	if err != nil {
		return nil, fmt.Errorf("confirmation: %w", err)
	}
	if !ok {
		o.logger.Info("operation declined", "operation", p.Op.Summary())
		return nil, ErrNotConfirmed
	}

	res := &ApplyResult{}
	var set *backup.Set
	if p.backup {
		states := make([]backup.FileState, 0, len(writes))
		for _, w := range writes {
			states = append(states, backup.FileState{
				RelPath: w.relPath,
				Content: w.original,
				Existed: w.existed,
			})
		}
		set, err = o.backups.Create(
			backup.OperationInfo{Kind: string(p.Op.Kind()), Summary: p.Op.Summary()},
			states,
		)
		if err != nil {
			o.state = stateFailed
			return nil, fmt.Errorf("%w: %v", ErrBackupFailed, err)
		}
		res.BackupDir = set.Dir
	}

	for i, w := range writes {
		if err := o.executeWrite(w); err != nil {
			o.state = stateFailed
			o.logger.Error("write failed mid-apply", "path", w.relPath, "error", err)
			if set != nil {
				// Only files already written get restored; the failed
				// write never replaced its target.
				res.Restored = o.restoreBatch(set, writes[:i])
			}
			return res, fmt.Errorf("%w: writing %s: %v", ErrApplyFailed, w.relPath, err)
		}
		res.Written = append(res.Written, w.relPath)
	}

	o.state = stateApplied
	o.logger.Info("operation applied",
		"operation", p.Op.Summary(),
		"files", len(res.Written),
		"backup", res.BackupDir)
	return res, nil
}

func (o *Orchestrator) executeWrite(w plannedWrite) error {
	abs := filepath.Join(o.cfg.WorkRoot, filepath.FromSlash(w.relPath))
	if w.remove {
		return os.Remove(abs)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return err
	}
	return o.writeFile(abs, w.content)
}

// restoreBatch undoes the attempted prefix of a failed batch from the
// backup just taken. Best effort per path; failures are logged.
func (o *Orchestrator) restoreBatch(set *backup.Set, attempted []plannedWrite) []string {
	var restored []string
	for _, w := range attempted {
		if err := o.restorePath(set, w.relPath); err != nil {
			o.logger.Error("could not restore file after failed apply",
				"path", w.relPath, "error", err)
			continue
		}
		restored = append(restored, w.relPath)
	}
	return restored
}

func (o *Orchestrator) restorePath(set *backup.Set, relPath string) error {
	snap, ok := set.Snapshot(relPath)
	if !ok {
		return fmt.Errorf("no snapshot for %s in %s", relPath, set.Dir)
	}
	abs := filepath.Join(o.cfg.WorkRoot, filepath.FromSlash(relPath))
	if !snap.Existed {
		err := os.Remove(abs)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	data, err := set.ReadSnapshot(snap)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return err
	}
	return os.WriteFile(abs, data, 0644)
}

func confirmPrompt(p *Preview, writes []plannedWrite) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Apply %s to %d file(s)?", p.Op.Summary(), len(writes))
	if p.Bundle.Truncated {
		fmt.Fprintf(&b, " (preview truncated: %d of %d matching files shown; only the shown files change)",
			len(p.Bundle.Diffs), p.Bundle.TotalCandidates)
	}
	return b.String()
}

// =============================================================================
// Rollback
// =============================================================================

// RollbackResult reports which paths a rollback touched.
type RollbackResult struct {
	BackupDir string

	// Restored lists paths rewritten from snapshots.
	Restored []string

	// Deleted lists paths removed because the backup marks them absent.
	Deleted []string

	// Failed maps paths to their restore errors.
	Failed map[string]error
}

// Rollback restores every path recorded in the BackupSet at dir,
// attempting all paths even after a failure. When any path fails the
// error wraps ErrRollbackIncomplete and the result's Failed map names
// the stragglers.
func (o *Orchestrator) Rollback(ctx context.Context, dir string) (*RollbackResult, error) {
	set, err := backup.Load(dir)
	if err != nil {
		return nil, err
	}

	res := &RollbackResult{BackupDir: set.Dir, Failed: map[string]error{}}
	for _, snap := range set.Manifest.Files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := o.restorePath(set, snap.Path); err != nil {
			res.Failed[snap.Path] = err
			continue
		}
		if snap.Existed {
			res.Restored = append(res.Restored, snap.Path)
		} else {
			res.Deleted = append(res.Deleted, snap.Path)
		}
	}

	if len(res.Failed) > 0 {
		var paths []string
		for path := range res.Failed {
			paths = append(paths, path)
		}
		return res, fmt.Errorf("%w: %s", ErrRollbackIncomplete, strings.Join(paths, ", "))
	}
	o.logger.Info("rollback complete",
		"backup", set.Dir,
		"restored", len(res.Restored),
		"deleted", len(res.Deleted))
	return res, nil
}

// ListBackups returns the stored BackupSets, newest first.
func (o *Orchestrator) ListBackups() ([]backup.Info, error) {
	return o.backups.List()
}

// =============================================================================
// Helpers
// =============================================================================

// cleanRel normalizes a user-supplied path to slash-relative form and
// rejects escapes from the work root.
func (o *Orchestrator) cleanRel(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("empty path")
	}
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("path %s must be relative to the repository root", path)
	}
	rel := filepath.ToSlash(filepath.Clean(filepath.FromSlash(path)))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("path %s escapes the repository root", path)
	}
	return rel, nil
}

func (o *Orchestrator) readIfExists(rel string) ([]byte, bool, error) {
	abs := filepath.Join(o.cfg.WorkRoot, filepath.FromSlash(rel))
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading %s: %w", rel, err)
	}
	return data, true, nil
}
