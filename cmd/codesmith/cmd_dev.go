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
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/codesmith/cmd/codesmith/config"
	"github.com/AleutianAI/codesmith/pkg/ux"
	"github.com/AleutianAI/codesmith/services/workbench"
	"github.com/AleutianAI/codesmith/services/workbench/docedit"
	"github.com/AleutianAI/codesmith/services/workbench/intent"
)

func newOrchestrator() (*workbench.Orchestrator, error) {
	root, err := workRoot()
	if err != nil {
		return nil, err
	}
	return workbench.NewOrchestrator(workbench.Config{
		WorkRoot:     root,
		StateRoot:    stateRoot(root),
		IgnoreDirs:   config.Global.Workbench.IgnoreDirs,
		PreviewLimit: config.Global.Workbench.PreviewLimit,
		Logger:       logger,
	}), nil
}

func runDevRun(cmd *cobra.Command, args []string) error {
	instruction := strings.Join(args, " ")
	op, err := intent.Parse(instruction)
	if err != nil {
		if errors.Is(err, intent.ErrNoIntent) {
			ux.Warning("I don't recognize that instruction.")
			ux.Muted("Supported: replace '<old>' with '<new>'")
			return err
		}
		return err
	}
	return runOperation(cmd, op)
}

func runDevApply(cmd *cobra.Command, args []string) error {
	op, err := buildStructuredOperation()
	if err != nil {
		return err
	}
	return runOperation(cmd, op)
}

// buildStructuredOperation maps the dev apply flag set to exactly one
// operation.
func buildStructuredOperation() (workbench.Operation, error) {
	selected := 0
	for _, flag := range []string{addPath, moveSource, editPath} {
		if flag != "" {
			selected++
		}
	}
	if selected != 1 {
		return nil, fmt.Errorf("dev apply needs exactly one of --add, --move, --edit")
	}

	switch {
	case addPath != "":
		return workbench.AddFile{Path: addPath, Content: addContent}, nil

	case moveSource != "":
		if moveDest == "" {
			return nil, fmt.Errorf("--move needs --dest")
		}
		return workbench.MoveFile{
			Source:      moveSource,
			Destination: moveDest,
			Backup:      !moveNoBack,
		}, nil

	default:
		if len(editSets) == 0 && len(editDeletes) == 0 {
			return nil, fmt.Errorf("--edit needs at least one --set or --delete")
		}
		format, err := resolveEditFormat(editPath, editFormat)
		if err != nil {
			return nil, err
		}
		op := workbench.EditDocument{Path: editPath, Format: format, Delete: editDeletes}
		for _, assignment := range editSets {
			key, value, found := strings.Cut(assignment, "=")
			if !found || key == "" {
				return nil, fmt.Errorf("--set %q is not key.path=value", assignment)
			}
			op.Set = append(op.Set, workbench.SetEntry{KeyPath: key, Literal: value})
		}
		return op, nil
	}
}

func resolveEditFormat(path, explicit string) (docedit.Format, error) {
	if explicit != "" {
		return docedit.ParseFormat(explicit)
	}
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("cannot infer document format for %s; pass --format", path)
	}
	return docedit.ParseFormat(ext)
}

// runOperation drives preview -> confirm -> apply for one operation and
// reports the outcome.
func runOperation(cmd *cobra.Command, op workbench.Operation) error {
	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	preview, err := orch.Preview(cmd.Context(), op)
	if err != nil {
		ux.Error("Preview failed: %v", err)
		return err
	}

	changed := preview.Bundle.Changed()
	if len(changed) == 0 {
		ux.Muted("Nothing to do: no file content would change.")
		return nil
	}
	ux.Header("Preview: %s", op.Summary())
	for _, d := range changed {
		fmt.Printf("%s (+%d -%d)\n", d.RelPath, d.Added, d.Removed)
		fmt.Println(ux.RenderDiff(d.Unified))
	}
	if preview.Bundle.Truncated {
		ux.Warning("Preview truncated: showing %d of %d matching files. Only the shown files will change.",
			len(preview.Bundle.Diffs), preview.Bundle.TotalCandidates)
	}

	result, err := orch.Apply(cmd.Context(), preview, newPrompter())
	switch {
	case errors.Is(err, workbench.ErrNotConfirmed):
		ux.Muted("Aborted; nothing was changed.")
		return nil
	case errors.Is(err, workbench.ErrNothingToDo):
		ux.Muted("Nothing to do.")
		return nil
	case errors.Is(err, workbench.ErrApplyFailed):
		ux.Error("Apply failed: %v", err)
		if result != nil && len(result.Restored) > 0 {
			ux.Warning("Restored from backup: %s", strings.Join(result.Restored, ", "))
		}
		if result != nil && result.BackupDir != "" {
			ux.Muted("Backup kept at %s", result.BackupDir)
		}
		return err
	case err != nil:
		ux.Error("Apply failed: %v", err)
		return err
	}

	ux.Success("Applied to %d file(s).", len(result.Written))
	if result.BackupDir != "" {
		ux.Muted("Backup: %s (codesmith dev rollback %s)", result.BackupDir, result.BackupDir)
	}
	return nil
}

func runDevRollback(cmd *cobra.Command, args []string) error {
	orch, err := newOrchestrator()
	if err != nil {
		return err
	}
	ok, err := newPrompter().Confirm(cmd.Context(),
		fmt.Sprintf("Restore the repository from %s?", args[0]))
	if err != nil {
		return err
	}
	if !ok {
		ux.Muted("Aborted.")
		return nil
	}

	result, err := orch.Rollback(cmd.Context(), args[0])
	if err != nil {
		if result != nil && errors.Is(err, workbench.ErrRollbackIncomplete) {
			ux.Error("Rollback incomplete:")
			for path, pathErr := range result.Failed {
				ux.Warning("  %s: %v", path, pathErr)
			}
			ux.Muted("Restored %d, deleted %d of %d paths.",
				len(result.Restored), len(result.Deleted),
				len(result.Restored)+len(result.Deleted)+len(result.Failed))
		}
		return err
	}
	ux.Success("Rolled back: %d file(s) restored, %d removed.",
		len(result.Restored), len(result.Deleted))
	return nil
}

func runDevBackups(cmd *cobra.Command, args []string) error {
	orch, err := newOrchestrator()
	if err != nil {
		return err
	}
	infos, err := orch.ListBackups()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		ux.Muted("No backups yet.")
		return nil
	}
	ux.Header("Backups (newest first)")
	for _, info := range infos {
		fmt.Printf("%s  %-14s %s  (%d files)\n",
			info.Manifest.CreatedAt.Format("2006-01-02 15:04:05"),
			info.Manifest.Operation.Kind,
			info.Dir,
			len(info.Manifest.Files))
	}
	return nil
}
