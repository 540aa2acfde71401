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
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AleutianAI/codesmith/pkg/logging"
	"github.com/AleutianAI/codesmith/services/workbench/docedit"
)

type stubConfirmer struct {
	approve bool
	prompts []string
}

func (c *stubConfirmer) Confirm(_ context.Context, prompt string) (bool, error) {
	c.prompts = append(c.prompts, prompt)
	return c.approve, nil
}

func approve() *stubConfirmer { return &stubConfirmer{approve: true} }
func decline() *stubConfirmer { return &stubConfirmer{approve: false} }

func newOrchestrator(root string) *Orchestrator {
	return NewOrchestrator(Config{WorkRoot: root, Logger: logging.Discard()})
}

func writeWorkFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func readWorkFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestReplacePreviewAndApply(t *testing.T) {
	root := t.TempDir()
	writeWorkFile(t, root, "a.txt", "foo bar foo")
	writeWorkFile(t, root, "b.txt", "untouched")

	o := newOrchestrator(root)
	p, err := o.Preview(context.Background(), Replace{Pattern: "foo", Replacement: "bar"})
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if len(p.Bundle.Diffs) != 1 {
		t.Fatalf("len(Diffs) = %d, want 1", len(p.Bundle.Diffs))
	}
	if !strings.Contains(p.Bundle.Diffs[0].Unified, "-foo bar foo") ||
		!strings.Contains(p.Bundle.Diffs[0].Unified, "+bar bar bar") {
		t.Errorf("unexpected diff:\n%s", p.Bundle.Diffs[0].Unified)
	}
	// Preview must not mutate.
	if got := readWorkFile(t, root, "a.txt"); got != "foo bar foo" {
		t.Errorf("preview mutated file: %q", got)
	}

	res, err := o.Apply(context.Background(), p, approve())
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got := readWorkFile(t, root, "a.txt"); got != "bar bar bar" {
		t.Errorf("a.txt = %q, want %q", got, "bar bar bar")
	}
	if got := readWorkFile(t, root, "b.txt"); got != "untouched" {
		t.Errorf("b.txt = %q, want untouched", got)
	}
	if res.BackupDir == "" {
		t.Fatal("no backup directory recorded")
	}
	if got := readWorkFile(t, filepath.Dir(res.BackupDir), filepath.Base(res.BackupDir)+"/files/a.txt"); got != "foo bar foo" {
		t.Errorf("backup copy = %q, want pre-mutation bytes", got)
	}
}

func TestReplaceSecondApplicationIsNoOp(t *testing.T) {
	root := t.TempDir()
	writeWorkFile(t, root, "a.txt", "foo bar foo")

	first := newOrchestrator(root)
	p, err := first.Preview(context.Background(), Replace{Pattern: "foo", Replacement: "bar"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := first.Apply(context.Background(), p, approve()); err != nil {
		t.Fatalf("first Apply() error = %v", err)
	}

	// The pattern is gone, so the same instruction finds nothing to change.
	second := newOrchestrator(root)
	p2, err := second.Preview(context.Background(), Replace{Pattern: "foo", Replacement: "bar"})
	if err != nil {
		t.Fatal(err)
	}
	if len(p2.Bundle.Changed()) != 0 {
		t.Fatalf("second preview found %d changed files, want 0", len(p2.Bundle.Changed()))
	}
	if _, err := second.Apply(context.Background(), p2, approve()); !errors.Is(err, ErrNothingToDo) {
		t.Fatalf("second Apply() error = %v, want ErrNothingToDo", err)
	}
	if got := readWorkFile(t, root, "a.txt"); got != "bar bar bar" {
		t.Errorf("a.txt = %q, want %q", got, "bar bar bar")
	}
}

func TestDeclinedConfirmationWritesNothing(t *testing.T) {
	root := t.TempDir()
	writeWorkFile(t, root, "a.txt", "foo")

	o := newOrchestrator(root)
	p, err := o.Preview(context.Background(), Replace{Pattern: "foo", Replacement: "bar"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = o.Apply(context.Background(), p, decline())
	if !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("Apply() error = %v, want ErrNotConfirmed", err)
	}
	if got := readWorkFile(t, root, "a.txt"); got != "foo" {
		t.Errorf("file mutated despite decline: %q", got)
	}
	if backups, _ := o.ListBackups(); len(backups) != 0 {
		t.Errorf("backup written despite decline: %d sets", len(backups))
	}
}

func TestNoChangesIsNothingToDo(t *testing.T) {
	root := t.TempDir()
	writeWorkFile(t, root, "a.txt", "same")

	o := newOrchestrator(root)
	// Replacement equals pattern: file matches but content cannot change.
	p, err := o.Preview(context.Background(), Replace{Pattern: "same", Replacement: "same"})
	if err != nil {
		t.Fatal(err)
	}
	c := approve()
	if _, err := o.Apply(context.Background(), p, c); !errors.Is(err, ErrNothingToDo) {
		t.Fatalf("Apply() error = %v, want ErrNothingToDo", err)
	}
	if len(c.prompts) != 0 {
		t.Error("confirmation prompted for an empty change set")
	}
}

func TestApplyWithoutPreview(t *testing.T) {
	o := newOrchestrator(t.TempDir())
	_, err := o.Apply(context.Background(), &Preview{}, approve())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Apply() error = %v, want ErrInvalidTransition", err)
	}
}

func TestTruncatedPreviewAppliesOnlyShownFiles(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 5; i++ {
		writeWorkFile(t, root, fmt.Sprintf("f%d.txt", i), "needle")
	}

	o := NewOrchestrator(Config{WorkRoot: root, PreviewLimit: 2, Logger: logging.Discard()})
	p, err := o.Preview(context.Background(), Replace{Pattern: "needle", Replacement: "thread"})
	if err != nil {
		t.Fatal(err)
	}
	if !p.Bundle.Truncated || p.Bundle.TotalCandidates != 5 || len(p.Bundle.Diffs) != 2 {
		t.Fatalf("truncation not reflected: truncated=%v total=%d diffs=%d",
			p.Bundle.Truncated, p.Bundle.TotalCandidates, len(p.Bundle.Diffs))
	}

	c := approve()
	res, err := o.Apply(context.Background(), p, c)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Written) != 2 {
		t.Errorf("Written = %v, want exactly the 2 previewed files", res.Written)
	}
	if got := readWorkFile(t, root, "f2.txt"); got != "needle" {
		t.Errorf("file outside the preview was mutated: %q", got)
	}
	if len(c.prompts) != 1 || !strings.Contains(c.prompts[0], "truncated") {
		t.Errorf("prompt should call out truncation, got %q", c.prompts)
	}
}

func TestAddFile(t *testing.T) {
	root := t.TempDir()
	o := newOrchestrator(root)

	p, err := o.Preview(context.Background(), AddFile{Path: "docs/note.md", Content: "hello\n"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := o.Apply(context.Background(), p, approve()); err != nil {
		t.Fatal(err)
	}
	if got := readWorkFile(t, root, "docs/note.md"); got != "hello\n" {
		t.Errorf("content = %q", got)
	}
}

func TestAddFileRollbackDeletesCreatedFile(t *testing.T) {
	root := t.TempDir()
	o := newOrchestrator(root)

	p, err := o.Preview(context.Background(), AddFile{Path: "new.txt", Content: "x"})
	if err != nil {
		t.Fatal(err)
	}
	res, err := o.Apply(context.Background(), p, approve())
	if err != nil {
		t.Fatal(err)
	}

	rb, err := newOrchestrator(root).Rollback(context.Background(), res.BackupDir)
	if err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	if len(rb.Deleted) != 1 || rb.Deleted[0] != "new.txt" {
		t.Errorf("Deleted = %v, want [new.txt]", rb.Deleted)
	}
	if _, err := os.Stat(filepath.Join(root, "new.txt")); !os.IsNotExist(err) {
		t.Error("created file survived rollback")
	}
}

func TestMoveFile(t *testing.T) {
	root := t.TempDir()
	writeWorkFile(t, root, "old/name.txt", "payload")

	o := newOrchestrator(root)
	p, err := o.Preview(context.Background(), MoveFile{Source: "old/name.txt", Destination: "new/name.txt", Backup: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Bundle.Diffs) != 2 {
		t.Fatalf("len(Diffs) = %d, want source removal + destination creation", len(p.Bundle.Diffs))
	}
	res, err := o.Apply(context.Background(), p, approve())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(root, "old", "name.txt")); !os.IsNotExist(err) {
		t.Error("source still present after move")
	}
	if got := readWorkFile(t, root, "new/name.txt"); got != "payload" {
		t.Errorf("destination = %q", got)
	}

	// Roundtrip: rollback restores the source and deletes the destination.
	if _, err := newOrchestrator(root).Rollback(context.Background(), res.BackupDir); err != nil {
		t.Fatal(err)
	}
	if got := readWorkFile(t, root, "old/name.txt"); got != "payload" {
		t.Errorf("source after rollback = %q", got)
	}
	if _, err := os.Stat(filepath.Join(root, "new", "name.txt")); !os.IsNotExist(err) {
		t.Error("destination survived rollback")
	}
}

func TestMoveFileValidation(t *testing.T) {
	root := t.TempDir()
	writeWorkFile(t, root, "src.txt", "x")
	writeWorkFile(t, root, "dst.txt", "y")

	tests := []struct {
		name string
		op   MoveFile
	}{
		{"missing source", MoveFile{Source: "absent.txt", Destination: "out.txt"}},
		{"destination exists", MoveFile{Source: "src.txt", Destination: "dst.txt"}},
		{"same path", MoveFile{Source: "src.txt", Destination: "src.txt"}},
		{"escape", MoveFile{Source: "src.txt", Destination: "../outside.txt"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := newOrchestrator(root).Preview(context.Background(), tt.op); err == nil {
				t.Error("expected preview error")
			}
		})
	}
}

func TestEditDocumentOnMissingFile(t *testing.T) {
	root := t.TempDir()
	o := newOrchestrator(root)

	p, err := o.Preview(context.Background(), EditDocument{
		Path:   "config.json",
		Format: docedit.FormatJSON,
		Set:    []SetEntry{{KeyPath: "server.port", Literal: "8080"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	res, err := o.Apply(context.Background(), p, approve())
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"server\": {\n    \"port\": 8080\n  }\n}\n"
	if got := readWorkFile(t, root, "config.json"); got != want {
		t.Errorf("config.json = %q, want %q", got, want)
	}

	// The backup marks the file as previously absent.
	if _, err := newOrchestrator(root).Rollback(context.Background(), res.BackupDir); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(root, "config.json")); !os.IsNotExist(err) {
		t.Error("file created by edit survived rollback")
	}
}

func TestEditDocumentYAMLPreservesSiblings(t *testing.T) {
	root := t.TempDir()
	writeWorkFile(t, root, "app.yaml", "# settings\nname: demo\nreplicas: 2\n")

	o := newOrchestrator(root)
	p, err := o.Preview(context.Background(), EditDocument{
		Path:   "app.yaml",
		Format: docedit.FormatYAML,
		Set:    []SetEntry{{KeyPath: "image", Literal: "nginx"}},
		Delete: []string{"replicas"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := o.Apply(context.Background(), p, approve()); err != nil {
		t.Fatal(err)
	}
	got := readWorkFile(t, root, "app.yaml")
	if !strings.Contains(got, "# settings") || !strings.Contains(got, "name: demo") {
		t.Errorf("siblings or comments lost:\n%s", got)
	}
	if strings.Contains(got, "replicas") || !strings.Contains(got, "image: nginx") {
		t.Errorf("edits not applied:\n%s", got)
	}
}

func TestMidBatchFailureRestoresWrittenFiles(t *testing.T) {
	root := t.TempDir()
	writeWorkFile(t, root, "f1.txt", "needle one")
	writeWorkFile(t, root, "f2.txt", "needle two")
	writeWorkFile(t, root, "f3.txt", "needle three")

	o := newOrchestrator(root)
	failOn := filepath.Join(root, "f2.txt")
	o.writeFile = func(path string, data []byte) error {
		if path == failOn {
			return fmt.Errorf("disk full")
		}
		return os.WriteFile(path, data, 0644)
	}

	p, err := o.Preview(context.Background(), Replace{Pattern: "needle", Replacement: "thread"})
	if err != nil {
		t.Fatal(err)
	}
	res, err := o.Apply(context.Background(), p, approve())
	if !errors.Is(err, ErrApplyFailed) {
		t.Fatalf("Apply() error = %v, want ErrApplyFailed", err)
	}

	// The already-written first file is restored, the failed second file
	// is untouched, the third was never attempted.
	for _, tc := range []struct{ rel, want string }{
		{"f1.txt", "needle one"},
		{"f2.txt", "needle two"},
		{"f3.txt", "needle three"},
	} {
		if got := readWorkFile(t, root, tc.rel); got != tc.want {
			t.Errorf("%s = %q, want %q", tc.rel, got, tc.want)
		}
	}
	if len(res.Restored) != 1 || res.Restored[0] != "f1.txt" {
		t.Errorf("Restored = %v, want exactly [f1.txt]", res.Restored)
	}
	if res.BackupDir == "" {
		t.Error("failed apply should still report its backup directory")
	}
}

func TestRollbackMissingBackup(t *testing.T) {
	o := newOrchestrator(t.TempDir())
	if _, err := o.Rollback(context.Background(), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing backup set")
	}
}

func TestRollbackIncomplete(t *testing.T) {
	root := t.TempDir()
	writeWorkFile(t, root, "a.txt", "original a")
	writeWorkFile(t, root, "b.txt", "original b")

	o := newOrchestrator(root)
	p, err := o.Preview(context.Background(), Replace{Pattern: "original", Replacement: "edited"})
	if err != nil {
		t.Fatal(err)
	}
	res, err := o.Apply(context.Background(), p, approve())
	if err != nil {
		t.Fatal(err)
	}

	// Corrupt one snapshot so its hash check fails on restore.
	if err := os.WriteFile(filepath.Join(res.BackupDir, "files", "a.txt"), []byte("tampered"), 0644); err != nil {
		t.Fatal(err)
	}

	rb, err := newOrchestrator(root).Rollback(context.Background(), res.BackupDir)
	if !errors.Is(err, ErrRollbackIncomplete) {
		t.Fatalf("Rollback() error = %v, want ErrRollbackIncomplete", err)
	}
	if _, failed := rb.Failed["a.txt"]; !failed {
		t.Errorf("Failed = %v, want a.txt", rb.Failed)
	}
	// The healthy path is still restored.
	if got := readWorkFile(t, root, "b.txt"); got != "original b" {
		t.Errorf("b.txt = %q, want restored original", got)
	}
	if got := readWorkFile(t, root, "a.txt"); got != "edited a" {
		t.Errorf("a.txt = %q, want left at edited state", got)
	}
}

func TestListBackupsAccumulate(t *testing.T) {
	root := t.TempDir()
	writeWorkFile(t, root, "a.txt", "v1")

	// Orchestrators are single-use; each edit gets a fresh one against
	// the same root and state directory.
	for _, step := range []struct{ from, to string }{
		{"v1", "v2"},
		{"v2", "v3"},
	} {
		o := newOrchestrator(root)
		p, err := o.Preview(context.Background(), Replace{Pattern: step.from, Replacement: step.to})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := o.Apply(context.Background(), p, approve()); err != nil {
			t.Fatal(err)
		}
	}

	infos, err := newOrchestrator(root).ListBackups()
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 2 {
		t.Fatalf("len(infos) = %d, want 2", len(infos))
	}
	for _, info := range infos {
		if info.Manifest.Operation.Kind != "replace" {
			t.Errorf("operation kind = %q, want replace", info.Manifest.Operation.Kind)
		}
	}
}
