// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package backup snapshots files before mutation and restores them on
// rollback.
//
// # Layout
//
// Each BackupSet is one timestamped directory under
// <state-root>/backups/:
//
//	<state-root>/backups/20250131-142215/
//	    manifest.json          operation, affected paths, content hashes
//	    files/<relative-path>  byte-identical pre-mutation copies
//
// Files that did not exist before the operation get no copy; their
// manifest entry carries an explicit absence marker so rollback knows
// to delete them.
//
// # Contract
//
// Create either writes the whole set (every snapshot plus the manifest)
// or removes the partial directory and fails; no partial BackupSet is
// ever considered valid. Sets are read-only once written and are never
// deleted by this package.
package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/AleutianAI/codesmith/pkg/logging"
)

const (
	manifestName = "manifest.json"
	filesDir     = "files"
	timeSlug     = "20060102-150405"
)

// OperationInfo describes the operation a BackupSet was taken for.
type OperationInfo struct {
	Kind    string `json:"kind"`
	Summary string `json:"summary"`
}

// Snapshot is one file's manifest entry.
type Snapshot struct {
	// Path is the slash-relative workspace path.
	Path string `json:"path"`

	// Existed is false when the file did not exist before the
	// operation; rollback deletes such files.
	Existed bool `json:"existed"`

	// Hash is the xxh3 hash of the snapshot copy, hex-encoded. Empty
	// for absence markers.
	Hash string `json:"hash,omitempty"`

	// Size is the snapshot copy's length in bytes.
	Size int64 `json:"size"`
}

// Manifest associates a backup directory with its operation and files.
type Manifest struct {
	CreatedAt time.Time     `json:"created_at"`
	Operation OperationInfo `json:"operation"`
	Files     []Snapshot    `json:"files"`
}

// FileState carries pre-mutation bytes into Create. Content is ignored
// when Existed is false.
type FileState struct {
	RelPath string
	Content []byte
	Existed bool
}

// Set is a BackupSet on disk.
type Set struct {
	Dir      string
	Manifest Manifest
}

// Manager owns the backup root.
type Manager struct {
	backupRoot string
	logger     *logging.Logger

	// now is swappable for deterministic directory names in tests.
	now func() time.Time
}

// NewManager creates a Manager storing sets under
// <stateRoot>/backups.
func NewManager(stateRoot string, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		backupRoot: filepath.Join(stateRoot, "backups"),
		logger:     logger,
		now:        time.Now,
	}
}

// Root returns the backup root directory.
func (m *Manager) Root() string { return m.backupRoot }

// Create writes a new BackupSet for the given operation and file set.
//
// Every snapshot is on stable storage before Create returns; a failure
// writing any single snapshot aborts the whole set and removes the
// partial directory. Callers must not mutate any target file unless
// Create succeeded.
func (m *Manager) Create(op OperationInfo, files []FileState) (*Set, error) {
	dir, err := m.newSetDir()
	if err != nil {
		return nil, err
	}

	manifest := Manifest{
		CreatedAt: m.now(),
		Operation: op,
	}

	for _, f := range files {
		snap := Snapshot{Path: f.RelPath, Existed: f.Existed}
		if f.Existed {
			dest := filepath.Join(dir, filesDir, filepath.FromSlash(f.RelPath))
			if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
				return nil, m.abort(dir, f.RelPath, err)
			}
			if err := os.WriteFile(dest, f.Content, 0644); err != nil {
				return nil, m.abort(dir, f.RelPath, err)
			}
			snap.Hash = hashHex(f.Content)
			snap.Size = int64(len(f.Content))
		}
		manifest.Files = append(manifest.Files, snap)
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, m.abort(dir, manifestName, err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestName), append(data, '\n'), 0644); err != nil {
		return nil, m.abort(dir, manifestName, err)
	}

	m.logger.Info("backup set written", "dir", dir, "files", len(manifest.Files))
	return &Set{Dir: dir, Manifest: manifest}, nil
}

// Info summarizes one stored BackupSet for listings.
type Info struct {
	Dir      string
	Manifest Manifest
}

// List returns every readable BackupSet under the root, newest first.
// Directories without a manifest are skipped with a warning.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.backupRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backup root: %w", err)
	}

	var out []Info
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(m.backupRoot, e.Name())
		set, err := Load(dir)
		if err != nil {
			m.logger.Warn("skipping unreadable backup set", "dir", dir, "error", err)
			continue
		}
		out = append(out, Info{Dir: dir, Manifest: set.Manifest})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Manifest.CreatedAt.After(out[j].Manifest.CreatedAt)
	})
	return out, nil
}

// Load opens an existing BackupSet by directory.
func Load(dir string) (*Set, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		return nil, fmt.Errorf("no backup manifest at %s: %w", dir, err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("corrupt backup manifest at %s: %w", dir, err)
	}
	return &Set{Dir: dir, Manifest: manifest}, nil
}

// Snapshot returns the manifest entry for a path.
func (s *Set) Snapshot(relPath string) (Snapshot, bool) {
	for _, f := range s.Manifest.Files {
		if f.Path == relPath {
			return f, true
		}
	}
	return Snapshot{}, false
}

// ReadSnapshot returns the snapshot copy's bytes after verifying the
// manifest hash. Calling it for an absence marker is an error.
func (s *Set) ReadSnapshot(snap Snapshot) ([]byte, error) {
	if !snap.Existed {
		return nil, fmt.Errorf("snapshot for %s is an absence marker", snap.Path)
	}
	data, err := os.ReadFile(filepath.Join(s.Dir, filesDir, filepath.FromSlash(snap.Path)))
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", snap.Path, err)
	}
	if got := hashHex(data); got != snap.Hash {
		return nil, fmt.Errorf("snapshot %s hash mismatch: manifest %s, copy %s", snap.Path, snap.Hash, got)
	}
	return data, nil
}

// newSetDir creates a fresh timestamp-named directory, suffixing a
// counter when several sets land in the same second.
func (m *Manager) newSetDir() (string, error) {
	if err := os.MkdirAll(m.backupRoot, 0755); err != nil {
		return "", fmt.Errorf("creating backup root: %w", err)
	}
	slug := m.now().Format(timeSlug)
	for i := 0; ; i++ {
		name := slug
		if i > 0 {
			name = fmt.Sprintf("%s-%d", slug, i)
		}
		dir := filepath.Join(m.backupRoot, name)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return dir, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("creating backup directory: %w", err)
		}
	}
}

// abort removes a partial set and wraps the failure.
func (m *Manager) abort(dir, path string, err error) error {
	if rmErr := os.RemoveAll(dir); rmErr != nil {
		m.logger.Warn("could not remove partial backup set", "dir", dir, "error", rmErr)
	}
	return fmt.Errorf("snapshot of %s failed, backup aborted: %w", path, err)
}

func hashHex(data []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(data))
}
