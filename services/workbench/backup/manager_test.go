// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/codesmith/pkg/logging"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(filepath.Join(t.TempDir(), ".codesmith"), logging.Discard())
}

func TestCreateAndLoad(t *testing.T) {
	m := newTestManager(t)

	set, err := m.Create(
		OperationInfo{Kind: "replace", Summary: "replace 'foo' with 'bar'"},
		[]FileState{
			{RelPath: "a.txt", Content: []byte("foo bar foo"), Existed: true},
			{RelPath: "sub/new.txt", Existed: false},
		},
	)
	require.NoError(t, err)
	require.Len(t, set.Manifest.Files, 2)

	// Snapshot copy sits at the original relative path.
	copyPath := filepath.Join(set.Dir, "files", "a.txt")
	data, err := os.ReadFile(copyPath)
	require.NoError(t, err)
	assert.Equal(t, "foo bar foo", string(data))

	// Absent file gets a marker, no copy.
	snap, ok := set.Snapshot("sub/new.txt")
	require.True(t, ok)
	assert.False(t, snap.Existed)
	assert.Empty(t, snap.Hash)
	_, err = os.Stat(filepath.Join(set.Dir, "files", "sub", "new.txt"))
	assert.True(t, os.IsNotExist(err))

	loaded, err := Load(set.Dir)
	require.NoError(t, err)
	assert.Equal(t, set.Manifest.Operation, loaded.Manifest.Operation)

	snap, ok = loaded.Snapshot("a.txt")
	require.True(t, ok)
	got, err := loaded.ReadSnapshot(snap)
	require.NoError(t, err)
	assert.Equal(t, "foo bar foo", string(got))
}

func TestReadSnapshotDetectsCorruption(t *testing.T) {
	m := newTestManager(t)

	set, err := m.Create(
		OperationInfo{Kind: "add-file", Summary: "add a.txt"},
		[]FileState{{RelPath: "a.txt", Content: []byte("original"), Existed: true}},
	)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(set.Dir, "files", "a.txt"), []byte("tampered"), 0644))

	snap, ok := set.Snapshot("a.txt")
	require.True(t, ok)
	_, err = set.ReadSnapshot(snap)
	assert.ErrorContains(t, err, "hash mismatch")
}

func TestReadSnapshotAbsenceMarker(t *testing.T) {
	m := newTestManager(t)
	set, err := m.Create(
		OperationInfo{Kind: "add-file", Summary: "add a.txt"},
		[]FileState{{RelPath: "a.txt", Existed: false}},
	)
	require.NoError(t, err)

	snap, ok := set.Snapshot("a.txt")
	require.True(t, ok)
	_, err = set.ReadSnapshot(snap)
	assert.Error(t, err)
}

func TestSameSecondCollision(t *testing.T) {
	m := newTestManager(t)
	fixed := time.Date(2025, 1, 31, 14, 22, 15, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	first, err := m.Create(OperationInfo{Kind: "replace"}, nil)
	require.NoError(t, err)
	second, err := m.Create(OperationInfo{Kind: "replace"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "20250131-142215", filepath.Base(first.Dir))
	assert.Equal(t, "20250131-142215-1", filepath.Base(second.Dir))
}

func TestCreateFailureRemovesPartialSet(t *testing.T) {
	m := newTestManager(t)

	// A file blocking the snapshot's parent directory forces MkdirAll to
	// fail partway through the set.
	_, err := m.Create(OperationInfo{Kind: "replace"}, []FileState{
		{RelPath: "ok.txt", Content: []byte("fine"), Existed: true},
		{RelPath: "ok.txt/impossible.txt", Content: []byte("x"), Existed: true},
	})
	require.Error(t, err)

	entries, readErr := os.ReadDir(m.Root())
	if readErr == nil {
		assert.Empty(t, entries, "partial backup directory left behind")
	}
}

func TestListNewestFirst(t *testing.T) {
	m := newTestManager(t)
	base := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	clock := base
	m.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		clock = base.Add(time.Duration(i) * time.Minute)
		_, err := m.Create(OperationInfo{Kind: "replace"}, nil)
		require.NoError(t, err)
	}

	infos, err := m.List()
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.True(t, infos[0].Manifest.CreatedAt.After(infos[1].Manifest.CreatedAt))
	assert.True(t, infos[1].Manifest.CreatedAt.After(infos[2].Manifest.CreatedAt))
}

func TestListEmptyRoot(t *testing.T) {
	m := newTestManager(t)
	infos, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestLoadMissingManifest(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte("{broken"), 0644))
	_, err = Load(dir)
	assert.ErrorContains(t, err, "corrupt")
}
