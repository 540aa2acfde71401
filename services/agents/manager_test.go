// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agents

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AleutianAI/codesmith/pkg/logging"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	root := t.TempDir()
	reg, err := NewRegistry(filepath.Join(root, ".codesmith"), logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewManager(root, reg, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	return m, root
}

func TestCreateScaffoldsLayout(t *testing.T) {
	m, root := newTestManager(t)

	agent, err := m.Create(CreateOptions{Name: "helper", Model: "gpt-4o-mini", Description: "test agent"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if agent.Type != TypeAPI {
		t.Errorf("Type = %q, want default api", agent.Type)
	}

	dir := filepath.Join(root, "agents", "helper")
	for _, name := range []string{"main.go", "config.json", "manifest.yaml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing scaffold file %s: %v", name, err)
		}
	}

	// config.json must be valid JSON carrying the registry identity.
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatal(err)
	}
	var cfg map[string]any
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("config.json invalid: %v\n%s", err, data)
	}
	if cfg["id"] != agent.ID || cfg["name"] != "helper" || cfg["model"] != "gpt-4o-mini" {
		t.Errorf("config.json = %v", cfg)
	}

	src, err := os.ReadFile(filepath.Join(dir, "main.go"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(src), `Name:  "helper"`) {
		t.Errorf("main.go missing agent identity:\n%s", src)
	}
}

func TestComposeRequiresMembers(t *testing.T) {
	m, _ := newTestManager(t)
	if _, err := m.Compose("pipeline", []string{"only-one"}, "gpt-4o-mini"); err == nil {
		t.Error("expected error for too few members")
	}
	if _, err := m.Compose("pipeline", []string{"ghost", "phantom"}, "gpt-4o-mini"); err == nil {
		t.Error("expected error for unregistered members")
	}
}

func TestComposeBuildsPipeline(t *testing.T) {
	m, _ := newTestManager(t)
	for _, name := range []string{"first", "second"} {
		if _, err := m.Create(CreateOptions{Name: name, Model: "gpt-4o-mini"}); err != nil {
			t.Fatal(err)
		}
	}

	agent, err := m.Compose("pipeline", []string{"first", "second"}, "gpt-4o-mini")
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if agent.Type != TypeComposed {
		t.Errorf("Type = %q, want composed", agent.Type)
	}
	if len(agent.Pipeline) != 2 || agent.Pipeline[0] != "first" {
		t.Errorf("Pipeline = %v", agent.Pipeline)
	}
}

func TestDeleteRemovesDirAndEntry(t *testing.T) {
	m, root := newTestManager(t)
	if _, err := m.Create(CreateOptions{Name: "helper", Model: "gpt-4o-mini"}); err != nil {
		t.Fatal(err)
	}

	removed, err := m.Delete("helper")
	if err != nil || !removed {
		t.Fatalf("Delete() = %v, %v", removed, err)
	}
	if _, err := os.Stat(filepath.Join(root, "agents", "helper")); !os.IsNotExist(err) {
		t.Error("agent directory survived delete")
	}
	if _, err := m.registry.Get("helper"); err == nil {
		t.Error("registry entry survived delete")
	}

	removed, err = m.Delete("helper")
	if err != nil || removed {
		t.Errorf("second Delete() = %v, %v, want no-op", removed, err)
	}
}
