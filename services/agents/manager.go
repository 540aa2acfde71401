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
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/AleutianAI/codesmith/pkg/logging"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// DefaultAddr is the runtime listen address baked into scaffolded
// agents.
const DefaultAddr = "localhost:8601"

// Manager scaffolds, composes and deletes agents, keeping the registry
// in step with the on-disk layout under <workRoot>/agents/.
type Manager struct {
	workRoot string
	registry *Registry
	logger   *logging.Logger
	tmpl     *template.Template
}

// CreateOptions parameterize a scaffold.
type CreateOptions struct {
	Name        string
	Type        Type
	Model       string
	Description string

	// SystemPrompt seeds the agent's persona; empty gets a generic one.
	SystemPrompt string

	// Pipeline names the member agents for composed agents.
	Pipeline []string
}

// NewManager creates a Manager writing agents under workRoot.
func NewManager(workRoot string, registry *Registry, logger *logging.Logger) (*Manager, error) {
	if logger == nil {
		logger = logging.Default()
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing agent templates: %w", err)
	}
	return &Manager{
		workRoot: workRoot,
		registry: registry,
		logger:   logger,
		tmpl:     tmpl,
	}, nil
}

// Create scaffolds agents/<name>/ (main.go, config.json, manifest.yaml)
// and registers the agent. An existing agent of the same name is
// overwritten.
func (m *Manager) Create(opts CreateOptions) (Agent, error) {
	if opts.Type == "" {
		opts.Type = TypeAPI
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = fmt.Sprintf("You are %s, a helpful assistant.", opts.Name)
	}

	dir := filepath.Join("agents", opts.Name)
	agent, err := m.registry.Add(Agent{
		Name:        opts.Name,
		Type:        opts.Type,
		Model:       opts.Model,
		Description: opts.Description,
		Path:        filepath.ToSlash(dir),
		Pipeline:    opts.Pipeline,
	})
	if err != nil {
		return Agent{}, err
	}

	absDir := filepath.Join(m.workRoot, dir)
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return Agent{}, fmt.Errorf("creating agent dir: %w", err)
	}

	data := map[string]any{
		"ID":           agent.ID,
		"Name":         agent.Name,
		"Type":         string(agent.Type),
		"Model":        agent.Model,
		"Description":  agent.Description,
		"SystemPrompt": opts.SystemPrompt,
		"Pipeline":     agent.Pipeline,
		"Addr":         DefaultAddr,
		"Created":      agent.CreatedAt.Format(time.RFC3339),
	}
	files := map[string]string{
		"main.go":       "main.go.tmpl",
		"config.json":   "config.json.tmpl",
		"manifest.yaml": "manifest.yaml.tmpl",
	}
	for out, name := range files {
		if err := m.render(filepath.Join(absDir, out), name, data); err != nil {
			return Agent{}, err
		}
	}

	m.logger.Info("agent scaffolded", "name", agent.Name, "dir", dir)
	return agent, nil
}

// Compose scaffolds a composed agent that forwards through the named
// member agents in order. Every member must already be registered.
func (m *Manager) Compose(name string, members []string, model string) (Agent, error) {
	if len(members) < 2 {
		return Agent{}, fmt.Errorf("compose needs at least 2 member agents, got %d", len(members))
	}
	for _, member := range members {
		if _, err := m.registry.Get(member); err != nil {
			return Agent{}, fmt.Errorf("compose member: %w", err)
		}
	}
	return m.Create(CreateOptions{
		Name:        name,
		Type:        TypeComposed,
		Model:       model,
		Description: "pipeline: " + strings.Join(members, " -> "),
		Pipeline:    members,
	})
}

// Delete removes the agent's directory and registry entry. Unknown
// names are a reported no-op.
func (m *Manager) Delete(name string) (bool, error) {
	agent, err := m.registry.Get(name)
	if err != nil {
		return false, nil
	}
	if err := os.RemoveAll(filepath.Join(m.workRoot, filepath.FromSlash(agent.Path))); err != nil {
		return false, fmt.Errorf("removing agent dir: %w", err)
	}
	removed, err := m.registry.Remove(name)
	if err != nil {
		return false, err
	}
	m.logger.Info("agent deleted", "name", name)
	return removed, nil
}

func (m *Manager) render(path, tmplName string, data map[string]any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	if err := m.tmpl.ExecuteTemplate(f, tmplName, data); err != nil {
		return fmt.Errorf("rendering %s: %w", tmplName, err)
	}
	return nil
}
