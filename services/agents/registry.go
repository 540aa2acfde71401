// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package agents manages generated agent services: a JSON registry of
// their metadata, a scaffolder that writes their on-disk layout, and an
// HTTP runtime that serves chat for a running agent.
package agents

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/AleutianAI/codesmith/pkg/logging"
)

// Type classifies an agent.
type Type string

const (
	// TypeAPI is a plain chat agent backed by one model.
	TypeAPI Type = "api"

	// TypeMCP is an agent that fronts an MCP tool server.
	TypeMCP Type = "mcp"

	// TypeComposed is a pipeline agent forwarding through other agents.
	TypeComposed Type = "composed"
)

// Agent is one registry entry.
type Agent struct {
	ID          string    `json:"id" validate:"required,uuid4"`
	Name        string    `json:"name" validate:"required,agentname"`
	Type        Type      `json:"type" validate:"required,oneof=api mcp composed"`
	Model       string    `json:"model" validate:"required"`
	Description string    `json:"description"`
	Path        string    `json:"path" validate:"required"`
	CreatedAt   time.Time `json:"created_at"`

	// Pipeline lists the member agents, in call order, for composed
	// agents. Empty otherwise.
	Pipeline []string `json:"pipeline,omitempty"`
}

var agentNameRe = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,63}$`)

// Registry persists agent metadata as a single JSON file under the
// state root.
//
// # Thread Safety
//
// All methods are safe for concurrent use within one process. The file
// itself is not locked across processes.
type Registry struct {
	path     string
	validate *validator.Validate
	logger   *logging.Logger

	mu sync.Mutex
}

// NewRegistry creates a Registry stored at <stateRoot>/registry.json.
func NewRegistry(stateRoot string, logger *logging.Logger) (*Registry, error) {
	if logger == nil {
		logger = logging.Default()
	}
	v := validator.New()
	if err := v.RegisterValidation("agentname", func(fl validator.FieldLevel) bool {
		return agentNameRe.MatchString(fl.Field().String())
	}); err != nil {
		return nil, fmt.Errorf("registering agent name validator: %w", err)
	}
	return &Registry{
		path:     filepath.Join(stateRoot, "registry.json"),
		validate: v,
		logger:   logger,
	}, nil
}

// Add validates the entry and inserts or replaces it by name. A missing
// ID or CreatedAt is filled in.
func (r *Registry) Add(agent Agent) (Agent, error) {
	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = time.Now().UTC()
	}
	if err := r.validate.Struct(agent); err != nil {
		return Agent{}, fmt.Errorf("invalid agent metadata: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	entries, err := r.load()
	if err != nil {
		return Agent{}, err
	}
	replaced := false
	for i, e := range entries {
		if e.Name == agent.Name {
			entries[i] = agent
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, agent)
	}
	if err := r.save(entries); err != nil {
		return Agent{}, err
	}
	r.logger.Info("agent registered", "name", agent.Name, "type", agent.Type, "replaced", replaced)
	return agent, nil
}

// Get returns the entry for name.
func (r *Registry) Get(name string) (Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries, err := r.load()
	if err != nil {
		return Agent{}, err
	}
	for _, e := range entries {
		if e.Name == name {
			return e, nil
		}
	}
	return Agent{}, fmt.Errorf("agent %q not found", name)
}

// List returns every entry, sorted by name.
func (r *Registry) List() ([]Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries, err := r.load()
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Remove deletes the entry for name; reports whether it existed.
func (r *Registry) Remove(name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries, err := r.load()
	if err != nil {
		return false, err
	}
	kept := entries[:0]
	removed := false
	for _, e := range entries {
		if e.Name == name {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	if !removed {
		return false, nil
	}
	if err := r.save(kept); err != nil {
		return false, err
	}
	r.logger.Info("agent removed from registry", "name", name)
	return true, nil
}

func (r *Registry) load() ([]Agent, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading registry: %w", err)
	}
	var entries []Agent
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("corrupt registry at %s: %w", r.path, err)
	}
	return entries, nil
}

// save writes the registry through a temp file so a crash never leaves
// a half-written registry behind.
func (r *Registry) save(entries []Agent) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replacing registry: %w", err)
	}
	return nil
}
