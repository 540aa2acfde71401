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
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/codesmith/cmd/codesmith/config"
	"github.com/AleutianAI/codesmith/pkg/ux"
	"github.com/AleutianAI/codesmith/services/agents"
	"github.com/AleutianAI/codesmith/services/llm"
)

// workRoot is the repository the CLI operates on: the current directory.
func workRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolving working directory: %w", err)
	}
	return dir, nil
}

func stateRoot(root string) string {
	return filepath.Join(root, ".codesmith")
}

func newAgentManager() (*agents.Manager, *agents.Registry, error) {
	root, err := workRoot()
	if err != nil {
		return nil, nil, err
	}
	registry, err := agents.NewRegistry(stateRoot(root), logger)
	if err != nil {
		return nil, nil, err
	}
	manager, err := agents.NewManager(root, registry, logger)
	if err != nil {
		return nil, nil, err
	}
	return manager, registry, nil
}

// buildLLMClient assembles the configured backend wrapped in the echo
// fallback. Chat always gets a response, marked when degraded.
func buildLLMClient() llm.LLMClient {
	cfg := config.Global.LLM
	var primary llm.LLMClient
	if cfg.Backend == "openai" {
		client, err := llm.NewOpenAIClient(llm.OpenAIConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  os.Getenv(cfg.APIKeyEnv),
			Model:   cfg.Model,
			Logger:  logger,
		})
		if err != nil {
			logger.Warn("openai backend unavailable, using echo", "error", err)
		} else {
			primary = client
		}
	}
	return llm.NewFallbackClient(primary, llm.FallbackConfig{
		Timeout:           secondsToDuration(cfg.TimeoutSeconds),
		RequestsPerSecond: cfg.RequestsPerSecond,
		Logger:            logger,
	})
}

func runCreate(cmd *cobra.Command, args []string) error {
	manager, _, err := newAgentManager()
	if err != nil {
		return err
	}
	model := agentModel
	if model == "" {
		model = config.Global.LLM.Model
	}
	agent, err := manager.Create(agents.CreateOptions{
		Name:         args[0],
		Type:         agents.Type(agentType),
		Model:        model,
		Description:  agentDescription,
		SystemPrompt: agentPrompt,
	})
	if err != nil {
		ux.Error("Could not create agent: %v", err)
		return err
	}
	ux.Success("Created agent %s (%s) at %s", agent.Name, agent.Type, agent.Path)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	_, registry, err := newAgentManager()
	if err != nil {
		return err
	}
	entries, err := registry.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		ux.Muted("No agents registered. Try: codesmith create my-agent")
		return nil
	}
	ux.Header("Registered agents")
	for _, a := range entries {
		line := fmt.Sprintf("%-20s %-9s %-16s %s", a.Name, a.Type, a.Model, a.Description)
		fmt.Println(line)
	}
	return nil
}

func runAgent(cmd *cobra.Command, args []string) error {
	_, registry, err := newAgentManager()
	if err != nil {
		return err
	}
	agent, err := registry.Get(args[0])
	if err != nil {
		return err
	}
	root, err := workRoot()
	if err != nil {
		return err
	}
	rt, err := agents.NewRuntime(agent, buildLLMClient(), agents.RuntimeConfig{
		WorkRoot: root,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ux.Info("Serving %s on http://%s (Ctrl-C to stop)", agent.Name, runAddr)
	return rt.Run(ctx, runAddr)
}

func runDelete(cmd *cobra.Command, args []string) error {
	manager, _, err := newAgentManager()
	if err != nil {
		return err
	}
	ok, err := newPrompter().Confirm(cmd.Context(),
		fmt.Sprintf("Delete agent %q and its directory?", args[0]))
	if err != nil {
		return err
	}
	if !ok {
		ux.Muted("Aborted.")
		return nil
	}
	removed, err := manager.Delete(args[0])
	if err != nil {
		return err
	}
	if !removed {
		ux.Warning("No agent named %q", args[0])
		return nil
	}
	ux.Success("Deleted agent %s", args[0])
	return nil
}

func runCompose(cmd *cobra.Command, args []string) error {
	manager, _, err := newAgentManager()
	if err != nil {
		return err
	}
	model := agentModel
	if model == "" {
		model = config.Global.LLM.Model
	}
	agent, err := manager.Compose(args[0], args[1:], model)
	if err != nil {
		ux.Error("Could not compose agent: %v", err)
		return err
	}
	ux.Success("Composed agent %s: %v", agent.Name, agent.Pipeline)
	return nil
}
