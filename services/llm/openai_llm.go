// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/AleutianAI/codesmith/pkg/logging"
)

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint,
// including local servers (Ollama, llama.cpp, vLLM) that expose the
// same API surface.
type OpenAIClient struct {
	client *openai.Client
	model  string
	system string
	logger *logging.Logger
}

// OpenAIConfig configures an OpenAIClient.
type OpenAIConfig struct {
	// BaseURL overrides the endpoint, e.g. http://localhost:11434/v1
	// for a local Ollama server. Empty uses api.openai.com.
	BaseURL string

	// APIKey may be empty for local endpoints that do not authenticate.
	APIKey string

	Model string

	// SystemPrompt seeds the conversation. Empty uses a generic
	// assistant persona.
	SystemPrompt string

	Logger *logging.Logger
}

// NewOpenAIClient creates a client for cfg.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm model must be set")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		// The upstream client rejects a fully empty key even when the
		// endpoint ignores authentication.
		apiKey = "unused"
	}
	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	system := cfg.SystemPrompt
	if system == "" {
		system = "You are a helpful assistant."
	}
	cfg.Logger.Info("initializing openai-compatible client",
		"model", cfg.Model, "base_url", clientCfg.BaseURL)
	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		system: system,
		logger: cfg.Logger,
	}, nil
}

// Generate implements the LLMClient interface.
func (o *OpenAIClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	o.logger.Debug("generating text", "model", o.model)
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: o.system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.MaxTokens != nil {
		req.MaxCompletionTokens = *params.MaxTokens
	}
	if params.TopP != nil {
		req.TopP = *params.TopP
	}
	if len(params.Stop) > 0 {
		req.Stop = params.Stop
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("backend returned no choices")
	}
	o.logger.Debug("received response", "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}

// ListModels implements ModelLister via the /models endpoint.
func (o *OpenAIClient) ListModels(ctx context.Context) ([]string, error) {
	resp, err := o.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.ID)
	}
	sort.Strings(names)
	return names, nil
}
