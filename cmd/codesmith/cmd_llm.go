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
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/codesmith/cmd/codesmith/config"
	"github.com/AleutianAI/codesmith/pkg/ux"
	"github.com/AleutianAI/codesmith/services/llm"
)

func runLLMTest(cmd *cobra.Command, args []string) error {
	client := buildLLMClient()

	spinner := ux.NewSpinner("contacting backend", ux.SpinnerDots)
	spinner.Start()
	reply, err := client.Generate(cmd.Context(), "Reply with a single word: ready", llm.GenerationParams{})
	spinner.Stop()
	if err != nil {
		ux.Error("Backend test failed: %v", err)
		return err
	}
	if strings.HasPrefix(reply, "[llm unavailable]") {
		ux.Warning("Backend unreachable; echo fallback active.")
	} else {
		ux.Success("Backend responded: %s", strings.TrimSpace(reply))
	}
	return nil
}

func runLLMListModels(cmd *cobra.Command, args []string) error {
	cfg := config.Global.LLM
	if cfg.Backend != "openai" {
		ux.Muted("Backend %q does not expose a model list.", cfg.Backend)
		return nil
	}
	client, err := llm.NewOpenAIClient(llm.OpenAIConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  os.Getenv(cfg.APIKeyEnv),
		Model:   cfg.Model,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	models, err := client.ListModels(cmd.Context())
	if err != nil {
		ux.Error("Could not list models: %v", err)
		return err
	}
	ux.Header("Available models")
	for _, m := range models {
		marker := "  "
		if m == cfg.Model {
			marker = "* "
		}
		fmt.Println(marker + m)
	}
	return nil
}
