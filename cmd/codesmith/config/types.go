// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

// CodesmithConfig is the user-level configuration stored at
// ~/.codesmith/codesmith.yaml.
type CodesmithConfig struct {
	// LLM selects and tunes the generation backend.
	LLM LLMConfig `yaml:"llm"`

	// Workbench tunes the repository-edit subsystem.
	Workbench WorkbenchConfig `yaml:"workbench"`

	// Logging controls log verbosity and the optional log directory.
	Logging LoggingConfig `yaml:"logging"`
}

type LLMConfig struct {
	// Backend is "openai" (any OpenAI-compatible endpoint) or "echo".
	Backend string `yaml:"backend"`

	// BaseURL overrides the endpoint, e.g. http://localhost:11434/v1.
	BaseURL string `yaml:"base_url,omitempty"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env"`

	Model string `yaml:"model"`

	// TimeoutSeconds bounds one generation call before falling back.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// RequestsPerSecond throttles backend calls; 0 disables.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type WorkbenchConfig struct {
	// PreviewLimit bounds files shown (and applied) per replace.
	PreviewLimit int `yaml:"preview_limit"`

	// IgnoreDirs overrides the scanner's directory ignore set.
	IgnoreDirs []string `yaml:"ignore_dirs,omitempty"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`

	// Dir enables JSON file logging when set.
	Dir string `yaml:"dir,omitempty"`
}

// DefaultConfig is what first run writes to disk.
func DefaultConfig() CodesmithConfig {
	return CodesmithConfig{
		LLM: LLMConfig{
			Backend:        "openai",
			APIKeyEnv:      "OPENAI_API_KEY",
			Model:          "gpt-4o-mini",
			TimeoutSeconds: 60,
		},
		Workbench: WorkbenchConfig{
			PreviewLimit: 20,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
