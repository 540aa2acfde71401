// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command codesmith scaffolds, runs, and chats with small generated
// agent services, and provides a safe repository-edit workbench with
// preview, backup-before-mutate, and rollback.
//
// Usage:
//
//	codesmith create my-agent --model gpt-4o-mini
//	codesmith list
//	codesmith run my-agent
//	codesmith chat my-agent
//	codesmith dev run "replace 'foo' with 'bar'"
//	codesmith dev rollback .codesmith/backups/20250131-142215
package main

import (
	"log"
	"os"

	"github.com/AleutianAI/codesmith/cmd/codesmith/config"
	"github.com/AleutianAI/codesmith/pkg/logging"
)

// logger is shared by every command; initialized in PersistentPreRunE.
var logger = logging.Default()

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initRuntime loads the user config and swaps in the configured logger.
// Called from the root command's PersistentPreRunE so flags are parsed.
func initRuntime() error {
	if err := config.Load(); err != nil {
		return err
	}
	cfg := logging.Config{
		Level:   logging.ParseLevel(config.Global.Logging.Level),
		LogDir:  config.Global.Logging.Dir,
		Service: "codesmith",
	}
	l, err := logging.New(cfg)
	if err != nil {
		log.Printf("file logging unavailable: %v", err)
		return nil
	}
	logger = l
	return nil
}
