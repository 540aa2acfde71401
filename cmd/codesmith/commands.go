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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	autoYes bool // --yes: auto-approve every confirmation

	// create / compose flags
	agentType        string
	agentModel       string
	agentDescription string
	agentPrompt      string

	// run flags
	runAddr string

	// dev apply flags
	addPath     string
	addContent  string
	moveSource  string
	moveDest    string
	moveNoBack  bool
	editPath    string
	editFormat  string
	editSets    []string
	editDeletes []string

	rootCmd = &cobra.Command{
		Use:   "codesmith",
		Short: "A cli to scaffold, run, and chat with generated agent services",
		Long: `Codesmith scaffolds small agent services, runs them locally,
and provides a safe repository-edit workbench (dev mode) with preview,
backup-before-mutate, and rollback.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initRuntime()
		},
	}

	// --- Agents ---
	createCmd = &cobra.Command{
		Use:   "create [name]",
		Short: "Scaffold a new agent and register it",
		Args:  cobra.ExactArgs(1),
		RunE:  runCreate, // Defined in cmd_agent.go
	}
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered agents",
		RunE:  runList, // Defined in cmd_agent.go
	}
	runCmd = &cobra.Command{
		Use:   "run [name]",
		Short: "Run an agent as a local HTTP service",
		Args:  cobra.ExactArgs(1),
		RunE:  runAgent, // Defined in cmd_agent.go
	}
	deleteCmd = &cobra.Command{
		Use:   "delete [name]",
		Short: "Delete an agent's directory and registry entry",
		Args:  cobra.ExactArgs(1),
		RunE:  runDelete, // Defined in cmd_agent.go
	}
	composeCmd = &cobra.Command{
		Use:   "compose [name] [member...]",
		Short: "Create a composed agent forwarding through member agents",
		Args:  cobra.MinimumNArgs(3),
		RunE:  runCompose, // Defined in cmd_agent.go
	}

	// --- Chat ---
	chatCmd = &cobra.Command{
		Use:   "chat [name]",
		Short: "Start an interactive chat session with an agent",
		Args:  cobra.ExactArgs(1),
		RunE:  runChat, // Defined in cmd_chat.go
	}

	// --- LLM ---
	llmCmd = &cobra.Command{
		Use:   "llm",
		Short: "Inspect and test the configured LLM backend",
	}
	llmTestCmd = &cobra.Command{
		Use:   "test",
		Short: "Send a test prompt to the configured backend",
		RunE:  runLLMTest, // Defined in cmd_llm.go
	}
	llmListModelsCmd = &cobra.Command{
		Use:   "list-models",
		Short: "List models available at the configured backend",
		RunE:  runLLMListModels, // Defined in cmd_llm.go
	}

	// --- Dev Mode (workbench) ---
	devCmd = &cobra.Command{
		Use:   "dev",
		Short: "Safe repository edits: preview, confirm, backup, apply, rollback",
	}
	devRunCmd = &cobra.Command{
		Use:   "run [instruction]",
		Short: "Parse a free-text instruction, preview the diff, confirm, apply",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runDevRun, // Defined in cmd_dev.go
	}
	devApplyCmd = &cobra.Command{
		Use:   "apply",
		Short: "Apply a structured edit (--add, --move, or --edit)",
		RunE:  runDevApply, // Defined in cmd_dev.go
	}
	devRollbackCmd = &cobra.Command{
		Use:   "rollback [backup-dir]",
		Short: "Restore the repository from a backup set",
		Args:  cobra.ExactArgs(1),
		RunE:  runDevRollback, // Defined in cmd_dev.go
	}
	devBackupsCmd = &cobra.Command{
		Use:   "backups",
		Short: "List stored backup sets, newest first",
		RunE:  runDevBackups, // Defined in cmd_dev.go
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&autoYes, "yes", "y", false,
		"Auto-approve all confirmation prompts (non-interactive)")

	createCmd.Flags().StringVar(&agentType, "type", "api", "Agent type: api, mcp, composed")
	createCmd.Flags().StringVar(&agentModel, "model", "", "Model the agent uses (defaults to config)")
	createCmd.Flags().StringVar(&agentDescription, "description", "", "Agent description")
	createCmd.Flags().StringVar(&agentPrompt, "system-prompt", "", "System prompt persona")

	composeCmd.Flags().StringVar(&agentModel, "model", "", "Model the composed agent uses")

	runCmd.Flags().StringVar(&runAddr, "addr", "localhost:8601", "Listen address")

	devApplyCmd.Flags().StringVar(&addPath, "add", "", "Create a file at this path")
	devApplyCmd.Flags().StringVar(&addContent, "content", "", "Content for --add")
	devApplyCmd.Flags().StringVar(&moveSource, "move", "", "Move this file")
	devApplyCmd.Flags().StringVar(&moveDest, "dest", "", "Destination for --move")
	devApplyCmd.Flags().BoolVar(&moveNoBack, "no-backup", false, "Skip the backup for --move")
	devApplyCmd.Flags().StringVar(&editPath, "edit", "", "Edit the JSON/YAML document at this path")
	devApplyCmd.Flags().StringVar(&editFormat, "format", "", "Document format for --edit (json or yaml; inferred from extension when empty)")
	devApplyCmd.Flags().StringArrayVar(&editSets, "set", nil, "key.path=value assignment for --edit (repeatable)")
	devApplyCmd.Flags().StringArrayVar(&editDeletes, "delete", nil, "key.path to delete for --edit (repeatable)")

	llmCmd.AddCommand(llmTestCmd, llmListModelsCmd)
	devCmd.AddCommand(devRunCmd, devApplyCmd, devRollbackCmd, devBackupsCmd)
	rootCmd.AddCommand(createCmd, listCmd, runCmd, chatCmd, deleteCmd, composeCmd, llmCmd, devCmd)
}
