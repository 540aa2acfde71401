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
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/codesmith/pkg/ux"
	"github.com/AleutianAI/codesmith/services/agents"
	"github.com/AleutianAI/codesmith/services/llm"
)

// runChat is a line-based REPL against one agent. Each message first
// tries the agent's running HTTP service; when no service answers, the
// message goes straight to the LLM client (which itself degrades to
// echo), so chat works whether or not `codesmith run` is active.
func runChat(cmd *cobra.Command, args []string) error {
	_, registry, err := newAgentManager()
	if err != nil {
		return err
	}
	agent, err := registry.Get(args[0])
	if err != nil {
		return err
	}
	client := buildLLMClient()

	ux.Header("Chatting with %s (type 'exit' to quit)", agent.Name)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}
		if message == "exit" || message == "quit" {
			break
		}

		spinner := ux.NewSpinner("thinking", ux.SpinnerDots)
		spinner.Start()
		reply := chatOnce(cmd.Context(), agent, client, message)
		spinner.Stop()
		fmt.Printf("%s: %s\n", agent.Name, reply)
	}
	return scanner.Err()
}

func chatOnce(ctx context.Context, agent agents.Agent, client llm.LLMClient, message string) string {
	if reply, ok := chatViaService(ctx, message); ok {
		return reply
	}
	prompt := fmt.Sprintf("You are %s, a helpful assistant.\n\nUser: %s", agent.Name, message)
	reply, err := client.Generate(ctx, prompt, llm.GenerationParams{})
	if err != nil {
		return "[error] " + err.Error()
	}
	return reply
}

// chatViaService posts to a locally running agent runtime.
func chatViaService(ctx context.Context, message string) (string, bool) {
	body, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return "", false
	}
	reqCtx, cancel := context.WithTimeout(ctx, 90*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost,
		"http://"+agents.DefaultAddr+"/chat", bytes.NewReader(body))
	if err != nil {
		return "", false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", false
	}
	var out struct {
		Reply string `json:"reply"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", false
	}
	return out.Reply, true
}

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}
