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
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AleutianAI/codesmith/pkg/logging"
	"github.com/AleutianAI/codesmith/services/llm"
)

type capturingBackend struct {
	lastPrompt string
	reply      string
}

func (c *capturingBackend) Generate(_ context.Context, prompt string, _ llm.GenerationParams) (string, error) {
	c.lastPrompt = prompt
	return c.reply, nil
}

func newTestRuntime(t *testing.T, client llm.LLMClient) *Runtime {
	t.Helper()
	rt, err := NewRuntime(
		Agent{ID: "x", Name: "helper", Type: TypeAPI, Model: "m", Path: "agents/helper"},
		client,
		RuntimeConfig{Logger: logging.Discard()},
	)
	if err != nil {
		t.Fatal(err)
	}
	return rt
}

func TestChatEndpoint(t *testing.T) {
	backend := &capturingBackend{reply: "42"}
	handler := newTestRuntime(t, backend).Handler()

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message": "what is the answer?"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp chatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Agent != "helper" || resp.Reply != "42" {
		t.Errorf("response = %+v", resp)
	}
	if !strings.Contains(backend.lastPrompt, "what is the answer?") {
		t.Errorf("prompt = %q, want user message included", backend.lastPrompt)
	}
	if !strings.Contains(backend.lastPrompt, "helper") {
		t.Errorf("prompt = %q, want persona included", backend.lastPrompt)
	}
}

func TestChatRejectsMissingMessage(t *testing.T) {
	handler := newTestRuntime(t, &capturingBackend{}).Handler()

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestChatFallsBackToEcho(t *testing.T) {
	client := llm.NewFallbackClient(nil, llm.FallbackConfig{Logger: logging.Discard()})
	handler := newTestRuntime(t, client).Handler()

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message": "hi"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "[llm unavailable]") {
		t.Errorf("body = %s, want marked echo reply", w.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	handler := newTestRuntime(t, &capturingBackend{}).Handler()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "helper") {
		t.Errorf("healthz = %d %s", w.Code, w.Body.String())
	}
}

func TestMetricsEndpointCountsChats(t *testing.T) {
	handler := newTestRuntime(t, &capturingBackend{reply: "ok"}).Handler()

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message": "hi"}`))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "codesmith_agent_requests_total") {
		t.Errorf("metrics output missing counter:\n%s", w.Body.String())
	}
}
