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
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/codesmith/pkg/logging"
	"github.com/AleutianAI/codesmith/services/llm"
)

// RuntimeConfig parameterizes a Runtime.
type RuntimeConfig struct {
	// WorkRoot resolves the agent's relative Path for the change watch.
	// Empty disables watching.
	WorkRoot string

	// SystemPrompt overrides the persona sent ahead of every message.
	SystemPrompt string

	Logger *logging.Logger
}

// Runtime serves one agent over HTTP.
//
// # Description
//
// Endpoints:
//
//	POST /chat     {"message": "..."} -> {"agent": ..., "reply": ...}
//	GET  /healthz  liveness
//	GET  /metrics  prometheus (request counter, latency histogram)
//
// Chat forwards to the configured LLM client; with the fallback client
// wired in, an unreachable backend degrades to marked echo responses
// instead of errors. When a work root is configured, an fsnotify watch
// on the agent directory logs change events while the agent runs.
type Runtime struct {
	agent   Agent
	client  llm.LLMClient
	system  string
	logger  *logging.Logger
	metrics *runtimeMetrics
	watch   string
}

// NewRuntime creates a Runtime for agent backed by client.
func NewRuntime(agent Agent, client llm.LLMClient, cfg RuntimeConfig) (*Runtime, error) {
	if client == nil {
		return nil, fmt.Errorf("runtime needs an llm client")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	system := cfg.SystemPrompt
	if system == "" {
		system = fmt.Sprintf("You are %s, a helpful assistant.", agent.Name)
	}
	var watch string
	if cfg.WorkRoot != "" && agent.Path != "" {
		watch = filepath.Join(cfg.WorkRoot, filepath.FromSlash(agent.Path))
	}
	return &Runtime{
		agent:   agent,
		client:  client,
		system:  system,
		logger:  cfg.Logger,
		metrics: newRuntimeMetrics(agent.Name),
		watch:   watch,
	}, nil
}

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

type chatResponse struct {
	Agent string `json:"agent"`
	Reply string `json:"reply"`
}

// Handler builds the gin router. Exposed separately from Run so tests
// can drive it with httptest.
func (r *Runtime) Handler() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/chat", r.handleChat)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "agent": r.agent.Name})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.metrics.registry, promhttp.HandlerOpts{})))
	return router
}

func (r *Runtime) handleChat(c *gin.Context) {
	start := time.Now()
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.metrics.observe("chat", "bad_request", time.Since(start))
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	prompt := r.system + "\n\nUser: " + req.Message
	reply, err := r.client.Generate(c.Request.Context(), prompt, llm.GenerationParams{})
	if err != nil {
		r.metrics.observe("chat", "error", time.Since(start))
		r.logger.Error("chat generation failed", "agent", r.agent.Name, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "generation failed"})
		return
	}

	r.metrics.observe("chat", "ok", time.Since(start))
	c.JSON(http.StatusOK, chatResponse{Agent: r.agent.Name, Reply: reply})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (r *Runtime) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	watchDone := r.startWatch(ctx)
	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("agent runtime listening", "agent", r.agent.Name, "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	<-watchDone
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("runtime shutdown: %w", err)
	}
	r.logger.Info("agent runtime stopped", "agent", r.agent.Name)
	return nil
}

// startWatch logs file changes in the agent directory while the agent
// runs. Watch failures degrade to a warning; chat keeps working.
func (r *Runtime) startWatch(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	if r.watch == "" {
		close(done)
		return done
	}
	if _, err := os.Stat(r.watch); err != nil {
		r.logger.Warn("agent dir not watchable", "dir", r.watch, "error", err)
		close(done)
		return done
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		r.logger.Warn("fsnotify unavailable", "error", err)
		close(done)
		return done
	}
	if err := watcher.Add(r.watch); err != nil {
		r.logger.Warn("could not watch agent dir", "dir", r.watch, "error", err)
		watcher.Close()
		close(done)
		return done
	}

	go func() {
		defer close(done)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				r.logger.Info("agent file changed", "agent", r.agent.Name, "op", ev.Op.String(), "path", ev.Name)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.logger.Warn("watch error", "error", err)
			}
		}
	}()
	return done
}
