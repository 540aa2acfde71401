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
	"time"

	"golang.org/x/time/rate"

	"github.com/AleutianAI/codesmith/pkg/logging"
)

// DefaultGenerateTimeout bounds a single primary-backend call.
const DefaultGenerateTimeout = 60 * time.Second

// FallbackClient wraps a primary backend and degrades to the echo
// backend on any primary failure (timeout, connection refused, API
// error), so chat always produces a response.
//
// # Thread Safety
//
// Safe for concurrent use when the primary is; the limiter serializes
// admission, not execution.
type FallbackClient struct {
	primary LLMClient
	echo    *EchoClient
	timeout time.Duration
	limiter *rate.Limiter
	logger  *logging.Logger
}

// FallbackConfig configures a FallbackClient.
type FallbackConfig struct {
	Timeout time.Duration

	// RequestsPerSecond throttles primary-backend calls; zero disables
	// throttling.
	RequestsPerSecond float64

	Logger *logging.Logger
}

// NewFallbackClient wraps primary. A nil primary always echoes.
func NewFallbackClient(primary LLMClient, cfg FallbackConfig) *FallbackClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultGenerateTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &FallbackClient{
		primary: primary,
		echo:    NewEchoClient(),
		timeout: cfg.Timeout,
		limiter: limiter,
		logger:  cfg.Logger,
	}
}

// Generate implements the LLMClient interface.
func (f *FallbackClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	if f.primary == nil {
		return f.echo.Generate(ctx, prompt, params)
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}

	genCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	out, err := f.primary.Generate(genCtx, prompt, params)
	if err != nil {
		// Caller cancellation is not a backend failure; propagate it.
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		f.logger.Warn("primary llm backend failed, echoing", "error", err)
		return f.echo.Generate(ctx, prompt, params)
	}
	return out, nil
}
