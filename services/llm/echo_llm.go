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

import "context"

// echoPrefix marks responses produced without a working backend so
// transcripts cannot be mistaken for model output.
const echoPrefix = "[llm unavailable] "

// EchoClient is the deterministic last-resort backend: it returns the
// prompt verbatim behind a fixed marker prefix. It never fails.
type EchoClient struct{}

// NewEchoClient creates an EchoClient.
func NewEchoClient() *EchoClient { return &EchoClient{} }

// Generate implements the LLMClient interface.
func (e *EchoClient) Generate(_ context.Context, prompt string, _ GenerationParams) (string, error) {
	return echoPrefix + prompt, nil
}
