// Copyright (C) 2025 Lantern Education (oss@lantern-ed.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package providers defines the provider-agnostic chat interface and the
// HTTP clients for the LLM backends used by the parameter extractor
// (Ollama, Anthropic, OpenAI).
//
// Thread Safety:
//
//	All interfaces in this package must be implemented as safe for concurrent use.
package providers

import (
	"context"

	"github.com/LanternEd/LanternFOSS/services/orchestrator/datatypes"
)

// ChatClient is the minimal interface the extractor needs.
//
// Description:
//
//	The extractor only needs simple chat (no tool calls, no streaming).
//	This minimal interface makes clients trivial for any provider.
//
// Thread Safety: Implementations must be safe for concurrent use.
type ChatClient interface {
	// Chat sends messages and returns the assistant's response text.
	//
	// Inputs:
	//   - ctx: Context for cancellation and timeout.
	//   - messages: Conversation messages (system, user, assistant).
	//   - opts: Provider-agnostic chat options.
	//
	// Outputs:
	//   - string: The assistant's response text.
	//   - error: Non-nil on failure.
	Chat(ctx context.Context, messages []datatypes.Message, opts ChatOptions) (string, error)
}

// ChatOptions holds provider-agnostic options for a chat request.
type ChatOptions struct {
	// Temperature controls randomness (0.0-1.0). The Go zero value (0.0)
	// is an explicit "most deterministic" setting; set a negative value
	// to omit it from the request and use the provider's default.
	Temperature float64

	// MaxTokens limits the response length. Zero means the provider default.
	MaxTokens int

	// Model overrides the model set at client construction, if non-empty.
	Model string
}
