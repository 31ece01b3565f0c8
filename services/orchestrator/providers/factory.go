// Copyright (C) 2025 Lantern Education (oss@lantern-ed.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package providers

import (
	"fmt"
	"log/slog"
)

// NewChatClient creates a ChatClient for the given provider config.
//
// Description:
//
//	Central creation point for all chat clients. The extractor never
//	constructs a provider client directly; it goes through here so provider
//	selection stays a configuration concern.
//
// Inputs:
//   - cfg: Provider configuration specifying provider type and model.
//
// Outputs:
//   - ChatClient: The chat client for the specified provider.
//   - error: Non-nil if the provider is unsupported or a required API key
//     is missing.
//
// Example:
//
//	client, err := providers.NewChatClient(providers.ProviderConfig{
//	    Provider: "anthropic",
//	    Model:    "claude-3-5-haiku-20241022",
//	    APIKey:   "sk-ant-...",
//	})
func NewChatClient(cfg ProviderConfig) (ChatClient, error) {
	switch cfg.Provider {
	case ProviderOllama:
		if cfg.Model == "" {
			return nil, fmt.Errorf("providers: model required for ollama provider")
		}
		slog.Info("creating Ollama chat client",
			slog.String("model", cfg.Model),
			slog.String("base_url", cfg.BaseURL),
		)
		return NewOllamaChat(cfg.Model, cfg.BaseURL, cfg.Timeout), nil

	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("providers: ANTHROPIC_API_KEY required for anthropic provider")
		}
		slog.Info("creating Anthropic chat client", slog.String("model", cfg.Model))
		return NewAnthropicChat(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Timeout), nil

	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("providers: OPENAI_API_KEY required for openai provider")
		}
		slog.Info("creating OpenAI chat client", slog.String("model", cfg.Model))
		return NewOpenAIChat(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Timeout), nil

	default:
		return nil, fmt.Errorf("providers: unsupported provider %q (valid: %v)", cfg.Provider, ValidProviders)
	}
}
