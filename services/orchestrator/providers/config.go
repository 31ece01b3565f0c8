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
	"os"
	"strings"
	"time"
)

// Provider constants for supported LLM providers.
const (
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// ValidProviders contains the set of valid provider names.
var ValidProviders = []string{ProviderOllama, ProviderAnthropic, ProviderOpenAI}

// ProviderConfig holds the configuration for a single LLM provider instance.
//
// Description:
//
//	Specifies which provider to use, which model, and any provider-specific
//	settings. Used by NewChatClient to create the right client.
type ProviderConfig struct {
	// Provider is the backend to use: "ollama", "anthropic", "openai".
	Provider string

	// Model is the provider-specific model identifier.
	// Examples: "llama3.1:8b" (Ollama), "claude-3-5-haiku-20241022" (Anthropic).
	Model string

	// BaseURL is an optional endpoint override. Empty uses the provider's
	// default API URL (for Ollama: OLLAMA_BASE_URL or localhost).
	BaseURL string

	// APIKey is the authentication key for cloud providers.
	// Loaded from environment: ANTHROPIC_API_KEY, OPENAI_API_KEY.
	APIKey string

	// Timeout bounds each HTTP request. Zero means 60s.
	Timeout time.Duration
}

func isValidProvider(provider string) bool {
	for _, p := range ValidProviders {
		if provider == p {
			return true
		}
	}
	return false
}

// ResolveOllamaURL resolves the Ollama server URL from environment variables,
// falling back to the local default.
func ResolveOllamaURL() string {
	if url := os.Getenv("OLLAMA_BASE_URL"); url != "" {
		return url
	}
	return "http://localhost:11434"
}

// ConfigFromEnv builds a ProviderConfig from environment variables.
//
// Description:
//
//	Reads EXTRACTOR_PROVIDER and EXTRACTOR_MODEL, then the provider's API
//	key variable. Unset provider defaults to Ollama so a fresh checkout
//	works against a local model with no secrets.
//
// Outputs:
//   - ProviderConfig: The resolved configuration.
//   - error: Non-nil if the provider name is invalid or a required API key
//     is missing.
func ConfigFromEnv() (ProviderConfig, error) {
	cfg := ProviderConfig{
		Provider: strings.ToLower(strings.TrimSpace(os.Getenv("EXTRACTOR_PROVIDER"))),
		Model:    strings.TrimSpace(os.Getenv("EXTRACTOR_MODEL")),
	}
	if cfg.Provider == "" {
		cfg.Provider = ProviderOllama
		slog.Info("EXTRACTOR_PROVIDER not set, defaulting to ollama")
	}
	if !isValidProvider(cfg.Provider) {
		return ProviderConfig{}, fmt.Errorf("providers: invalid provider %q (valid: %v)", cfg.Provider, ValidProviders)
	}

	switch cfg.Provider {
	case ProviderAnthropic:
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		if cfg.APIKey == "" {
			return ProviderConfig{}, fmt.Errorf("providers: ANTHROPIC_API_KEY required for anthropic provider")
		}
		if cfg.Model == "" {
			cfg.Model = "claude-3-5-haiku-20241022"
		}
	case ProviderOpenAI:
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.APIKey == "" {
			return ProviderConfig{}, fmt.Errorf("providers: OPENAI_API_KEY required for openai provider")
		}
		if cfg.Model == "" {
			cfg.Model = "gpt-4o-mini"
		}
	case ProviderOllama:
		cfg.BaseURL = ResolveOllamaURL()
		if cfg.Model == "" {
			cfg.Model = "llama3.1:8b"
		}
	}
	return cfg, nil
}
