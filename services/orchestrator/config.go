// Copyright (C) 2025 Lantern Education (oss@lantern-ed.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package orchestrator

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the orchestrator service configuration, read from the
// environment. Provider-specific settings (EXTRACTOR_PROVIDER, API keys)
// live in the providers package; this struct covers the service itself.
type Config struct {
	// Server
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	// Tool API
	ToolAPIBaseURL string `envconfig:"TOOL_API_BASE_URL" default:"http://localhost:9100"`

	// MockTools serves canned tool responses instead of calling the tool
	// API. Useful for demos and for developing against an absent backend.
	MockTools bool `envconfig:"MOCK_TOOLS" default:"false"`

	// Personalization
	HintDowngradeSteps int `envconfig:"HINT_DOWNGRADE_STEPS" default:"1"`

	// Extractor
	ExtractorTimeoutSeconds int `envconfig:"EXTRACTOR_TIMEOUT_SECONDS" default:"10"`
	ExtractorHistoryTurns   int `envconfig:"EXTRACTOR_HISTORY_TURNS" default:"5"`
}

// LoadConfig reads configuration from a .env file if present, then from
// the environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("orchestrator: failed to load config: %w", err)
	}
	return &cfg, nil
}
