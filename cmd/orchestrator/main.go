// Copyright (C) 2025 Lantern Education (oss@lantern-ed.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command orchestrator starts the Lantern tutor orchestrator API server.
//
// The orchestrator sits between a conversational tutoring agent and the
// educational tool APIs. For each student message it:
//   - Extracts tool intent and parameters with an LLM
//   - Fills gaps from the student profile (mastery, emotion, learning style)
//   - Validates the request against the tool schemas
//   - Invokes the tool with bounded retries
//
// Usage:
//
//	go run ./cmd/orchestrator
//	go run ./cmd/orchestrator -port 9090
//
// With Ollama (for parameter extraction):
//
//	OLLAMA_BASE_URL=http://localhost:11434 EXTRACTOR_MODEL=llama3.1:8b go run ./cmd/orchestrator
//
// With a cloud provider:
//
//	EXTRACTOR_PROVIDER=anthropic ANTHROPIC_API_KEY=... go run ./cmd/orchestrator
//
// Without a tool backend (canned responses):
//
//	MOCK_TOOLS=true go run ./cmd/orchestrator
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/v1/tutor/health
//
//	# List the tool catalog
//	curl http://localhost:8080/v1/tutor/tools | jq
//
//	# Run the pipeline
//	curl -X POST http://localhost:8080/v1/tutor/orchestrate \
//	  -H "Content-Type: application/json" \
//	  -d @examples/orchestrate_request.json
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/LanternEd/LanternFOSS/services/orchestrator"
	"github.com/LanternEd/LanternFOSS/services/orchestrator/extractor"
	"github.com/LanternEd/LanternFOSS/services/orchestrator/profile"
	"github.com/LanternEd/LanternFOSS/services/orchestrator/providers"
	"github.com/LanternEd/LanternFOSS/services/orchestrator/schema"
	badgerstore "github.com/LanternEd/LanternFOSS/services/orchestrator/storage/badger"
	"github.com/LanternEd/LanternFOSS/services/orchestrator/toolclient"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func main() {
	port := flag.String("port", "", "Port to listen on (overrides PORT)")
	debug := flag.Bool("debug", false, "Enable debug mode")
	mockTools := flag.Bool("mock-tools", false, "Serve canned tool responses (overrides MOCK_TOOLS)")
	flag.Parse()

	cfg, err := orchestrator.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *port != "" {
		cfg.Port = *port
	}
	if *debug {
		cfg.Debug = true
	}
	if *mockTools {
		cfg.MockTools = true
	}

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// W3C TraceContext propagation so trace context flows from incoming
	// headers through all handlers.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	registry, err := schema.Load()
	if err != nil {
		slog.Error("Failed to load tool schemas", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Open the extraction cache BadgerDB. Service-local, in
	// ~/.lantern/cache/extraction/ unless EXTRACTION_CACHE_DIR overrides it.
	// Graceful degradation: if unavailable, extraction runs uncached.
	var candidateStore extractor.CandidateStore
	cacheDir := os.Getenv("EXTRACTION_CACHE_DIR")
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cacheDir = filepath.Join(home, ".lantern", "cache", "extraction")
		}
	}
	var cacheDB *badgerstore.DB
	if cacheDir != "" {
		dbCfg := badgerstore.DefaultConfig()
		dbCfg.Path = cacheDir
		db, err := badgerstore.OpenDB(dbCfg)
		if err != nil {
			slog.Warn("Extraction cache BadgerDB unavailable, extraction runs uncached",
				slog.String("path", cacheDir),
				slog.String("error", err.Error()),
			)
		} else {
			cacheDB = db
			candidateStore = extractor.NewBadgerCandidateStore(db, 0, slog.Default())
			slog.Info("Extraction cache BadgerDB opened",
				slog.String("path", cacheDir),
			)
		}
	}

	handlers, err := buildHandlers(cfg, registry, candidateStore)
	if err != nil {
		slog.Error("Failed to wire pipeline", slog.String("error", err.Error()))
		os.Exit(1)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("lantern-orchestrator"))
	if cfg.Debug {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	orchestrator.RegisterRoutes(v1, handlers)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	printBanner(cfg.Port, cfg.MockTools)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		slog.Info("Shutting down Lantern orchestrator server")
		if cacheDB != nil {
			if err := cacheDB.Close(); err != nil {
				slog.Warn("Failed to close extraction cache BadgerDB", slog.String("error", err.Error()))
			}
		}
		os.Exit(0)
	}()

	addr := ":" + cfg.Port
	slog.Info("Starting Lantern orchestrator server", slog.String("address", addr))
	if err := router.Run(addr); err != nil {
		slog.Error("Failed to start server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// buildHandlers wires the extractor, tool client, and pipeline from config.
// candidateStore may be nil; extraction then runs uncached.
func buildHandlers(cfg *orchestrator.Config, registry *schema.Registry, candidateStore extractor.CandidateStore) (*orchestrator.Handlers, error) {
	providerCfg, err := providers.ConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("provider config: %w", err)
	}
	chatClient, err := providers.NewChatClient(providerCfg)
	if err != nil {
		return nil, fmt.Errorf("chat client: %w", err)
	}

	exCfg := extractor.DefaultConfig()
	exCfg.Model = providerCfg.Model
	if cfg.ExtractorTimeoutSeconds > 0 {
		exCfg.Timeout = time.Duration(cfg.ExtractorTimeoutSeconds) * time.Second
	}
	if cfg.ExtractorHistoryTurns > 0 {
		exCfg.HistoryTurns = cfg.ExtractorHistoryTurns
	}
	var exOpts []extractor.Option
	if candidateStore != nil {
		exOpts = append(exOpts, extractor.WithCache(candidateStore))
	}
	ex, err := extractor.New(chatClient, registry, exCfg, exOpts...)
	if err != nil {
		return nil, fmt.Errorf("extractor: %w", err)
	}

	var tools toolclient.Client
	if cfg.MockTools {
		slog.Info("Tool API mocked, serving canned responses")
		tools = toolclient.NewMockClient()
	} else {
		toolCfg := toolclient.DefaultConfig()
		toolCfg.BaseURL = cfg.ToolAPIBaseURL
		httpTools, err := toolclient.New(registry, toolCfg)
		if err != nil {
			return nil, fmt.Errorf("tool client: %w", err)
		}
		tools = httpTools
	}

	pipeline, err := orchestrator.NewPipeline(ex, registry, tools, profile.Options{
		DowngradeSteps: cfg.HintDowngradeSteps,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return orchestrator.NewHandlers(pipeline, registry), nil
}

func printBanner(port string, mockTools bool) {
	toolStatus := "HTTP (set MOCK_TOOLS=true for canned responses)"
	if mockTools {
		toolStatus = "MOCKED (canned responses)"
	}

	banner := `
╔═══════════════════════════════════════════════════════════════════╗
║                  LANTERN TUTOR ORCHESTRATOR                       ║
╠═══════════════════════════════════════════════════════════════════╣
║                                                                   ║
║  Bridges the tutoring agent and the educational tool APIs.        ║
║  Tool backend: %-50s ║
║                                                                   ║
║  Quick Start:                                                     ║
║  ┌─────────────────────────────────────────────────────────────┐  ║
║  │ # Health check                                              │  ║
║  │ curl http://localhost:%s/v1/tutor/health               │  ║
║  │                                                             │  ║
║  │ # List the tool catalog                                     │  ║
║  │ curl http://localhost:%s/v1/tutor/tools | jq           │  ║
║  │                                                             │  ║
║  │ # Run the pipeline                                          │  ║
║  │ curl -X POST http://localhost:%s/v1/tutor/orchestrate \│  ║
║  │   -H "Content-Type: application/json" -d @request.json      │  ║
║  └─────────────────────────────────────────────────────────────┘  ║
║                                                                   ║
║  Endpoints:                                                       ║
║  ├── Pipeline: /orchestrate, /validate                            ║
║  ├── Catalog:  /tools                                             ║
║  └── Health:   /health, /ready                                    ║
║                                                                   ║
║  Press Ctrl+C to stop                                             ║
╚═══════════════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, toolStatus, port, port, port)
}
