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
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/LanternEd/LanternFOSS/services/orchestrator/datatypes"
	"github.com/LanternEd/LanternFOSS/services/orchestrator/profile"
	"github.com/LanternEd/LanternFOSS/services/orchestrator/schema"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Version is the service version reported by the health endpoints.
const Version = "0.3.0"

// Handlers holds the HTTP handlers for the orchestrator service.
type Handlers struct {
	pipeline *Pipeline
	registry *schema.Registry
}

// NewHandlers creates the handler set.
func NewHandlers(pipeline *Pipeline, registry *schema.Registry) *Handlers {
	return &Handlers{
		pipeline: pipeline,
		registry: registry,
	}
}

// getOrCreateRequestID returns the caller's X-Request-ID header, or a new
// UUID when the caller did not send one.
func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}

// HandleOrchestrate runs the full pipeline for one student message.
//
// # Description
//
// Binds an OrchestrateRequest, runs extraction, personalization,
// validation, and (when a complete request results) tool invocation, and
// returns the formatted OrchestrationResult. The response is 200 for every
// pipeline outcome, including tool failure and clarification; the
// conversation continues either way. Non-200 responses mean the request
// itself was unusable.
func (h *Handlers) HandleOrchestrate(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleOrchestrate")

	var req OrchestrateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("invalid request body", "error", err.Error())
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}
	if last := req.ChatHistory[len(req.ChatHistory)-1]; last.Role != "user" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "chat_history must end with a user message",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	logger.Info("orchestration requested",
		"student_id", req.StudentProfile.UserID,
		"history_len", len(req.ChatHistory),
	)

	res := h.pipeline.Run(c.Request.Context(), req.ChatHistory, req.StudentProfile)
	c.Header("X-Request-ID", requestID)
	c.JSON(http.StatusOK, FormatResult(res))
}

// HandleValidate resolves caller-supplied candidate parameters against the
// tool schemas without invoking the tool. Debug surface for extraction and
// personalization behavior.
func (h *Handlers) HandleValidate(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleValidate")

	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("invalid request body", "error", err.Error())
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}

	cand := datatypes.CandidateParameters{
		Tool:   strings.ToLower(strings.TrimSpace(req.Tool)),
		Params: req.Parameters,
	}
	resolution, hints, err := h.pipeline.Inspect(cand, req.StudentProfile)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "UNKNOWN_TOOL",
		})
		return
	}

	c.JSON(http.StatusOK, ValidateResponse{
		Complete:  resolution.Complete,
		Request:   resolution.Request,
		Questions: resolution.Questions,
		Hints:     hintsView(hints),
	})
}

// HandleTools returns the tool catalog.
func (h *Handlers) HandleTools(c *gin.Context) {
	catalog := h.registry.Catalog()
	tools := make([]ToolInfo, 0, len(catalog))
	for _, spec := range catalog {
		params := make([]ToolParamInfo, 0, len(spec.Parameters))
		for _, p := range spec.Parameters {
			params = append(params, ToolParamInfo{
				Name:     p.Name,
				Type:     string(p.Type),
				Required: p.Required,
				Enum:     p.Enum,
				Default:  p.Default,
			})
		}
		tools = append(tools, ToolInfo{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  params,
		})
	}
	c.JSON(http.StatusOK, ToolsResponse{Tools: tools})
}

// HandleHealth reports liveness.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: "orchestrator",
		Version: Version,
	})
}

// HandleReady reports readiness. The service is ready once its schemas are
// loaded and the pipeline is wired, both of which happen at startup, so
// this mirrors liveness today. Kept separate so deployment probes do not
// need to change when a real readiness dependency appears.
func (h *Handlers) HandleReady(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ready",
		Service: "orchestrator",
		Version: Version,
	})
}

func hintsView(h profile.Hints) HintsView {
	flags := make([]string, 0, len(h.Flags))
	for f, on := range h.Flags {
		if on {
			flags = append(flags, string(f))
		}
	}
	sort.Strings(flags)
	return HintsView{
		Difficulty: string(h.Difficulty),
		Depth:      string(h.Depth),
		Tone:       string(h.Tone),
		Flags:      flags,
	}
}
