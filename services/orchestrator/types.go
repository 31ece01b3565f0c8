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
	"github.com/LanternEd/LanternFOSS/services/orchestrator/datatypes"
)

// =============================================================================
// HTTP Request / Response Types
// =============================================================================

// OrchestrateRequest is the body of POST /v1/tutor/orchestrate.
//
// ChatHistory must end with the student's current message; the extractor
// reads intent from the tail of the conversation, not from a separate
// message field.
type OrchestrateRequest struct {
	ChatHistory    []datatypes.Message      `json:"chat_history" binding:"required,min=1,dive"`
	StudentProfile datatypes.StudentProfile `json:"student_profile" binding:"required"`
}

// ValidateRequest is the body of POST /v1/tutor/validate. It skips
// extraction: the caller supplies candidate parameters directly and gets
// back the resolved request, so extraction and validation can be debugged
// independently.
type ValidateRequest struct {
	Tool           string                   `json:"tool" binding:"required"`
	Parameters     map[string]any           `json:"parameters"`
	StudentProfile datatypes.StudentProfile `json:"student_profile" binding:"required"`
}

// ValidateResponse is the body returned by POST /v1/tutor/validate.
type ValidateResponse struct {
	Complete bool `json:"complete"`

	// Request is the resolved request that would be sent to the tool.
	Request datatypes.ResolvedRequest `json:"request"`

	// Questions lists one clarification question per unresolvable
	// required parameter. Empty when Complete is true.
	Questions []string `json:"questions,omitempty"`

	// Hints echoes the personalization hints derived from the profile.
	Hints HintsView `json:"hints"`
}

// HintsView is the wire form of the profile hints.
type HintsView struct {
	Difficulty string   `json:"difficulty"`
	Depth      string   `json:"depth"`
	Tone       string   `json:"tone"`
	Flags      []string `json:"flags,omitempty"`
}

// ToolInfo describes one tool in the /tools catalog.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParamInfo `json:"parameters"`
}

// ToolParamInfo describes one parameter of a cataloged tool.
type ToolParamInfo struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Enum     []string `json:"enum,omitempty"`
	Default  any      `json:"default,omitempty"`
}

// ToolsResponse is the body returned by GET /v1/tutor/tools.
type ToolsResponse struct {
	Tools []ToolInfo `json:"tools"`
}

// HealthResponse is the body returned by the health endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// ErrorResponse is the uniform error body for every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
