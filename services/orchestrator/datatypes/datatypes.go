// Copyright (C) 2025 Lantern Education (oss@lantern-ed.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes holds the shared data model for the Lantern tutor
// orchestrator: student profiles, conversation messages, extracted
// parameters, resolved tool requests, tool outcomes, and the final
// orchestration result. All types are scoped to a single orchestration
// request and are never mutated after construction.
package datatypes

// Tool identifiers. The set is closed; "none" means no tool is needed.
const (
	ToolNoteMaker          = "note_maker"
	ToolFlashcardGenerator = "flashcard_generator"
	ToolConceptExplainer   = "concept_explainer"
	ToolNone               = "none"
)

// Message is a single turn of conversation history.
type Message struct {
	// Role is "user" or "assistant".
	Role string `json:"role" binding:"required,oneof=user assistant"`

	// Content is the message text.
	Content string `json:"content" binding:"required"`
}

// StudentProfile describes the student on whose behalf a request runs.
//
// Description:
//
//	The three summary fields are free text produced upstream; the mastery
//	summary is expected to encode a 1-10 scale (e.g. "Level 5 - Developing
//	competence") but the pipeline degrades gracefully when it does not.
//
// Thread Safety: Immutable input; safe to share across goroutines.
type StudentProfile struct {
	UserID                string `json:"user_id" binding:"required"`
	Name                  string `json:"name" binding:"required"`
	GradeLevel            string `json:"grade_level" binding:"required"`
	LearningStyleSummary  string `json:"learning_style_summary" binding:"required"`
	EmotionalStateSummary string `json:"emotional_state_summary" binding:"required"`
	MasteryLevelSummary   string `json:"mastery_level_summary" binding:"required"`
}

// CandidateParameters is the parameter extractor's structured reading of a
// student message.
//
// Description:
//
//	Produced exactly once per orchestration request and never mutated.
//	Confidence and Reasoning pass through to the final result for
//	observability only; they never gate the pipeline.
type CandidateParameters struct {
	// Tool is one of the Tool* constants, or ToolNone.
	Tool string `json:"tool_needed"`

	// Confidence is the extractor's self-reported confidence in [0, 1].
	Confidence float64 `json:"confidence"`

	// Params maps parameter name to extracted value. Absent names mean
	// the extractor found no value in the conversation.
	Params map[string]any `json:"parameters"`

	// Reasoning is the extractor's free-text justification.
	Reasoning string `json:"reasoning"`

	// Missing lists parameter names the extractor itself flagged as
	// unresolvable from the conversation.
	Missing []string `json:"missing_parameters"`
}

// ResolvedRequest is a tool invocation whose parameters have passed
// validation and default-filling.
//
// Description:
//
//	Constructed only by the schema resolver; by construction every required
//	parameter is present and every value satisfies its schema constraint.
type ResolvedRequest struct {
	Tool   string         `json:"tool"`
	Params map[string]any `json:"parameters"`
}

// OutcomeStatus tags a ToolOutcome.
type OutcomeStatus string

const (
	// OutcomeSuccess means the tool replied with a parseable 2xx body.
	OutcomeSuccess OutcomeStatus = "success"

	// OutcomeRetryable means the attempt failed for a transient cause
	// (rate limit, server error, timeout, connection failure).
	OutcomeRetryable OutcomeStatus = "retryable_failure"

	// OutcomeTerminal means the call cannot succeed by retrying.
	OutcomeTerminal OutcomeStatus = "terminal_failure"
)

// FailureCause classifies why a tool call failed.
type FailureCause string

const (
	CauseRateLimited    FailureCause = "rate_limited"
	CauseServerError    FailureCause = "server_error"
	CauseTimeout        FailureCause = "timeout"
	CauseConnection     FailureCause = "connection_error"
	CauseClientError    FailureCause = "client_error"
	CauseMalformedReply FailureCause = "malformed_reply"
)

// ToolOutcome is the classified result of one tool invocation, including
// retries.
//
// Description:
//
//	Status is OutcomeSuccess or OutcomeTerminal when returned by the tool
//	client's Invoke; OutcomeRetryable only appears for intermediate attempt
//	classifications. Attempts counts every HTTP attempt issued, so callers
//	can verify the bounded-retry contract.
type ToolOutcome struct {
	Status OutcomeStatus `json:"status"`

	// Cause is empty on success. On terminal failure it carries the last
	// classified cause (e.g. rate_limited when retries exhausted on 429).
	Cause FailureCause `json:"cause,omitempty"`

	// Attempts is the number of HTTP attempts issued (1-3).
	Attempts int `json:"attempts"`

	// Payload is the tool's structured reply on success, nil otherwise.
	Payload map[string]any `json:"payload,omitempty"`
}

// OrchestrationResult is the externally visible result of one orchestration
// run. It is assembled once by the response formatter and never partially
// emitted.
type OrchestrationResult struct {
	Success bool `json:"success"`

	// ToolUsed is the tool that was executed, or ToolNone.
	ToolUsed string `json:"tool_used"`

	// ExtractedParameters echoes the resolved (or candidate) parameters
	// for transparency.
	ExtractedParameters map[string]any `json:"extracted_parameters"`

	// ToolResponse is the tool's payload on success, empty otherwise.
	ToolResponse map[string]any `json:"tool_response"`

	// Message is the student-facing sentence for this outcome.
	Message string `json:"message"`

	NeedsClarification     bool     `json:"needs_clarification"`
	ClarificationQuestions []string `json:"clarification_questions,omitempty"`

	// Attempts surfaces the tool client's attempt count when a tool ran.
	Attempts int `json:"attempts,omitempty"`
}
