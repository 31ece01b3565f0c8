// Copyright (C) 2025 Lantern Education (oss@lantern-ed.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package extractor turns a tutoring conversation into a tool selection and
// candidate parameters using a small LLM as a semantic parser.
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/LanternEd/LanternFOSS/services/orchestrator/datatypes"
	"github.com/LanternEd/LanternFOSS/services/orchestrator/providers"
	"github.com/LanternEd/LanternFOSS/services/orchestrator/schema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// =============================================================================
// Extractor - LLM-Based Parameter Extraction
// =============================================================================

// Extractor uses a fast LLM to infer which educational tool a conversation
// calls for and to extract that tool's parameters from the dialogue.
//
// # Description
//
// Keyword matching fails on tutoring dialogue ("I keep mixing up mitosis and
// meiosis" names no tool but clearly wants an explanation). The extractor
// sends the recent conversation, the student profile, and the tool catalog
// to a small model which acts as a semantic parser. Its output is a
// candidate only: the schema resolver validates and fills gaps afterwards.
//
// # Thread Safety
//
// Extractor is safe for concurrent use.
type Extractor struct {
	chatClient providers.ChatClient
	registry   *schema.Registry
	config     Config
	cache      CandidateStore
	logger     *slog.Logger
}

// Option configures optional Extractor behavior.
type Option func(*Extractor)

// WithCache persists extraction results in the given store so repeated
// messages skip the model. A nil store disables caching.
func WithCache(store CandidateStore) Option {
	return func(e *Extractor) {
		e.cache = store
	}
}

// Config configures the parameter extractor.
type Config struct {
	// Model is the model to use for extraction. Empty uses the chat
	// client's default.
	Model string `json:"model"`

	// Timeout is the maximum time for an extraction call.
	// Default: 10s
	Timeout time.Duration `json:"timeout"`

	// Temperature controls randomness. Lower = more deterministic.
	// Default: 0.1
	Temperature float64 `json:"temperature"`

	// MaxTokens limits the response length.
	// Default: 512
	MaxTokens int `json:"max_tokens"`

	// HistoryTurns is how many trailing conversation turns to include in
	// the prompt.
	// Default: 5
	HistoryTurns int `json:"history_turns"`

	// Enabled is the feature flag. When false, Extract returns an error
	// immediately.
	// Default: true
	Enabled bool `json:"enabled"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:      10 * time.Second,
		Temperature:  0.1,
		MaxTokens:    512,
		HistoryTurns: 5,
		Enabled:      true,
	}
}

// New creates an LLM-based parameter extractor.
//
// # Inputs
//
//   - chatClient: ChatClient for sending extraction queries. Must not be nil.
//   - registry: Tool schemas used to build the catalog section of the
//     prompt and to validate the returned tool name. Must not be nil.
//   - config: Extractor configuration.
//
// # Outputs
//
//   - *Extractor: Configured extractor.
//   - error: Non-nil if chatClient or registry is nil.
func New(chatClient providers.ChatClient, registry *schema.Registry, config Config, opts ...Option) (*Extractor, error) {
	if chatClient == nil {
		return nil, fmt.Errorf("extractor: chatClient must not be nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("extractor: registry must not be nil")
	}
	if config.HistoryTurns <= 0 {
		config.HistoryTurns = 5
	}
	e := &Extractor{
		chatClient: chatClient,
		registry:   registry,
		config:     config,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// IsEnabled returns true if the extractor feature flag is set.
func (e *Extractor) IsEnabled() bool {
	return e.config.Enabled
}

// Extract infers the needed tool and its parameters from the conversation.
//
// # Description
//
// Sends the student profile, the trailing conversation turns, and the tool
// catalog to the model and parses its JSON reply. The reply's tool name is
// validated against the registry (plus "none"); confidence is clamped into
// [0, 1]. A malformed reply is an error; the caller decides how to degrade.
//
// # Inputs
//
//   - ctx: Context for cancellation/timeout.
//   - history: The conversation, oldest first. The last message is the
//     student's current one.
//   - student: The student profile, included for inference context (a
//     "grade 5" student asking about "cells" implies subject "biology").
//
// # Outputs
//
//   - datatypes.CandidateParameters: The model's tool selection and raw
//     parameter values. Not yet validated against the schema.
//   - error: Non-nil on chat failure, timeout, or unparseable reply.
//
// # Thread Safety
//
// Safe for concurrent use.
func (e *Extractor) Extract(
	ctx context.Context,
	history []datatypes.Message,
	student datatypes.StudentProfile,
) (datatypes.CandidateParameters, error) {
	if !e.config.Enabled {
		return datatypes.CandidateParameters{}, fmt.Errorf("extractor: disabled")
	}
	if len(history) == 0 {
		return datatypes.CandidateParameters{}, fmt.Errorf("extractor: empty conversation history")
	}

	ctx, span := tracer.Start(ctx, "Extractor.Extract")
	defer span.End()

	span.SetAttributes(
		attribute.String("extractor.model", e.config.Model),
		attribute.Int("history_length", len(history)),
		attribute.String("student_id", student.UserID),
	)

	startTime := time.Now()

	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	turns := trailingTurns(history, e.config.HistoryTurns)
	conversationHash := computeConversationHash(turns, student, e.config.Model)
	if e.cache != nil {
		cached, err := e.cache.LoadCandidate(ctx, conversationHash)
		if err != nil {
			e.logger.Warn("candidate cache load failed, extracting fresh",
				slog.String("error", err.Error()),
			)
		} else if cached != nil {
			recordExtraction(e.config.Model, "cache_hit", time.Since(startTime))
			span.SetAttributes(
				attribute.Bool("extractor.cache_hit", true),
				attribute.String("extractor.tool", cached.Tool),
			)
			return *cached, nil
		}
	}

	messages := []datatypes.Message{
		{Role: "system", Content: e.buildSystemPrompt()},
		{Role: "user", Content: e.buildUserPrompt(turns, student)},
	}

	opts := providers.ChatOptions{
		Temperature: e.config.Temperature,
		MaxTokens:   e.config.MaxTokens,
		Model:       e.config.Model,
	}

	response, err := e.chatClient.Chat(ctx, messages, opts)
	if err != nil {
		duration := time.Since(startTime)
		if ctx.Err() == context.DeadlineExceeded {
			span.SetStatus(codes.Error, "timeout")
			recordExtraction(e.config.Model, "timeout", duration)
			return datatypes.CandidateParameters{}, fmt.Errorf("extractor: timed out: %w", err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat failed")
		recordExtraction(e.config.Model, "error", duration)
		return datatypes.CandidateParameters{}, fmt.Errorf("extractor: chat failed: %w", err)
	}

	cand, err := e.parseResponse(response)
	if err != nil {
		duration := time.Since(startTime)
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		recordExtraction(e.config.Model, "parse_error", duration)
		return datatypes.CandidateParameters{}, fmt.Errorf("extractor: parse failed: %w", err)
	}

	duration := time.Since(startTime)
	recordExtraction(e.config.Model, "success", duration)

	if e.cache != nil {
		if err := e.cache.SaveCandidate(ctx, conversationHash, cand); err != nil {
			e.logger.Warn("candidate cache save failed",
				slog.String("error", err.Error()),
			)
		}
	}

	span.SetAttributes(
		attribute.String("extractor.tool", cand.Tool),
		attribute.Float64("extractor.confidence", cand.Confidence),
		attribute.Int64("extractor.duration_ms", duration.Milliseconds()),
	)

	e.logger.Info("parameter extraction succeeded",
		slog.String("tool", cand.Tool),
		slog.Float64("confidence", cand.Confidence),
		slog.Duration("duration", duration),
	)

	return cand, nil
}

// buildSystemPrompt constructs the system prompt for tool selection and
// parameter extraction.
func (e *Extractor) buildSystemPrompt() string {
	var sb strings.Builder

	sb.WriteString(`You are a parameter extraction assistant for an AI tutoring system.

Given a tutoring conversation and a student profile, decide which educational
tool (if any) the student's latest message calls for, and extract the tool's
parameter values from the conversation.

Tool selection rules:
- "make notes", "summarize this", "write this down" -> note_maker
- "quiz me", "practice", "test me", "flashcards" -> flashcard_generator
- "explain", "I don't understand", "what is", "I keep mixing up" -> concept_explainer
- Greetings, thanks, chit-chat, or anything no tool serves -> "none"

Parameter extraction rules:
- Extract values ONLY from the conversation. Do not invent values.
- Infer subject from topic when obvious ("photosynthesis" -> "biology",
  "fractions" -> "math"). The student's grade level can disambiguate.
- Topics mentioned in EARLIER turns still count ("that topic" refers back).
- Omit any parameter the conversation does not determine, and list its name
  in "missing_parameters".
- Numbers like "a dozen cards" -> count 12, "a few" -> omit (ambiguous).

`)

	sb.WriteString("Available tools:\n")
	for _, tool := range e.registry.Catalog() {
		sb.WriteString(fmt.Sprintf("\nTool: %s\n", tool.Name))
		sb.WriteString(fmt.Sprintf("  %s\n", tool.Description))
		sb.WriteString("  Parameters:\n")
		for _, p := range tool.Parameters {
			required := "optional"
			if p.Required {
				required = "required"
			}
			constraint := ""
			if len(p.Enum) > 0 {
				constraint = fmt.Sprintf(", one of: %s", strings.Join(p.Enum, "|"))
			}
			if p.Min != nil && p.Max != nil {
				constraint = fmt.Sprintf(", range %d-%d", *p.Min, *p.Max)
			}
			sb.WriteString(fmt.Sprintf("    - %s (%s, %s%s)\n", p.Name, p.Type, required, constraint))
		}
	}

	sb.WriteString(`
Respond with ONLY a JSON object in this exact shape:
{
  "tool_needed": "<tool name or none>",
  "confidence": <0.0 to 1.0>,
  "parameters": { "<name>": <value>, ... },
  "reasoning": "<one sentence>",
  "missing_parameters": ["<name>", ...]
}
Do not include any explanation or markdown formatting.
`)

	return sb.String()
}

// trailingTurns returns the last n turns of the conversation.
func trailingTurns(history []datatypes.Message, n int) []datatypes.Message {
	if len(history) > n {
		return history[len(history)-n:]
	}
	return history
}

// buildUserPrompt renders the profile and the already-trimmed conversation
// turns.
func (e *Extractor) buildUserPrompt(turns []datatypes.Message, student datatypes.StudentProfile) string {
	var sb strings.Builder

	sb.WriteString("Student profile:\n")
	sb.WriteString(fmt.Sprintf("  Name: %s\n", student.Name))
	sb.WriteString(fmt.Sprintf("  Grade level: %s\n", student.GradeLevel))
	sb.WriteString(fmt.Sprintf("  Learning style: %s\n", student.LearningStyleSummary))
	sb.WriteString(fmt.Sprintf("  Emotional state: %s\n", student.EmotionalStateSummary))
	sb.WriteString(fmt.Sprintf("  Mastery: %s\n", student.MasteryLevelSummary))

	sb.WriteString("\nConversation (oldest first):\n")
	for _, msg := range turns {
		sb.WriteString(fmt.Sprintf("  [%s] %s\n", msg.Role, msg.Content))
	}
	sb.WriteString("\nExtract the tool and parameters for the latest student message.")

	return sb.String()
}

// parseResponse extracts the candidate parameters JSON from the model reply.
func (e *Extractor) parseResponse(response string) (datatypes.CandidateParameters, error) {
	response = strings.TrimSpace(response)
	if len(response) == 0 {
		return datatypes.CandidateParameters{}, fmt.Errorf("empty response from model")
	}

	// Clean up markdown code blocks
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	// Find JSON in response
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")
	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return datatypes.CandidateParameters{}, fmt.Errorf("no JSON object found in response: %s", truncate(response, 100))
	}
	jsonStr := response[startIdx : endIdx+1]

	var cand datatypes.CandidateParameters
	if err := json.Unmarshal([]byte(jsonStr), &cand); err != nil {
		return datatypes.CandidateParameters{}, fmt.Errorf("failed to parse JSON: %w, response: %s", err, truncate(jsonStr, 100))
	}

	cand.Tool = strings.ToLower(strings.TrimSpace(cand.Tool))
	if cand.Tool != datatypes.ToolNone {
		if _, ok := e.registry.Tool(cand.Tool); !ok {
			return datatypes.CandidateParameters{}, fmt.Errorf("model selected unknown tool %q", cand.Tool)
		}
	}
	if cand.Confidence < 0 {
		cand.Confidence = 0
	}
	if cand.Confidence > 1 {
		cand.Confidence = 1
	}
	if cand.Params == nil {
		cand.Params = map[string]any{}
	}

	return cand, nil
}

// truncate shortens a string for logs and error messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
