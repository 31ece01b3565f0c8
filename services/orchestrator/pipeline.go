// Copyright (C) 2025 Lantern Education (oss@lantern-ed.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package orchestrator wires extraction, personalization, validation, and
// tool invocation into a single request pipeline and exposes it over HTTP.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/LanternEd/LanternFOSS/services/orchestrator/datatypes"
	"github.com/LanternEd/LanternFOSS/services/orchestrator/extractor"
	"github.com/LanternEd/LanternFOSS/services/orchestrator/profile"
	"github.com/LanternEd/LanternFOSS/services/orchestrator/schema"
	"github.com/LanternEd/LanternFOSS/services/orchestrator/toolclient"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// =============================================================================
// Pipeline State Machine
// =============================================================================

// State names a pipeline stage. Every run walks a path from StateStart to
// one of the terminal states; the walk is recorded on the run result so
// callers and tests can assert the exact route taken.
type State string

const (
	StateStart     State = "start"
	StateExtracted State = "extracted"
	StateValidated State = "validated"
	StateExecuting State = "executing"

	// Terminal states.
	StateNoTool           State = "no_tool"
	StateClarifying       State = "clarifying"
	StateExtractionFailed State = "extraction_failed"
	StateSucceeded        State = "succeeded"
	StateFailed           State = "failed"
)

// Terminal reports whether the state ends a pipeline run.
func (s State) Terminal() bool {
	switch s {
	case StateNoTool, StateClarifying, StateExtractionFailed, StateSucceeded, StateFailed:
		return true
	}
	return false
}

// RunResult carries everything a pipeline run produced, keyed by the
// terminal state. The formatter turns this into the student-facing result.
type RunResult struct {
	// State is the terminal state the run ended in.
	State State

	// Path is the ordered list of states visited, starting with StateStart.
	Path []State

	// Candidate is the extractor's output. Zero when extraction failed.
	Candidate datatypes.CandidateParameters

	// Hints are the personalization hints derived from the profile.
	// Always populated (interpretation is total).
	Hints profile.Hints

	// Resolution is the schema resolver's output. Zero until StateValidated.
	Resolution schema.Resolution

	// Outcome is the tool client's outcome. Zero unless a tool ran.
	Outcome datatypes.ToolOutcome
}

// Pipeline runs one orchestration request through extraction,
// personalization, validation, and tool invocation.
//
// # Description
//
// The pipeline is a conditional state machine, not a fixed sequence:
// extraction failure, a "none" tool selection, and unresolvable parameters
// each short-circuit to their own terminal state. Only fully validated
// requests reach the tool client.
//
// # Thread Safety
//
// Pipeline is safe for concurrent use after construction.
type Pipeline struct {
	extractor   *extractor.Extractor
	registry    *schema.Registry
	tools       toolclient.Client
	profileOpts profile.Options
	logger      *slog.Logger
}

// NewPipeline creates a Pipeline.
//
// Inputs:
//   - ex: The parameter extractor. Must not be nil.
//   - registry: Tool schemas. Must not be nil.
//   - tools: Tool client (HTTP or mock). Must not be nil.
//   - profileOpts: Personalization options.
//
// Outputs:
//   - *Pipeline: The configured pipeline.
//   - error: Non-nil if a dependency is nil.
func NewPipeline(ex *extractor.Extractor, registry *schema.Registry, tools toolclient.Client, profileOpts profile.Options) (*Pipeline, error) {
	if ex == nil {
		return nil, fmt.Errorf("orchestrator: extractor must not be nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("orchestrator: registry must not be nil")
	}
	if tools == nil {
		return nil, fmt.Errorf("orchestrator: tool client must not be nil")
	}
	return &Pipeline{
		extractor:   ex,
		registry:    registry,
		tools:       tools,
		profileOpts: profileOpts,
		logger:      slog.Default(),
	}, nil
}

// Run executes the pipeline for one student message.
//
// # Description
//
// Walks the state machine:
//
//	start -> extracted -> validated -> executing -> succeeded | failed
//	      \-> extraction_failed
//	              \-> no_tool (extractor chose "none")
//	                      \-> clarifying (required parameters unresolvable)
//
// Hints are derived before validation so the resolver can backfill missing
// parameters; they are derived even on the short-circuit paths because the
// formatter uses the tone hint for its phrasing.
//
// # Inputs
//
//   - ctx: Context for cancellation. Bounds the extractor call and every
//     tool attempt.
//   - history: The conversation, oldest first, ending with the student's
//     current message.
//   - student: The student profile.
//
// # Outputs
//
//   - RunResult: The terminal state and everything produced on the way.
//
// # Thread Safety
//
// Safe for concurrent use.
func (p *Pipeline) Run(ctx context.Context, history []datatypes.Message, student datatypes.StudentProfile) RunResult {
	ctx, span := tracer.Start(ctx, "Pipeline.Run")
	defer span.End()
	span.SetAttributes(attribute.String("student_id", student.UserID))

	startTime := time.Now()
	res := RunResult{
		State: StateStart,
		Path:  []State{StateStart},
		Hints: profile.InterpretWithOptions(student, p.profileOpts),
	}

	cand, err := p.extractor.Extract(ctx, history, student)
	if err != nil {
		p.logger.Warn("extraction failed, conversation continues without a tool",
			slog.String("student_id", student.UserID),
			slog.String("error", err.Error()),
		)
		span.SetStatus(codes.Error, "extraction failed")
		return p.finish(res, StateExtractionFailed, startTime, span)
	}
	res.Candidate = cand
	res = p.advance(res, StateExtracted)

	// The extractor's judgement that no tool is needed overrides any
	// stray parameters it produced.
	if cand.Tool == datatypes.ToolNone {
		return p.finish(res, StateNoTool, startTime, span)
	}

	resolution, err := p.registry.Resolve(cand, res.Hints)
	if err != nil {
		// Unreachable in practice: the extractor validates tool names
		// against the same registry.
		p.logger.Error("resolution failed", slog.String("error", err.Error()))
		span.RecordError(err)
		return p.finish(res, StateExtractionFailed, startTime, span)
	}
	res.Resolution = resolution
	res = p.advance(res, StateValidated)

	if !resolution.Complete {
		return p.finish(res, StateClarifying, startTime, span)
	}
	res = p.advance(res, StateExecuting)

	res.Outcome = p.tools.Invoke(ctx, resolution.Request, student, history)
	span.SetAttributes(
		attribute.String("tool", resolution.Request.Tool),
		attribute.Int("tool_attempts", res.Outcome.Attempts),
	)
	if res.Outcome.Status != datatypes.OutcomeSuccess {
		span.SetStatus(codes.Error, string(res.Outcome.Cause))
		return p.finish(res, StateFailed, startTime, span)
	}
	return p.finish(res, StateSucceeded, startTime, span)
}

// Inspect runs extraction and validation without invoking the tool.
// Backs the /validate endpoint for debugging extraction behavior.
func (p *Pipeline) Inspect(cand datatypes.CandidateParameters, student datatypes.StudentProfile) (schema.Resolution, profile.Hints, error) {
	hints := profile.InterpretWithOptions(student, p.profileOpts)
	resolution, err := p.registry.Resolve(cand, hints)
	if err != nil {
		return schema.Resolution{}, hints, err
	}
	return resolution, hints, nil
}

func (p *Pipeline) advance(res RunResult, next State) RunResult {
	recordTransition(string(res.State), string(next))
	res.State = next
	res.Path = append(res.Path, next)
	return res
}

func (p *Pipeline) finish(res RunResult, terminal State, startTime time.Time, span trace.Span) RunResult {
	res = p.advance(res, terminal)
	duration := time.Since(startTime)
	recordRun(string(terminal), duration)
	span.SetAttributes(attribute.String("terminal_state", string(terminal)))

	p.logger.Info("pipeline run finished",
		slog.String("terminal_state", string(terminal)),
		slog.String("tool", res.Candidate.Tool),
		slog.Duration("duration", duration),
	)
	return res
}
