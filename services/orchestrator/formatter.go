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
	"strings"

	"github.com/LanternEd/LanternFOSS/services/orchestrator/datatypes"
	"github.com/LanternEd/LanternFOSS/services/orchestrator/profile"
)

// toolDisplayNames maps wire tool names to conversational phrases for
// student-facing messages.
var toolDisplayNames = map[string]string{
	datatypes.ToolNoteMaker:          "notes",
	datatypes.ToolFlashcardGenerator: "flashcards",
	datatypes.ToolConceptExplainer:   "explanation",
}

// FormatResult turns a pipeline run into the student-facing result.
//
// # Description
//
// Exactly one message shape exists per terminal state. Failure messages
// never expose transport detail (status codes, hosts, retry causes); the
// conversation must stay recoverable, so every failure reads as a gentle
// setback rather than an error report. The tone hint shifts the phrasing
// for students whose profile calls for a gentler register.
//
// # Inputs
//
//   - res: A finished pipeline run. res.State must be terminal.
//
// # Outputs
//
//   - datatypes.OrchestrationResult: The fully assembled result. Never
//     partially populated.
func FormatResult(res RunResult) datatypes.OrchestrationResult {
	switch res.State {
	case StateSucceeded:
		return datatypes.OrchestrationResult{
			Success:             true,
			ToolUsed:            res.Resolution.Request.Tool,
			ExtractedParameters: orEmpty(res.Resolution.Request.Params),
			ToolResponse:        orEmpty(res.Outcome.Payload),
			Message:             successMessage(res.Resolution.Request.Tool, res.Hints.Tone),
			Attempts:            res.Outcome.Attempts,
		}

	case StateClarifying:
		return datatypes.OrchestrationResult{
			Success:                false,
			ToolUsed:               res.Candidate.Tool,
			ExtractedParameters:    orEmpty(res.Resolution.Request.Params),
			ToolResponse:           map[string]any{},
			Message:                clarifyingMessage(res.Resolution.Questions, res.Hints.Tone),
			NeedsClarification:     true,
			ClarificationQuestions: res.Resolution.Questions,
		}

	case StateNoTool:
		return datatypes.OrchestrationResult{
			Success:             true,
			ToolUsed:            datatypes.ToolNone,
			ExtractedParameters: map[string]any{},
			ToolResponse:        map[string]any{},
			Message:             "No learning tool is needed for this message.",
		}

	case StateExtractionFailed:
		return datatypes.OrchestrationResult{
			Success:             false,
			ToolUsed:            datatypes.ToolNone,
			ExtractedParameters: map[string]any{},
			ToolResponse:        map[string]any{},
			Message:             "I had trouble working out what you need just now. Could you tell me again, in your own words?",
		}

	case StateFailed:
		return datatypes.OrchestrationResult{
			Success:             false,
			ToolUsed:            res.Resolution.Request.Tool,
			ExtractedParameters: orEmpty(res.Resolution.Request.Params),
			ToolResponse:        map[string]any{},
			Message:             failureMessage(res.Resolution.Request.Tool, res.Hints.Tone),
			Attempts:            res.Outcome.Attempts,
		}
	}

	// Non-terminal state handed to the formatter is a programming error,
	// but the student still gets a usable sentence.
	return datatypes.OrchestrationResult{
		Success:             false,
		ToolUsed:            datatypes.ToolNone,
		ExtractedParameters: map[string]any{},
		ToolResponse:        map[string]any{},
		Message:             "Something went wrong on my side. Let's try that again.",
	}
}

// orEmpty keeps the wire contract free of JSON nulls.
func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func successMessage(tool string, tone profile.Tone) string {
	display := toolDisplayNames[tool]
	if display == "" {
		display = "result"
	}
	switch tone {
	case profile.ToneGentle:
		return fmt.Sprintf("Here are your %s. Take your time with them, there's no rush.", display)
	case profile.ToneEncouraging:
		return fmt.Sprintf("Great, here are your %s. You're doing really well!", display)
	default:
		return fmt.Sprintf("Here are your %s.", display)
	}
}

func clarifyingMessage(questions []string, tone profile.Tone) string {
	joined := strings.Join(questions, " ")
	if tone == profile.ToneGentle {
		return "No problem, I just need a little more detail. " + joined
	}
	return "I need a bit more information first. " + joined
}

func failureMessage(tool string, tone profile.Tone) string {
	display := toolDisplayNames[tool]
	if display == "" {
		display = "that"
	}
	if tone == profile.ToneGentle {
		return fmt.Sprintf("I couldn't put your %s together just now, but that's okay. Let's keep talking and I'll try again in a moment.", display)
	}
	return fmt.Sprintf("I couldn't put your %s together just now. Let's keep going and I'll try again shortly.", display)
}
