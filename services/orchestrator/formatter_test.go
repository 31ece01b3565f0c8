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
	"strings"
	"testing"

	"github.com/LanternEd/LanternFOSS/services/orchestrator/datatypes"
	"github.com/LanternEd/LanternFOSS/services/orchestrator/profile"
	"github.com/LanternEd/LanternFOSS/services/orchestrator/schema"
)

func succeededRun(tone profile.Tone) RunResult {
	return RunResult{
		State: StateSucceeded,
		Hints: profile.Hints{Tone: tone},
		Resolution: schema.Resolution{
			Complete: true,
			Request: datatypes.ResolvedRequest{
				Tool:   datatypes.ToolFlashcardGenerator,
				Params: map[string]any{"topic": "photosynthesis"},
			},
		},
		Outcome: datatypes.ToolOutcome{
			Status:   datatypes.OutcomeSuccess,
			Attempts: 2,
			Payload:  map[string]any{"flashcards": []any{}},
		},
	}
}

func TestFormatSuccess(t *testing.T) {
	out := FormatResult(succeededRun(profile.ToneStandard))

	if !out.Success {
		t.Error("success = false, want true")
	}
	if out.ToolUsed != datatypes.ToolFlashcardGenerator {
		t.Errorf("tool_used = %q", out.ToolUsed)
	}
	if out.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", out.Attempts)
	}
	if out.Message != "Here are your flashcards." {
		t.Errorf("message = %q", out.Message)
	}
	if out.NeedsClarification {
		t.Error("needs_clarification = true, want false")
	}
}

func TestFormatSuccessTone(t *testing.T) {
	gentle := FormatResult(succeededRun(profile.ToneGentle)).Message
	if !strings.Contains(gentle, "no rush") {
		t.Errorf("gentle message = %q, want softened phrasing", gentle)
	}
	encouraging := FormatResult(succeededRun(profile.ToneEncouraging)).Message
	if !strings.Contains(encouraging, "really well") {
		t.Errorf("encouraging message = %q, want encouragement", encouraging)
	}
}

func TestFormatClarifying(t *testing.T) {
	out := FormatResult(RunResult{
		State: StateClarifying,
		Hints: profile.Hints{Tone: profile.ToneStandard},
		Candidate: datatypes.CandidateParameters{
			Tool: datatypes.ToolNoteMaker,
		},
		Resolution: schema.Resolution{
			Complete:  false,
			Request:   datatypes.ResolvedRequest{Tool: datatypes.ToolNoteMaker, Params: map[string]any{}},
			Questions: []string{"What topic should the notes cover?"},
		},
	})

	if out.Success {
		t.Error("success = true, want false")
	}
	if !out.NeedsClarification {
		t.Error("needs_clarification = false, want true")
	}
	if len(out.ClarificationQuestions) != 1 {
		t.Fatalf("questions = %v", out.ClarificationQuestions)
	}
	if !strings.Contains(out.Message, out.ClarificationQuestions[0]) {
		t.Errorf("message %q does not carry the question", out.Message)
	}
}

func TestFormatFailureHidesTransportDetail(t *testing.T) {
	out := FormatResult(RunResult{
		State: StateFailed,
		Hints: profile.Hints{Tone: profile.ToneStandard},
		Resolution: schema.Resolution{
			Complete: true,
			Request: datatypes.ResolvedRequest{
				Tool:   datatypes.ToolNoteMaker,
				Params: map[string]any{"topic": "algebra"},
			},
		},
		Outcome: datatypes.ToolOutcome{
			Status:   datatypes.OutcomeTerminal,
			Cause:    datatypes.CauseServerError,
			Attempts: 3,
		},
	})

	if out.Success {
		t.Error("success = true, want false")
	}
	for _, leak := range []string{"500", "server", "HTTP", "retry", "error"} {
		if strings.Contains(strings.ToLower(out.Message), strings.ToLower(leak)) {
			t.Errorf("message %q leaks %q", out.Message, leak)
		}
	}
	if out.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", out.Attempts)
	}
}

func TestFormatNoToolAndExtractionFailed(t *testing.T) {
	noTool := FormatResult(RunResult{State: StateNoTool, Candidate: datatypes.CandidateParameters{Tool: datatypes.ToolNone}})
	if !noTool.Success {
		t.Error("no-tool success = false, want true")
	}
	if noTool.ToolUsed != datatypes.ToolNone {
		t.Errorf("no-tool tool_used = %q", noTool.ToolUsed)
	}

	failed := FormatResult(RunResult{State: StateExtractionFailed})
	if failed.Success {
		t.Error("extraction-failed success = true, want false")
	}
	if failed.Message == "" {
		t.Error("extraction-failed message is empty")
	}
}

func TestFormatNeverNilMaps(t *testing.T) {
	for _, state := range []State{StateNoTool, StateClarifying, StateExtractionFailed, StateFailed, StateSucceeded} {
		out := FormatResult(RunResult{State: state, Outcome: datatypes.ToolOutcome{Payload: map[string]any{}}})
		if out.ExtractedParameters == nil {
			t.Errorf("state %s: extracted_parameters is nil", state)
		}
		if out.ToolResponse == nil {
			t.Errorf("state %s: tool_response is nil", state)
		}
	}
}
