// Copyright (C) 2025 Lantern Education (oss@lantern-ed.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package toolclient

import (
	"context"
	"fmt"

	"github.com/LanternEd/LanternFOSS/services/orchestrator/datatypes"
)

// MockClient is an in-process Client that fabricates plausible tool replies.
// Used by the demo CLI and in tests so the full pipeline runs without a
// tool API server.
//
// Thread Safety: MockClient is safe for concurrent use.
type MockClient struct{}

// NewMockClient creates a MockClient.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Invoke implements Client with canned single-attempt successes.
func (m *MockClient) Invoke(_ context.Context, req datatypes.ResolvedRequest, student datatypes.StudentProfile, _ []datatypes.Message) datatypes.ToolOutcome {
	p := req.Params
	switch req.Tool {
	case datatypes.ToolNoteMaker:
		topic := paramString(p, "topic")
		return success(map[string]any{
			"topic":   topic,
			"title":   fmt.Sprintf("Notes: %s", topic),
			"summary": fmt.Sprintf("Structured notes on %s for %s.", topic, student.Name),
			"note_sections": []any{
				map[string]any{
					"title":      "Overview",
					"content":    fmt.Sprintf("An introduction to %s.", topic),
					"key_points": []any{"Definition", "Why it matters"},
					"examples":   []any{fmt.Sprintf("A worked example of %s", topic)},
					"analogies":  []any{},
				},
			},
			"key_concepts":                  []any{topic},
			"connections_to_prior_learning": []any{},
			"practice_suggestions":          []any{"Summarize each section in your own words."},
			"source_references":             []any{},
			"note_taking_style":             paramString(p, "note_taking_style"),
		})

	case datatypes.ToolFlashcardGenerator:
		topic := paramString(p, "topic")
		count := paramInt(p, "count")
		cards := make([]any, 0, count)
		for i := 1; i <= count; i++ {
			cards = append(cards, map[string]any{
				"title":    fmt.Sprintf("Card %d", i),
				"question": fmt.Sprintf("Question %d about %s?", i, topic),
				"answer":   fmt.Sprintf("Answer %d about %s.", i, topic),
				"example":  "",
			})
		}
		return success(map[string]any{
			"flashcards":         cards,
			"topic":              topic,
			"adaptation_details": fmt.Sprintf("Difficulty %s for %s.", paramString(p, "difficulty"), student.Name),
			"difficulty":         paramString(p, "difficulty"),
		})

	case datatypes.ToolConceptExplainer:
		concept := paramString(p, "concept_to_explain")
		return success(map[string]any{
			"explanation":        fmt.Sprintf("A %s explanation of %s.", paramString(p, "desired_depth"), concept),
			"examples":           []any{fmt.Sprintf("Everyday example of %s", concept)},
			"related_concepts":   []any{},
			"visual_aids":        []any{},
			"practice_questions": []any{fmt.Sprintf("Can you describe %s in your own words?", concept)},
			"source_references":  []any{},
		})

	default:
		return datatypes.ToolOutcome{
			Status:   datatypes.OutcomeTerminal,
			Cause:    datatypes.CauseClientError,
			Attempts: 1,
		}
	}
}

func success(payload map[string]any) datatypes.ToolOutcome {
	return datatypes.ToolOutcome{
		Status:   datatypes.OutcomeSuccess,
		Attempts: 1,
		Payload:  payload,
	}
}
