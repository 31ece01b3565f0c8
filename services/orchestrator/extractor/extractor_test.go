// Copyright (C) 2025 Lantern Education (oss@lantern-ed.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extractor

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/LanternEd/LanternFOSS/services/orchestrator/datatypes"
	"github.com/LanternEd/LanternFOSS/services/orchestrator/providers"
	"github.com/LanternEd/LanternFOSS/services/orchestrator/schema"
)

// mockChatClient returns a canned response and records the messages it saw.
type mockChatClient struct {
	response    string
	err         error
	gotMessages []datatypes.Message
}

func (m *mockChatClient) Chat(ctx context.Context, messages []datatypes.Message, opts providers.ChatOptions) (string, error) {
	m.gotMessages = messages
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func testStudent() datatypes.StudentProfile {
	return datatypes.StudentProfile{
		UserID:                "student_123",
		Name:                  "Priya",
		GradeLevel:            "7",
		LearningStyleSummary:  "Visual learner",
		EmotionalStateSummary: "Focused",
		MasteryLevelSummary:   "Level 6: Solid grasp of fundamentals",
	}
}

func newTestExtractor(t *testing.T, mock *mockChatClient) *Extractor {
	t.Helper()
	reg, err := schema.Load()
	if err != nil {
		t.Fatalf("schema.Load() error: %v", err)
	}
	ex, err := New(mock, reg, DefaultConfig())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return ex
}

func TestExtract(t *testing.T) {
	mock := &mockChatClient{
		response: `{"tool_needed":"flashcard_generator","confidence":0.92,"parameters":{"topic":"photosynthesis","subject":"biology","count":10},"reasoning":"student asked to be quizzed","missing_parameters":[]}`,
	}
	ex := newTestExtractor(t, mock)

	cand, err := ex.Extract(context.Background(), []datatypes.Message{
		{Role: "user", Content: "Quiz me on photosynthesis, 10 questions"},
	}, testStudent())
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if cand.Tool != datatypes.ToolFlashcardGenerator {
		t.Errorf("tool = %q", cand.Tool)
	}
	if cand.Confidence != 0.92 {
		t.Errorf("confidence = %v", cand.Confidence)
	}
	if cand.Params["topic"] != "photosynthesis" {
		t.Errorf("topic = %v", cand.Params["topic"])
	}
}

func TestExtractParsesResponses(t *testing.T) {
	cases := []struct {
		name     string
		response string
		wantTool string
		wantErr  bool
	}{
		{
			name:     "plain json",
			response: `{"tool_needed":"concept_explainer","confidence":0.8,"parameters":{}}`,
			wantTool: datatypes.ToolConceptExplainer,
		},
		{
			name:     "markdown fenced",
			response: "```json\n{\"tool_needed\":\"note_maker\",\"confidence\":0.7,\"parameters\":{}}\n```",
			wantTool: datatypes.ToolNoteMaker,
		},
		{
			name:     "json embedded in prose",
			response: `Sure! Here is the extraction: {"tool_needed":"none","confidence":0.9,"parameters":{}} Hope that helps.`,
			wantTool: datatypes.ToolNone,
		},
		{
			name:     "tool name case normalized",
			response: `{"tool_needed":"Concept_Explainer","confidence":0.8,"parameters":{}}`,
			wantTool: datatypes.ToolConceptExplainer,
		},
		{
			name:     "unknown tool rejected",
			response: `{"tool_needed":"essay_grader","confidence":0.8,"parameters":{}}`,
			wantErr:  true,
		},
		{
			name:     "no json at all",
			response: "I could not decide on a tool.",
			wantErr:  true,
		},
		{
			name:     "empty response",
			response: "",
			wantErr:  true,
		},
		{
			name:     "truncated json",
			response: `{"tool_needed":"note_maker","confidence":`,
			wantErr:  true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ex := newTestExtractor(t, &mockChatClient{response: tc.response})
			cand, err := ex.Extract(context.Background(), []datatypes.Message{
				{Role: "user", Content: "hello"},
			}, testStudent())
			if tc.wantErr {
				if err == nil {
					t.Errorf("expected error, got %+v", cand)
				}
				return
			}
			if err != nil {
				t.Fatalf("Extract() error: %v", err)
			}
			if cand.Tool != tc.wantTool {
				t.Errorf("tool = %q, want %q", cand.Tool, tc.wantTool)
			}
			if cand.Params == nil {
				t.Error("params map should never be nil on success")
			}
		})
	}
}

func TestExtractClampsConfidence(t *testing.T) {
	cases := []struct {
		name     string
		response string
		want     float64
	}{
		{"above one", `{"tool_needed":"none","confidence":3.5,"parameters":{}}`, 1},
		{"below zero", `{"tool_needed":"none","confidence":-0.2,"parameters":{}}`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ex := newTestExtractor(t, &mockChatClient{response: tc.response})
			cand, err := ex.Extract(context.Background(), []datatypes.Message{
				{Role: "user", Content: "hi"},
			}, testStudent())
			if err != nil {
				t.Fatalf("Extract() error: %v", err)
			}
			if cand.Confidence != tc.want {
				t.Errorf("confidence = %v, want %v", cand.Confidence, tc.want)
			}
		})
	}
}

func TestExtractChatFailure(t *testing.T) {
	ex := newTestExtractor(t, &mockChatClient{err: fmt.Errorf("connection refused")})
	_, err := ex.Extract(context.Background(), []datatypes.Message{
		{Role: "user", Content: "hi"},
	}, testStudent())
	if err == nil {
		t.Fatal("expected error when chat fails")
	}
}

func TestExtractDisabled(t *testing.T) {
	reg, err := schema.Load()
	if err != nil {
		t.Fatalf("schema.Load() error: %v", err)
	}
	cfg := DefaultConfig()
	cfg.Enabled = false
	ex, err := New(&mockChatClient{response: "{}"}, reg, cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if ex.IsEnabled() {
		t.Error("IsEnabled() = true, want false")
	}
	if _, err := ex.Extract(context.Background(), []datatypes.Message{{Role: "user", Content: "hi"}}, testStudent()); err == nil {
		t.Fatal("expected error when disabled")
	}
}

func TestExtractEmptyHistory(t *testing.T) {
	ex := newTestExtractor(t, &mockChatClient{response: "{}"})
	if _, err := ex.Extract(context.Background(), nil, testStudent()); err == nil {
		t.Fatal("expected error for empty history")
	}
}

func TestExtractPromptContents(t *testing.T) {
	mock := &mockChatClient{response: `{"tool_needed":"none","confidence":0.9,"parameters":{}}`}
	ex := newTestExtractor(t, mock)

	history := []datatypes.Message{
		{Role: "user", Content: "turn one"},
		{Role: "assistant", Content: "turn two"},
		{Role: "user", Content: "turn three"},
		{Role: "assistant", Content: "turn four"},
		{Role: "user", Content: "turn five"},
		{Role: "assistant", Content: "turn six"},
		{Role: "user", Content: "turn seven"},
	}
	if _, err := ex.Extract(context.Background(), history, testStudent()); err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	if len(mock.gotMessages) != 2 {
		t.Fatalf("got %d messages, want system + user", len(mock.gotMessages))
	}
	system, user := mock.gotMessages[0].Content, mock.gotMessages[1].Content

	// The catalog must reach the model.
	for _, tool := range []string{"note_maker", "flashcard_generator", "concept_explainer"} {
		if !strings.Contains(system, tool) {
			t.Errorf("system prompt missing tool %q", tool)
		}
	}

	// The profile and only the trailing five turns must reach the model.
	if !strings.Contains(user, "Priya") || !strings.Contains(user, "Visual learner") {
		t.Error("user prompt missing profile fields")
	}
	if strings.Contains(user, "turn one") || strings.Contains(user, "turn two") {
		t.Error("user prompt should drop turns beyond the history window")
	}
	for _, turn := range []string{"turn three", "turn five", "turn seven"} {
		if !strings.Contains(user, turn) {
			t.Errorf("user prompt missing %q", turn)
		}
	}
}

func TestNewValidation(t *testing.T) {
	reg, err := schema.Load()
	if err != nil {
		t.Fatalf("schema.Load() error: %v", err)
	}
	if _, err := New(nil, reg, DefaultConfig()); err == nil {
		t.Error("expected error for nil chat client")
	}
	if _, err := New(&mockChatClient{}, nil, DefaultConfig()); err == nil {
		t.Error("expected error for nil registry")
	}
}
