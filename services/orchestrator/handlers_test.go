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
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/LanternEd/LanternFOSS/services/orchestrator/datatypes"
	"github.com/LanternEd/LanternFOSS/services/orchestrator/schema"
	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T, chat *mockChatClient, tools *stubToolClient) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	p := newTestPipeline(t, chat, tools)
	handlers := NewHandlers(p, schema.MustLoad())

	router := gin.New()
	v1 := router.Group("/v1")
	RegisterRoutes(v1, handlers)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func orchestrateBody() OrchestrateRequest {
	return OrchestrateRequest{
		ChatHistory:    testHistory(),
		StudentProfile: testStudent(),
	}
}

func TestHandleOrchestrateSuccess(t *testing.T) {
	chat := &mockChatClient{response: `{
		"tool_needed": "flashcard_generator",
		"confidence": 0.9,
		"parameters": {"topic": "photosynthesis", "subject": "biology", "count": 5, "difficulty": "medium"},
		"reasoning": "flashcards requested",
		"missing_parameters": []
	}`}
	tools := &stubToolClient{outcome: datatypes.ToolOutcome{
		Status:   datatypes.OutcomeSuccess,
		Attempts: 1,
		Payload:  map[string]any{"flashcards": []any{}},
	}}
	router := newTestRouter(t, chat, tools)

	w := postJSON(t, router, "/v1/tutor/orchestrate", orchestrateBody())

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var out datatypes.OrchestrationResult
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !out.Success {
		t.Errorf("success = false: %s", w.Body.String())
	}
	if out.ToolUsed != datatypes.ToolFlashcardGenerator {
		t.Errorf("tool_used = %q", out.ToolUsed)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header not set")
	}
}

func TestHandleOrchestrateEchoesRequestID(t *testing.T) {
	chat := &mockChatClient{response: `{"tool_needed": "none", "confidence": 1, "parameters": {}, "reasoning": "", "missing_parameters": []}`}
	router := newTestRouter(t, chat, &stubToolClient{})

	raw, _ := json.Marshal(orchestrateBody())
	req := httptest.NewRequest(http.MethodPost, "/v1/tutor/orchestrate", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "req-abc-123" {
		t.Errorf("X-Request-ID = %q, want req-abc-123", got)
	}
}

func TestHandleOrchestrateToolFailureStillOK(t *testing.T) {
	chat := &mockChatClient{response: `{
		"tool_needed": "note_maker",
		"confidence": 0.8,
		"parameters": {"topic": "algebra", "subject": "math"},
		"reasoning": "notes requested",
		"missing_parameters": []
	}`}
	tools := &stubToolClient{outcome: datatypes.ToolOutcome{
		Status:   datatypes.OutcomeTerminal,
		Cause:    datatypes.CauseServerError,
		Attempts: 3,
	}}
	router := newTestRouter(t, chat, tools)

	w := postJSON(t, router, "/v1/tutor/orchestrate", orchestrateBody())

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even on tool failure", w.Code)
	}
	var out datatypes.OrchestrationResult
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if out.Success {
		t.Error("success = true, want false")
	}
	if out.Message == "" {
		t.Error("message is empty, conversation cannot continue")
	}
}

func TestHandleOrchestrateRejectsBadBodies(t *testing.T) {
	router := newTestRouter(t, &mockChatClient{}, &stubToolClient{})

	tests := []struct {
		name string
		body any
	}{
		{"empty object", map[string]any{}},
		{"missing profile", map[string]any{
			"chat_history": []map[string]string{{"role": "user", "content": "hi"}},
		}},
		{"empty history", OrchestrateRequest{
			ChatHistory:    []datatypes.Message{},
			StudentProfile: testStudent(),
		}},
		{"bad role", map[string]any{
			"chat_history":    []map[string]string{{"role": "system", "content": "hi"}},
			"student_profile": testStudent(),
		}},
		{"history ends with assistant", OrchestrateRequest{
			ChatHistory: []datatypes.Message{
				{Role: "user", Content: "hi"},
				{Role: "assistant", Content: "hello!"},
			},
			StudentProfile: testStudent(),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, router, "/v1/tutor/orchestrate", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			var out ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
				t.Fatalf("unmarshal error body: %v", err)
			}
			if out.Code != "INVALID_REQUEST" {
				t.Errorf("code = %q, want INVALID_REQUEST", out.Code)
			}
		})
	}
}

func TestHandleValidate(t *testing.T) {
	router := newTestRouter(t, &mockChatClient{}, &stubToolClient{})

	t.Run("complete request", func(t *testing.T) {
		w := postJSON(t, router, "/v1/tutor/validate", ValidateRequest{
			Tool:           "Flashcard_Generator",
			Parameters:     map[string]any{"topic": "photosynthesis", "subject": "biology"},
			StudentProfile: testStudent(),
		})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		var out ValidateResponse
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if !out.Complete {
			t.Errorf("complete = false, questions = %v", out.Questions)
		}
		if out.Hints.Difficulty != "medium" {
			t.Errorf("hints.difficulty = %q, want medium", out.Hints.Difficulty)
		}
	})

	t.Run("incomplete request", func(t *testing.T) {
		w := postJSON(t, router, "/v1/tutor/validate", ValidateRequest{
			Tool:           "note_maker",
			Parameters:     map[string]any{},
			StudentProfile: testStudent(),
		})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var out ValidateResponse
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if out.Complete {
			t.Error("complete = true, want false")
		}
		if len(out.Questions) != 2 {
			t.Errorf("questions = %v, want one each for topic and subject", out.Questions)
		}
	})

	t.Run("unknown tool", func(t *testing.T) {
		w := postJSON(t, router, "/v1/tutor/validate", ValidateRequest{
			Tool:           "essay_grader",
			StudentProfile: testStudent(),
		})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
		var out ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if out.Code != "UNKNOWN_TOOL" {
			t.Errorf("code = %q, want UNKNOWN_TOOL", out.Code)
		}
	})
}

func TestHandleTools(t *testing.T) {
	router := newTestRouter(t, &mockChatClient{}, &stubToolClient{})

	req := httptest.NewRequest(http.MethodGet, "/v1/tutor/tools", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var out ToolsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out.Tools) != 3 {
		t.Fatalf("tools = %d, want 3", len(out.Tools))
	}
	if out.Tools[0].Name != datatypes.ToolNoteMaker {
		t.Errorf("first tool = %q, want %q", out.Tools[0].Name, datatypes.ToolNoteMaker)
	}
	for _, tool := range out.Tools {
		if len(tool.Parameters) == 0 {
			t.Errorf("tool %q has no parameters in catalog", tool.Name)
		}
	}
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t, &mockChatClient{}, &stubToolClient{})

	for _, path := range []string{"/v1/tutor/health", "/v1/tutor/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("%s: status = %d", path, w.Code)
		}
		var out HealthResponse
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s: unmarshal: %v", path, err)
		}
		if out.Service != "orchestrator" {
			t.Errorf("%s: service = %q", path, out.Service)
		}
	}
}
