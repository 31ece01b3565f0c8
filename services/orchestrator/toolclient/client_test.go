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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LanternEd/LanternFOSS/services/orchestrator/datatypes"
	"github.com/LanternEd/LanternFOSS/services/orchestrator/schema"
)

func testStudent() datatypes.StudentProfile {
	return datatypes.StudentProfile{
		UserID:                "student_123",
		Name:                  "Priya",
		GradeLevel:            "7",
		LearningStyleSummary:  "Visual learner",
		EmotionalStateSummary: "Focused",
		MasteryLevelSummary:   "Level 6",
	}
}

func flashcardRequest() datatypes.ResolvedRequest {
	return datatypes.ResolvedRequest{
		Tool: datatypes.ToolFlashcardGenerator,
		Params: map[string]any{
			"topic":      "photosynthesis",
			"subject":    "biology",
			"count":      5,
			"difficulty": "medium",
		},
	}
}

// newTestClient builds a client against the given server with instant
// backoff, recording each backoff delay.
func newTestClient(t *testing.T, serverURL string, delays *[]time.Duration) *HTTPClient {
	t.Helper()
	reg, err := schema.Load()
	if err != nil {
		t.Fatalf("schema.Load() error: %v", err)
	}
	cfg := DefaultConfig()
	cfg.BaseURL = serverURL
	client, err := New(reg, cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	client.sleep = func(ctx context.Context, d time.Duration) error {
		if delays != nil {
			*delays = append(*delays, d)
		}
		return nil
	}
	return client
}

func TestInvokeSuccess(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		if r.URL.Path != "/api/flashcard-generator" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var payload datatypes.FlashcardRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decoding payload: %v", err)
		}
		if payload.UserInfo.UserID != "student_123" {
			t.Errorf("user_id = %q", payload.UserInfo.UserID)
		}
		if payload.Count != 5 {
			t.Errorf("count = %d", payload.Count)
		}
		json.NewEncoder(w).Encode(map[string]any{"flashcards": []any{}, "topic": "photosynthesis"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	outcome := client.Invoke(context.Background(), flashcardRequest(), testStudent(), nil)

	if outcome.Status != datatypes.OutcomeSuccess {
		t.Fatalf("status = %q, cause = %q", outcome.Status, outcome.Cause)
	}
	if outcome.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", outcome.Attempts)
	}
	if attempts.Load() != 1 {
		t.Errorf("server saw %d attempts, want 1", attempts.Load())
	}
	if outcome.Payload["topic"] != "photosynthesis" {
		t.Errorf("payload = %+v", outcome.Payload)
	}
}

// Two rate-limit responses then a success must recover, with 2s then 4s
// backoff between the attempts.
func TestInvokeRetriesThenRecovers(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"topic": "photosynthesis"})
	}))
	defer server.Close()

	var delays []time.Duration
	client := newTestClient(t, server.URL, &delays)
	outcome := client.Invoke(context.Background(), flashcardRequest(), testStudent(), nil)

	if outcome.Status != datatypes.OutcomeSuccess {
		t.Fatalf("status = %q, cause = %q", outcome.Status, outcome.Cause)
	}
	if outcome.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", outcome.Attempts)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestInvokeExhaustsRetries(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	outcome := client.Invoke(context.Background(), flashcardRequest(), testStudent(), nil)

	if outcome.Status != datatypes.OutcomeTerminal {
		t.Fatalf("status = %q", outcome.Status)
	}
	if outcome.Cause != datatypes.CauseServerError {
		t.Errorf("cause = %q, want server_error", outcome.Cause)
	}
	if outcome.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", outcome.Attempts)
	}
	if attempts.Load() != 3 {
		t.Errorf("server saw %d attempts, want exactly 3", attempts.Load())
	}
}

// A 400 means the payload itself is wrong; retrying cannot help.
func TestInvokeClientErrorIsTerminal(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	outcome := client.Invoke(context.Background(), flashcardRequest(), testStudent(), nil)

	if outcome.Status != datatypes.OutcomeTerminal {
		t.Fatalf("status = %q", outcome.Status)
	}
	if outcome.Cause != datatypes.CauseClientError {
		t.Errorf("cause = %q, want client_error", outcome.Cause)
	}
	if attempts.Load() != 1 {
		t.Errorf("server saw %d attempts, want 1 (no retry on 4xx)", attempts.Load())
	}
}

func TestInvokeMalformedSuccessBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not json"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	outcome := client.Invoke(context.Background(), flashcardRequest(), testStudent(), nil)

	if outcome.Status != datatypes.OutcomeTerminal {
		t.Fatalf("status = %q", outcome.Status)
	}
	if outcome.Cause != datatypes.CauseMalformedReply {
		t.Errorf("cause = %q, want malformed_reply", outcome.Cause)
	}
	if outcome.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", outcome.Attempts)
	}
}

// A 2xx body that is valid JSON but not the tool's reply shape must not be
// handed to the student as a success.
func TestInvokeWrongShapeSuccessBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"totally":"unrelated","flashcards":"not-a-list"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	outcome := client.Invoke(context.Background(), flashcardRequest(), testStudent(), nil)

	if outcome.Status != datatypes.OutcomeTerminal {
		t.Fatalf("status = %q", outcome.Status)
	}
	if outcome.Cause != datatypes.CauseMalformedReply {
		t.Errorf("cause = %q, want malformed_reply", outcome.Cause)
	}
	if outcome.Payload != nil {
		t.Errorf("payload = %v, want nil", outcome.Payload)
	}
	if outcome.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", outcome.Attempts)
	}
}

func TestInvokeConnectionErrorRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing listening

	client := newTestClient(t, server.URL, nil)
	outcome := client.Invoke(context.Background(), flashcardRequest(), testStudent(), nil)

	if outcome.Status != datatypes.OutcomeTerminal {
		t.Fatalf("status = %q", outcome.Status)
	}
	if outcome.Cause != datatypes.CauseConnection {
		t.Errorf("cause = %q, want connection_error", outcome.Cause)
	}
	if outcome.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", outcome.Attempts)
	}
}

// An invalid payload never reaches the wire.
func TestInvokeValidationFailure(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	req := flashcardRequest()
	req.Params["count"] = 50 // above the schema maximum

	outcome := client.Invoke(context.Background(), req, testStudent(), nil)
	if outcome.Status != datatypes.OutcomeTerminal {
		t.Fatalf("status = %q", outcome.Status)
	}
	if outcome.Cause != datatypes.CauseClientError {
		t.Errorf("cause = %q, want client_error", outcome.Cause)
	}
	if attempts.Load() != 0 {
		t.Errorf("server saw %d attempts, want 0", attempts.Load())
	}
}

func TestInvokeCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	reg, err := schema.Load()
	if err != nil {
		t.Fatalf("schema.Load() error: %v", err)
	}
	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	client, err := New(reg, cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	client.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	outcome := client.Invoke(ctx, flashcardRequest(), testStudent(), nil)
	if outcome.Status != datatypes.OutcomeTerminal {
		t.Fatalf("status = %q", outcome.Status)
	}
	if outcome.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", outcome.Attempts)
	}
}

func TestBackoffDelay(t *testing.T) {
	base := 2 * time.Second
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
	}
	for _, tc := range cases {
		if got := backoffDelay(base, tc.attempt); got != tc.want {
			t.Errorf("backoffDelay(%v, %d) = %v, want %v", base, tc.attempt, got, tc.want)
		}
	}
}

func TestMockClient(t *testing.T) {
	mock := NewMockClient()

	t.Run("flashcards", func(t *testing.T) {
		outcome := mock.Invoke(context.Background(), flashcardRequest(), testStudent(), nil)
		if outcome.Status != datatypes.OutcomeSuccess {
			t.Fatalf("status = %q", outcome.Status)
		}
		cards, ok := outcome.Payload["flashcards"].([]any)
		if !ok || len(cards) != 5 {
			t.Errorf("flashcards = %v", outcome.Payload["flashcards"])
		}
	})

	t.Run("concept explainer", func(t *testing.T) {
		outcome := mock.Invoke(context.Background(), datatypes.ResolvedRequest{
			Tool: datatypes.ToolConceptExplainer,
			Params: map[string]any{
				"concept_to_explain": "mitosis",
				"current_topic":      "cell division",
				"desired_depth":      "basic",
			},
		}, testStudent(), nil)
		if outcome.Status != datatypes.OutcomeSuccess {
			t.Fatalf("status = %q", outcome.Status)
		}
		if outcome.Payload["explanation"] == "" {
			t.Error("missing explanation")
		}
	})

	t.Run("unknown tool", func(t *testing.T) {
		outcome := mock.Invoke(context.Background(), datatypes.ResolvedRequest{Tool: "bogus"}, testStudent(), nil)
		if outcome.Status != datatypes.OutcomeTerminal {
			t.Errorf("status = %q", outcome.Status)
		}
	})
}
