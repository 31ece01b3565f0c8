// Copyright (C) 2025 Lantern Education (oss@lantern-ed.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/LanternEd/LanternFOSS/services/orchestrator/datatypes"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}

// OllamaChat is a ChatClient backed by a local Ollama server.
//
// Thread Safety: OllamaChat is safe for concurrent use.
type OllamaChat struct {
	httpClient *http.Client
	model      string
	baseURL    string
}

// NewOllamaChat creates an Ollama-backed ChatClient.
//
// Inputs:
//   - model: The model name. Must not be empty.
//   - baseURL: Ollama server URL; empty resolves via ResolveOllamaURL.
//   - timeout: Per-request timeout; zero means 120s (local models are slow
//     on first load).
//
// Outputs:
//   - *OllamaChat: The configured client.
func NewOllamaChat(model, baseURL string, timeout time.Duration) *OllamaChat {
	if baseURL == "" {
		baseURL = ResolveOllamaURL()
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaChat{
		httpClient: &http.Client{Timeout: timeout},
		model:      model,
		baseURL:    baseURL,
	}
}

// Chat implements ChatClient against the Ollama /api/chat endpoint.
func (o *OllamaChat) Chat(ctx context.Context, messages []datatypes.Message, opts ChatOptions) (string, error) {
	ctx, span := otel.Tracer(chatTracerName).Start(ctx, "providers.OllamaChat.Chat",
		trace.WithAttributes(
			attribute.String("provider", "ollama"),
			attribute.Int("message_count", len(messages)),
			attribute.Float64("temperature", opts.Temperature),
		),
	)
	defer span.End()

	apiMessages := make([]ollamaMessage, 0, len(messages))
	for _, msg := range messages {
		apiMessages = append(apiMessages, ollamaMessage{Role: msg.Role, Content: msg.Content})
	}

	model := opts.Model
	if model == "" {
		model = o.model
	}
	if model == "" {
		return "", fmt.Errorf("ollama: model must be specified in ChatOptions or at client construction")
	}

	reqPayload := ollamaRequest{
		Model:    model,
		Messages: apiMessages,
		Stream:   false,
	}
	options := &ollamaOptions{}
	if opts.Temperature >= 0 {
		options.Temperature = &opts.Temperature
	}
	if opts.MaxTokens > 0 {
		options.NumPredict = opts.MaxTokens
	}
	if options.Temperature != nil || options.NumPredict > 0 {
		reqPayload.Options = options
	}

	reqBodyBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("ollama: marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/api/chat", bytes.NewBuffer(reqBodyBytes))
	if err != nil {
		return "", fmt.Errorf("ollama: creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	resp, err := o.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("ollama: HTTP request failed: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordChatMetrics("ollama", time.Since(startTime), err)
		return "", err
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return "", fmt.Errorf("ollama: reading response body (status %d): %w", resp.StatusCode, readErr)
	}

	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("ollama: API returned status %d: %s", resp.StatusCode, string(bodyBytes))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordChatMetrics("ollama", time.Since(startTime), err)
		return "", err
	}

	var apiResp ollamaResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return "", fmt.Errorf("ollama: parsing response JSON: %w", err)
	}
	if apiResp.Error != "" {
		return "", fmt.Errorf("ollama: API error: %s", apiResp.Error)
	}

	recordChatMetrics("ollama", time.Since(startTime), nil)
	return apiResp.Message.Content, nil
}
