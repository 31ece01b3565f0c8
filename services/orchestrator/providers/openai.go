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

const openaiDefaultURL = "https://api.openai.com/v1/chat/completions"

type openaiRequest struct {
	Model    string          `json:"model"`
	Messages []openaiMessage `json:"messages"`

	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_completion_tokens,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	ID      string         `json:"id"`
	Choices []openaiChoice `json:"choices"`
	Error   *openaiError   `json:"error,omitempty"`
}

type openaiChoice struct {
	Index        int           `json:"index"`
	Message      openaiMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openaiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// OpenAIChat is a ChatClient backed by the OpenAI Chat Completions API.
//
// Thread Safety: OpenAIChat is safe for concurrent use.
type OpenAIChat struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

// NewOpenAIChat creates an OpenAI-backed ChatClient.
//
// Inputs:
//   - apiKey: The OpenAI API key. Must not be empty.
//   - model: The model name. Must not be empty.
//   - baseURL: Endpoint override; empty uses the public API.
//   - timeout: Per-request timeout; zero means 60s.
//
// Outputs:
//   - *OpenAIChat: The configured client.
func NewOpenAIChat(apiKey, model, baseURL string, timeout time.Duration) *OpenAIChat {
	if baseURL == "" {
		baseURL = openaiDefaultURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIChat{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
	}
}

// Chat implements ChatClient against the OpenAI Chat Completions API.
func (o *OpenAIChat) Chat(ctx context.Context, messages []datatypes.Message, opts ChatOptions) (string, error) {
	ctx, span := otel.Tracer(chatTracerName).Start(ctx, "providers.OpenAIChat.Chat",
		trace.WithAttributes(
			attribute.String("provider", "openai"),
			attribute.Int("message_count", len(messages)),
			attribute.Float64("temperature", opts.Temperature),
		),
	)
	defer span.End()

	apiMessages := make([]openaiMessage, 0, len(messages))
	for _, msg := range messages {
		apiMessages = append(apiMessages, openaiMessage{Role: msg.Role, Content: msg.Content})
	}

	model := o.model
	if opts.Model != "" {
		model = opts.Model
	}
	reqPayload := openaiRequest{
		Model:    model,
		Messages: apiMessages,
	}
	if opts.Temperature >= 0 {
		reqPayload.Temperature = &opts.Temperature
	}
	if opts.MaxTokens > 0 {
		reqPayload.MaxTokens = opts.MaxTokens
	}

	reqBodyBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("openai: marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL, bytes.NewBuffer(reqBodyBytes))
	if err != nil {
		return "", fmt.Errorf("openai: creating HTTP request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	resp, err := o.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("openai: HTTP request failed: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordChatMetrics("openai", time.Since(startTime), err)
		return "", err
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return "", fmt.Errorf("openai: reading response body (status %d): %w", resp.StatusCode, readErr)
	}

	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("openai: API returned status %d: %s", resp.StatusCode, string(bodyBytes))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordChatMetrics("openai", time.Since(startTime), err)
		return "", err
	}

	var apiResp openaiResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return "", fmt.Errorf("openai: parsing response JSON: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("openai: API error: %s - %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("openai: received empty choices")
	}

	recordChatMetrics("openai", time.Since(startTime), nil)
	return apiResp.Choices[0].Message.Content, nil
}
