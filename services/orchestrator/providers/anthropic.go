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
	"strings"
	"time"

	"github.com/LanternEd/LanternFOSS/services/orchestrator/datatypes"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	anthropicAPIVersion    = "2023-06-01"
	anthropicDefaultURL    = "https://api.anthropic.com/v1/messages"
	anthropicDefaultTokens = 1024
)

type anthropicRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	System    string             `json:"system,omitempty"`
	MaxTokens int                `json:"max_tokens"`

	Temperature *float64 `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID      string             `json:"id"`
	Type    string             `json:"type"`
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
	Error   *anthropicError    `json:"error,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// AnthropicChat is a ChatClient backed by the Anthropic Messages API.
//
// Thread Safety: AnthropicChat is safe for concurrent use.
type AnthropicChat struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

// NewAnthropicChat creates an Anthropic-backed ChatClient.
//
// Inputs:
//   - apiKey: The Anthropic API key. Must not be empty.
//   - model: The model name. Must not be empty.
//   - baseURL: Endpoint override; empty uses the public API.
//   - timeout: Per-request timeout; zero means 60s.
//
// Outputs:
//   - *AnthropicChat: The configured client.
func NewAnthropicChat(apiKey, model, baseURL string, timeout time.Duration) *AnthropicChat {
	if baseURL == "" {
		baseURL = anthropicDefaultURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &AnthropicChat{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
	}
}

// Chat implements ChatClient against the Anthropic Messages API.
func (a *AnthropicChat) Chat(ctx context.Context, messages []datatypes.Message, opts ChatOptions) (string, error) {
	ctx, span := otel.Tracer(chatTracerName).Start(ctx, "providers.AnthropicChat.Chat",
		trace.WithAttributes(
			attribute.String("provider", "anthropic"),
			attribute.Int("message_count", len(messages)),
			attribute.Float64("temperature", opts.Temperature),
		),
	)
	defer span.End()

	var apiMessages []anthropicMessage
	var systemPrompt string
	for _, msg := range messages {
		if strings.ToLower(msg.Role) == "system" {
			systemPrompt = msg.Content
			continue
		}
		apiMessages = append(apiMessages, anthropicMessage{Role: msg.Role, Content: msg.Content})
	}

	model := a.model
	if opts.Model != "" {
		model = opts.Model
	}
	reqPayload := anthropicRequest{
		Model:     model,
		Messages:  apiMessages,
		System:    systemPrompt,
		MaxTokens: anthropicDefaultTokens,
	}
	if opts.Temperature >= 0 {
		reqPayload.Temperature = &opts.Temperature
	}
	if opts.MaxTokens > 0 {
		reqPayload.MaxTokens = opts.MaxTokens
	}

	reqBodyBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("anthropic: marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL, bytes.NewBuffer(reqBodyBytes))
	if err != nil {
		return "", fmt.Errorf("anthropic: creating HTTP request: %w", err)
	}
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)
	req.Header.Set("content-type", "application/json")

	startTime := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("anthropic: HTTP request failed: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordChatMetrics("anthropic", time.Since(startTime), err)
		return "", err
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return "", fmt.Errorf("anthropic: reading response body (status %d): %w", resp.StatusCode, readErr)
	}

	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("anthropic: API returned status %d: %s", resp.StatusCode, string(bodyBytes))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordChatMetrics("anthropic", time.Since(startTime), err)
		return "", err
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return "", fmt.Errorf("anthropic: parsing response JSON: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("anthropic: API error: %s - %s", apiResp.Error.Type, apiResp.Error.Message)
	}

	finalText := ""
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			finalText += block.Text
		}
	}
	if finalText == "" {
		return "", fmt.Errorf("anthropic: received content but no text block found")
	}

	recordChatMetrics("anthropic", time.Since(startTime), nil)
	return finalText, nil
}
