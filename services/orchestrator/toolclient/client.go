// Copyright (C) 2025 Lantern Education (oss@lantern-ed.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package toolclient invokes the educational tool APIs over HTTP with
// bounded retries and failure classification.
package toolclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/LanternEd/LanternFOSS/services/orchestrator/datatypes"
	"github.com/LanternEd/LanternFOSS/services/orchestrator/schema"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Client invokes one educational tool and reports a classified outcome.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Client interface {
	// Invoke executes the resolved tool request.
	//
	// Inputs:
	//   - ctx: Context for cancellation. Cancellation stops further retries.
	//   - req: The validated tool request from the schema resolver.
	//   - student: The student profile, embedded in the wire payload.
	//   - history: Conversation history, embedded where the tool accepts it.
	//
	// Outputs:
	//   - datatypes.ToolOutcome: Success or terminal failure, never
	//     retryable_failure (retries happen inside Invoke).
	Invoke(ctx context.Context, req datatypes.ResolvedRequest, student datatypes.StudentProfile, history []datatypes.Message) datatypes.ToolOutcome
}

// Config configures the HTTP tool client.
type Config struct {
	// BaseURL is the tool API server, e.g. "http://localhost:9100".
	// Endpoint paths come from the schema registry.
	BaseURL string

	// MaxAttempts bounds total HTTP attempts per invocation.
	// Default: 3
	MaxAttempts int

	// BackoffBase is the first retry delay; each further retry doubles it
	// (2s, 4s, ... by default).
	// Default: 2s
	BackoffBase time.Duration

	// Timeout bounds each individual HTTP attempt.
	// Default: 30s
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:     "http://localhost:9100",
		MaxAttempts: 3,
		BackoffBase: 2 * time.Second,
		Timeout:     30 * time.Second,
	}
}

// ConfigFromEnv reads TOOL_API_BASE_URL over the defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if url := os.Getenv("TOOL_API_BASE_URL"); url != "" {
		cfg.BaseURL = url
	}
	return cfg
}

// HTTPClient is the production Client. It validates the wire payload,
// POSTs it to the tool endpoint, and retries transient failures with
// exponential backoff.
//
// Thread Safety: HTTPClient is safe for concurrent use.
type HTTPClient struct {
	httpClient *http.Client
	registry   *schema.Registry
	config     Config
	validate   *validator.Validate
	logger     *slog.Logger

	// sleep is swapped in tests to avoid real backoff delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an HTTP tool client.
//
// Inputs:
//   - registry: Tool schemas, used for endpoint paths. Must not be nil.
//   - cfg: Client configuration; zero fields take defaults.
//
// Outputs:
//   - *HTTPClient: The configured client.
//   - error: Non-nil if registry is nil or BaseURL is empty.
func New(registry *schema.Registry, cfg Config) (*HTTPClient, error) {
	if registry == nil {
		return nil, fmt.Errorf("toolclient: registry must not be nil")
	}
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("toolclient: BaseURL must not be empty")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = def.BackoffBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &HTTPClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		registry:   registry,
		config:     cfg,
		validate:   validator.New(),
		logger:     slog.Default(),
		sleep:      sleepCtx,
	}, nil
}

// attemptResult is the classification of one HTTP attempt.
type attemptResult struct {
	status  datatypes.OutcomeStatus
	cause   datatypes.FailureCause
	payload map[string]any
	err     error
}

// Invoke implements Client.
//
// Description:
//
//	Builds and validates the typed wire payload, then issues up to
//	MaxAttempts POSTs. Transient failures (429, 5xx, timeout, connection
//	errors) back off exponentially between attempts; terminal failures
//	(other 4xx, success bodies that do not parse as the tool's typed
//	reply) return immediately. When
//	attempts run out the outcome is terminal and carries the last
//	transient cause.
//
// Thread Safety: Safe for concurrent use.
func (c *HTTPClient) Invoke(ctx context.Context, req datatypes.ResolvedRequest, student datatypes.StudentProfile, history []datatypes.Message) datatypes.ToolOutcome {
	ctx, span := tracer.Start(ctx, "HTTPClient.Invoke")
	defer span.End()
	span.SetAttributes(
		attribute.String("tool", req.Tool),
		attribute.String("student_id", student.UserID),
	)

	startTime := time.Now()

	spec, ok := c.registry.Tool(req.Tool)
	if !ok {
		span.SetStatus(codes.Error, "unknown tool")
		recordInvocation(req.Tool, "terminal_failure", time.Since(startTime))
		return datatypes.ToolOutcome{Status: datatypes.OutcomeTerminal, Cause: datatypes.CauseClientError}
	}

	payload, err := buildPayload(req, student, history)
	if err == nil {
		err = c.validate.Struct(payload)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "payload validation failed")
		c.logger.Error("tool payload failed validation",
			slog.String("tool", req.Tool),
			slog.String("error", err.Error()),
		)
		recordInvocation(req.Tool, "terminal_failure", time.Since(startTime))
		return datatypes.ToolOutcome{Status: datatypes.OutcomeTerminal, Cause: datatypes.CauseClientError}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		recordInvocation(req.Tool, "terminal_failure", time.Since(startTime))
		return datatypes.ToolOutcome{Status: datatypes.OutcomeTerminal, Cause: datatypes.CauseClientError}
	}

	url := c.config.BaseURL + spec.EndpointPath
	var last attemptResult

	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		last = c.attempt(ctx, req.Tool, url, body)

		switch last.status {
		case datatypes.OutcomeSuccess:
			span.SetAttributes(attribute.Int("attempts", attempt))
			recordInvocation(req.Tool, "success", time.Since(startTime))
			return datatypes.ToolOutcome{
				Status:   datatypes.OutcomeSuccess,
				Attempts: attempt,
				Payload:  last.payload,
			}

		case datatypes.OutcomeTerminal:
			span.SetAttributes(attribute.Int("attempts", attempt))
			span.SetStatus(codes.Error, string(last.cause))
			if last.err != nil {
				span.RecordError(last.err)
			}
			recordInvocation(req.Tool, "terminal_failure", time.Since(startTime))
			return datatypes.ToolOutcome{
				Status:   datatypes.OutcomeTerminal,
				Cause:    last.cause,
				Attempts: attempt,
			}
		}

		// Retryable. Back off unless this was the final attempt.
		if attempt < c.config.MaxAttempts {
			delay := backoffDelay(c.config.BackoffBase, attempt)
			c.logger.Warn("tool call failed, retrying",
				slog.String("tool", req.Tool),
				slog.String("cause", string(last.cause)),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", delay),
			)
			recordRetry(req.Tool, string(last.cause))
			if err := c.sleep(ctx, delay); err != nil {
				span.SetStatus(codes.Error, "cancelled during backoff")
				recordInvocation(req.Tool, "terminal_failure", time.Since(startTime))
				return datatypes.ToolOutcome{
					Status:   datatypes.OutcomeTerminal,
					Cause:    datatypes.CauseTimeout,
					Attempts: attempt,
				}
			}
		}
	}

	span.SetAttributes(attribute.Int("attempts", c.config.MaxAttempts))
	span.SetStatus(codes.Error, "retries exhausted")
	c.logger.Error("tool call failed after all retries",
		slog.String("tool", req.Tool),
		slog.String("cause", string(last.cause)),
		slog.Int("attempts", c.config.MaxAttempts),
	)
	recordInvocation(req.Tool, "terminal_failure", time.Since(startTime))
	return datatypes.ToolOutcome{
		Status:   datatypes.OutcomeTerminal,
		Cause:    last.cause,
		Attempts: c.config.MaxAttempts,
	}
}

// attempt issues one POST and classifies the result.
func (c *HTTPClient) attempt(ctx context.Context, tool, url string, body []byte) attemptResult {
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return attemptResult{status: datatypes.OutcomeTerminal, cause: datatypes.CauseClientError, err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return attemptResult{status: datatypes.OutcomeRetryable, cause: datatypes.CauseTimeout, err: err}
		}
		return attemptResult{status: datatypes.OutcomeRetryable, cause: datatypes.CauseConnection, err: err}
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return attemptResult{status: datatypes.OutcomeRetryable, cause: datatypes.CauseConnection, err: readErr}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		payload, err := parseReply(tool, bodyBytes)
		if err != nil {
			return attemptResult{
				status: datatypes.OutcomeTerminal,
				cause:  datatypes.CauseMalformedReply,
				err:    err,
			}
		}
		return attemptResult{status: datatypes.OutcomeSuccess, payload: payload}

	case resp.StatusCode == http.StatusTooManyRequests:
		return attemptResult{status: datatypes.OutcomeRetryable, cause: datatypes.CauseRateLimited}

	case resp.StatusCode >= 500:
		return attemptResult{status: datatypes.OutcomeRetryable, cause: datatypes.CauseServerError}

	default:
		// 400, 401, 403, 404 and friends: retrying the same payload
		// cannot succeed.
		return attemptResult{
			status: datatypes.OutcomeTerminal,
			cause:  datatypes.CauseClientError,
			err:    fmt.Errorf("toolclient: tool returned status %d", resp.StatusCode),
		}
	}
}

// backoffDelay returns the delay before the retry following the given
// attempt number: base, 2*base, 4*base, ...
func backoffDelay(base time.Duration, attempt int) time.Duration {
	return base << (attempt - 1)
}

// sleepCtx sleeps unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isTimeout reports whether a transport error is a timeout.
func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
