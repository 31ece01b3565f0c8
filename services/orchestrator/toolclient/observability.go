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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("lantern.toolclient")

// Package-level Prometheus metrics for tool invocations.
var (
	// invocationDuration measures end-to-end invocation duration,
	// including retries and backoff.
	//
	// Labels:
	//   - tool: The tool name.
	//   - status: "success" or "terminal_failure"
	invocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lantern",
			Subsystem: "toolclient",
			Name:      "invocation_duration_seconds",
			Help:      "End-to-end tool invocation duration in seconds, including retries.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"tool", "status"},
	)

	// invocationsTotal counts invocations by final outcome.
	invocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lantern",
			Subsystem: "toolclient",
			Name:      "invocations_total",
			Help:      "Total tool invocations by final outcome.",
		},
		[]string{"tool", "status"},
	)

	// retriesTotal counts individual retries by transient cause.
	//
	// Labels:
	//   - tool: The tool name.
	//   - cause: "rate_limited", "server_error", "timeout", "connection_error"
	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lantern",
			Subsystem: "toolclient",
			Name:      "retries_total",
			Help:      "Total tool call retries by transient cause.",
		},
		[]string{"tool", "cause"},
	)
)

func recordInvocation(tool, status string, duration time.Duration) {
	invocationDuration.WithLabelValues(tool, status).Observe(duration.Seconds())
	invocationsTotal.WithLabelValues(tool, status).Inc()
}

func recordRetry(tool, cause string) {
	retriesTotal.WithLabelValues(tool, cause).Inc()
}
