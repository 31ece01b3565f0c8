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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("lantern.orchestrator")

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	pipelineRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lantern",
			Subsystem: "orchestrator",
			Name:      "pipeline_run_duration_seconds",
			Help:      "End-to-end pipeline run latency by terminal state.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"terminal_state"},
	)

	pipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lantern",
			Subsystem: "orchestrator",
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by terminal state.",
		},
		[]string{"terminal_state"},
	)

	pipelineTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lantern",
			Subsystem: "orchestrator",
			Name:      "pipeline_transitions_total",
			Help:      "State machine transitions taken.",
		},
		[]string{"from", "to"},
	)
)

func recordRun(terminalState string, duration time.Duration) {
	pipelineRunDuration.WithLabelValues(terminalState).Observe(duration.Seconds())
	pipelineRuns.WithLabelValues(terminalState).Inc()
}

func recordTransition(from, to string) {
	pipelineTransitions.WithLabelValues(from, to).Inc()
}
