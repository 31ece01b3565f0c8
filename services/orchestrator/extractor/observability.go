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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("lantern.extractor")

// Package-level Prometheus metrics for extraction operations.
var (
	// extractionLatency measures end-to-end extraction latency.
	//
	// Labels:
	//   - model: The extraction model.
	//   - status: "success", "error", "timeout", "parse_error"
	extractionLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lantern",
			Subsystem: "extractor",
			Name:      "latency_seconds",
			Help:      "End-to-end parameter extraction latency in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"model", "status"},
	)

	// extractionTotal counts extraction attempts by outcome.
	extractionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lantern",
			Subsystem: "extractor",
			Name:      "extractions_total",
			Help:      "Total parameter extraction attempts by outcome.",
		},
		[]string{"model", "status"},
	)
)

// recordExtraction records one extraction attempt's metrics.
func recordExtraction(model, status string, duration time.Duration) {
	if model == "" {
		model = "default"
	}
	extractionLatency.WithLabelValues(model, status).Observe(duration.Seconds())
	extractionTotal.WithLabelValues(model, status).Inc()
}
