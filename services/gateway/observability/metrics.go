// Copyright (C) 2026 SkySage AI (dev@skysage.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the gateway.
//
// # Description
//
// Metrics cover the gateway's mediation work: request counts by
// endpoint and outcome class, upstream latency, and in-flight request
// gauges. Exposed via the /metrics endpoint for Prometheus scraping.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal
// locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all gateway metrics.
const metricsNamespace = "skysage"

// Subsystem for gateway mediation metrics.
const gatewaySubsystem = "gateway"

// =============================================================================
// Outcome Classes
// =============================================================================

// OutcomeClass labels how a mediated request resolved. Every upstream
// failure is absorbed into one of these classes rather than surfaced as
// an HTTP error.
type OutcomeClass string

const (
	// OutcomeSuccess is a clean upstream answer.
	OutcomeSuccess OutcomeClass = "success"

	// OutcomeUpstreamError is a non-2xx upstream status with a parseable
	// detail message.
	OutcomeUpstreamError OutcomeClass = "upstream_error"

	// OutcomeUnavailable is a non-2xx upstream status without detail,
	// including the starting/not-configured class.
	OutcomeUnavailable OutcomeClass = "unavailable"

	// OutcomeTimeout is a deadline expiry with the upstream call aborted.
	OutcomeTimeout OutcomeClass = "timeout"

	// OutcomeNetwork is a transport-level failure reaching upstream.
	OutcomeNetwork OutcomeClass = "network"

	// OutcomeNotConfigured is a request served while the upstream base
	// URL is unset.
	OutcomeNotConfigured OutcomeClass = "not_configured"

	// OutcomeDemo is a canned demo-mode answer served in place of a
	// transport failure.
	OutcomeDemo OutcomeClass = "demo"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// GatewayMetrics holds all Prometheus metrics for gateway mediation.
type GatewayMetrics struct {
	// RequestsTotal counts mediated requests by endpoint and outcome.
	// Labels: endpoint (chat, market_comparison, ...), outcome (see
	// OutcomeClass values)
	RequestsTotal *prometheus.CounterVec

	// UpstreamDurationSeconds measures upstream call latency.
	// Labels: endpoint
	UpstreamDurationSeconds *prometheus.HistogramVec

	// InFlight tracks currently mediated requests.
	// Labels: endpoint
	InFlight *prometheus.GaugeVec
}

// DefaultMetrics is the singleton instance of GatewayMetrics.
// Initialized by InitMetrics; nil when metrics are disabled.
var DefaultMetrics *GatewayMetrics

// InitMetrics creates and registers all gateway metrics on the default
// Prometheus registry. Call once at startup; a second call panics on
// duplicate registration.
func InitMetrics() *GatewayMetrics {
	DefaultMetrics = &GatewayMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "requests_total",
				Help:      "Total mediated requests by endpoint and outcome class",
			},
			[]string{"endpoint", "outcome"},
		),

		UpstreamDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "upstream_duration_seconds",
				Help:      "Latency of upstream answer-service calls",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 65},
			},
			[]string{"endpoint"},
		),

		InFlight: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "in_flight_requests",
				Help:      "Currently mediated requests",
			},
			[]string{"endpoint"},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Helper Functions
// =============================================================================

// The package-level helpers are nil-safe so callers never have to guard
// on whether metrics were initialized.

// RecordRequest records a completed mediated request.
func RecordRequest(endpoint string, outcome OutcomeClass) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.RequestsTotal.WithLabelValues(endpoint, string(outcome)).Inc()
}

// RecordUpstreamDuration records upstream call latency in seconds.
func RecordUpstreamDuration(endpoint string, seconds float64) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.UpstreamDurationSeconds.WithLabelValues(endpoint).Observe(seconds)
}

// RequestStarted increments the in-flight gauge.
func RequestStarted(endpoint string) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.InFlight.WithLabelValues(endpoint).Inc()
}

// RequestEnded decrements the in-flight gauge.
func RequestEnded(endpoint string) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.InFlight.WithLabelValues(endpoint).Dec()
}
