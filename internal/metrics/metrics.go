// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

// Package metrics defines the Prometheus collectors exported by Credissuer.
//
// Collectors are registered with the default registry through promauto and
// served on /metrics by the api package. They cover:
//   - readiness probes against the document store, agent and branding server
//   - bootstrap stage timing and results
//   - identity state machine transitions
//   - outbound agent and store HTTP calls and their circuit breakers
//   - inbound API requests
//   - the incoming connection responder
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Readiness Probe Metrics
	ProbeAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readiness_probe_attempts_total",
			Help: "Total number of readiness probe attempts",
		},
		[]string{"target", "result"}, // result: "reachable", "failed"
	)

	ProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "readiness_probe_duration_seconds",
			Help:    "Time from first attempt until the target was reachable or the budget was spent",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"target", "outcome"}, // outcome: "ready", "timed_out", "cancelled"
	)

	// Bootstrap Metrics
	BootstrapStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bootstrap_stage_duration_seconds",
			Help:    "Duration of each bootstrap stage in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 300},
		},
		[]string{"stage"},
	)

	BootstrapStageResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bootstrap_stage_results_total",
			Help: "Total number of bootstrap stage completions by result",
		},
		[]string{"stage", "result"}, // result: "success", "fatal"
	)

	BootstrapReady = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bootstrap_ready",
			Help: "1 once every bootstrap stage has completed",
		},
	)

	// Identity Metrics
	IdentityTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_state_transitions_total",
			Help: "Total number of identity bootstrap state transitions",
		},
		[]string{"from_state", "to_state"},
	)

	// Outbound Client Metrics
	AgentRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_requests_total",
			Help: "Total number of identity agent API requests",
		},
		[]string{"operation", "status_code"},
	)

	AgentRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agent_request_duration_seconds",
			Help:    "Identity agent API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	StoreRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "couchdb_requests_total",
			Help: "Total number of document store requests",
		},
		[]string{"operation", "status_code"},
	)

	StoreRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "couchdb_request_duration_seconds",
			Help:    "Document store request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Responder Metrics
	ResponderPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "responder_polls_total",
			Help: "Total number of connection responder polls",
		},
		[]string{"result"}, // result: "success", "error"
	)

	ResponderConnectionsAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "responder_connections_accepted_total",
			Help: "Total number of incoming connection offers accepted",
		},
	)
)

// RecordProbeAttempt records one readiness probe attempt.
func RecordProbeAttempt(target string, reachable bool) {
	result := "failed"
	if reachable {
		result = "reachable"
	}
	ProbeAttempts.WithLabelValues(target, result).Inc()
}

// RecordProbe records the overall result of a readiness probe.
func RecordProbe(target, outcome string, duration time.Duration) {
	ProbeDuration.WithLabelValues(target, outcome).Observe(duration.Seconds())
}

// RecordStage records the duration and result of a bootstrap stage.
func RecordStage(stage string, duration time.Duration, err error) {
	BootstrapStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	result := "success"
	if err != nil {
		result = "fatal"
	}
	BootstrapStageResults.WithLabelValues(stage, result).Inc()
}

// SetBootstrapReady flips the bootstrap_ready gauge.
func SetBootstrapReady(ready bool) {
	if ready {
		BootstrapReady.Set(1)
		return
	}
	BootstrapReady.Set(0)
}

// RecordIdentityTransition records one identity state machine transition.
func RecordIdentityTransition(from, to string) {
	IdentityTransitions.WithLabelValues(from, to).Inc()
}

// RecordAgentRequest records an identity agent API call.
// A statusCode of 0 means no response was received.
func RecordAgentRequest(operation string, statusCode int, duration time.Duration) {
	AgentRequestsTotal.WithLabelValues(operation, statusLabel(statusCode)).Inc()
	AgentRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordStoreRequest records a document store call.
// A statusCode of 0 means no response was received.
func RecordStoreRequest(operation string, statusCode int, duration time.Duration) {
	StoreRequestsTotal.WithLabelValues(operation, statusLabel(statusCode)).Inc()
	StoreRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordResponderPoll records one responder poll of the agent.
func RecordResponderPoll(err error) {
	if err != nil {
		ResponderPolls.WithLabelValues("error").Inc()
		return
	}
	ResponderPolls.WithLabelValues("success").Inc()
}

// RecordConnectionAccepted counts an accepted connection offer.
func RecordConnectionAccepted() {
	ResponderConnectionsAccepted.Inc()
}

func statusLabel(statusCode int) string {
	if statusCode == 0 {
		return "none"
	}
	return strconv.Itoa(statusCode)
}
