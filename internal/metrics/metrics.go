// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Webhook Metrics
	WebhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamrelay_webhook_deliveries_total",
			Help: "Total number of webhook deliveries by outcome",
		},
		[]string{"outcome"}, // admitted, duplicate, malformed, unauthorized
	)

	WebhookLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streamrelay_webhook_latency_seconds",
			Help:    "Delay between the platform timestamp and webhook receipt",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"event_kind"},
	)

	// Gate Metrics
	GateRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamrelay_gate_rejections_total",
			Help: "Total number of deliveries rejected by a dedup gate",
		},
		[]string{"gate", "channel"}, // gate: idempotency, payload, semantic
	)

	// Arbitration Metrics
	ArbitrationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamrelay_arbitration_outcomes_total",
			Help: "Total number of arbitration window outcomes",
		},
		[]string{"kind", "outcome"}, // scheduled, dropped_seen, dropped_pending, preempted, fired
	)

	PendingDeliveries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "streamrelay_pending_deliveries",
			Help: "Current number of socket deliveries held in an arbitration window",
		},
		[]string{"kind"},
	)

	// Registry Metrics
	RegistryOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamrelay_registry_operations_total",
			Help: "Total number of downstream registry operations",
		},
		[]string{"backend", "outcome"}, // registered, duplicate, failure
	)

	// Notification Metrics
	NotificationsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamrelay_notifications_emitted_total",
			Help: "Total number of notifications handed to the sink",
		},
		[]string{"kind", "source"},
	)

	SinkPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamrelay_sink_publish_errors_total",
			Help: "Total number of notifications the sink failed to publish",
		},
		[]string{"kind"},
	)

	DispatchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamrelay_dispatch_failures_total",
			Help: "Total number of deliveries abandoned after a downstream failure or panic",
		},
		[]string{"kind", "reason"}, // reason: registry, parse, panic
	)

	// Socket Metrics
	SocketConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streamrelay_socket_connected",
			Help: "Whether the socket channel is connected (1) or not (0)",
		},
	)

	SocketMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamrelay_socket_messages_total",
			Help: "Total number of socket frames received by event name",
		},
		[]string{"event"},
	)

	SocketReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streamrelay_socket_reconnects_total",
			Help: "Total number of socket reconnect attempts",
		},
	)

	// API Metrics
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
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
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
)

// RecordWebhookDelivery counts a webhook delivery outcome.
func RecordWebhookDelivery(outcome string) {
	WebhookDeliveries.WithLabelValues(outcome).Inc()
}

// RecordWebhookLatency observes receipt latency for an admitted webhook.
func RecordWebhookLatency(eventKind string, latency time.Duration) {
	if latency < 0 {
		latency = 0
	}
	WebhookLatency.WithLabelValues(eventKind).Observe(latency.Seconds())
}

// RecordGateRejection counts a delivery rejected by a gate.
func RecordGateRejection(gate, channel string) {
	GateRejections.WithLabelValues(gate, channel).Inc()
}

// RecordArbitration counts an arbitration window outcome.
func RecordArbitration(kind, outcome string) {
	ArbitrationOutcomes.WithLabelValues(kind, outcome).Inc()
}

// SetPendingDeliveries updates the pending gauge for kind.
func SetPendingDeliveries(kind string, n int) {
	PendingDeliveries.WithLabelValues(kind).Set(float64(n))
}

// RecordRegistryOperation counts a registry outcome.
func RecordRegistryOperation(backend, outcome string) {
	RegistryOperations.WithLabelValues(backend, outcome).Inc()
}

// RecordNotification counts a notification handed to the sink.
func RecordNotification(kind, source string) {
	NotificationsEmitted.WithLabelValues(kind, source).Inc()
}

// RecordSinkError counts a notification the sink failed to publish.
func RecordSinkError(kind string) {
	SinkPublishErrors.WithLabelValues(kind).Inc()
}

// RecordDispatchFailure counts an abandoned delivery.
func RecordDispatchFailure(kind, reason string) {
	DispatchFailures.WithLabelValues(kind, reason).Inc()
}

// SetSocketConnected updates the socket connection gauge.
func SetSocketConnected(connected bool) {
	if connected {
		SocketConnected.Set(1)
		return
	}
	SocketConnected.Set(0)
}

// RecordSocketMessage counts a socket frame.
func RecordSocketMessage(event string) {
	SocketMessages.WithLabelValues(event).Inc()
}

// RecordSocketReconnect counts a reconnect attempt.
func RecordSocketReconnect() {
	SocketReconnects.Inc()
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

// RecordCircuitBreakerTransition records a breaker state change.
func RecordCircuitBreakerTransition(name, from, to string, toState int) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(float64(toState))
}
