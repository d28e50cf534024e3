// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline Metrics
	PipelineNotices = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "herald_pipeline_notices_total",
			Help: "Notices taken from the ingest queue by outcome",
		},
		[]string{"result"}, // "processed", "failed", "invalid"
	)

	PipelineMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "herald_pipeline_messages_total",
			Help: "Rendered messages published to transport queues",
		},
		[]string{"transport"},
	)

	PipelineMarks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "herald_pipeline_marks_total",
			Help: "Delivery marks written by value",
		},
		[]string{"mark"},
	)

	PipelineNoticeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "herald_pipeline_notice_duration_seconds",
			Help:    "Time to transform and load one notice",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
	)

	// Recipient lookup metrics
	RecipientsLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "herald_recipients_lookups_total",
			Help: "Auth service user-info batch lookups by result",
		},
		[]string{"result"}, // "ok", "error"
	)

	RecipientsLookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "herald_recipients_lookup_duration_seconds",
			Help:    "Auth service user-info batch lookup latency",
			Buckets: prometheus.DefBuckets,
		},
	)

	RecipientsUnresolved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "herald_recipients_unresolved_total",
			Help: "Recipients the auth service did not return",
		},
	)

	// Template cache metrics
	TemplateCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "herald_templates_cache_hits_total",
			Help: "Template lookups served from cache",
		},
	)

	TemplateCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "herald_templates_cache_misses_total",
			Help: "Template lookups that reached the store",
		},
	)

	// Email worker metrics
	EmailAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "herald_email_attempts_total",
			Help: "Email delivery outcomes",
		},
		[]string{"result"}, // "sent", "retried", "dropped", "expired", "invalid"
	)

	EmailForwarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "herald_email_retries_forwarded_total",
			Help: "Retry messages moved from the delay queue back to their target",
		},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "herald_websocket_connections",
			Help: "Authenticated live connections",
		},
	)

	WSDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "herald_websocket_deliveries_total",
			Help: "Fan-out delivery outcomes",
		},
		[]string{"result"}, // "delivered", "offline", "buffer_full", "invalid"
	)

	WSAuthFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "herald_websocket_auth_failures_total",
			Help: "Connections closed for a missing or invalid token",
		},
	)

	// NATS Metrics
	NATSPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "herald_nats_published_total",
			Help: "Messages published to JetStream",
		},
		[]string{"subject", "result"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "herald_api_requests_total",
			Help: "Ingress HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "herald_api_request_duration_seconds",
			Help:    "Ingress HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "herald_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "herald_circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Dedup store metrics
	DedupGCRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "herald_dedup_gc_runs_total",
			Help: "Badger value-log GC runs by result",
		},
		[]string{"result"}, // "rewritten", "noop", "error"
	)
)

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordNotice counts a notice taken from the ingest queue.
func RecordNotice(result string, duration time.Duration) {
	PipelineNotices.WithLabelValues(result).Inc()
	if duration > 0 {
		PipelineNoticeDuration.Observe(duration.Seconds())
	}
}

// RecordMessageQueued counts a rendered message published for transport.
func RecordMessageQueued(transport string) {
	PipelineMessages.WithLabelValues(transport).Inc()
}

// RecordMark counts a delivery mark write.
func RecordMark(mark string) {
	PipelineMarks.WithLabelValues(mark).Inc()
}

// RecordRecipientsLookup records one auth service batch call.
func RecordRecipientsLookup(duration time.Duration, requested, resolved int, err error) {
	RecipientsLookups.WithLabelValues(resultLabel(err)).Inc()
	RecipientsLookupDuration.Observe(duration.Seconds())
	if err == nil && requested > resolved {
		RecipientsUnresolved.Add(float64(requested - resolved))
	}
}

// RecordTemplateCache records a template cache hit or miss.
func RecordTemplateCache(hit bool) {
	if hit {
		TemplateCacheHits.Inc()
		return
	}
	TemplateCacheMisses.Inc()
}

// RecordEmailAttempt counts an email delivery outcome.
func RecordEmailAttempt(result string) {
	EmailAttempts.WithLabelValues(result).Inc()
}

// RecordRetryForwarded counts a message released from the delay queue.
func RecordRetryForwarded() {
	EmailForwarded.Inc()
}

// SetWSConnections sets the live connection gauge.
func SetWSConnections(n int) {
	WSConnections.Set(float64(n))
}

// RecordWSDelivery counts a fan-out outcome.
func RecordWSDelivery(result string) {
	WSDeliveries.WithLabelValues(result).Inc()
}

// RecordWSAuthFailure counts a rejected connection.
func RecordWSAuthFailure() {
	WSAuthFailures.Inc()
}

// RecordNATSPublish counts a publish to subject.
func RecordNATSPublish(subject string, err error) {
	NATSPublished.WithLabelValues(subject, resultLabel(err)).Inc()
}

// RecordAPIRequest records an ingress request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordCircuitBreakerTransition records a breaker state change.
// State values follow gobreaker: closed=0, half-open=1, open=2.
func RecordCircuitBreakerTransition(name, from, to string, toValue int) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(float64(toValue))
}

// RecordDedupGC records a value-log GC run.
func RecordDedupGC(result string) {
	DedupGCRuns.WithLabelValues(result).Inc()
}
