// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Prometheus instrumentation for:
// - API endpoint latency and throughput
// - Scoring outcomes by risk tier
// - Remote scorer and event publisher circuit breakers
// - Retention queries (DuckDB)
// - Prediction events and the audit log

var (
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
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Scoring Metrics
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churn_predictions_total",
			Help: "Total number of successful churn predictions by risk tier",
		},
		[]string{"tier"},
	)

	ScoringErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churn_scoring_errors_total",
			Help: "Total number of failed scoring calls",
		},
		[]string{"kind"}, // "model_unavailable", "scoring_error", "invalid_input"
	)

	ScoringDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "churn_scoring_duration_seconds",
			Help:    "Duration of model scoring calls in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"model_kind"},
	)

	ChurnProbability = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "churn_probability",
			Help:    "Distribution of predicted churn probabilities",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		},
	)

	ModelLoaded = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "churn_model_loaded",
			Help: "Whether a scoring model is loaded (1) or not (0)",
		},
		[]string{"kind", "path"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Retention Data Metrics
	RetentionQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "retention_query_duration_seconds",
			Help:    "Duration of retention table queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	RetentionQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retention_query_errors_total",
			Help: "Total number of failed retention table queries",
		},
		[]string{"operation"},
	)

	RetentionTableRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "retention_table_rows",
			Help: "Row count of each ingested retention table",
		},
		[]string{"table"},
	)

	// Event Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retention_events_published_total",
			Help: "Total number of high-risk prediction events published",
		},
		[]string{"topic"},
	)

	EventsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retention_events_failed_total",
			Help: "Total number of prediction events that failed to publish",
		},
		[]string{"topic"},
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_clients",
			Help: "Current number of connected alert stream clients",
		},
	)

	AlertsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_alerts_delivered_total",
			Help: "Total number of alert stream messages written to subscribers",
		},
		[]string{"type"},
	)

	// Audit Log Metrics
	AuditWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_audit_writes_total",
			Help: "Total number of prediction audit log writes",
		},
		[]string{"result"},
	)
)

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

// RecordPrediction records a successful prediction.
func RecordPrediction(tier string, probability float64) {
	PredictionsTotal.WithLabelValues(tier).Inc()
	ChurnProbability.Observe(probability)
}

// RecordScoring records the latency of one scorer invocation.
func RecordScoring(modelKind string, duration time.Duration) {
	ScoringDuration.WithLabelValues(modelKind).Observe(duration.Seconds())
}

// RecordScoringError counts a failed prediction by kind.
func RecordScoringError(kind string) {
	ScoringErrors.WithLabelValues(kind).Inc()
}

// SetModelLoaded flags the loaded model. Pass loaded=false when no model could be loaded.
func SetModelLoaded(kind, path string, loaded bool) {
	v := 0.0
	if loaded {
		v = 1
	}
	ModelLoaded.WithLabelValues(kind, path).Set(v)
}

// RecordCircuitBreakerTransition updates breaker gauges.
func RecordCircuitBreakerTransition(name string, from, to gobreaker.State) {
	CircuitBreakerState.WithLabelValues(name).Set(CircuitBreakerStateValue(to))
	CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
}

// CircuitBreakerStateValue maps a breaker state to its gauge value:
// 0 closed, 1 half-open, 2 open.
func CircuitBreakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// RecordRetentionQuery records a retention table query.
func RecordRetentionQuery(operation string, duration time.Duration, err error) {
	RetentionQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		RetentionQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordEventPublish counts a publish attempt on a topic.
func RecordEventPublish(topic string, err error) {
	if err != nil {
		EventsFailed.WithLabelValues(topic).Inc()
		return
	}
	EventsPublished.WithLabelValues(topic).Inc()
}

// RecordAlertDelivered counts one alert written to a subscriber.
func RecordAlertDelivered(msgType string) {
	AlertsDelivered.WithLabelValues(msgType).Inc()
}

// RecordAuditWrite counts an audit log write.
func RecordAuditWrite(err error) {
	if err != nil {
		AuditWrites.WithLabelValues("error").Inc()
		return
	}
	AuditWrites.WithLabelValues("ok").Inc()
}
