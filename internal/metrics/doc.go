// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

/*
Package metrics registers the Prometheus collectors for churnwatch.

All collectors live on the default registry through promauto and are
exposed by the /metrics route when metrics.enabled is true.

# Collectors

HTTP surface:
  - api_requests_total{method,endpoint,status_code}
  - api_request_duration_seconds{method,endpoint}
  - api_active_requests
  - api_rate_limit_hits_total{endpoint}

Scoring:
  - churn_predictions_total{tier}
  - churn_scoring_errors_total{kind}: model_unavailable, scoring_error, invalid_input
  - churn_scoring_duration_seconds{model_kind}
  - churn_probability (histogram of served probabilities)
  - churn_model_loaded{kind,path}

Retention tables:
  - retention_query_duration_seconds{operation}
  - retention_query_errors_total{operation}
  - retention_table_rows{table}

Events and audit:
  - retention_events_published_total{topic}
  - retention_events_failed_total{topic}
  - circuit_breaker_state{name}: 0 closed, 1 half-open, 2 open
  - circuit_breaker_transitions_total{name,from,to}
  - websocket_clients
  - prediction_audit_writes_total{result}

# Usage

Components call the Record helpers rather than touching collectors:

	start := time.Now()
	rows, err := svc.PriorityList(ctx, q)
	metrics.RecordRetentionQuery("priority_list", time.Since(start), err)

Label values are drawn from small fixed sets (tiers, route patterns, table
names) so cardinality stays bounded. Routes are labelled by their chi
pattern, never by the raw path.

# Alerting

A useful starting point:

	- alert: ChurnModelMissing
	  expr: sum(churn_model_loaded) == 0
	  for: 5m

	- alert: RetentionEventsFailing
	  expr: rate(retention_events_failed_total[5m]) > 0
	  for: 10m
*/
package metrics
