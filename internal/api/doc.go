// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

/*
Package api is the HTTP surface of churnwatch, routed with chi.

Public endpoints keep the response shapes of the original prediction API:

	GET  /          service banner
	GET  /health    {"status": "ok"|"error", "model": "<path>"}
	POST /predict   {"churn_probability", "churn_risk_level", "recommended_action"}
	GET  /docs      redirect to the Swagger UI at /swagger/index.html

Errors on these endpoints are {"detail": ...} bodies: 422 for malformed
input, 503 when no model is loaded and 500 when the model fails.

Everything under /api/v1 is authenticated (package auth), authorized per
object and action (package authz) and wrapped in the APIResponse envelope:

	GET  /api/v1/model                       model and threshold info
	POST /api/v1/predictions                 score, full prediction record
	GET  /api/v1/predictions/recent          audit log, newest first
	GET  /api/v1/predictions/{id}            one audited prediction
	GET  /api/v1/retention/overview          headline metrics
	GET  /api/v1/retention/segments          CLV by segment
	GET  /api/v1/retention/actions/summary   customers and value per action
	GET  /api/v1/retention/actions/distribution
	GET  /api/v1/retention/priority          priority list (filter, action, min_priority, limit)
	GET  /api/v1/retention/at-risk           churn risk >= threshold
	GET  /api/v1/retention/export            priority list as CSV
	POST /api/v1/retention/rebuild           regenerate the policy table (admin)
	GET  /ws/alerts                          websocket stream of high-risk alerts

/metrics serves Prometheus metrics when metrics.enabled is set.
*/
package api
