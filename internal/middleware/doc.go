// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

/*
Package middleware holds the chi middleware shared by every route.

  - RequestID: accepts or generates X-Request-ID and seeds the logging
    context with request and correlation IDs.
  - PrometheusMetrics: request count, duration and in-flight gauge, labelled
    by the chi route pattern rather than the raw path to bound cardinality.
  - AccessLog: one structured zerolog line per request.

Order matters: RequestID must run first so the others can read the ID.
*/
package middleware
