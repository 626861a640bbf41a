// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

// Package cache provides the TTL cache in front of retention queries.
//
// Retention tables change only on reload or rebuild, so the retention
// service includes the database data version in every key and clears the
// cache after a rebuild. The TTL bounds memory for rarely repeated queries.
package cache
