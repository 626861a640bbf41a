// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

// Package services adapts components without a native Serve(ctx) method to
// suture.Service. Components that already have one (websocket hub, event
// forwarder, audit GC, cache janitor) are added to the tree directly.
package services
