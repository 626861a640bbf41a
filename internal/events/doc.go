// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

// Package events publishes high-risk prediction alerts over watermill.
//
// Flow:
//
//	Predictor -> Notifier (observer) -> Bus.Publish -> topic retention.high_risk
//	topic -> Forwarder (supervised) -> websocket hub -> /ws/alerts clients
//
// The Bus runs on the in-process gochannel transport by default. With
// transport "nats" it connects to nats_url, or starts an embedded NATS server
// when embedded_nats is set. Publishing goes through a gobreaker circuit
// breaker so an unreachable broker costs one fast failure per prediction
// instead of a timeout.
package events
