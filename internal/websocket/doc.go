// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

// Package websocket pushes retention alerts to browser clients on /ws/alerts.
//
// Frames are JSON envelopes:
//
//	{"type": "high_risk_alert", "data": {"prediction_id": "...", "churn_risk_level": "High", ...}}
//	{"type": "policy_rebuilt",  "data": {"rows": 1200, ...}}
//
// A client may send {"type": "ping"} and receives {"type": "pong"}. The hub
// is the events.Sink fed by the event forwarder and runs under the
// supervisor.
package websocket
