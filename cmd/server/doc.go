// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

// Package main is the churnwatch HTTP server.
//
// Churnwatch scores customer churn risk with a loaded model, maps the
// probability to a risk tier and recommended retention action, and serves
// retention-policy analytics over the customer tables produced upstream.
//
// # Startup
//
//  1. Configuration: defaults, config file, environment (koanf v2)
//  2. Feature schema and model: model.path, falling back to
//     model.fallback_path. A model that fails to load leaves /predict
//     answering 503 and /health reporting "error"; the server still starts.
//  3. Prediction log (badger) and high-risk events (watermill), when enabled
//  4. Retention data: CSVs from data.dir loaded into DuckDB. Missing files
//     are skipped and the matching endpoints report the data as unavailable.
//  5. Authentication (none or jwt) and casbin authorization
//  6. Supervisor tree: cache janitor and audit GC, websocket hub and event
//     forwarder, HTTP server
//
// # Configuration
//
// Every key can be set in config.yaml or through the environment:
//
//	PORT=8000
//	MODEL_PATH=models/churn_model.json
//	HIGH_RISK_THRESHOLD=0.7
//	AUTH_MODE=jwt JWT_SECRET=$(openssl rand -base64 48)
//	EVENTS_ENABLED=true EVENTS_TRANSPORT=nats NATS_EMBEDDED=true
//
// Tokens for jwt mode are minted with churnctl:
//
//	churnctl token --user alice --role analyst
//
// # Signals
//
// SIGINT and SIGTERM cancel the supervisor tree. The HTTP server drains
// in-flight requests, then the event bus, prediction log and DuckDB
// connection are closed in that order.
package main
