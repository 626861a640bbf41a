// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

// Package logging provides the zerolog-based structured logger used across
// Churnwatch.
//
// A single global logger is configured once at startup:
//
//	logging.Init(logging.Config{
//	    Level:  cfg.Logging.Level,
//	    Format: cfg.Logging.Format,
//	    Caller: cfg.Logging.Caller,
//	})
//
// and used through level helpers:
//
//	logging.Info().Str("tier", "High").Float64("p", 0.82).Msg("Prediction served")
//	logging.Error().Err(err).Msg("Failed to load model")
//
// # Request context
//
// The HTTP request-id middleware stores a request id in the context.
// Ctx(ctx) returns a logger that carries it, so handler and scorer logs can
// be joined on request_id.
//
// # slog bridge
//
// Suture (through sutureslog) and watermill log via log/slog. NewSlogLogger
// returns a *slog.Logger whose records are written by zerolog, keeping a
// single JSON stream.
//
// # Security events
//
// SecurityLogger records authentication failures and authorization denials
// with tokens and usernames masked.
package logging
