// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	requestIDKey     contextKey = "request_id"
	correlationIDKey contextKey = "correlation_id"
	loggerKey        contextKey = "logger"
)

// GenerateRequestID returns a new UUID v4 string.
func GenerateRequestID() string {
	return uuid.New().String()
}

// GenerateCorrelationID returns a short 8-character id for log correlation.
func GenerateCorrelationID() string {
	return uuid.New().String()[:8]
}

// ContextWithRequestID stores the request id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request id or "".
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithCorrelationID stores the correlation id.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// ContextWithNewCorrelationID stores a freshly generated correlation id.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

// CorrelationIDFromContext returns the correlation id or "".
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithLogger attaches a logger to ctx.
func ContextWithLogger(ctx context.Context, l zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// Ctx returns a logger carrying the request and correlation ids from ctx.
//
//	logging.Ctx(r.Context()).Info().Str("tier", "High").Msg("Prediction served")
func Ctx(ctx context.Context) *zerolog.Logger {
	base, ok := ctx.Value(loggerKey).(zerolog.Logger)
	if !ok {
		base = Logger()
	}
	lc := base.With()
	if id := RequestIDFromContext(ctx); id != "" {
		lc = lc.Str("request_id", id)
	}
	if id := CorrelationIDFromContext(ctx); id != "" {
		lc = lc.Str("correlation_id", id)
	}
	l := lc.Logger()
	return &l
}

// CtxError is shorthand for Ctx(ctx).Error().
func CtxError(ctx context.Context) *zerolog.Event {
	return Ctx(ctx).Error()
}
