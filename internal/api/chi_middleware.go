// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/churnwatch/internal/config"
)

// ChiMiddlewareConfig holds CORS and rate limit settings.
type ChiMiddlewareConfig struct {
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	CORSExposedHeaders []string
	CORSMaxAge         int // seconds

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool
}

// DefaultChiMiddlewareConfig allows no cross-origin requests and 100
// requests per minute per IP.
func DefaultChiMiddlewareConfig() *ChiMiddlewareConfig {
	return &ChiMiddlewareConfig{
		CORSAllowedOrigins: []string{},
		CORSAllowedMethods: []string{"GET", "POST", "OPTIONS"},
		CORSAllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		CORSExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		CORSMaxAge:         86400,

		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
	}
}

// ChiMiddlewareConfigFrom builds the middleware config from security settings.
func ChiMiddlewareConfigFrom(sec *config.SecurityConfig) *ChiMiddlewareConfig {
	c := DefaultChiMiddlewareConfig()
	c.CORSAllowedOrigins = sec.CORSOrigins
	if sec.RateLimitReqs > 0 {
		c.RateLimitRequests = sec.RateLimitReqs
	}
	if sec.RateLimitWindow > 0 {
		c.RateLimitWindow = sec.RateLimitWindow
	}
	c.RateLimitDisabled = sec.RateLimitDisabled
	return c
}

// ChiMiddleware wraps go-chi/cors and go-chi/httprate.
type ChiMiddleware struct {
	config *ChiMiddlewareConfig
	cors   func(http.Handler) http.Handler
}

// NewChiMiddleware creates the middleware set.
func NewChiMiddleware(config *ChiMiddlewareConfig) *ChiMiddleware {
	if config == nil {
		config = DefaultChiMiddlewareConfig()
	}
	return &ChiMiddleware{
		config: config,
		cors: cors.Handler(cors.Options{
			AllowedOrigins: config.CORSAllowedOrigins,
			AllowedMethods: config.CORSAllowedMethods,
			AllowedHeaders: config.CORSAllowedHeaders,
			ExposedHeaders: config.CORSExposedHeaders,
			MaxAge:         config.CORSMaxAge,
		}),
	}
}

// CORS returns the CORS handler.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimitConfig is a fixed-window limit.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// Per-route limits on top of the general one.
var (
	RateLimitExport  = RateLimitConfig{Requests: 10, Window: time.Minute}
	RateLimitRebuild = RateLimitConfig{Requests: 5, Window: time.Minute}
	RateLimitAlerts  = RateLimitConfig{Requests: 30, Window: time.Minute}
)

func passthrough(next http.Handler) http.Handler { return next }

// RateLimit applies the configured per-IP limit.
func (m *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	return m.RateLimitCustom(RateLimitConfig{
		Requests: m.config.RateLimitRequests,
		Window:   m.config.RateLimitWindow,
	})
}

// RateLimitCustom applies a specific per-IP limit.
func (m *ChiMiddleware) RateLimitCustom(limit RateLimitConfig) func(http.Handler) http.Handler {
	if m.config.RateLimitDisabled {
		return passthrough
	}
	return httprate.Limit(
		limit.Requests,
		limit.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			NewResponseWriter(w, r).Error(http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "rate limit exceeded")
		}),
	)
}
