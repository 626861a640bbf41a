// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tomtom215/churnwatch/internal/auth"
	"github.com/tomtom215/churnwatch/internal/authz"
	"github.com/tomtom215/churnwatch/internal/middleware"
)

// Router wires handlers to routes.
type Router struct {
	handler       *Handler
	authn         *auth.Middleware
	authz         *authz.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router.
func NewRouter(handler *Handler, authn *auth.Middleware, az *authz.Middleware) *Router {
	return &Router{
		handler:       handler,
		authn:         authn,
		authz:         az,
		chiMiddleware: NewChiMiddleware(ChiMiddlewareConfigFrom(&handler.config.Security)),
	}
}

// Setup builds the chi router.
func (router *Router) Setup() http.Handler {
	h := router.handler
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)
	r.Use(router.chiMiddleware.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("no route for " + r.Method + " " + r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", r.Method+" not allowed")
	})

	// Public endpoints.
	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.With(router.chiMiddleware.RateLimit()).Post("/predict", h.Predict)
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusFound)
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	if h.config.Metrics.Enabled {
		r.Handle(h.config.Metrics.Path, promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(router.authn.Authenticate)

		r.With(router.authz.Require(authz.ObjectPredictions, authz.ActionRead)).Get("/model", h.ModelInfo)

		r.Route("/predictions", func(r chi.Router) {
			r.With(router.authz.Require(authz.ObjectPredictions, authz.ActionCreate)).Post("/", h.CreatePrediction)
			r.Group(func(r chi.Router) {
				r.Use(router.authz.Require(authz.ObjectPredictions, authz.ActionRead))
				r.Get("/recent", h.RecentPredictions)
				r.Get("/{id}", h.GetPrediction)
			})
		})

		r.Route("/retention", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(router.authz.Require(authz.ObjectRetention, authz.ActionRead))
				r.Get("/overview", h.RetentionOverview)
				r.Get("/segments", h.RetentionSegments)
				r.Get("/actions/summary", h.RetentionActionSummary)
				r.Get("/actions/distribution", h.RetentionActionDistribution)
				r.Get("/priority", h.RetentionPriority)
				r.Get("/at-risk", h.RetentionAtRisk)
			})
			r.With(
				router.authz.Require(authz.ObjectRetention, authz.ActionExport),
				router.chiMiddleware.RateLimitCustom(RateLimitExport),
				chimiddleware.Compress(5, "text/csv"),
			).Get("/export", h.RetentionExport)
			r.With(
				router.authz.Require(authz.ObjectRetention, authz.ActionRebuild),
				router.chiMiddleware.RateLimitCustom(RateLimitRebuild),
			).Post("/rebuild", h.RetentionRebuild)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitAlerts))
		r.Use(router.authn.Authenticate)
		r.Use(router.authz.Require(authz.ObjectAlerts, authz.ActionRead))
		r.Get("/ws/alerts", h.WebSocket)
	})

	return r
}
