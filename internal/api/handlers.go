// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/churnwatch/internal/audit"
	"github.com/tomtom215/churnwatch/internal/config"
	"github.com/tomtom215/churnwatch/internal/logging"
	"github.com/tomtom215/churnwatch/internal/predict"
	"github.com/tomtom215/churnwatch/internal/retention"
	ws "github.com/tomtom215/churnwatch/internal/websocket"
)

// maxBodyBytes bounds prediction request bodies.
const maxBodyBytes = 64 << 10

// Dependencies are the collaborators a Handler serves. Only Config and
// Predictor are required; endpoints backed by a nil dependency answer 503.
type Dependencies struct {
	Config      *config.Config
	Predictor   *predict.Predictor
	Retention   *retention.Service
	Predictions audit.Store
	Hub         *ws.Hub
}

// Handler implements every HTTP endpoint.
type Handler struct {
	config      *config.Config
	predictor   *predict.Predictor
	retention   *retention.Service
	predictions audit.Store
	wsHub       *ws.Hub
	startTime   time.Time
}

// NewHandler creates a Handler.
func NewHandler(deps Dependencies) *Handler {
	return &Handler{
		config:      deps.Config,
		predictor:   deps.Predictor,
		retention:   deps.Retention,
		predictions: deps.Predictions,
		wsHub:       deps.Hub,
		startTime:   time.Now(),
	}
}

func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin allows browsers from the configured CORS origins.
// Requests without an Origin header come from non-browser clients and are
// allowed only when auth is enabled, since the token then gates access.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return h.config.Security.AuthMode == "jwt"
	}
	for _, allowed := range h.config.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().
		Str("origin", strings.ToValidUTF8(origin, "?")).
		Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// WebSocket upgrades the connection and subscribes it to high-risk alerts.
//
// @Summary High-risk alert stream
// @Tags Alerts
// @Router /ws/alerts [get]
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		NewResponseWriter(w, r).ServiceUnavailable(ErrCodeServiceUnavailable, "alert stream is disabled")
		return
	}
	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	h.wsHub.Register <- client
	client.Start()
}
