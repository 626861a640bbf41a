// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/churnwatch/internal/logging"
)

// HTTPServer is the subset of *http.Server the service needs.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService runs an HTTP server under suture. Cancelling the context
// shuts the server down gracefully within shutdownTimeout.
type HTTPServerService struct {
	server          HTTPServer
	addr            string
	shutdownTimeout time.Duration
}

// NewHTTPServerService wraps server. addr is only used for logging.
func NewHTTPServerService(server HTTPServer, addr string, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{
		server:          server,
		addr:            addr,
		shutdownTimeout: shutdownTimeout,
	}
}

// Serve implements suture.Service.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", h.addr).Msg("HTTP server listening")
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		// ListenAndServe returned cleanly without a shutdown request; let
		// the supervisor restart it.
		return errors.New("http server stopped unexpectedly")

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		logging.Info().Dur("timeout", h.shutdownTimeout).Msg("HTTP server shutting down")
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

// String implements fmt.Stringer for supervisor logs.
func (h *HTTPServerService) String() string {
	return "http-server"
}
