// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package authz

import (
	"fmt"
	"net"
	"net/http"

	"github.com/tomtom215/churnwatch/internal/auth"
	"github.com/tomtom215/churnwatch/internal/logging"
)

// Middleware enforces the policy on authenticated requests.
type Middleware struct {
	enforcer *Enforcer
	security *logging.SecurityLogger
}

// NewMiddleware wraps enforcer.
func NewMiddleware(enforcer *Enforcer) *Middleware {
	return &Middleware{enforcer: enforcer, security: logging.NewSecurityLogger()}
}

// Require returns chi middleware that allows the request only when the
// caller's role may perform action on object. It must run after
// auth.Middleware.Authenticate.
func (m *Middleware) Require(object, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.ClaimsFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}

			allowed, err := m.enforcer.Enforce(claims.Role, object, action)
			if err != nil {
				logging.Error().Err(err).Str("object", object).Str("action", action).Msg("Authorization check failed")
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "authorization check failed")
				return
			}
			if !allowed {
				m.security.LogAccessDenied(claims.Username, claims.Role, object, action, remoteIP(r))
				writeError(w, http.StatusForbidden, "FORBIDDEN", fmt.Sprintf("role %q may not %s %s", claims.Role, action, object))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `{"success":false,"error":{"code":%q,"message":%q}}`, code, msg)
}
