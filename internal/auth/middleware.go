// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/tomtom215/churnwatch/internal/config"
	"github.com/tomtom215/churnwatch/internal/logging"
)

// Authentication modes.
const (
	ModeNone = "none"
	ModeJWT  = "jwt"
)

// AnonymousUser is the username attached to requests in mode "none".
const AnonymousUser = "anonymous"

type contextKey string

// ClaimsContextKey is the context key for authenticated claims.
const ClaimsContextKey contextKey = "claims"

// ContextWithClaims returns a copy of ctx carrying claims.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsContextKey, claims)
}

// ClaimsFromContext returns the claims stored by Authenticate.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*Claims)
	return claims, ok && claims != nil
}

// Middleware authenticates requests according to the configured mode.
type Middleware struct {
	mode        string
	defaultRole string
	jwt         *JWTManager
	security    *logging.SecurityLogger
}

// NewMiddleware builds the authentication middleware. jwtManager may be nil
// when mode is "none".
func NewMiddleware(cfg *config.SecurityConfig, jwtManager *JWTManager) (*Middleware, error) {
	mode := cfg.AuthMode
	if mode == "" {
		mode = ModeNone
	}
	switch mode {
	case ModeNone:
	case ModeJWT:
		if jwtManager == nil {
			return nil, fmt.Errorf("auth mode %q requires a JWT manager", mode)
		}
	default:
		return nil, fmt.Errorf("unknown auth mode %q", mode)
	}
	role := cfg.DefaultRole
	if role == "" {
		role = "viewer"
	}
	return &Middleware{
		mode:        mode,
		defaultRole: role,
		jwt:         jwtManager,
		security:    logging.NewSecurityLogger(),
	}, nil
}

// Mode returns the active authentication mode.
func (m *Middleware) Mode() string { return m.mode }

// Authenticate is chi-compatible middleware. In mode "none" it attaches
// anonymous claims; in mode "jwt" it rejects requests without a valid token.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.mode == ModeNone {
			claims := &Claims{Username: AnonymousUser, Role: m.defaultRole}
			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
			return
		}

		token, err := extractToken(r)
		if err != nil {
			m.security.LogAuthFailure(clientIP(r), err.Error())
			writeUnauthorized(w, err.Error())
			return
		}

		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			m.security.LogAuthFailure(clientIP(r), "token validation failed")
			logging.Debug().Err(err).Str("token", logging.SanitizeToken(token)).Msg("Token validation failed")
			writeUnauthorized(w, "invalid token")
			return
		}
		if claims.Role == "" {
			claims.Role = m.defaultRole
		}

		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	})
}

// extractToken reads the bearer token from the Authorization header, falling
// back to the "token" cookie.
func extractToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		cookie, err := r.Cookie("token")
		if err != nil || cookie.Value == "" {
			return "", fmt.Errorf("missing token")
		}
		return cookie.Value, nil
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", fmt.Errorf("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeUnauthorized(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="churnwatch"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = fmt.Fprintf(w, `{"success":false,"error":{"code":"UNAUTHORIZED","message":%q}}`, "unauthorized: "+reason)
}
