// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/churnwatch/internal/config"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newManager(t *testing.T, timeout time.Duration) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret, SessionTimeout: timeout})
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	return m
}

func TestNewJWTManager(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{"empty secret", "", true},
		{"short secret", "too-short", true},
		{"valid secret", testSecret, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewJWTManager(&config.SecurityConfig{JWTSecret: tt.secret})
			if (err != nil) != tt.wantErr {
				t.Errorf("NewJWTManager() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestJWTManager_DefaultTimeout(t *testing.T) {
	t.Parallel()
	if got := newManager(t, 0).Timeout(); got != 24*time.Hour {
		t.Errorf("Timeout() = %v, want 24h", got)
	}
}

func TestJWTManager_RoundTrip(t *testing.T) {
	t.Parallel()
	m := newManager(t, time.Hour)

	token, err := m.GenerateToken("analyst", "admin")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Username != "analyst" || claims.Role != "admin" || claims.Issuer != Issuer {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := m.GenerateToken("", "admin"); err == nil {
		t.Error("expected error for empty username")
	}
}

func TestJWTManager_RejectsBadTokens(t *testing.T) {
	t.Parallel()
	m := newManager(t, time.Hour)
	other, err := NewJWTManager(&config.SecurityConfig{JWTSecret: "ffffffffffffffffffffffffffffffff"})
	if err != nil {
		t.Fatal(err)
	}
	foreign, _ := other.GenerateToken("analyst", "admin")

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Username: "analyst",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	expiredToken, _ := expired.SignedString([]byte(testSecret))

	wrongIssuer := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Username:         "analyst",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else"},
	})
	wrongIssuerToken, _ := wrongIssuer.SignedString([]byte(testSecret))

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		Username:         "analyst",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: Issuer},
	})
	unsignedToken, _ := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := map[string]string{
		"garbage":      "not-a-token",
		"foreign key":  foreign,
		"expired":      expiredToken,
		"wrong issuer": wrongIssuerToken,
		"alg none":     unsignedToken,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := m.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("ValidateToken() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func claimsEcho(t *testing.T, got **Claims) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := ClaimsFromContext(r.Context())
		if !ok {
			t.Error("no claims in context")
		}
		*got = c
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestMiddleware_NoneMode(t *testing.T) {
	t.Parallel()
	mw, err := NewMiddleware(&config.SecurityConfig{AuthMode: ModeNone, DefaultRole: "viewer"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	var got *Claims
	rec := httptest.NewRecorder()
	mw.Authenticate(claimsEcho(t, &got)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if got.Username != AnonymousUser || got.Role != "viewer" {
		t.Errorf("claims = %+v", got)
	}
}

func TestMiddleware_JWTMode(t *testing.T) {
	t.Parallel()
	m := newManager(t, time.Hour)
	mw, err := NewMiddleware(&config.SecurityConfig{AuthMode: ModeJWT, DefaultRole: "viewer"}, m)
	if err != nil {
		t.Fatal(err)
	}
	admin, _ := m.GenerateToken("ops", "admin")
	noRole, _ := m.GenerateToken("guest", "")

	tests := []struct {
		name     string
		header   string
		cookie   string
		want     int
		wantRole string
	}{
		{"missing token", "", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", "", http.StatusUnauthorized, ""},
		{"invalid token", "Bearer nope", "", http.StatusUnauthorized, ""},
		{"bearer header", "Bearer " + admin, "", http.StatusNoContent, "admin"},
		{"lowercase scheme", "bearer " + admin, "", http.StatusNoContent, "admin"},
		{"cookie", "", admin, http.StatusNoContent, "admin"},
		{"empty role gets default", "Bearer " + noRole, "", http.StatusNoContent, "viewer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/retention/overview", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "token", Value: tt.cookie})
			}
			var got *Claims
			rec := httptest.NewRecorder()
			mw.Authenticate(claimsEcho(t, &got)).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized {
				if rec.Header().Get("WWW-Authenticate") == "" {
					t.Error("missing WWW-Authenticate header")
				}
				return
			}
			if got.Role != tt.wantRole {
				t.Errorf("role = %s, want %s", got.Role, tt.wantRole)
			}
		})
	}
}

func TestNewMiddleware_Errors(t *testing.T) {
	t.Parallel()
	if _, err := NewMiddleware(&config.SecurityConfig{AuthMode: ModeJWT}, nil); err == nil {
		t.Error("expected error for jwt mode without manager")
	}
	if _, err := NewMiddleware(&config.SecurityConfig{AuthMode: "basic"}, nil); err == nil {
		t.Error("expected error for unknown mode")
	}
}
