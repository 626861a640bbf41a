// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/churnwatch/internal/api"
	"github.com/tomtom215/churnwatch/internal/config"
	"github.com/tomtom215/churnwatch/internal/scoring"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Model.Path = filepath.Join(dir, "missing.json")
	cfg.Model.FallbackPath = ""
	cfg.Model.FeaturesPath = ""
	cfg.Data.Dir = filepath.Join(dir, "data")
	cfg.Data.Threads = 1
	cfg.Security.RateLimitDisabled = true
	cfg.Server.Port = 0
	return cfg
}

func writeModel(t *testing.T, cfg *config.Config, intercept float64) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "churn_model.json")
	err := scoring.WriteArtifact(path, &scoring.Artifact{
		Kind:     scoring.ArtifactLogistic,
		Name:     "constant",
		Version:  "test",
		Features: scoring.DefaultFeatureNames(),
		Logistic: &scoring.LogisticParams{
			Intercept:    intercept,
			Coefficients: map[string]float64{"recency_days": 0},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	cfg.Model.Path = path
}

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewApp_WithoutModelOrData(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)

	a, err := newApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.close()

	rec := serve(t, a.handler, http.MethodGet, "/health", "")
	var health api.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK || health.Status != "error" || health.Model != cfg.Model.Path {
		t.Errorf("health = %d %+v", rec.Code, health)
	}

	rec = serve(t, a.handler, http.MethodPost, "/predict", `{"recency_days": 3}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("POST /predict status = %d, want 503", rec.Code)
	}

	rec = serve(t, a.handler, http.MethodGet, "/api/v1/retention/overview", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("overview status = %d, want 503", rec.Code)
	}
}

func TestNewApp_PredictsAndLogs(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	writeModel(t, cfg, 2.0)
	cfg.Audit.Enabled = true
	cfg.Audit.InMemory = true
	cfg.Events.Enabled = true
	cfg.Events.Transport = "gochannel"

	a, err := newApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.close()

	rec := serve(t, a.handler, http.MethodPost, "/predict", `{"recency_days": 3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /predict status = %d body=%s", rec.Code, rec.Body)
	}
	var got api.PredictResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	// sigmoid(2) = 0.880797...
	if got.ChurnProbability != 0.8808 || got.ChurnRiskLevel != "High" {
		t.Errorf("prediction = %+v", got)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		entries, err := a.audit.Recent(context.Background(), 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("prediction log has %d entries, want 1", len(entries))
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestNewApp_RejectsShortJWTSecret(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.Security.AuthMode = "jwt"
	cfg.Security.JWTSecret = "short"

	if _, err := newApp(context.Background(), cfg); err == nil {
		t.Error("expected error for a short JWT secret")
	}
}

func TestNewApp_RejectsUnknownMinTier(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.Events.Enabled = true
	cfg.Events.Transport = "gochannel"
	cfg.Events.MinTier = "Severe"

	if _, err := newApp(context.Background(), cfg); err == nil {
		t.Error("expected error for an unknown min tier")
	}
}
