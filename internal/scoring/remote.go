// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package scoring

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/churnwatch/internal/logging"
	"github.com/tomtom215/churnwatch/internal/metrics"
)

// RemoteParams is the artifact section for a model served over HTTP.
type RemoteParams struct {
	URL     string `json:"url"`
	Timeout string `json:"timeout,omitempty"` // Go duration, e.g. "2s"
}

// RemoteConfig configures a RemoteScorer.
type RemoteConfig struct {
	Name      string
	URL       string
	Features  []string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 = unlimited
	Burst     int
	Client    *http.Client

	// Breaker settings; zero values get defaults.
	MaxHalfOpenRequests uint32
	OpenTimeout         time.Duration
	FailureThreshold    uint32
}

// RemoteScorer calls an external model server:
//
//	POST <url>  {"features": {"recency_days": 12, ...}}
//	200         {"probability": 0.83}
//
// Calls go through an outbound rate limiter and a circuit breaker so a
// failing model server fails requests fast instead of piling up.
type RemoteScorer struct {
	name     string
	url      string
	features []string
	timeout  time.Duration
	client   *http.Client
	limiter  *rate.Limiter
	cb       *gobreaker.CircuitBreaker[float64]
}

type remoteRequest struct {
	Features map[string]float64 `json:"features"`
}

type remoteResponse struct {
	Probability *float64 `json:"probability"`
	Error       string   `json:"error,omitempty"`
}

// ErrRemoteStatus is wrapped when the model server answers with a non-2xx status.
var ErrRemoteStatus = errors.New("model server returned error status")

// NewRemoteScorer validates cfg and builds the scorer.
func NewRemoteScorer(cfg RemoteConfig) (*RemoteScorer, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: remote url %q must be an absolute http(s) URL", ErrArtifactInvalid, cfg.URL)
	}
	if len(cfg.Features) == 0 {
		return nil, fmt.Errorf("%w: remote model needs the feature list", ErrArtifactInvalid)
	}

	name := cfg.Name
	if name == "" {
		name = "remote-scorer"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	maxHalfOpen := cfg.MaxHalfOpenRequests
	if maxHalfOpen == 0 {
		maxHalfOpen = 3
	}
	openTimeout := cfg.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[float64](gobreaker.Settings{
		Name:        name,
		MaxRequests: maxHalfOpen,
		Interval:    time.Minute,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("[CIRCUIT BREAKER] State transition")
			metrics.RecordCircuitBreakerTransition(name, from, to)
		},
	})

	features := make([]string, len(cfg.Features))
	copy(features, cfg.Features)

	return &RemoteScorer{
		name:     name,
		url:      cfg.URL,
		features: features,
		timeout:  timeout,
		client:   client,
		limiter:  limiter,
		cb:       cb,
	}, nil
}

// PredictProbability posts the row to the model server.
func (r *RemoteScorer) PredictProbability(ctx context.Context, row []float64) (float64, error) {
	if len(row) != len(r.features) {
		return 0, fmt.Errorf("row has %d values, model expects %d", len(row), len(r.features))
	}
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("rate limiter: %w", err)
		}
	}
	return r.cb.Execute(func() (float64, error) {
		return r.call(ctx, row)
	})
}

func (r *RemoteScorer) call(ctx context.Context, row []float64) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req := remoteRequest{Features: make(map[string]float64, len(row))}
	for i, name := range r.features {
		req.Features[name] = row[i]
	}
	body, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if id := logging.RequestIDFromContext(ctx); id != "" {
		httpReq.Header.Set("X-Request-ID", id)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("call model server: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("%w: %d", ErrRemoteStatus, resp.StatusCode)
	}

	var out remoteResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	if out.Error != "" {
		return 0, fmt.Errorf("model server: %s", out.Error)
	}
	if out.Probability == nil {
		return 0, errors.New("model server response has no probability")
	}
	return *out.Probability, nil
}

// State returns the breaker state ("closed", "half-open", "open").
func (r *RemoteScorer) State() string {
	return r.cb.State().String()
}
