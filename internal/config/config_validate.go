// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/churnwatch/internal/logging"
	"github.com/tomtom215/churnwatch/internal/policy"
	"github.com/tomtom215/churnwatch/internal/validation"
)

// Validate checks the loaded configuration. Any error here stops startup;
// in particular misordered risk thresholds are never silently accepted.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	checks := []func() error{
		c.validateServer,
		c.validateLogging,
		c.validateModel,
		c.validateRetention,
		c.validateData,
		c.validateSecurity,
		c.validateEvents,
		c.validateAudit,
		c.validateMetrics,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	switch c.Server.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be development, staging or production, got %q", c.Server.Environment)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a known level", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
}

func (c *Config) validateModel() error {
	if c.Model.RemoteURL != "" {
		if err := validateEndpointURL(c.Model.RemoteURL, "MODEL_REMOTE_URL", "http", "https"); err != nil {
			return err
		}
	}
	if c.Model.RemoteTimeout < 0 {
		return fmt.Errorf("MODEL_REMOTE_TIMEOUT must not be negative")
	}
	if c.Model.RemoteRateLimit < 0 {
		return fmt.Errorf("MODEL_REMOTE_RATE_LIMIT must not be negative")
	}
	if c.Model.RemoteRateLimit > 0 && c.Model.RemoteBurst < 1 {
		return fmt.Errorf("MODEL_REMOTE_BURST must be at least 1 when a rate limit is set")
	}
	return nil
}

// validateRetention rejects thresholds that do not satisfy
// 1 >= high > medium > low >= 0.
func (c *Config) validateRetention() error {
	if err := c.RetentionPolicy.Thresholds().Validate(); err != nil {
		return fmt.Errorf("retention_policy: %w", err)
	}
	return nil
}

func (c *Config) validateData() error {
	if c.Data.Dir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	return nil
}

const minJWTSecretLength = 32

// Rate limit bounds
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

func (c *Config) validateSecurity() error {
	if c.Security.AuthMode == "jwt" {
		if len(c.Security.JWTSecret) < minJWTSecretLength {
			return fmt.Errorf("JWT_SECRET must be at least %d characters when AUTH_MODE=jwt", minJWTSecretLength)
		}
		if c.Security.SessionTimeout <= 0 {
			return fmt.Errorf("SESSION_TIMEOUT must be positive when AUTH_MODE=jwt")
		}
	}
	if c.IsProduction() && c.Security.AuthMode == "jwt" && c.hasWildcardCORS() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production with authentication enabled; " +
			"set explicit origins or ENVIRONMENT=development")
	}
	switch c.Security.DefaultRole {
	case "viewer", "admin":
	default:
		return fmt.Errorf("DEFAULT_ROLE must be viewer or admin, got %q", c.Security.DefaultRole)
	}
	return c.validateRateLimits()
}

func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d, got %d",
			minRateLimitRequests, maxRateLimitRequests, c.Security.RateLimitReqs)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v, got %v",
			minRateLimitWindow, maxRateLimitWindow, c.Security.RateLimitWindow)
	}
	return nil
}

func (c *Config) validateEvents() error {
	if !c.Events.Enabled {
		return nil
	}
	if c.Events.Topic == "" {
		return fmt.Errorf("EVENTS_TOPIC is required when events are enabled")
	}
	if _, err := policy.ParseTier(c.Events.MinTier); err != nil {
		return fmt.Errorf("EVENTS_MIN_TIER: %w", err)
	}
	if c.Events.Transport != "nats" {
		return nil
	}
	if c.Events.EmbeddedNATS {
		if c.Events.NATSPort < 1 || c.Events.NATSPort > 65535 {
			return fmt.Errorf("NATS_PORT must be between 1 and 65535")
		}
		return nil
	}
	if c.Events.NATSURL == "" {
		return fmt.Errorf("NATS_URL is required when EVENTS_TRANSPORT=nats without an embedded server")
	}
	return validateEndpointURL(c.Events.NATSURL, "NATS_URL", "nats", "tls")
}

func (c *Config) validateAudit() error {
	if !c.Audit.Enabled {
		return nil
	}
	if !c.Audit.InMemory && c.Audit.Path == "" {
		return fmt.Errorf("AUDIT_PATH is required unless AUDIT_IN_MEMORY=true")
	}
	if c.Audit.Retention < 0 {
		return fmt.Errorf("AUDIT_RETENTION must not be negative")
	}
	if c.Audit.GCInterval < time.Second {
		return fmt.Errorf("AUDIT_GC_INTERVAL must be at least 1s")
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("METRICS_PATH must start with /")
	}
	return nil
}
