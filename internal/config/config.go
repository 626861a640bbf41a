// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package config

import (
	"path/filepath"
	"time"

	"github.com/tomtom215/churnwatch/internal/policy"
)

// Config holds all application configuration loaded from defaults, an optional
// YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in values that reproduce the stock deployment
//  2. Config File: Optional YAML file (config.yaml) for persistent settings
//  3. Environment Variables: Override any mapped setting
//
// A missing config file is not an error. The service runs on defaults, which
// include the stock retention thresholds (0.7 / 0.5 / 0.3).
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to load configuration")
//	}
//	evaluator, _ := policy.NewEvaluator(cfg.RetentionPolicy.Thresholds())
type Config struct {
	App             AppConfig             `koanf:"app"`
	Server          ServerConfig          `koanf:"server"`
	Logging         LoggingConfig         `koanf:"logging"`
	Model           ModelConfig           `koanf:"model"`
	RetentionPolicy RetentionPolicyConfig `koanf:"retention_policy"`
	Data            DataConfig            `koanf:"data"`
	Security        SecurityConfig        `koanf:"security"`
	Events          EventsConfig          `koanf:"events"`
	Audit           AuditConfig           `koanf:"audit"`
	Metrics         MetricsConfig         `koanf:"metrics"`

	// ConfigFile is the path of the file that was loaded, empty when running on defaults.
	ConfigFile string `koanf:"-"`
}

// AppConfig identifies the service in the root payload and API docs.
type AppConfig struct {
	Name    string `koanf:"name" validate:"required"`
	Version string `koanf:"version" validate:"required"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port        int           `koanf:"port" validate:"min=1,max=65535"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development, staging, production
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `koanf:"level"`  // trace, debug, info, warn, error
	Format string `koanf:"format"` // json or console
	Caller bool   `koanf:"caller"` // include caller file:line
}

// ModelConfig locates the scoring model and its feature list.
type ModelConfig struct {
	// Path is the primary model artifact. When it does not exist the
	// FallbackPath is used instead.
	Path         string `koanf:"path" validate:"required"`
	FallbackPath string `koanf:"fallback_path"`
	FeaturesPath string `koanf:"features_path"`

	// ValidationMode is "partial" (missing features are zero-filled) or
	// "total" (every feature is required on /predict).
	ValidationMode string `koanf:"validation_mode" validate:"oneof=partial total"`

	// Remote scorer settings, used when the artifact kind is "remote".
	RemoteURL       string        `koanf:"remote_url"`
	RemoteTimeout   time.Duration `koanf:"remote_timeout"`
	RemoteRateLimit float64       `koanf:"remote_rate_limit"` // requests per second, 0 = unlimited
	RemoteBurst     int           `koanf:"remote_burst"`
}

// RetentionPolicyConfig holds the risk thresholds and retention list settings.
type RetentionPolicyConfig struct {
	HighRiskThreshold   float64 `koanf:"high_risk_threshold"`
	MediumRiskThreshold float64 `koanf:"medium_risk_threshold"`
	LowRiskThreshold    float64 `koanf:"low_risk_threshold"`

	// HighRiskCountThreshold is the strict cut-off used by the overview metric.
	HighRiskCountThreshold float64 `koanf:"high_risk_count_threshold" validate:"gte=0,lte=1"`
	// AtRiskThreshold is the default minimum churn risk for the at-risk list.
	AtRiskThreshold float64 `koanf:"at_risk_threshold" validate:"gte=0,lte=1"`
	// PriorityQuantile picks the default minimum priority score.
	PriorityQuantile float64 `koanf:"priority_quantile" validate:"gte=0,lte=1"`
	// ListLimit caps priority and at-risk lists.
	ListLimit int `koanf:"list_limit" validate:"min=1,max=10000"`
}

// Thresholds returns the policy thresholds in evaluator form.
func (r RetentionPolicyConfig) Thresholds() policy.Thresholds {
	return policy.Thresholds{
		High:   r.HighRiskThreshold,
		Medium: r.MediumRiskThreshold,
		Low:    r.LowRiskThreshold,
	}
}

// DataConfig locates the precomputed retention tables.
type DataConfig struct {
	Dir        string `koanf:"dir"`
	DuckDBPath string `koanf:"duckdb_path"` // empty = in-memory
	MaxMemory  string `koanf:"max_memory"`
	Threads    int    `koanf:"threads" validate:"min=0,max=256"`

	SegmentsWithCLVFile string `koanf:"segments_with_clv_file"`
	SegmentsFile        string `koanf:"segments_file"`
	CLVBySegmentFile    string `koanf:"clv_by_segment_file"`
	ChurnRiskFile       string `koanf:"churn_risk_file"`
	RetentionPolicyFile string `koanf:"retention_policy_file"`

	// PersistRebuild writes every rebuilt policy back to RetentionPolicyFile.
	PersistRebuild bool `koanf:"persist_rebuild"`
}

// RetentionPolicyPath is the full path of the retention policy CSV.
func (d DataConfig) RetentionPolicyPath() string {
	return filepath.Join(d.Dir, d.RetentionPolicyFile)
}

// SecurityConfig holds authentication, rate limiting and CORS settings.
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode" validate:"oneof=none jwt"`
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	DefaultRole       string        `koanf:"default_role"`
	PolicyPath        string        `koanf:"policy_path"` // optional casbin policy CSV
}

// EventsConfig controls high-risk prediction events.
type EventsConfig struct {
	Enabled      bool   `koanf:"enabled"`
	Transport    string `koanf:"transport" validate:"oneof=gochannel nats"`
	Topic        string `koanf:"topic"`
	NATSURL      string `koanf:"nats_url"`
	EmbeddedNATS bool   `koanf:"embedded_nats"`
	NATSHost     string `koanf:"nats_host"`
	NATSPort     int    `koanf:"nats_port"`
	// MinTier is the lowest risk tier that produces an event.
	MinTier string `koanf:"min_tier"`
}

// AuditConfig controls the badger-backed prediction log.
type AuditConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Path       string        `koanf:"path"`
	InMemory   bool          `koanf:"in_memory"`
	Retention  time.Duration `koanf:"retention"`
	GCInterval time.Duration `koanf:"gc_interval"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// ShouldWarnAboutCORS returns true when a wildcard origin is combined with authentication.
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.Security.AuthMode != "none" && c.hasWildcardCORS()
}
