// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/churnwatch/config.yaml",
	"/etc/churnwatch/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in configuration. These values are also the
// fallback used when no config file exists.
func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:    "Retail Churn API",
			Version: "1.0.0",
		},
		Server: ServerConfig{
			Port:        8000,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Model: ModelConfig{
			Path:            "models/churn_model.json",
			FallbackPath:    "models/churn_model_fallback.json",
			FeaturesPath:    "models/features.json",
			ValidationMode:  "partial",
			RemoteTimeout:   2 * time.Second,
			RemoteRateLimit: 0,
			RemoteBurst:     10,
		},
		RetentionPolicy: RetentionPolicyConfig{
			HighRiskThreshold:      0.7,
			MediumRiskThreshold:    0.5,
			LowRiskThreshold:       0.3,
			HighRiskCountThreshold: 0.7,
			AtRiskThreshold:        0.5,
			PriorityQuantile:       0.9,
			ListLimit:              100,
		},
		Data: DataConfig{
			Dir:                 "data/processed",
			DuckDBPath:          "",
			MaxMemory:           "512MB",
			Threads:             0,
			SegmentsWithCLVFile: "customer_segments_with_clv.csv",
			SegmentsFile:        "customer_segments.csv",
			CLVBySegmentFile:    "clv_by_segment.csv",
			ChurnRiskFile:       "customer_churn_risk.csv",
			RetentionPolicyFile: "customer_retention_policy.csv",
		},
		Security: SecurityConfig{
			AuthMode:          "none",
			SessionTimeout:    24 * time.Hour,
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
			DefaultRole:       "viewer",
		},
		Events: EventsConfig{
			Enabled:      false,
			Transport:    "gochannel",
			Topic:        "retention.high_risk",
			EmbeddedNATS: false,
			NATSHost:     "127.0.0.1",
			NATSPort:     4222,
			MinTier:      "High",
		},
		Audit: AuditConfig{
			Enabled:    false,
			Path:       "data/audit",
			InMemory:   false,
			Retention:  30 * 24 * time.Hour,
			GCInterval: 10 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Default returns a copy of the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

// Load reads configuration from defaults, the discovered config file and the environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
// defaults, then config file, then environment variables.
func LoadWithKoanf() (*Config, error) {
	return loadFrom(findConfigFile())
}

// LoadFile loads configuration with an explicit file path. An empty path means defaults plus env.
func LoadFile(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}
	return loadFrom(path)
}

func loadFrom(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	// HIGH_RISK_THRESHOLD -> retention_policy.high_risk_threshold
	// MODEL_PATH -> model.path
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.ConfigFile = configPath

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file that exists, or "" when none does.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are koanf paths that accept comma-separated env values.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps lowercased environment variable names to koanf paths.
var envMappings = map[string]string{
	// App
	"app_name":    "app.name",
	"app_version": "app.version",

	// Server
	"port":         "server.port",
	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Model
	"model_path":              "model.path",
	"fallback_model_path":     "model.fallback_path",
	"features_path":           "model.features_path",
	"feature_validation_mode": "model.validation_mode",
	"model_remote_url":        "model.remote_url",
	"model_remote_timeout":    "model.remote_timeout",
	"model_remote_rate_limit": "model.remote_rate_limit",
	"model_remote_burst":      "model.remote_burst",

	// Retention policy
	"high_risk_threshold":       "retention_policy.high_risk_threshold",
	"medium_risk_threshold":     "retention_policy.medium_risk_threshold",
	"low_risk_threshold":        "retention_policy.low_risk_threshold",
	"high_risk_count_threshold": "retention_policy.high_risk_count_threshold",
	"at_risk_threshold":         "retention_policy.at_risk_threshold",
	"priority_quantile":         "retention_policy.priority_quantile",
	"retention_list_limit":      "retention_policy.list_limit",

	// Data
	"data_dir":          "data.dir",
	"duckdb_path":       "data.duckdb_path",
	"duckdb_max_memory": "data.max_memory",
	"duckdb_threads":    "data.threads",
	"persist_rebuild":   "data.persist_rebuild",

	// Security
	"auth_mode":           "security.auth_mode",
	"jwt_secret":          "security.jwt_secret",
	"session_timeout":     "security.session_timeout",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",
	"default_role":        "security.default_role",
	"casbin_policy_path":  "security.policy_path",

	// Events
	"events_enabled":   "events.enabled",
	"events_transport": "events.transport",
	"events_topic":     "events.topic",
	"events_min_tier":  "events.min_tier",
	"nats_url":         "events.nats_url",
	"nats_embedded":    "events.embedded_nats",
	"nats_host":        "events.nats_host",
	"nats_port":        "events.nats_port",

	// Audit
	"audit_enabled":     "audit.enabled",
	"audit_path":        "audit.path",
	"audit_in_memory":   "audit.in_memory",
	"audit_retention":   "audit.retention",
	"audit_gc_interval": "audit.gc_interval",

	// Metrics
	"metrics_enabled": "metrics.enabled",
	"metrics_path":    "metrics.path",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unmapped variables return "" and are skipped.
//
// Examples:
//   - HIGH_RISK_THRESHOLD -> retention_policy.high_risk_threshold
//   - MODEL_PATH -> model.path
//   - LOG_LEVEL -> logging.level
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
