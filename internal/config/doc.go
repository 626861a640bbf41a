// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

// Package config loads Churnwatch configuration with Koanf v2.
//
// Sources are layered, later ones winning:
//
//  1. Built-in defaults (defaultConfig)
//  2. An optional YAML file: CONFIG_PATH, ./config.yaml or /etc/churnwatch/config.yaml
//  3. Environment variables listed in envMappings
//
// Example config.yaml:
//
//	model:
//	  path: models/churn_model.json
//	  validation_mode: partial
//	retention_policy:
//	  high_risk_threshold: 0.75
//	  medium_risk_threshold: 0.5
//	  low_risk_threshold: 0.25
//	security:
//	  auth_mode: jwt
//	  cors_origins: [https://crm.example.com]
//
// Equivalent environment overrides:
//
//	HIGH_RISK_THRESHOLD=0.75 AUTH_MODE=jwt JWT_SECRET=... CORS_ORIGINS=https://crm.example.com
//
// Validate runs after every load. Risk thresholds must satisfy
// 1 >= high > medium > low >= 0 or the service refuses to start.
package config
