// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

// Package validation wraps go-playground/validator v10 with a shared
// instance, churn-specific tags and messages that name JSON fields.
//
// It is used for configuration sections, the typed customer feature payload
// and query parameters of the retention endpoints:
//
//	type AtRiskQuery struct {
//	    Threshold float64 `json:"threshold" validate:"probability"`
//	    Limit     int     `json:"limit" validate:"min=1,max=10000"`
//	}
//
// Failures convert to the API's VALIDATION_ERROR shape with ToAPIError.
package validation
