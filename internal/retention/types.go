// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package retention

import (
	"time"

	"github.com/tomtom215/churnwatch/internal/database"
	"github.com/tomtom215/churnwatch/internal/policy"
)

// Overview is the headline block of the retention dashboard. Fields that need
// data which was not loaded are nil.
type Overview struct {
	Mode           database.Mode `json:"mode"`
	TotalCustomers int64         `json:"total_customers"`
	Segments       int64         `json:"segments"`
	TotalCLV       *float64      `json:"total_clv_12m,omitempty"`
	AvgChurnRisk   *float64      `json:"avg_churn_risk,omitempty"`
	HighRiskCount  *int64        `json:"high_risk_count,omitempty"`

	// HighRiskCutoff is the strict lower bound used for HighRiskCount.
	HighRiskCutoff float64 `json:"high_risk_cutoff"`
}

// SegmentValue is CLV aggregated per segment.
type SegmentValue struct {
	Segment   string   `json:"cluster_name"`
	Customers *int64   `json:"customers,omitempty"`
	AvgCLV    *float64 `json:"avg_clv,omitempty"`
	TotalCLV  *float64 `json:"total_clv,omitempty"`
}

// ActionSummary aggregates customers per recommended action.
//
// When the data carries no CLV, AvgCLV and TotalCLV are computed over
// priority scores instead and ValueColumn says so.
type ActionSummary struct {
	Action       string  `json:"recommended_action"`
	Customers    int64   `json:"customers"`
	AvgChurnRisk float64 `json:"avg_churn_risk"`
	AvgCLV       float64 `json:"avg_clv"`
	TotalCLV     float64 `json:"total_clv"`
	ValueColumn  string  `json:"value_column"`
}

// ActionCount is one bar of the action distribution.
type ActionCount struct {
	Action string `json:"recommended_action"`
	Count  int64  `json:"count"`
}

// Filter selects the priority list variant.
type Filter string

const (
	FilterAll      Filter = "all"
	FilterAction   Filter = "action"
	FilterPriority Filter = "priority"
)

// Query parameterizes PriorityList and Export.
type Query struct {
	Filter Filter `json:"filter" validate:"omitempty,oneof=all action priority"`

	// Actions keeps customers whose recommended action is in the list.
	// FilterAction requires at least one.
	Actions []string `json:"actions,omitempty" validate:"required_if=Filter action,dive,action"`

	// MinPriority is the minimum priority score for FilterPriority. Nil
	// means the configured quantile of all priority scores.
	MinPriority *float64 `json:"min_priority,omitempty"`

	// Limit caps the returned rows. Zero means the configured default.
	// Export ignores it.
	Limit int `json:"limit" validate:"min=0,max=10000"`
}

// Customer is one row of a priority or at-risk list.
type Customer struct {
	CustomerID    string   `json:"customer_id"`
	Segment       *string  `json:"cluster_name,omitempty"`
	ChurnRisk     *float64 `json:"churn_risk,omitempty"`
	CLV           *float64 `json:"clv_12m,omitempty"`
	PriorityScore *float64 `json:"priority_score,omitempty"`
	Action        *string  `json:"recommended_action,omitempty"`
}

// Page is a limited list plus the size of the unlimited result.
type Page struct {
	Total     int64      `json:"total"`
	Threshold *float64   `json:"threshold,omitempty"`
	Customers []Customer `json:"customers"`
}

// RebuildResult reports a regenerated retention policy.
type RebuildResult struct {
	Rows       int64             `json:"rows"`
	Scored     int64             `json:"scored"`
	Tiers      map[string]int64  `json:"tiers"`
	Thresholds policy.Thresholds `json:"thresholds"`
	Duration   time.Duration     `json:"duration_ns"`
	PersistTo  string            `json:"persisted_to,omitempty"`
}
