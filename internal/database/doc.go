// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

// Package database ingests the offline retention outputs into DuckDB.
//
// The batch pipeline writes four CSV files to the data directory:
//
//	customer_segments_with_clv.csv  customer_id, cluster_name, clv_12m, ...
//	   (or customer_segments.csv)
//	clv_by_segment.csv              cluster_name, customers, avg_clv, total_clv
//	customer_churn_risk.csv         customer_id, churn_risk
//	customer_retention_policy.csv   customer_id, churn_risk, priority_score, recommended_action
//
// Load reads whichever exist with read_csv_auto. Any subset is valid. The
// customer_view normalizes them to a fixed column set so the retention
// service does not have to branch on which files were present; Mode tells it
// which questions the data can answer.
//
// The service treats these tables as read-only except for
// ReplaceRetentionPolicy, which swaps in a regenerated policy table in one
// transaction.
package database
