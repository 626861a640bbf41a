// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

// Package retention answers retention questions over the loaded customer data:
// the headline overview, CLV by segment, per-action summaries, value-ordered
// priority lists, the at-risk fallback list and CSV export.
//
// Reads are cached per data version, so a reload or Rebuild invalidates them
// without explicit bookkeeping. Rebuild regenerates the whole policy table
// from churn risk and CLV using the priority scorer and the risk evaluator.
package retention
