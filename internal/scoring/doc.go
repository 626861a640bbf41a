// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

/*
Package scoring invokes the churn model.

# Feature rows

A Schema is the ordered feature list the model was trained on, read from a
JSON array of names (models/features.json) or the built-in default:

	recency_days, frequency_invoices, monetary,
	avg_order_value, avg_items_per_invoice, active_months

Schema.Row lays a FeatureVector out in that order, fills absent features with
0.0 and drops names the model does not know. Schema.Decode and Schema.Check
apply the explicit validation step (partial or total).

# Scorer variants

A Model holds exactly one of two scorer interfaces, chosen when the artifact
is loaded:

	ProbabilisticScorer  positive-class probability
	LabelScorer          hard label, cast to 0.0 / 1.0

Label-only models lose precision: label 1 and probability 1.0 look the same
downstream.

# Artifacts

Model artifacts are JSON (optionally gzip) documents with a "kind":

	logistic  standardized logistic regression      ProbabilisticScorer
	rules     threshold rules producing a label     LabelScorer
	remote    HTTP model server behind a breaker    ProbabilisticScorer

The stored SHA-256 checksum covers the kind, features and parameters.

# Errors

Adapter.Score returns ErrModelUnavailable when no model is loaded and a
*ScoringError for any failure inside the model.
*/
package scoring
