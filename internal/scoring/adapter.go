// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package scoring

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/tomtom215/churnwatch/internal/metrics"
)

// Adapter turns feature vectors into model rows and model output into a
// churn probability. A nil model is allowed and makes every call fail with
// ErrModelUnavailable.
type Adapter struct {
	schema *Schema
	model  *Model
}

// NewAdapter binds a schema to a (possibly nil) model.
func NewAdapter(schema *Schema, model *Model) *Adapter {
	if schema == nil {
		schema = DefaultSchema()
	}
	return &Adapter{schema: schema, model: model}
}

// Ready reports whether a model is loaded.
func (a *Adapter) Ready() bool {
	return a != nil && a.model != nil
}

// Schema returns the feature schema.
func (a *Adapter) Schema() *Schema { return a.schema }

// Model returns the loaded model or nil.
func (a *Adapter) Model() *Model { return a.model }

// Score builds the row for v and invokes the model.
//
// Errors:
//   - ErrModelUnavailable when no model is loaded
//   - *ScoringError for any failure inside the model, including a
//     probability outside [0,1]
func (a *Adapter) Score(ctx context.Context, v FeatureVector) (float64, error) {
	if !a.Ready() {
		return 0, ErrModelUnavailable
	}

	row := a.schema.Row(v)

	start := time.Now()
	p, err := a.model.probability(ctx, row)
	metrics.RecordScoring(string(a.model.kind), time.Since(start))
	if err != nil {
		return 0, &ScoringError{Model: a.model.info.Name, Err: err}
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, &ScoringError{Model: a.model.info.Name, Err: fmt.Errorf("model returned %v, outside [0,1]", p)}
	}
	return p, nil
}
