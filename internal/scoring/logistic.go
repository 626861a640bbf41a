// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package scoring

import (
	"context"
	"fmt"
	"math"
)

// LogisticParams is a standardized logistic regression over named features.
//
//	z = intercept + sum_i coef_i * (x_i - mean_i) / scale_i
//	p = 1 / (1 + e^-z)
//
// Missing means default to 0 and missing or zero scales to 1.
type LogisticParams struct {
	Intercept    float64            `json:"intercept"`
	Coefficients map[string]float64 `json:"coefficients"`
	Means        map[string]float64 `json:"means,omitempty"`
	Scales       map[string]float64 `json:"scales,omitempty"`
}

type logisticScorer struct {
	intercept float64
	weights   []float64
	means     []float64
	scales    []float64
}

func newLogisticScorer(p *LogisticParams, schema *Schema) (*logisticScorer, error) {
	if p == nil || len(p.Coefficients) == 0 {
		return nil, fmt.Errorf("%w: logistic model has no coefficients", ErrArtifactInvalid)
	}
	for name := range p.Coefficients {
		if !schema.Has(name) {
			return nil, fmt.Errorf("%w: coefficient for unknown feature %q", ErrFeatureMismatch, name)
		}
	}

	n := schema.Len()
	s := &logisticScorer{
		intercept: p.Intercept,
		weights:   make([]float64, n),
		means:     make([]float64, n),
		scales:    make([]float64, n),
	}
	for i, name := range schema.names {
		s.weights[i] = p.Coefficients[name]
		s.means[i] = p.Means[name]
		scale := p.Scales[name]
		if scale == 0 {
			scale = 1
		}
		s.scales[i] = scale
	}
	return s, nil
}

func (s *logisticScorer) PredictProbability(_ context.Context, row []float64) (float64, error) {
	if len(row) != len(s.weights) {
		return 0, fmt.Errorf("row has %d values, model expects %d", len(row), len(s.weights))
	}
	z := s.intercept
	for i, x := range row {
		z += s.weights[i] * (x - s.means[i]) / s.scales[i]
	}
	return sigmoid(z), nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
