// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package scoring

import (
	"context"
	"errors"
)

// ProbabilisticScorer returns the positive-class probability for a feature row.
type ProbabilisticScorer interface {
	PredictProbability(ctx context.Context, row []float64) (float64, error)
}

// LabelScorer only exposes a hard class label for a feature row.
type LabelScorer interface {
	PredictLabel(ctx context.Context, row []float64) (int, error)
}

// Kind identifies which scorer variant a Model holds.
type Kind string

const (
	KindProbabilistic Kind = "probabilistic"
	KindLabel         Kind = "label"
)

// Info describes a loaded model.
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Algorithm string `json:"algorithm"`
	Source    string `json:"source"`
	Checksum  string `json:"checksum,omitempty"`
}

// Model holds exactly one scorer variant, chosen when the model is loaded.
type Model struct {
	kind  Kind
	prob  ProbabilisticScorer
	label LabelScorer
	info  Info
}

// NewProbabilisticModel wraps a scorer that yields probabilities.
func NewProbabilisticModel(s ProbabilisticScorer, info Info) *Model {
	return &Model{kind: KindProbabilistic, prob: s, info: info}
}

// NewLabelModel wraps a label-only scorer. Its labels are used as
// probabilities: label 1 reads as probability 1.0.
func NewLabelModel(s LabelScorer, info Info) *Model {
	return &Model{kind: KindLabel, label: s, info: info}
}

// Kind returns the scorer variant.
func (m *Model) Kind() Kind { return m.kind }

// Info returns the model description.
func (m *Model) Info() Info { return m.info }

var errNoScorer = errors.New("model has no scorer")

func (m *Model) probability(ctx context.Context, row []float64) (float64, error) {
	switch m.kind {
	case KindProbabilistic:
		if m.prob == nil {
			return 0, errNoScorer
		}
		return m.prob.PredictProbability(ctx, row)
	case KindLabel:
		if m.label == nil {
			return 0, errNoScorer
		}
		label, err := m.label.PredictLabel(ctx, row)
		if err != nil {
			return 0, err
		}
		return float64(label), nil
	default:
		return 0, errNoScorer
	}
}

// ProbabilityFunc adapts a plain function to ProbabilisticScorer.
type ProbabilityFunc func(ctx context.Context, row []float64) (float64, error)

// PredictProbability calls f.
func (f ProbabilityFunc) PredictProbability(ctx context.Context, row []float64) (float64, error) {
	return f(ctx, row)
}

// LabelFunc adapts a plain function to LabelScorer.
type LabelFunc func(ctx context.Context, row []float64) (int, error)

// PredictLabel calls f.
func (f LabelFunc) PredictLabel(ctx context.Context, row []float64) (int, error) {
	return f(ctx, row)
}
