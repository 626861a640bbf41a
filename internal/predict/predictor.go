// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package predict

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/churnwatch/internal/logging"
	"github.com/tomtom215/churnwatch/internal/metrics"
	"github.com/tomtom215/churnwatch/internal/policy"
	"github.com/tomtom215/churnwatch/internal/scoring"
)

// Prediction is the outcome of scoring one customer.
type Prediction struct {
	ID string `json:"id"`

	// Probability is RawProbability rounded to 4 decimals.
	Probability    float64 `json:"churn_probability"`
	RawProbability float64 `json:"raw_probability"`

	Tier   policy.Tier   `json:"churn_risk_level"`
	Action policy.Action `json:"recommended_action"`

	Model    string    `json:"model,omitempty"`
	ScoredAt time.Time `json:"scored_at"`
}

// Observer is notified after every successful prediction.
type Observer interface {
	Observe(ctx context.Context, p Prediction) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, p Prediction) error

// Observe calls f.
func (f ObserverFunc) Observe(ctx context.Context, p Prediction) error { return f(ctx, p) }

// Options configures New.
type Options struct {
	// Schema defaults to scoring.DefaultSchema.
	Schema *scoring.Schema

	// Model may be nil. The predictor is then built but every Predict call
	// returns scoring.ErrModelUnavailable.
	Model *scoring.Model

	Thresholds policy.Thresholds

	// ModelPath is the resolved artifact path reported by health checks.
	ModelPath string

	// Mode controls how Decode treats missing features. Defaults to partial.
	Mode scoring.Mode

	Observers []Observer

	// Now is for tests.
	Now func() time.Time
}

// Predictor holds the schema, model and thresholds built once at startup.
// It is never mutated after New, so it is safe for concurrent use.
type Predictor struct {
	adapter   *scoring.Adapter
	evaluator *policy.Evaluator
	modelPath string
	mode      scoring.Mode
	observers []Observer
	now       func() time.Time
}

// New validates the thresholds and builds a Predictor.
func New(opts Options) (*Predictor, error) {
	evaluator, err := policy.NewEvaluator(opts.Thresholds)
	if err != nil {
		return nil, fmt.Errorf("failed to build risk policy: %w", err)
	}

	mode := opts.Mode
	if mode == "" {
		mode = scoring.ModePartial
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Predictor{
		adapter:   scoring.NewAdapter(opts.Schema, opts.Model),
		evaluator: evaluator,
		modelPath: opts.ModelPath,
		mode:      mode,
		observers: append([]Observer(nil), opts.Observers...),
		now:       now,
	}, nil
}

// Ready reports whether a model is loaded.
func (p *Predictor) Ready() bool { return p.adapter.Ready() }

// ModelPath returns the resolved model path, loaded or not.
func (p *Predictor) ModelPath() string { return p.modelPath }

// ModelInfo returns the loaded model's metadata and false when none is loaded.
func (p *Predictor) ModelInfo() (scoring.Info, bool) {
	if !p.Ready() {
		return scoring.Info{}, false
	}
	return p.adapter.Model().Info(), true
}

// Schema returns the feature schema.
func (p *Predictor) Schema() *scoring.Schema { return p.adapter.Schema() }

// Mode returns the feature validation mode.
func (p *Predictor) Mode() scoring.Mode { return p.mode }

// Thresholds returns the validated risk thresholds.
func (p *Predictor) Thresholds() policy.Thresholds { return p.evaluator.Thresholds() }

// Classify applies the risk policy to a probability without scoring.
func (p *Predictor) Classify(prob float64) policy.Decision { return p.evaluator.Evaluate(prob) }

// Decode converts a raw JSON object using the configured validation mode.
func (p *Predictor) Decode(raw map[string]any) (scoring.FeatureVector, error) {
	return p.adapter.Schema().Decode(raw, p.mode)
}

// Predict scores v, classifies the probability and notifies observers.
//
// The tier is decided on the unrounded probability, so a score of 0.69996
// is Medium even though it is reported as 0.7.
func (p *Predictor) Predict(ctx context.Context, v scoring.FeatureVector) (Prediction, error) {
	prob, err := p.adapter.Score(ctx, v)
	if err != nil {
		switch {
		case errors.Is(err, scoring.ErrModelUnavailable):
			metrics.RecordScoringError("unavailable")
		default:
			metrics.RecordScoringError("model")
		}
		return Prediction{}, err
	}

	decision := p.evaluator.Evaluate(prob)
	pred := Prediction{
		ID:             uuid.NewString(),
		Probability:    Round4(prob),
		RawProbability: prob,
		Tier:           decision.Tier,
		Action:         decision.Action,
		Model:          p.adapter.Model().Info().Name,
		ScoredAt:       p.now().UTC(),
	}
	metrics.RecordPrediction(string(pred.Tier), prob)

	for _, o := range p.observers {
		if err := o.Observe(ctx, pred); err != nil {
			logging.Ctx(ctx).Warn().Err(err).
				Str("prediction_id", pred.ID).
				Msg("Prediction observer failed")
		}
	}
	return pred, nil
}

// Round4 rounds to 4 decimal places, halves away from zero.
func Round4(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	return math.Round(f*1e4) / 1e4
}
