// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package events

import (
	"context"

	"github.com/tomtom215/churnwatch/internal/logging"
	"github.com/tomtom215/churnwatch/internal/policy"
	"github.com/tomtom215/churnwatch/internal/predict"
)

// Publisher is the publish side of a Bus.
type Publisher interface {
	Publish(ctx context.Context, e HighRiskEvent) error
}

// Notifier publishes an event for every prediction at or above MinTier.
// It implements predict.Observer.
type Notifier struct {
	pub     Publisher
	minTier policy.Tier
}

var _ predict.Observer = (*Notifier)(nil)

// NewNotifier returns a notifier for predictions at or above minTier.
func NewNotifier(pub Publisher, minTier policy.Tier) *Notifier {
	if minTier == "" {
		minTier = policy.TierHigh
	}
	return &Notifier{pub: pub, minTier: minTier}
}

// Observe publishes qualifying predictions. Publish failures are returned
// for the predictor to log; the prediction itself still succeeds.
func (n *Notifier) Observe(ctx context.Context, p predict.Prediction) error {
	if !p.Tier.AtLeast(n.minTier) {
		return nil
	}
	e := FromPrediction(p, logging.RequestIDFromContext(ctx))
	if err := n.pub.Publish(ctx, e); err != nil {
		return err
	}
	logging.Ctx(ctx).Debug().
		Str("prediction_id", p.ID).
		Str("tier", string(p.Tier)).
		Msg("High-risk event published")
	return nil
}
