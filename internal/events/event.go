// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/churnwatch/internal/predict"
)

// DefaultTopic carries high-risk prediction events.
const DefaultTopic = "retention.high_risk"

// HighRiskEvent is published for each prediction at or above the configured tier.
type HighRiskEvent struct {
	PredictionID string    `json:"prediction_id"`
	Tier         string    `json:"churn_risk_level"`
	Action       string    `json:"recommended_action"`
	Probability  float64   `json:"churn_probability"`
	Model        string    `json:"model,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// FromPrediction builds the event for p.
func FromPrediction(p predict.Prediction, requestID string) HighRiskEvent {
	return HighRiskEvent{
		PredictionID: p.ID,
		Tier:         string(p.Tier),
		Action:       string(p.Action),
		Probability:  p.Probability,
		Model:        p.Model,
		RequestID:    requestID,
		OccurredAt:   p.ScoredAt,
	}
}

// newMessage encodes e. The prediction id doubles as the message id so
// redeliveries can be recognized downstream.
func newMessage(e HighRiskEvent) (*message.Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("serialize event: %w", err)
	}
	msg := message.NewMessage(e.PredictionID, data)
	msg.Metadata.Set("tier", e.Tier)
	if e.RequestID != "" {
		msg.Metadata.Set("request_id", e.RequestID)
	}
	return msg, nil
}

// decodeMessage is the inverse of newMessage.
func decodeMessage(msg *message.Message) (HighRiskEvent, error) {
	var e HighRiskEvent
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		return HighRiskEvent{}, fmt.Errorf("deserialize event %s: %w", msg.UUID, err)
	}
	return e, nil
}
