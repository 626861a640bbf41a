// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package audit

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/churnwatch/internal/predict"
)

// ErrNotFound is returned by Get for unknown or expired ids.
var ErrNotFound = errors.New("prediction not found")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("audit store is closed")

// Entry is one recorded prediction.
type Entry struct {
	predict.Prediction

	RequestID     string    `json:"request_id,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// Store persists prediction entries.
type Store interface {
	Save(ctx context.Context, e *Entry) error
	Get(ctx context.Context, id string) (*Entry, error)
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}
