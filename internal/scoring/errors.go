// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package scoring

import (
	"errors"
	"fmt"
)

// ErrModelUnavailable means no scoring model is loaded. Callers surface it as
// service unavailable.
var ErrModelUnavailable = errors.New("model not loaded")

// Artifact loading errors.
var (
	ErrArtifactNotFound = errors.New("model artifact not found")
	ErrArtifactInvalid  = errors.New("invalid model artifact")
	ErrChecksumMismatch = errors.New("model artifact checksum mismatch")
	ErrFeatureMismatch  = errors.New("model features do not match schema")
)

// ScoringError wraps any failure raised while invoking a loaded model.
type ScoringError struct {
	Model string
	Err   error
}

func (e *ScoringError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("scoring failed: %v", e.Err)
	}
	return fmt.Sprintf("scoring failed (%s): %v", e.Model, e.Err)
}

func (e *ScoringError) Unwrap() error { return e.Err }

// IsScoringError reports whether err is or wraps a *ScoringError.
func IsScoringError(err error) bool {
	var se *ScoringError
	return errors.As(err, &se)
}
