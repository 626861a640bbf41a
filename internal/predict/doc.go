// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

// Package predict combines the scoring adapter and the risk policy into a
// single immutable Predictor shared by every request handler.
//
//	pred, err := predictor.Predict(ctx, features)
//	switch {
//	case errors.Is(err, scoring.ErrModelUnavailable): // 503
//	case scoring.IsScoringError(err):                // 500
//	}
//
// Observers (audit log, event publisher) run after each successful
// prediction. Their errors are logged and never change the response.
package predict
