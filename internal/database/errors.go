// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package database

import (
	"errors"
	"io"

	"github.com/tomtom215/churnwatch/internal/logging"
)

// ErrNotAvailable is returned when the table a query needs was not loaded.
var ErrNotAvailable = errors.New("retention data not available")

// closeWithLog closes a resource and logs a failure.
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource on an error path where Close errors are not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
