// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package middleware

import (
	"net/http"
	"regexp"

	"github.com/tomtom215/churnwatch/internal/logging"
)

// RequestIDHeader is read from requests and echoed on responses.
const RequestIDHeader = "X-Request-ID"

// Upstream IDs are accepted only when they look like IDs.
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// RequestID ensures every request carries an ID. A well-formed upstream
// X-Request-ID is kept; anything else is replaced with a new UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if !validRequestID.MatchString(requestID) {
			requestID = logging.GenerateRequestID()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := logging.ContextWithRequestID(r.Context(), requestID)
		ctx = logging.ContextWithNewCorrelationID(ctx)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
