// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/churnwatch/internal/logging"
)

// APIResponse is the standard envelope for /api/v1 responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

// APIError is the error block of an APIResponse.
type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// APIMeta carries request metadata.
type APIMeta struct {
	RequestID  string          `json:"request_id,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	DurationMs int64           `json:"duration_ms"`
	Pagination *PaginationMeta `json:"pagination,omitempty"`
}

// PaginationMeta describes a truncated list.
type PaginationMeta struct {
	Total   int64 `json:"total"`
	Count   int   `json:"count"`
	Limit   int   `json:"limit,omitempty"`
	HasMore bool  `json:"has_more"`
}

// Error codes
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeValidationFailed   = "VALIDATION_ERROR"
	ErrCodeDatabaseError      = "DATABASE_ERROR"
	ErrCodeModelUnavailable   = "MODEL_UNAVAILABLE"
	ErrCodeScoringFailed      = "SCORING_FAILED"
	ErrCodeDataUnavailable    = "DATA_UNAVAILABLE"
)

// ResponseWriter writes enveloped responses and stamps request metadata.
type ResponseWriter struct {
	w         http.ResponseWriter
	r         *http.Request
	startTime time.Time
}

// NewResponseWriter creates a ResponseWriter for one request.
func NewResponseWriter(w http.ResponseWriter, r *http.Request) *ResponseWriter {
	return &ResponseWriter{w: w, r: r, startTime: time.Now()}
}

func (rw *ResponseWriter) meta() *APIMeta {
	return &APIMeta{
		RequestID:  logging.RequestIDFromContext(rw.r.Context()),
		Timestamp:  time.Now().UTC(),
		DurationMs: time.Since(rw.startTime).Milliseconds(),
	}
}

// Success writes a 200 envelope.
func (rw *ResponseWriter) Success(data interface{}) {
	rw.writeJSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: rw.meta()})
}

// SuccessWithPagination writes a 200 envelope with pagination metadata.
func (rw *ResponseWriter) SuccessWithPagination(data interface{}, p *PaginationMeta) {
	meta := rw.meta()
	meta.Pagination = p
	rw.writeJSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: meta})
}

// Error writes an error envelope.
func (rw *ResponseWriter) Error(statusCode int, code, message string) {
	rw.ErrorWithDetails(statusCode, code, message, nil)
}

// ErrorWithDetails writes an error envelope with details.
func (rw *ResponseWriter) ErrorWithDetails(statusCode int, code, message string, details interface{}) {
	meta := rw.meta()
	rw.writeJSON(statusCode, APIResponse{
		Success: false,
		Error: &APIError{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: meta.RequestID,
		},
		Meta: meta,
	})
}

// BadRequest writes a 400.
func (rw *ResponseWriter) BadRequest(message string) {
	rw.Error(http.StatusBadRequest, ErrCodeBadRequest, message)
}

// NotFound writes a 404.
func (rw *ResponseWriter) NotFound(message string) {
	rw.Error(http.StatusNotFound, ErrCodeNotFound, message)
}

// InternalError writes a 500.
func (rw *ResponseWriter) InternalError(message string) {
	rw.Error(http.StatusInternalServerError, ErrCodeInternalError, message)
}

// ServiceUnavailable writes a 503.
func (rw *ResponseWriter) ServiceUnavailable(code, message string) {
	rw.Error(http.StatusServiceUnavailable, code, message)
}

// ValidationError writes a 422 with per-field details.
func (rw *ResponseWriter) ValidationError(message string, details interface{}) {
	rw.ErrorWithDetails(http.StatusUnprocessableEntity, ErrCodeValidationFailed, message, details)
}

// DatabaseError logs err and writes a generic 500.
func (rw *ResponseWriter) DatabaseError(err error) {
	logging.Ctx(rw.r.Context()).Error().Err(err).Msg("Database error")
	rw.Error(http.StatusInternalServerError, ErrCodeDatabaseError, "A database error occurred")
}

func (rw *ResponseWriter) writeJSON(statusCode int, data interface{}) {
	writeJSON(rw.w, statusCode, data)
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// detailResponse is the error body of the public prediction endpoints.
type detailResponse struct {
	Detail interface{} `json:"detail"`
}

// fieldError is one entry of a 422 detail list.
type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func writeDetail(w http.ResponseWriter, statusCode int, detail interface{}) {
	writeJSON(w, statusCode, detailResponse{Detail: detail})
}
