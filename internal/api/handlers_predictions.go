// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/churnwatch/internal/audit"
)

// defaultRecentLimit applies when the limit parameter is absent.
const defaultRecentLimit = 50

// RecentPredictions lists audited predictions, newest first.
//
// @Summary Recent predictions
// @Tags Predictions
// @Produce json
// @Param limit query int false "Maximum entries (default 50, max 1000)"
// @Success 200 {object} APIResponse{data=[]audit.Entry}
// @Failure 503 {object} APIResponse "Prediction log disabled"
// @Security BearerAuth
// @Router /api/v1/predictions/recent [get]
func (h *Handler) RecentPredictions(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.predictions == nil {
		rw.ServiceUnavailable(ErrCodeServiceUnavailable, "prediction log is disabled")
		return
	}
	req, err := parseRecentRequest(r.URL.Query())
	if err != nil {
		writeRequestError(rw, err)
		return
	}
	limit := req.Limit
	if limit == 0 {
		limit = defaultRecentLimit
	}

	entries, err := h.predictions.Recent(r.Context(), limit)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	rw.Success(entries)
}

// GetPrediction returns one audited prediction.
//
// @Summary Prediction by id
// @Tags Predictions
// @Produce json
// @Param id path string true "Prediction id"
// @Success 200 {object} APIResponse{data=audit.Entry}
// @Failure 404 {object} APIResponse
// @Security BearerAuth
// @Router /api/v1/predictions/{id} [get]
func (h *Handler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.predictions == nil {
		rw.ServiceUnavailable(ErrCodeServiceUnavailable, "prediction log is disabled")
		return
	}
	id := chi.URLParam(r, "id")
	entry, err := h.predictions.Get(r.Context(), id)
	switch {
	case errors.Is(err, audit.ErrNotFound):
		rw.NotFound("prediction " + id + " not found")
	case err != nil:
		rw.DatabaseError(err)
	default:
		rw.Success(entry)
	}
}
