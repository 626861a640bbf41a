// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/churnwatch/internal/database"
	"github.com/tomtom215/churnwatch/internal/logging"
	"github.com/tomtom215/churnwatch/internal/retention"
	"github.com/tomtom215/churnwatch/internal/validation"
	ws "github.com/tomtom215/churnwatch/internal/websocket"
)

// ExportFilename is the attachment name of the CSV export.
const ExportFilename = "retention_priority.csv"

// writeRequestError maps parameter parsing failures to 400 and validation
// failures to 422.
func writeRequestError(rw *ResponseWriter, err error) {
	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}
	rw.BadRequest(err.Error())
}

// writeRetentionError maps missing data to 503, unanswerable queries to 422
// and anything else to a database error.
func writeRetentionError(rw *ResponseWriter, err error) {
	switch {
	case errors.Is(err, retention.ErrNotAvailable):
		rw.ServiceUnavailable(ErrCodeDataUnavailable, err.Error())
		return
	case errors.Is(err, retention.ErrInvalidQuery):
		rw.ValidationError(err.Error(), nil)
		return
	}
	rw.DatabaseError(err)
}

func (h *Handler) requireRetention(rw *ResponseWriter) bool {
	if h.retention == nil {
		rw.ServiceUnavailable(ErrCodeDataUnavailable, "retention data not available")
		return false
	}
	if err := h.retention.Ping(rw.r.Context()); err != nil {
		logging.Ctx(rw.r.Context()).Warn().Err(err).Msg("Retention store check failed")
		rw.ServiceUnavailable(ErrCodeDataUnavailable, "retention data not available")
		return false
	}
	return true
}

// RetentionOverview returns headline retention metrics.
//
// @Summary Retention overview
// @Tags Retention
// @Produce json
// @Success 200 {object} APIResponse{data=retention.Overview}
// @Failure 503 {object} APIResponse "Retention data not loaded"
// @Security BearerAuth
// @Router /api/v1/retention/overview [get]
func (h *Handler) RetentionOverview(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireRetention(rw) {
		return
	}
	ov, err := h.retention.Overview(r.Context())
	if err != nil {
		writeRetentionError(rw, err)
		return
	}
	rw.Success(ov)
}

// RetentionSegments returns CLV aggregated per segment.
//
// @Summary CLV by segment
// @Tags Retention
// @Produce json
// @Success 200 {object} APIResponse{data=[]retention.SegmentValue}
// @Failure 503 {object} APIResponse "Segment data not loaded"
// @Security BearerAuth
// @Router /api/v1/retention/segments [get]
func (h *Handler) RetentionSegments(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireRetention(rw) {
		return
	}
	segments, err := h.retention.SegmentValue(r.Context())
	if err != nil {
		writeRetentionError(rw, err)
		return
	}
	rw.Success(segments)
}

// RetentionActionSummary returns customers, churn risk and value per action.
//
// @Summary Retention actions summary
// @Tags Retention
// @Produce json
// @Success 200 {object} APIResponse{data=[]retention.ActionSummary}
// @Failure 503 {object} APIResponse "Retention policy not loaded"
// @Security BearerAuth
// @Router /api/v1/retention/actions/summary [get]
func (h *Handler) RetentionActionSummary(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireRetention(rw) {
		return
	}
	summary, err := h.retention.ActionSummary(r.Context())
	if err != nil {
		writeRetentionError(rw, err)
		return
	}
	rw.Success(summary)
}

// RetentionActionDistribution returns the customer count per action.
//
// @Summary Retention action distribution
// @Tags Retention
// @Produce json
// @Success 200 {object} APIResponse{data=[]retention.ActionCount}
// @Security BearerAuth
// @Router /api/v1/retention/actions/distribution [get]
func (h *Handler) RetentionActionDistribution(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireRetention(rw) {
		return
	}
	counts, err := h.retention.ActionDistribution(r.Context())
	if err != nil {
		writeRetentionError(rw, err)
		return
	}
	rw.Success(counts)
}

// RetentionPriority returns the priority list.
//
// @Summary Retention priority list
// @Description filter=all (default), action (one or more action params) or priority (min_priority, default the configured quantile).
// @Tags Retention
// @Produce json
// @Param filter query string false "all, action or priority"
// @Param action query []string false "Recommended actions" collectionFormat(multi)
// @Param min_priority query number false "Minimum priority score"
// @Param limit query int false "Maximum rows (default list_limit)"
// @Success 200 {object} APIResponse{data=retention.Page}
// @Failure 422 {object} APIResponse
// @Failure 503 {object} APIResponse
// @Security BearerAuth
// @Router /api/v1/retention/priority [get]
func (h *Handler) RetentionPriority(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireRetention(rw) {
		return
	}
	req, err := parsePriorityRequest(r.URL.Query())
	if err != nil {
		writeRequestError(rw, err)
		return
	}
	q := req.Query()
	page, err := h.retention.PriorityList(r.Context(), q)
	if err != nil {
		writeRetentionError(rw, err)
		return
	}
	h.writePage(rw, page, q.Limit)
}

// RetentionAtRisk lists customers at or above a churn risk threshold. It
// works without a retention policy table.
//
// @Summary At-risk customers
// @Tags Retention
// @Produce json
// @Param threshold query number false "Minimum churn risk (default at_risk_threshold)"
// @Param limit query int false "Maximum rows (default list_limit)"
// @Success 200 {object} APIResponse{data=retention.Page}
// @Failure 422 {object} APIResponse
// @Failure 503 {object} APIResponse
// @Security BearerAuth
// @Router /api/v1/retention/at-risk [get]
func (h *Handler) RetentionAtRisk(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireRetention(rw) {
		return
	}
	req, err := parseAtRiskRequest(r.URL.Query())
	if err != nil {
		writeRequestError(rw, err)
		return
	}
	page, err := h.retention.AtRisk(r.Context(), req.Threshold, req.Limit)
	if err != nil {
		writeRetentionError(rw, err)
		return
	}
	h.writePage(rw, page, req.Limit)
}

func (h *Handler) writePage(rw *ResponseWriter, page retention.Page, limit int) {
	if limit <= 0 {
		limit = h.retention.Options().ListLimit
	}
	rw.SuccessWithPagination(page, &PaginationMeta{
		Total:   page.Total,
		Count:   len(page.Customers),
		Limit:   limit,
		HasMore: int64(len(page.Customers)) < page.Total,
	})
}

// RetentionExport streams the filtered priority list as CSV, without a limit.
//
// @Summary Export the priority list
// @Tags Retention
// @Produce text/csv
// @Param filter query string false "all, action or priority"
// @Param action query []string false "Recommended actions" collectionFormat(multi)
// @Param min_priority query number false "Minimum priority score"
// @Success 200 {file} file
// @Failure 503 {object} APIResponse
// @Security BearerAuth
// @Router /api/v1/retention/export [get]
func (h *Handler) RetentionExport(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireRetention(rw) {
		return
	}
	if h.retention.Mode() != database.ModePolicy {
		rw.ServiceUnavailable(ErrCodeDataUnavailable, "retention policy not available")
		return
	}
	req, err := parsePriorityRequest(r.URL.Query())
	if err != nil {
		writeRequestError(rw, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ExportFilename+`"`)
	n, err := h.retention.Export(r.Context(), req.Query(), w)
	if err != nil {
		// Headers are gone; the client sees a truncated file.
		logging.Ctx(r.Context()).Error().Err(err).Int("rows", n).Msg("Retention export failed")
		return
	}
	logging.Ctx(r.Context()).Debug().Int("rows", n).Msg("Retention export complete")
}

// RetentionRebuild regenerates the retention policy from the churn risk and
// customer tables and notifies websocket clients.
//
// @Summary Rebuild the retention policy
// @Tags Retention
// @Produce json
// @Success 200 {object} APIResponse{data=retention.RebuildResult}
// @Failure 403 {object} APIResponse
// @Failure 503 {object} APIResponse
// @Security BearerAuth
// @Router /api/v1/retention/rebuild [post]
func (h *Handler) RetentionRebuild(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireRetention(rw) {
		return
	}
	start := time.Now()
	res, err := h.retention.Rebuild(r.Context())
	if err != nil {
		writeRetentionError(rw, err)
		return
	}
	logging.Ctx(r.Context()).Info().
		Int64("rows", res.Rows).
		Dur("duration", time.Since(start)).
		Msg("Retention policy rebuilt via API")

	if h.wsHub != nil {
		h.wsHub.BroadcastJSON(ws.MessageTypeRebuild, res)
	}
	rw.Success(res)
}
