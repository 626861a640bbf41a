// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/churnwatch/internal/logging"
	"github.com/tomtom215/churnwatch/internal/policy"
	"github.com/tomtom215/churnwatch/internal/scoring"
)

// RootMessage is the banner returned by GET /.
const RootMessage = "Retail Churn Prediction API. Go to /docs for testing."

// ModelNotLoaded is the 503 detail of POST /predict.
const ModelNotLoaded = "Model not loaded"

// PredictResponse is the body of a successful POST /predict.
type PredictResponse struct {
	ChurnProbability  float64       `json:"churn_probability"`
	ChurnRiskLevel    policy.Tier   `json:"churn_risk_level"`
	RecommendedAction policy.Action `json:"recommended_action"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}

// Root returns the service banner.
//
// @Summary Service banner
// @Tags Core
// @Produce json
// @Success 200 {object} map[string]string
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": RootMessage})
}

// Health reports whether the model is loaded. The status code is 200 either
// way; the body carries the verdict.
//
// @Summary Model health
// @Tags Core
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	if !h.predictor.Ready() {
		status = "error"
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: status, Model: h.predictor.ModelPath()})
}

// Predict scores one feature vector.
//
// @Summary Score a customer
// @Description Missing features are zero-filled unless validation_mode is total. Unknown fields are ignored.
// @Tags Core
// @Accept json
// @Produce json
// @Param features body map[string]number true "Feature values by name"
// @Success 200 {object} PredictResponse
// @Failure 422 {object} detailResponse "Malformed input"
// @Failure 500 {object} detailResponse "Scoring failed"
// @Failure 503 {object} detailResponse "Model not loaded"
// @Router /predict [post]
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	// The model check comes first so an unloaded service answers 503 even
	// for bodies it could not parse.
	if !h.predictor.Ready() {
		writeDetail(w, http.StatusServiceUnavailable, ModelNotLoaded)
		return
	}

	vector, details := h.decodeFeatures(w, r)
	if details != nil {
		writeDetail(w, http.StatusUnprocessableEntity, details)
		return
	}

	pred, err := h.predictor.Predict(r.Context(), vector)
	if err != nil {
		if errors.Is(err, scoring.ErrModelUnavailable) {
			writeDetail(w, http.StatusServiceUnavailable, ModelNotLoaded)
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Msg("Prediction failed")
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, PredictResponse{
		ChurnProbability:  pred.Probability,
		ChurnRiskLevel:    pred.Tier,
		RecommendedAction: pred.Action,
	})
}

// CreatePrediction is Predict with the full prediction record in the API
// envelope. The returned id can be looked up in the prediction log.
//
// @Summary Score a customer and return the prediction record
// @Tags Predictions
// @Accept json
// @Produce json
// @Param features body map[string]number true "Feature values by name"
// @Success 200 {object} APIResponse{data=predict.Prediction}
// @Failure 422 {object} APIResponse
// @Failure 503 {object} APIResponse
// @Security BearerAuth
// @Router /api/v1/predictions [post]
func (h *Handler) CreatePrediction(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.predictor.Ready() {
		rw.ServiceUnavailable(ErrCodeModelUnavailable, ModelNotLoaded)
		return
	}

	vector, details := h.decodeFeatures(w, r)
	if details != nil {
		rw.ValidationError("invalid feature input", details)
		return
	}

	pred, err := h.predictor.Predict(r.Context(), vector)
	switch {
	case errors.Is(err, scoring.ErrModelUnavailable):
		rw.ServiceUnavailable(ErrCodeModelUnavailable, ModelNotLoaded)
	case err != nil:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Prediction failed")
		rw.Error(http.StatusInternalServerError, ErrCodeScoringFailed, err.Error())
	default:
		rw.Success(pred)
	}
}

// decodeFeatures parses the request body into a FeatureVector. On failure it
// returns the 422 detail list.
func (h *Handler) decodeFeatures(w http.ResponseWriter, r *http.Request) (scoring.FeatureVector, []fieldError) {
	var body interface{}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, []fieldError{{Loc: []string{"body"}, Msg: "invalid JSON: " + err.Error(), Type: "value_error.jsondecode"}}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, []fieldError{{Loc: []string{"body"}, Msg: "invalid JSON: unexpected data after the top-level value", Type: "value_error.jsondecode"}}
	}

	raw, ok := body.(map[string]interface{})
	if !ok {
		return nil, []fieldError{{Loc: []string{"body"}, Msg: "value is not a valid dict", Type: "type_error.dict"}}
	}

	vector, err := h.predictor.Decode(raw)
	if err == nil {
		return vector, nil
	}

	var inputErr *scoring.InputError
	if !errors.As(err, &inputErr) {
		return nil, []fieldError{{Loc: []string{"body"}, Msg: err.Error(), Type: "value_error"}}
	}
	details := make([]fieldError, 0, len(inputErr.Missing)+len(inputErr.Invalid))
	for _, name := range inputErr.Invalid {
		details = append(details, fieldError{Loc: []string{"body", name}, Msg: "value is not a valid float", Type: "type_error.float"})
	}
	for _, name := range inputErr.Missing {
		details = append(details, fieldError{Loc: []string{"body", name}, Msg: "field required", Type: "value_error.missing"})
	}
	return nil, details
}

// TierInfo describes one risk tier.
type TierInfo struct {
	Tier           policy.Tier   `json:"churn_risk_level"`
	Action         policy.Action `json:"recommended_action"`
	MinProbability float64       `json:"min_probability"`
}

// ModelInfoResponse is the body of GET /api/v1/model.
type ModelInfoResponse struct {
	Ready          bool              `json:"ready"`
	Path           string            `json:"path"`
	Model          *scoring.Info     `json:"model,omitempty"`
	Features       []string          `json:"features"`
	ValidationMode scoring.Mode      `json:"validation_mode"`
	Thresholds     policy.Thresholds `json:"thresholds"`
	Tiers          []TierInfo        `json:"tiers"`
}

// ModelInfo describes the loaded model, its feature schema and the risk
// policy applied to its output.
//
// @Summary Model and risk policy
// @Tags Predictions
// @Produce json
// @Success 200 {object} APIResponse{data=ModelInfoResponse}
// @Security BearerAuth
// @Router /api/v1/model [get]
func (h *Handler) ModelInfo(w http.ResponseWriter, r *http.Request) {
	th := h.predictor.Thresholds()
	resp := ModelInfoResponse{
		Ready:          h.predictor.Ready(),
		Path:           h.predictor.ModelPath(),
		Features:       h.predictor.Schema().Names(),
		ValidationMode: h.predictor.Mode(),
		Thresholds:     th,
		Tiers: []TierInfo{
			{policy.TierHigh, policy.ActionFor(policy.TierHigh), th.High},
			{policy.TierMedium, policy.ActionFor(policy.TierMedium), th.Medium},
			{policy.TierLowMedium, policy.ActionFor(policy.TierLowMedium), th.Low},
			{policy.TierLow, policy.ActionFor(policy.TierLow), 0},
		},
	}
	if info, ok := h.predictor.ModelInfo(); ok {
		resp.Model = &info
	}
	NewResponseWriter(w, r).Success(resp)
}
