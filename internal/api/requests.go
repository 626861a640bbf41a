// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tomtom215/churnwatch/internal/retention"
	"github.com/tomtom215/churnwatch/internal/validation"
)

// PriorityRequest holds the query parameters of the priority list and export.
type PriorityRequest struct {
	Filter      string   `json:"filter" validate:"omitempty,oneof=all action priority"`
	Actions     []string `json:"action" validate:"required_if=Filter action,dive,action"`
	MinPriority *float64 `json:"min_priority" validate:"omitempty,gte=0"`
	Limit       int      `json:"limit" validate:"min=0,max=10000"`
}

// Query converts the request to a retention query. Giving actions without a
// filter implies the action filter; giving min_priority implies the priority
// filter.
func (p PriorityRequest) Query() retention.Query {
	q := retention.Query{
		Filter:      retention.Filter(p.Filter),
		Actions:     p.Actions,
		MinPriority: p.MinPriority,
		Limit:       p.Limit,
	}
	if q.Filter == "" {
		switch {
		case p.MinPriority != nil:
			q.Filter = retention.FilterPriority
		case len(p.Actions) > 0:
			q.Filter = retention.FilterAction
		default:
			q.Filter = retention.FilterAll
		}
	}
	return q
}

// AtRiskRequest holds the query parameters of the at-risk list.
type AtRiskRequest struct {
	Threshold *float64 `json:"threshold" validate:"omitempty,probability"`
	Limit     int      `json:"limit" validate:"min=0,max=10000"`
}

// RecentRequest holds the query parameters of the prediction log listing.
type RecentRequest struct {
	Limit int `json:"limit" validate:"min=0,max=1000"`
}

// paramError is a query parameter that could not be parsed.
type paramError struct {
	Param string
	Value string
	Want  string
}

func (e *paramError) Error() string {
	return fmt.Sprintf("invalid %s %q: expected %s", e.Param, e.Value, e.Want)
}

func parseFloatParam(q url.Values, name string) (*float64, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &paramError{Param: name, Value: raw, Want: "a number"}
	}
	return &v, nil
}

func parseIntParam(q url.Values, name string) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &paramError{Param: name, Value: raw, Want: "an integer"}
	}
	return v, nil
}

// splitList accepts both repeated parameters and comma-separated values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parsePriorityRequest(q url.Values) (PriorityRequest, error) {
	minPriority, err := parseFloatParam(q, "min_priority")
	if err != nil {
		return PriorityRequest{}, err
	}
	limit, err := parseIntParam(q, "limit")
	if err != nil {
		return PriorityRequest{}, err
	}
	req := PriorityRequest{
		Filter:      strings.ToLower(strings.TrimSpace(q.Get("filter"))),
		Actions:     splitList(q["action"]),
		MinPriority: minPriority,
		Limit:       limit,
	}
	if err := validation.ValidateStruct(&req); err != nil {
		return PriorityRequest{}, err
	}
	return req, nil
}

func parseAtRiskRequest(q url.Values) (AtRiskRequest, error) {
	threshold, err := parseFloatParam(q, "threshold")
	if err != nil {
		return AtRiskRequest{}, err
	}
	limit, err := parseIntParam(q, "limit")
	if err != nil {
		return AtRiskRequest{}, err
	}
	req := AtRiskRequest{Threshold: threshold, Limit: limit}
	if err := validation.ValidateStruct(&req); err != nil {
		return AtRiskRequest{}, err
	}
	return req, nil
}

func parseRecentRequest(q url.Values) (RecentRequest, error) {
	limit, err := parseIntParam(q, "limit")
	if err != nil {
		return RecentRequest{}, err
	}
	req := RecentRequest{Limit: limit}
	if err := validation.ValidateStruct(&req); err != nil {
		return RecentRequest{}, err
	}
	return req, nil
}
