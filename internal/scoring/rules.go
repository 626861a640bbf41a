// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package scoring

import (
	"context"
	"fmt"
)

// RulesParams is a hard-label churn rule set: label 1 when the conditions
// match (all of them, or any of them), else 0.
type RulesParams struct {
	Match      string      `json:"match"` // "all" (default) or "any"
	Conditions []Condition `json:"conditions"`
}

// Condition compares one feature with a constant.
type Condition struct {
	Feature string  `json:"feature"`
	Op      string  `json:"op"` // >=, >, <=, <, ==
	Value   float64 `json:"value"`
}

type compiledCondition struct {
	index int
	op    string
	value float64
}

func (c compiledCondition) holds(row []float64) bool {
	x := row[c.index]
	switch c.op {
	case ">=":
		return x >= c.value
	case ">":
		return x > c.value
	case "<=":
		return x <= c.value
	case "<":
		return x < c.value
	default:
		return x == c.value
	}
}

type rulesScorer struct {
	conditions []compiledCondition
	matchAny   bool
	width      int
}

func newRulesScorer(p *RulesParams, schema *Schema) (*rulesScorer, error) {
	if p == nil || len(p.Conditions) == 0 {
		return nil, fmt.Errorf("%w: rules model has no conditions", ErrArtifactInvalid)
	}
	s := &rulesScorer{width: schema.Len()}
	switch p.Match {
	case "", "all":
	case "any":
		s.matchAny = true
	default:
		return nil, fmt.Errorf("%w: unknown match mode %q", ErrArtifactInvalid, p.Match)
	}

	for _, c := range p.Conditions {
		idx, ok := schema.index[c.Feature]
		if !ok {
			return nil, fmt.Errorf("%w: rule on unknown feature %q", ErrFeatureMismatch, c.Feature)
		}
		switch c.Op {
		case ">=", ">", "<=", "<", "==":
		default:
			return nil, fmt.Errorf("%w: unknown operator %q", ErrArtifactInvalid, c.Op)
		}
		s.conditions = append(s.conditions, compiledCondition{index: idx, op: c.Op, value: c.Value})
	}
	return s, nil
}

func (s *rulesScorer) PredictLabel(_ context.Context, row []float64) (int, error) {
	if len(row) != s.width {
		return 0, fmt.Errorf("row has %d values, model expects %d", len(row), s.width)
	}
	matched := !s.matchAny
	for _, c := range s.conditions {
		ok := c.holds(row)
		if s.matchAny && ok {
			matched = true
			break
		}
		if !s.matchAny && !ok {
			matched = false
			break
		}
	}
	if matched {
		return 1, nil
	}
	return 0, nil
}
