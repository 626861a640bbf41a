// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// FeatureVector maps feature names to values. Order comes from the Schema.
type FeatureVector map[string]float64

// Mode selects how strictly an input is checked against the schema.
type Mode string

const (
	// ModePartial zero-fills missing features.
	ModePartial Mode = "partial"
	// ModeTotal requires every feature to be present.
	ModeTotal Mode = "total"
)

// ParseMode maps a config string to a Mode. Empty means partial.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModePartial:
		return ModePartial, nil
	case ModeTotal:
		return ModeTotal, nil
	default:
		return "", fmt.Errorf("unknown validation mode %q", s)
	}
}

// DefaultFeatureNames is the feature list used when no feature file is available.
func DefaultFeatureNames() []string {
	return []string{
		"recency_days",
		"frequency_invoices",
		"monetary",
		"avg_order_value",
		"avg_items_per_invoice",
		"active_months",
	}
}

// ErrInvalidSchema is returned by NewSchema for empty, blank or duplicate names.
var ErrInvalidSchema = errors.New("invalid feature schema")

// Schema is the fixed, ordered feature list the model was trained on.
// It is immutable after construction.
type Schema struct {
	names []string
	index map[string]int
}

// NewSchema builds a schema from the ordered feature names.
func NewSchema(names []string) (*Schema, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no features", ErrInvalidSchema)
	}
	s := &Schema{
		names: make([]string, len(names)),
		index: make(map[string]int, len(names)),
	}
	for i, n := range names {
		if strings.TrimSpace(n) == "" {
			return nil, fmt.Errorf("%w: blank feature name at position %d", ErrInvalidSchema, i)
		}
		if _, dup := s.index[n]; dup {
			return nil, fmt.Errorf("%w: duplicate feature %q", ErrInvalidSchema, n)
		}
		s.names[i] = n
		s.index[n] = i
	}
	return s, nil
}

// DefaultSchema returns the schema for DefaultFeatureNames.
func DefaultSchema() *Schema {
	s, _ := NewSchema(DefaultFeatureNames())
	return s
}

// Names returns a copy of the ordered feature names.
func (s *Schema) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of features.
func (s *Schema) Len() int { return len(s.names) }

// Has reports whether name is a schema feature.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Equal reports whether other has the same names in the same order.
func (s *Schema) Equal(other []string) bool {
	if len(other) != len(s.names) {
		return false
	}
	for i, n := range s.names {
		if other[i] != n {
			return false
		}
	}
	return true
}

// Row lays the vector out in schema order. Absent features become 0.0 and
// names outside the schema are dropped.
func (s *Schema) Row(v FeatureVector) []float64 {
	row := make([]float64, len(s.names))
	for i, n := range s.names {
		row[i] = v[n]
	}
	return row
}

// InputError describes a feature input that failed schema checks.
type InputError struct {
	Missing []string // required in total mode but absent
	Invalid []string // present but not a finite number
}

// ErrInvalidInput is matched by every *InputError.
var ErrInvalidInput = errors.New("invalid feature input")

func (e *InputError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing features: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "non-numeric features: "+strings.Join(e.Invalid, ", "))
	}
	if len(parts) == 0 {
		return ErrInvalidInput.Error()
	}
	return strings.Join(parts, "; ")
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// CheckResult lists how an input lines up with the schema.
type CheckResult struct {
	Missing []string
	Unknown []string
}

// Check compares a vector with the schema. In total mode missing features are
// an error; unknown features are only reported, never rejected.
func (s *Schema) Check(v FeatureVector, mode Mode) (CheckResult, error) {
	var res CheckResult
	for _, n := range s.names {
		if _, ok := v[n]; !ok {
			res.Missing = append(res.Missing, n)
		}
	}
	for k := range v {
		if !s.Has(k) {
			res.Unknown = append(res.Unknown, k)
		}
	}
	sort.Strings(res.Unknown)

	if mode == ModeTotal && len(res.Missing) > 0 {
		return res, &InputError{Missing: res.Missing}
	}
	return res, nil
}

// Decode converts a decoded JSON object into a FeatureVector. Known features
// must be finite numbers; everything else in raw is ignored.
func (s *Schema) Decode(raw map[string]any, mode Mode) (FeatureVector, error) {
	v := make(FeatureVector, len(s.names))
	var invalid []string
	for _, n := range s.names {
		val, ok := raw[n]
		if !ok {
			continue
		}
		f, ok := toFloat(val)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			invalid = append(invalid, n)
			continue
		}
		v[n] = f
	}
	if len(invalid) > 0 {
		return nil, &InputError{Invalid: invalid}
	}
	if _, err := s.Check(v, mode); err != nil {
		return nil, err
	}
	return v, nil
}

type float64er interface {
	Float64() (float64, error)
}

func toFloat(val any) (float64, bool) {
	switch n := val.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64er:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
