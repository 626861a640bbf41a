// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package scoring

import (
	"errors"
	"reflect"
	"testing"

	"github.com/goccy/go-json"
)

func TestNewSchema(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		names   []string
		wantErr bool
	}{
		{"default", DefaultFeatureNames(), false},
		{"single", []string{"a"}, false},
		{"empty", nil, true},
		{"blank", []string{"a", " "}, true},
		{"duplicate", []string{"a", "b", "a"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewSchema(tt.names)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewSchema(%v) error = %v, wantErr %v", tt.names, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidSchema) {
				t.Errorf("error should wrap ErrInvalidSchema: %v", err)
			}
		})
	}
}

func TestSchema_RowFillsMissingAndDropsExtra(t *testing.T) {
	t.Parallel()

	s := DefaultSchema()
	row := s.Row(FeatureVector{
		"monetary":     250,
		"recency_days": 12,
		"unexpected":   99,
	})

	want := []float64{12, 0, 250, 0, 0, 0}
	if !reflect.DeepEqual(row, want) {
		t.Errorf("Row() = %v, want %v", row, want)
	}
}

func TestSchema_NamesIsCopy(t *testing.T) {
	t.Parallel()

	s := DefaultSchema()
	names := s.Names()
	names[0] = "mutated"
	if s.Names()[0] != "recency_days" {
		t.Error("Names() must not expose internal state")
	}
}

func TestSchema_Check(t *testing.T) {
	t.Parallel()

	s, _ := NewSchema([]string{"a", "b"})

	res, err := s.Check(FeatureVector{"a": 1, "z": 2}, ModePartial)
	if err != nil {
		t.Fatalf("partial mode should not fail: %v", err)
	}
	if !reflect.DeepEqual(res.Missing, []string{"b"}) || !reflect.DeepEqual(res.Unknown, []string{"z"}) {
		t.Errorf("Check() = %+v", res)
	}

	_, err = s.Check(FeatureVector{"a": 1}, ModeTotal)
	var inErr *InputError
	if !errors.As(err, &inErr) {
		t.Fatalf("total mode should fail with InputError, got %v", err)
	}
	if !reflect.DeepEqual(inErr.Missing, []string{"b"}) {
		t.Errorf("Missing = %v", inErr.Missing)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("InputError should match ErrInvalidInput")
	}
}

func TestSchema_Decode(t *testing.T) {
	t.Parallel()

	s := DefaultSchema()

	var raw map[string]any
	if err := json.Unmarshal([]byte(`{"recency_days": 3, "monetary": 12.5, "note": "vip", "flag": true}`), &raw); err != nil {
		t.Fatal(err)
	}
	v, err := s.Decode(raw, ModePartial)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if v["recency_days"] != 3 || v["monetary"] != 12.5 {
		t.Errorf("Decode() = %v", v)
	}
	if _, ok := v["note"]; ok {
		t.Error("extra fields must be dropped")
	}

	_, err = s.Decode(map[string]any{"recency_days": "ten"}, ModePartial)
	var inErr *InputError
	if !errors.As(err, &inErr) || len(inErr.Invalid) != 1 || inErr.Invalid[0] != "recency_days" {
		t.Errorf("non-numeric feature should be rejected, got %v", err)
	}

	if _, err := s.Decode(map[string]any{"recency_days": 1.0}, ModeTotal); err == nil {
		t.Error("total mode should reject missing features")
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Mode{"": ModePartial, "partial": ModePartial, "TOTAL": ModeTotal} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseMode("strict"); err == nil {
		t.Error("ParseMode(strict) should fail")
	}
}

func TestCustomerFeatures_RoundTrip(t *testing.T) {
	t.Parallel()

	c := CustomerFeatures{RecencyDays: 5, FrequencyInvoices: 3, Monetary: 100, AvgOrderValue: 33.3, AvgItemsPerInvoice: 2, ActiveMonths: 4}
	v := c.Vector()
	for _, n := range DefaultFeatureNames() {
		if _, ok := v[n]; !ok {
			t.Errorf("Vector() missing %s", n)
		}
	}
	if got := CustomerFeaturesFrom(v); got != c {
		t.Errorf("CustomerFeaturesFrom(Vector()) = %+v, want %+v", got, c)
	}
}
