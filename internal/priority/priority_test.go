// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package priority

import (
	"math"
	"testing"
)

func f(v float64) *float64 { return &v }

func TestScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		p        float64
		clv      *float64
		supplied *float64
		want     float64
		wantOK   bool
	}{
		{"clv present", 0.6, f(1000.0), nil, 600.0, true},
		{"clv wins over supplied", 0.5, f(10), f(99), 5, true},
		{"supplied only", 0.9, nil, f(42.5), 42.5, true},
		{"neither", 0.9, nil, nil, 0, false},
		{"negative clv not rejected", 0.5, f(-100), nil, -50, true},
		{"zero clv", 0.8, f(0), nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Score(tt.p, tt.clv, tt.supplied)
			if ok != tt.wantOK {
				t.Fatalf("Score() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScore_ExactProduct(t *testing.T) {
	t.Parallel()

	got, _ := Score(0.6, f(1000.0), nil)
	if got != 600.0 {
		t.Fatalf("Score(0.6, 1000) = %v, want exactly 600", got)
	}
}

func TestRank_OrdersAndExcludes(t *testing.T) {
	t.Parallel()

	ranked := Rank([]Candidate{
		{CustomerID: "c3", Probability: 0.5, CLV: f(100)}, // 50
		{CustomerID: "c1", Probability: 0.9, CLV: f(100)}, // 90
		{CustomerID: "c9", Probability: 0.9},              // excluded
		{CustomerID: "c2", Probability: 0.1, Supplied: f(70)},
		{CustomerID: "c0", Probability: 0.25, CLV: f(200)}, // 50, ties with c3
	})

	wantOrder := []string{"c1", "c2", "c0", "c3"}
	if len(ranked) != len(wantOrder) {
		t.Fatalf("len(ranked) = %d, want %d", len(ranked), len(wantOrder))
	}
	for i, id := range wantOrder {
		if ranked[i].CustomerID != id {
			t.Errorf("ranked[%d] = %s, want %s", i, ranked[i].CustomerID, id)
		}
		if ranked[i].Rank != i+1 {
			t.Errorf("ranked[%d].Rank = %d, want %d", i, ranked[i].Rank, i+1)
		}
	}
}

func TestRank_Deterministic(t *testing.T) {
	t.Parallel()

	in := []Candidate{
		{CustomerID: "b", Probability: 0.5, CLV: f(10)},
		{CustomerID: "a", Probability: 0.5, CLV: f(10)},
		{CustomerID: "c", Probability: 0.5, CLV: f(10)},
	}
	first := Rank(in)
	second := Rank([]Candidate{in[2], in[0], in[1]})
	for i := range first {
		if first[i].CustomerID != second[i].CustomerID {
			t.Fatalf("rank order depends on input order: %v vs %v", first, second)
		}
	}
	if first[0].CustomerID != "a" {
		t.Errorf("tie-break should be customer id ascending, got %s first", first[0].CustomerID)
	}
}

func TestQuantile(t *testing.T) {
	t.Parallel()

	values := []float64{10, 1, 5, 3, 7}
	tests := []struct {
		q    float64
		want float64
	}{
		{0, 1},
		{1, 10},
		{0.5, 5},
		{0.9, 8.8},
		{-1, 1},
		{2, 10},
	}
	for _, tt := range tests {
		got := Quantile(values, tt.q)
		if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("Quantile(q=%v) = %v, want %v", tt.q, got, tt.want)
		}
	}
	if got := Quantile(nil, 0.9); got != 0 {
		t.Errorf("Quantile(nil) = %v, want 0", got)
	}
	if got := Quantile([]float64{1, 2, 3}, math.NaN()); !math.IsNaN(got) {
		t.Errorf("Quantile(q=NaN) = %v, want NaN", got)
	}
	if got := Quantile([]float64{math.NaN(), 4, math.NaN(), 2}, 0.5); got != 3 {
		t.Errorf("Quantile ignoring NaN values = %v, want 3", got)
	}
}
