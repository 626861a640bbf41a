// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package policy

import (
	"errors"
	"math"
	"testing"
)

func TestClassify_Examples(t *testing.T) {
	t.Parallel()

	th := DefaultThresholds()
	tests := []struct {
		name       string
		p          float64
		wantTier   Tier
		wantAction Action
	}{
		{"high", 0.75, TierHigh, ActionImmediateCampaign},
		{"medium", 0.55, TierMedium, ActionPriorityOffer},
		{"low-medium", 0.35, TierLowMedium, ActionMonitor},
		{"low", 0.2, TierLow, ActionNone},
		{"zero", 0, TierLow, ActionNone},
		{"one", 1, TierHigh, ActionImmediateCampaign},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Classify(tt.p, th)
			if got.Tier != tt.wantTier {
				t.Errorf("Classify(%v).Tier = %q, want %q", tt.p, got.Tier, tt.wantTier)
			}
			if got.Action != tt.wantAction {
				t.Errorf("Classify(%v).Action = %q, want %q", tt.p, got.Action, tt.wantAction)
			}
		})
	}
}

func TestClassify_BoundariesAreInclusive(t *testing.T) {
	t.Parallel()

	th := Thresholds{High: 0.7, Medium: 0.5, Low: 0.3}
	cases := []struct {
		p    float64
		want Tier
	}{
		{0.7, TierHigh},
		{math.Nextafter(0.7, 0), TierMedium},
		{0.5, TierMedium},
		{math.Nextafter(0.5, 0), TierLowMedium},
		{0.3, TierLowMedium},
		{math.Nextafter(0.3, 0), TierLow},
	}
	for _, c := range cases {
		if got := Classify(c.p, th).Tier; got != c.want {
			t.Errorf("Classify(%v) = %q, want %q", c.p, got, c.want)
		}
	}
}

func TestClassify_TotalOverReals(t *testing.T) {
	t.Parallel()

	th := DefaultThresholds()
	cases := map[float64]Tier{
		-5:          TierLow,
		1.5:         TierHigh,
		math.Inf(1): TierHigh,
		math.NaN():  TierLow,
	}
	for p, want := range cases {
		if got := Classify(p, th).Tier; got != want {
			t.Errorf("Classify(%v) = %q, want %q", p, got, want)
		}
	}
}

func TestClassify_PartitionsUnitInterval(t *testing.T) {
	t.Parallel()

	th := DefaultThresholds()
	prev := TierLow
	transitions := 0
	for i := 0; i <= 10000; i++ {
		p := float64(i) / 10000
		d := Classify(p, th)
		if d.Tier.Severity() < prev.Severity() {
			t.Fatalf("tier decreased at p=%v: %q after %q", p, d.Tier, prev)
		}
		if d.Tier != prev {
			transitions++
		}
		if d.Action != ActionFor(d.Tier) {
			t.Fatalf("action %q does not match tier %q", d.Action, d.Tier)
		}
		prev = d.Tier
	}
	if transitions != 3 {
		t.Errorf("expected 3 tier transitions over [0,1], got %d", transitions)
	}
}

func TestEvaluator_Idempotent(t *testing.T) {
	t.Parallel()

	ev := MustEvaluator(DefaultThresholds())
	for _, p := range []float64{0, 0.29, 0.3, 0.5, 0.69, 0.7, 1} {
		if a, b := ev.Evaluate(p), ev.Evaluate(p); a != b {
			t.Errorf("Evaluate(%v) not idempotent: %v vs %v", p, a, b)
		}
	}
}

func TestThresholds_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		th      Thresholds
		wantErr bool
	}{
		{"defaults", DefaultThresholds(), false},
		{"tight", Thresholds{High: 0.3, Medium: 0.2, Low: 0.1}, false},
		{"equal high medium", Thresholds{High: 0.5, Medium: 0.5, Low: 0.3}, true},
		{"inverted", Thresholds{High: 0.3, Medium: 0.5, Low: 0.7}, true},
		{"above one", Thresholds{High: 1.2, Medium: 0.5, Low: 0.3}, true},
		{"negative", Thresholds{High: 0.7, Medium: 0.5, Low: -0.1}, true},
		{"nan", Thresholds{High: math.NaN(), Medium: 0.5, Low: 0.3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.th.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidThresholds) {
				t.Errorf("error should wrap ErrInvalidThresholds, got %v", err)
			}
		})
	}
}

func TestNewEvaluator_RejectsMisordered(t *testing.T) {
	t.Parallel()

	if _, err := NewEvaluator(Thresholds{High: 0.3, Medium: 0.5, Low: 0.7}); err == nil {
		t.Fatal("expected error for misordered thresholds")
	}
}

func TestParseTier(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"high", "HIGH", " Medium ", "low-medium", "Low"} {
		if _, err := ParseTier(in); err != nil {
			t.Errorf("ParseTier(%q) unexpected error: %v", in, err)
		}
	}
	if _, err := ParseTier("critical"); !errors.Is(err, ErrUnknownTier) {
		t.Errorf("ParseTier(critical) error = %v, want ErrUnknownTier", err)
	}
}

func TestTier_AtLeast(t *testing.T) {
	t.Parallel()

	if !TierHigh.AtLeast(TierMedium) {
		t.Error("High should be at least Medium")
	}
	if TierLowMedium.AtLeast(TierHigh) {
		t.Error("Low-Medium should not be at least High")
	}
	if !TierLow.AtLeast(TierLow) {
		t.Error("a tier is at least itself")
	}
}
