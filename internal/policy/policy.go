// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package policy

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Tier is the discrete churn risk classification.
type Tier string

const (
	TierHigh      Tier = "High"
	TierMedium    Tier = "Medium"
	TierLowMedium Tier = "Low-Medium"
	TierLow       Tier = "Low"
)

// Action is the retention action recommended for a tier.
type Action string

const (
	ActionImmediateCampaign Action = "Immediate Retention Campaign"
	ActionPriorityOffer     Action = "Priority Retention Offer"
	ActionMonitor           Action = "Monitor / Standard Campaign"
	ActionNone              Action = "No Action Required"
)

var tierActions = map[Tier]Action{
	TierHigh:      ActionImmediateCampaign,
	TierMedium:    ActionPriorityOffer,
	TierLowMedium: ActionMonitor,
	TierLow:       ActionNone,
}

// ErrUnknownTier is returned by ParseTier for labels outside the four tiers.
var ErrUnknownTier = errors.New("unknown risk tier")

// Tiers returns the tiers from most to least severe.
func Tiers() []Tier {
	return []Tier{TierHigh, TierMedium, TierLowMedium, TierLow}
}

// Actions returns the actions in tier order.
func Actions() []Action {
	return []Action{ActionImmediateCampaign, ActionPriorityOffer, ActionMonitor, ActionNone}
}

// ActionFor returns the fixed action for a tier. Unknown tiers get ActionNone.
func ActionFor(t Tier) Action {
	if a, ok := tierActions[t]; ok {
		return a
	}
	return ActionNone
}

// Severity orders tiers: High=3 down to Low=0, unknown=-1.
func (t Tier) Severity() int {
	switch t {
	case TierHigh:
		return 3
	case TierMedium:
		return 2
	case TierLowMedium:
		return 1
	case TierLow:
		return 0
	default:
		return -1
	}
}

// AtLeast reports whether t is as severe as other.
func (t Tier) AtLeast(other Tier) bool {
	return t.Severity() >= other.Severity()
}

// ParseTier accepts tier labels case-insensitively ("low-medium", "Low-Medium").
func ParseTier(s string) (Tier, error) {
	for _, t := range Tiers() {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTier, s)
}

// Thresholds are the three ordered cut-offs of the risk policy.
type Thresholds struct {
	High   float64 `json:"high_risk_threshold" yaml:"high_risk_threshold"`
	Medium float64 `json:"medium_risk_threshold" yaml:"medium_risk_threshold"`
	Low    float64 `json:"low_risk_threshold" yaml:"low_risk_threshold"`
}

// DefaultThresholds returns the stock 0.7 / 0.5 / 0.3 policy.
func DefaultThresholds() Thresholds {
	return Thresholds{High: 0.7, Medium: 0.5, Low: 0.3}
}

// ErrInvalidThresholds is wrapped by every Validate failure.
var ErrInvalidThresholds = errors.New("invalid risk thresholds")

// Validate requires 1 >= high > medium > low >= 0 and finite values.
func (t Thresholds) Validate() error {
	names := [3]string{"high", "medium", "low"}
	for i, v := range [3]float64{t.High, t.Medium, t.Low} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s threshold is not a finite number", ErrInvalidThresholds, names[i])
		}
	}
	if t.High > 1 || t.Low < 0 {
		return fmt.Errorf("%w: thresholds must lie in [0,1] (high=%g, low=%g)", ErrInvalidThresholds, t.High, t.Low)
	}
	if !(t.High > t.Medium && t.Medium > t.Low) {
		return fmt.Errorf("%w: require high > medium > low, got high=%g medium=%g low=%g",
			ErrInvalidThresholds, t.High, t.Medium, t.Low)
	}
	return nil
}

// Decision is the outcome of evaluating one probability.
type Decision struct {
	Tier   Tier   `json:"churn_risk_level"`
	Action Action `json:"recommended_action"`
}

// Classify applies the thresholds top-down, first match wins. It never fails:
// out-of-range probabilities land in whichever bucket they satisfy and NaN
// satisfies none, so it is Low. Thresholds are not validated here.
func Classify(p float64, t Thresholds) Decision {
	var tier Tier
	switch {
	case p >= t.High:
		tier = TierHigh
	case p >= t.Medium:
		tier = TierMedium
	case p >= t.Low:
		tier = TierLowMedium
	default:
		tier = TierLow
	}
	return Decision{Tier: tier, Action: tierActions[tier]}
}

// Evaluator classifies probabilities against thresholds validated once at construction.
type Evaluator struct {
	thresholds Thresholds
}

// NewEvaluator validates the thresholds and returns an evaluator bound to them.
func NewEvaluator(t Thresholds) (*Evaluator, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Evaluator{thresholds: t}, nil
}

// MustEvaluator is NewEvaluator for static thresholds; it panics on invalid input.
func MustEvaluator(t Thresholds) *Evaluator {
	e, err := NewEvaluator(t)
	if err != nil {
		panic(err)
	}
	return e
}

// Evaluate maps a probability to its tier and action.
func (e *Evaluator) Evaluate(p float64) Decision {
	return Classify(p, e.thresholds)
}

// Thresholds returns the evaluator's thresholds.
func (e *Evaluator) Thresholds() Thresholds {
	return e.thresholds
}
