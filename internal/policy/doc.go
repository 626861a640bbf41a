// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

/*
Package policy maps churn probabilities to risk tiers and retention actions.

The rule is evaluated top-down with inclusive lower bounds:

	p >= high    High        Immediate Retention Campaign
	p >= medium  Medium      Priority Retention Offer
	p >= low     Low-Medium  Monitor / Standard Campaign
	otherwise    Low         No Action Required

Classify is the raw, total function and accepts any thresholds. Evaluator
wraps thresholds that passed Validate (1 >= high > medium > low >= 0), which is
what the server constructs at startup so a misordered configuration fails
before the first request.

Example:

	ev, err := policy.NewEvaluator(policy.DefaultThresholds())
	if err != nil {
	    return err
	}
	d := ev.Evaluate(0.75) // {High, Immediate Retention Campaign}
*/
package policy
