// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

// Command churnctl runs churnwatch's scoring and retention logic from the
// command line, reading the same configuration as the server.
//
//	churnctl tier 0.72
//	churnctl --output yaml tier --high 0.8 0.72
//	churnctl priority --churn 0.8 --clv 1200
//	churnctl score --features customer.json --check
//	echo '{"recency_days": 40}' | churnctl score -f -
//	churnctl retention summary --data-dir data/processed
//	churnctl retention list --action "Immediate Retention Campaign" --limit 20
//	churnctl retention rebuild
//	churnctl token --user alice --role analyst
//	churnctl check-config
//
// Output is JSON by default; --output yaml switches to YAML with the same
// field names.
package main
