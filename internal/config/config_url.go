// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package config

import (
	"fmt"
	"net/url"
	"slices"
)

// validateEndpointURL checks that rawURL parses, uses one of schemes and has a
// host. Paths are allowed since the remote scorer endpoint usually has one.
func validateEndpointURL(rawURL, fieldName string, schemes ...string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if !slices.Contains(schemes, parsed.Scheme) {
		return fmt.Errorf("%s scheme must be one of %v, got: %q", fieldName, schemes, parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	return nil
}
