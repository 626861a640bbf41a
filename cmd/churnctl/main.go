// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "churnctl:", err)
		os.Exit(1)
	}
}
