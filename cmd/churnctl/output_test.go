// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Score   float64  `json:"score"`
	Tags    []string `json:"tags,omitempty"`
	Note    *string  `json:"note,omitempty"`
}

func TestRender_YAMLKeepsFieldOrderAndTags(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, render(&buf, FormatYAML, sample{Name: "logit", Version: "2024.1", Score: 0.5, Tags: []string{"a", "b"}}))

	want := "name: logit\n" +
		"version: \"2024.1\"\n" +
		"score: 0.5\n" +
		"tags:\n" +
		"  - a\n" +
		"  - b\n"
	assert.Equal(t, want, buf.String())
}

func TestRender_JSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, render(&buf, FormatJSON, sample{Name: "logit", Score: 1}))
	assert.JSONEq(t, `{"name":"logit","version":"","score":1}`, buf.String())
	assert.Equal(t, byte('\n'), buf.Bytes()[buf.Len()-1])
}

func TestRender_UnknownFormat(t *testing.T) {
	t.Parallel()
	assert.Error(t, render(&bytes.Buffer{}, "toml", sample{}))
}
