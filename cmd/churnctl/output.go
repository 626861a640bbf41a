// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// render writes v as indented JSON or block-style YAML.
//
// YAML goes through the JSON encoding first so field names and omitempty
// follow the json tags the API uses, and the parsed node tree keeps the
// struct's field order.
func render(w io.Writer, format string, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	switch format {
	case FormatJSON, "":
		_, err = fmt.Fprintf(w, "%s\n", raw)
		return err

	case FormatYAML:
		var doc yaml.Node
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("convert output to yaml: %w", err)
		}
		blockStyle(&doc)

		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(&doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		_, err = w.Write(buf.Bytes())
		return err

	default:
		return fmt.Errorf("unknown output format %q (want json or yaml)", format)
	}
}

// blockStyle drops the flow style and quoting the JSON source left on every node.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
