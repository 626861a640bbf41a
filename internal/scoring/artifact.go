// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package scoring

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Artifact kinds.
const (
	ArtifactLogistic = "logistic"
	ArtifactRules    = "rules"
	ArtifactRemote   = "remote"
)

// Artifact is the on-disk model description. Files may be plain JSON or
// gzip-compressed JSON (".gz" suffix).
type Artifact struct {
	Kind      string          `json:"kind"`
	Name      string          `json:"name"`
	Version   string          `json:"version"`
	Features  []string        `json:"features,omitempty"`
	Checksum  string          `json:"checksum,omitempty"`
	CreatedAt time.Time       `json:"created_at,omitempty"`
	Logistic  *LogisticParams `json:"logistic,omitempty"`
	Rules     *RulesParams    `json:"rules,omitempty"`
	Remote    *RemoteParams   `json:"remote,omitempty"`
}

// checksumBody is the part of an artifact covered by the checksum.
type checksumBody struct {
	Kind     string          `json:"kind"`
	Features []string        `json:"features,omitempty"`
	Logistic *LogisticParams `json:"logistic,omitempty"`
	Rules    *RulesParams    `json:"rules,omitempty"`
	Remote   *RemoteParams   `json:"remote,omitempty"`
}

// ComputeChecksum returns the SHA-256 of the artifact's kind, features and parameters.
func (a *Artifact) ComputeChecksum() (string, error) {
	raw, err := json.Marshal(checksumBody{
		Kind:     a.Kind,
		Features: a.Features,
		Logistic: a.Logistic,
		Rules:    a.Rules,
		Remote:   a.Remote,
	})
	if err != nil {
		return "", fmt.Errorf("encode artifact: %w", err)
	}
	hash := sha256.Sum256(raw)
	return hex.EncodeToString(hash[:]), nil
}

// VerifyChecksum checks the stored checksum. Artifacts without one pass.
func (a *Artifact) VerifyChecksum() error {
	if a.Checksum == "" {
		return nil
	}
	sum, err := a.ComputeChecksum()
	if err != nil {
		return err
	}
	if sum != a.Checksum {
		return fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, a.Checksum, sum)
	}
	return nil
}

// ReadArtifact loads and verifies an artifact file.
func ReadArtifact(path string) (*Artifact, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, path)
		}
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrArtifactInvalid, err)
		}
		raw, err = io.ReadAll(zr)
		_ = zr.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrArtifactInvalid, err)
		}
	}

	var a Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactInvalid, err)
	}
	if err := a.VerifyChecksum(); err != nil {
		return nil, err
	}
	return &a, nil
}

// WriteArtifact stamps the checksum and writes the artifact as indented JSON,
// gzip-compressed when path ends in ".gz".
func WriteArtifact(path string, a *Artifact) error {
	sum, err := a.ComputeChecksum()
	if err != nil {
		return err
	}
	a.Checksum = sum
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	raw, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}

	if strings.HasSuffix(path, ".gz") {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(raw); err != nil {
			return fmt.Errorf("compress artifact: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("finalize compression: %w", err)
		}
		raw = buf.Bytes()
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create artifact dir: %w", err)
		}
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}
