// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package scoring

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/churnwatch/internal/logging"
)

// LoadOptions tune how artifacts become models.
type LoadOptions struct {
	// RemoteURL overrides the URL stored in a remote artifact.
	RemoteURL       string
	RemoteTimeout   time.Duration
	RemoteRateLimit float64
	RemoteBurst     int
	HTTPClient      *http.Client
}

// ResolveModelPath returns primary when it exists, otherwise fallback.
// When neither exists it still returns primary so health output names the
// configured model.
func ResolveModelPath(primary, fallback string) string {
	if _, err := os.Stat(primary); err == nil {
		return primary
	}
	if fallback != "" {
		if _, err := os.Stat(fallback); err == nil {
			return fallback
		}
	}
	return primary
}

// LoadFeatureNames reads a JSON array of feature names. A missing file yields
// the default names with ok=false; a malformed file is an error.
func LoadFeatureNames(path string) (names []string, ok bool, err error) {
	if path == "" {
		return DefaultFeatureNames(), false, nil
	}
	raw, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultFeatureNames(), false, nil
		}
		return nil, false, fmt.Errorf("read features file: %w", err)
	}
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, false, fmt.Errorf("parse features file %s: %w", path, err)
	}
	if len(names) == 0 {
		return nil, false, fmt.Errorf("features file %s is empty", path)
	}
	return names, true, nil
}

// LoadModel reads the artifact at path and builds the matching scorer variant.
// The variant is decided here, once, from the artifact kind.
func LoadModel(path string, schema *Schema, opts LoadOptions) (*Model, error) {
	a, err := ReadArtifact(path)
	if err != nil {
		return nil, err
	}
	m, err := BuildModel(a, schema, opts)
	if err != nil {
		return nil, err
	}
	m.info.Source = path
	return m, nil
}

// BuildModel turns a decoded artifact into a Model bound to schema.
func BuildModel(a *Artifact, schema *Schema, opts LoadOptions) (*Model, error) {
	if schema == nil {
		return nil, fmt.Errorf("%w: nil schema", ErrInvalidSchema)
	}
	if len(a.Features) > 0 && !schema.Equal(a.Features) {
		return nil, fmt.Errorf("%w: artifact %v, schema %v", ErrFeatureMismatch, a.Features, schema.Names())
	}

	info := Info{
		Name:      a.Name,
		Version:   a.Version,
		Algorithm: a.Kind,
		Checksum:  a.Checksum,
	}
	if info.Name == "" {
		info.Name = a.Kind
	}

	switch a.Kind {
	case ArtifactLogistic:
		s, err := newLogisticScorer(a.Logistic, schema)
		if err != nil {
			return nil, err
		}
		return NewProbabilisticModel(s, info), nil

	case ArtifactRules:
		s, err := newRulesScorer(a.Rules, schema)
		if err != nil {
			return nil, err
		}
		logging.Warn().Str("model", info.Name).
			Msg("Model exposes hard labels only; labels are reported as probabilities 0.0 or 1.0")
		return NewLabelModel(s, info), nil

	case ArtifactRemote:
		cfg := RemoteConfig{
			Name:      "remote-scorer",
			Features:  schema.Names(),
			Timeout:   opts.RemoteTimeout,
			RateLimit: opts.RemoteRateLimit,
			Burst:     opts.RemoteBurst,
			Client:    opts.HTTPClient,
		}
		if a.Remote != nil {
			cfg.URL = a.Remote.URL
			if a.Remote.Timeout != "" && cfg.Timeout <= 0 {
				d, err := time.ParseDuration(a.Remote.Timeout)
				if err != nil {
					return nil, fmt.Errorf("%w: remote timeout: %v", ErrArtifactInvalid, err)
				}
				cfg.Timeout = d
			}
		}
		if opts.RemoteURL != "" {
			cfg.URL = opts.RemoteURL
		}
		s, err := NewRemoteScorer(cfg)
		if err != nil {
			return nil, err
		}
		return NewProbabilisticModel(s, info), nil

	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrArtifactInvalid, a.Kind)
	}
}
