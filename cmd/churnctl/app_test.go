// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/tomtom215/churnwatch/internal/auth"
	"github.com/tomtom215/churnwatch/internal/config"
	"github.com/tomtom215/churnwatch/internal/scoring"
	"github.com/tomtom215/churnwatch/internal/validation"
)

const testSecret = "churnctl-test-secret-0123456789abcdef"

var (
	segmentsCSV = `customer_id,cluster,cluster_name,clv_12m
1001,0,Champions,1200.5
1002,1,At Risk,300
1003,2,Hibernating,50
1004,0,Champions,900
`
	churnCSV = `customer_id,churn_risk
1001,0.1
1002,0.8
1003,0.95
1004,0.4
`
	policyCSV = `customer_id,churn_risk,priority_score,recommended_action
1001,0.1,120.05,No Action Required
1002,0.8,240,Immediate Retention Campaign
1003,0.95,47.5,Immediate Retention Campaign
1004,0.4,360,Monitor / Standard Campaign
`
)

type fixture struct {
	dir        string
	configPath string
	dataDir    string
	modelPath  string
}

// newFixture writes a config file pointing at a temp data dir and model path.
func newFixture(t *testing.T, withPolicy bool) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:        dir,
		configPath: filepath.Join(dir, "config.yaml"),
		dataDir:    filepath.Join(dir, "data"),
		modelPath:  filepath.Join(dir, "churn_model.json"),
	}
	require.NoError(t, os.MkdirAll(f.dataDir, 0o750))

	files := map[string]string{
		"customer_segments_with_clv.csv": segmentsCSV,
		"customer_churn_risk.csv":        churnCSV,
	}
	if withPolicy {
		files["customer_retention_policy.csv"] = policyCSV
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(f.dataDir, name), []byte(content), 0o600))
	}

	cfg := fmt.Sprintf(`model:
  path: %s
  fallback_path: ""
  features_path: ""
data:
  dir: %s
  threads: 1
security:
  jwt_secret: %s
`, f.modelPath, f.dataDir, testSecret)
	require.NoError(t, os.WriteFile(f.configPath, []byte(cfg), 0o600))
	return f
}

func (f fixture) writeModel(t *testing.T, intercept float64) {
	t.Helper()
	require.NoError(t, scoring.WriteArtifact(f.modelPath, &scoring.Artifact{
		Kind:     scoring.ArtifactLogistic,
		Name:     "constant",
		Version:  "test",
		Features: scoring.DefaultFeatureNames(),
		Logistic: &scoring.LogisticParams{
			Intercept:    intercept,
			Coefficients: map[string]float64{"recency_days": 0},
		},
	}))
}

// run executes churnctl with args and returns stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	app.Reader = strings.NewReader(stdin)
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"churnctl"}, args...))
	return stdout.String(), err
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), "output: %s", out)
	return v
}

func TestTier(t *testing.T) {
	f := newFixture(t, false)

	tests := []struct {
		name       string
		args       []string
		wantTier   string
		wantAction string
	}{
		{"high", []string{"0.72"}, "High", "Immediate Retention Campaign"},
		{"boundary is inclusive", []string{"0.5"}, "Medium", "Priority Retention Offer"},
		{"low medium", []string{"0.3"}, "Low-Medium", "Monitor / Standard Campaign"},
		{"low", []string{"0.05"}, "Low", "No Action Required"},
		{"threshold override", []string{"--high", "0.8", "0.72"}, "Medium", "Priority Retention Offer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, "", append([]string{"--config", f.configPath, "tier"}, tt.args...)...)
			require.NoError(t, err)
			got := decode[TierResult](t, out)
			assert.Equal(t, tt.wantTier, string(got.Tier))
			assert.Equal(t, tt.wantAction, string(got.Action))
		})
	}
}

func TestTier_Errors(t *testing.T) {
	f := newFixture(t, false)

	_, err := run(t, "", "--config", f.configPath, "tier")
	assert.Error(t, err, "missing argument")

	_, err = run(t, "", "--config", f.configPath, "tier", "abc")
	assert.Error(t, err, "non-numeric probability")

	_, err = run(t, "", "--config", f.configPath, "tier", "--high", "0.2", "0.5")
	assert.Error(t, err, "high below medium")
}

func TestTier_YAML(t *testing.T) {
	f := newFixture(t, false)

	out, err := run(t, "", "--config", f.configPath, "--output", "yaml", "tier", "0.72")
	require.NoError(t, err)
	assert.Contains(t, out, "churn_risk_level: High\n")
	assert.Contains(t, out, "thresholds:\n  high_risk_threshold: 0.7\n")
	assert.NotContains(t, out, "{")
}

func TestPriority(t *testing.T) {
	out, err := run(t, "", "priority", "--churn", "0.8", "--clv", "1200")
	require.NoError(t, err)
	got := decode[PriorityResult](t, out)
	assert.InDelta(t, 960.0, got.PriorityScore, 1e-9)

	out, err = run(t, "", "priority", "--churn", "0.8", "--score", "42")
	require.NoError(t, err)
	assert.InDelta(t, 42.0, decode[PriorityResult](t, out).PriorityScore, 1e-9)

	_, err = run(t, "", "priority", "--churn", "0.8")
	assert.Error(t, err)
}

func TestScore(t *testing.T) {
	f := newFixture(t, false)
	f.writeModel(t, 2.0)

	out, err := run(t, `{"recency_days": 12, "monetary": 300}`, "--config", f.configPath, "score", "-f", "-")
	require.NoError(t, err)

	var got struct {
		ID          string  `json:"id"`
		Probability float64 `json:"churn_probability"`
		Tier        string  `json:"churn_risk_level"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, 0.8808, got.Probability)
	assert.Equal(t, "High", got.Tier)
}

func TestScore_Errors(t *testing.T) {
	f := newFixture(t, false)

	_, err := run(t, `{"recency_days": 1}`, "--config", f.configPath, "score", "-f", "-")
	assert.Error(t, err, "model artifact missing")

	f.writeModel(t, 0)
	_, err = run(t, `[1, 2]`, "--config", f.configPath, "score", "-f", "-")
	assert.Error(t, err, "features not an object")

	_, err = run(t, `{"recency_days": "soon"}`, "--config", f.configPath, "score", "-f", "-")
	assert.ErrorIs(t, err, scoring.ErrInvalidInput)
}

func TestScore_Check(t *testing.T) {
	f := newFixture(t, false)
	f.writeModel(t, 0)

	_, err := run(t, `{"recency_days": -3}`, "--config", f.configPath, "score", "--check", "-f", "-")
	var verr *validation.RequestValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "recency_days", verr.Errors()[0].Field())

	// Without --check the raw value is scored as-is.
	_, err = run(t, `{"recency_days": -3}`, "--config", f.configPath, "score", "-f", "-")
	assert.NoError(t, err)
}

type page struct {
	Total     int64 `json:"total"`
	Customers []struct {
		CustomerID string `json:"customer_id"`
	} `json:"customers"`
}

func (p page) ids() []string {
	out := make([]string, len(p.Customers))
	for i, c := range p.Customers {
		out[i] = c.CustomerID
	}
	return out
}

func TestRetentionSummary(t *testing.T) {
	f := newFixture(t, true)

	out, err := run(t, "", "--config", f.configPath, "retention", "summary")
	require.NoError(t, err)

	var got struct {
		Overview struct {
			TotalCustomers int64 `json:"total_customers"`
			Segments       int64 `json:"segments"`
		} `json:"overview"`
		Distribution []struct {
			Action string `json:"recommended_action"`
			Count  int64  `json:"count"`
		} `json:"distribution"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, int64(4), got.Overview.TotalCustomers)
	assert.Equal(t, int64(3), got.Overview.Segments)
	assert.NotEmpty(t, got.Distribution)
}

func TestRetentionList(t *testing.T) {
	f := newFixture(t, true)
	base := []string{"--config", f.configPath, "retention", "list"}

	out, err := run(t, "", base...)
	require.NoError(t, err)
	assert.Equal(t, []string{"1004", "1002", "1001", "1003"}, decode[page](t, out).ids())

	out, err = run(t, "", append(base, "--action", "Immediate Retention Campaign")...)
	require.NoError(t, err)
	assert.Equal(t, []string{"1002", "1003"}, decode[page](t, out).ids())

	out, err = run(t, "", append(base, "--min-priority", "200", "--limit", "1")...)
	require.NoError(t, err)
	got := decode[page](t, out)
	assert.Equal(t, int64(2), got.Total)
	assert.Equal(t, []string{"1004"}, got.ids())

	_, err = run(t, "", append(base, "--action", "Send flowers")...)
	assert.Error(t, err, "unknown action is rejected")
}

func TestRetentionRebuild(t *testing.T) {
	f := newFixture(t, false)
	base := []string{"--config", f.configPath, "retention"}

	// Without a policy table list falls back to the at-risk view.
	out, err := run(t, "", append(base, "list")...)
	require.NoError(t, err)
	assert.Equal(t, int64(2), decode[page](t, out).Total)

	out, err = run(t, "", append(base, "rebuild")...)
	require.NoError(t, err)
	var res struct {
		Rows  int64            `json:"rows"`
		Tiers map[string]int64 `json:"tiers"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, int64(4), res.Rows)
	assert.Equal(t, int64(2), res.Tiers["High"])
	assert.FileExists(t, filepath.Join(f.dataDir, "customer_retention_policy.csv"))

	// The persisted policy is picked up by the next invocation.
	out, err = run(t, "", append(base, "list")...)
	require.NoError(t, err)
	assert.Equal(t, []string{"1004", "1002", "1001", "1003"}, decode[page](t, out).ids())
}

func TestRetention_DataDirOverride(t *testing.T) {
	f := newFixture(t, true)
	empty := t.TempDir()

	_, err := run(t, "", "--config", f.configPath, "retention", "summary", "--data-dir", empty)
	assert.Error(t, err, "no customer data in the override directory")
}

func TestToken(t *testing.T) {
	f := newFixture(t, false)

	out, err := run(t, "", "--config", f.configPath, "token", "--user", "alice", "--role", "analyst")
	require.NoError(t, err)
	got := decode[TokenResult](t, out)
	assert.Equal(t, "analyst", got.Role)

	m, err := auth.NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret})
	require.NoError(t, err)
	claims, err := m.ValidateToken(got.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "analyst", claims.Role)

	_, err = run(t, "", "--config", f.configPath, "token", "--user", "bob", "--role", "superuser")
	assert.Error(t, err, "role outside the policy")

	_, err = run(t, "", "--config", f.configPath, "token")
	assert.Error(t, err, "--user is required")
}

func TestCheckConfig(t *testing.T) {
	f := newFixture(t, false)

	out, err := run(t, "", "--config", f.configPath, "check-config")
	require.NoError(t, err)
	got := decode[ConfigSummary](t, out)
	assert.Equal(t, f.configPath, got.ConfigFile)
	assert.Equal(t, f.modelPath, got.ModelPath)
	assert.False(t, got.ModelExists)
	assert.Len(t, got.Warnings, 1)

	f.writeModel(t, 0)
	out, err = run(t, "", "--config", f.configPath, "check-config")
	require.NoError(t, err)
	assert.True(t, decode[ConfigSummary](t, out).ModelExists)

	_, err = run(t, "", "--config", filepath.Join(f.dir, "absent.yaml"), "check-config")
	assert.Error(t, err)
}

func TestUnknownOutputFormat(t *testing.T) {
	_, err := run(t, "", "--output", "xml", "priority", "--churn", "0.5", "--clv", "10")
	assert.Error(t, err)
}
