// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v2"

	"github.com/tomtom215/churnwatch/internal/auth"
	"github.com/tomtom215/churnwatch/internal/authz"
	"github.com/tomtom215/churnwatch/internal/config"
	"github.com/tomtom215/churnwatch/internal/policy"
	"github.com/tomtom215/churnwatch/internal/predict"
	"github.com/tomtom215/churnwatch/internal/priority"
	"github.com/tomtom215/churnwatch/internal/scoring"
	"github.com/tomtom215/churnwatch/internal/validation"
)

// thresholdFlags override the configured thresholds.
var thresholdFlags = []cli.Flag{
	&cli.Float64Flag{Name: "high", Usage: "high risk threshold"},
	&cli.Float64Flag{Name: "medium", Usage: "medium risk threshold"},
	&cli.Float64Flag{Name: "low", Usage: "low risk threshold"},
}

func thresholds(c *cli.Context) (policy.Thresholds, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return policy.Thresholds{}, err
	}
	t := cfg.RetentionPolicy.Thresholds()
	if c.IsSet("high") {
		t.High = c.Float64("high")
	}
	if c.IsSet("medium") {
		t.Medium = c.Float64("medium")
	}
	if c.IsSet("low") {
		t.Low = c.Float64("low")
	}
	if err := t.Validate(); err != nil {
		return policy.Thresholds{}, err
	}
	return t, nil
}

// TierResult is the output of churnctl tier.
type TierResult struct {
	Probability float64           `json:"churn_probability"`
	Tier        policy.Tier       `json:"churn_risk_level"`
	Action      policy.Action     `json:"recommended_action"`
	Thresholds  policy.Thresholds `json:"thresholds"`
}

func tierCommand() *cli.Command {
	return &cli.Command{
		Name:      "tier",
		Usage:     "map a churn probability to its risk tier and retention action",
		ArgsUsage: "<probability>",
		Flags:     thresholdFlags,
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("tier takes exactly one probability argument")
			}
			p, err := strconv.ParseFloat(c.Args().First(), 64)
			if err != nil {
				return fmt.Errorf("invalid probability %q: %w", c.Args().First(), err)
			}
			t, err := thresholds(c)
			if err != nil {
				return err
			}
			d := policy.Classify(p, t)
			return output(c, TierResult{
				Probability: predict.Round4(p),
				Tier:        d.Tier,
				Action:      d.Action,
				Thresholds:  t,
			})
		},
	}
}

// PriorityResult is the output of churnctl priority.
type PriorityResult struct {
	ChurnProbability float64  `json:"churn_probability"`
	CLV              *float64 `json:"clv_12m,omitempty"`
	PriorityScore    float64  `json:"priority_score"`
}

func priorityCommand() *cli.Command {
	return &cli.Command{
		Name:  "priority",
		Usage: "compute a retention priority score (churn probability x 12-month value)",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "churn", Usage: "churn probability", Required: true},
			&cli.Float64Flag{Name: "clv", Usage: "estimated 12-month customer value"},
			&cli.Float64Flag{Name: "score", Usage: "precomputed priority score, used when --clv is absent"},
		},
		Action: func(c *cli.Context) error {
			var clv, supplied *float64
			if c.IsSet("clv") {
				v := c.Float64("clv")
				clv = &v
			}
			if c.IsSet("score") {
				v := c.Float64("score")
				supplied = &v
			}
			score, ok := priority.Score(c.Float64("churn"), clv, supplied)
			if !ok {
				return errors.New("either --clv or --score is required")
			}
			return output(c, PriorityResult{
				ChurnProbability: c.Float64("churn"),
				CLV:              clv,
				PriorityScore:    score,
			})
		},
	}
}

func scoreCommand() *cli.Command {
	return &cli.Command{
		Name:  "score",
		Usage: "score one feature vector with the configured model",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "features",
				Aliases:  []string{"f"},
				Usage:    "JSON object of feature values, - for stdin",
				Required: true,
			},
			&cli.StringFlag{Name: "model", Usage: "model artifact, overrides model.path"},
			&cli.BoolFlag{Name: "check", Usage: "reject negative counts in the default customer features before scoring"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if m := c.String("model"); m != "" {
				cfg.Model.Path = m
				cfg.Model.FallbackPath = ""
			}
			p, err := buildPredictor(cfg)
			if err != nil {
				return err
			}
			raw, err := readFeatures(c, c.String("features"))
			if err != nil {
				return err
			}
			v, err := p.Decode(raw)
			if err != nil {
				return err
			}
			if c.Bool("check") {
				if verr := validation.ValidateStruct(scoring.CustomerFeaturesFrom(v)); verr != nil {
					return verr
				}
			}
			pred, err := p.Predict(c.Context, v)
			if err != nil {
				return err
			}
			return output(c, pred)
		},
	}
}

func buildPredictor(cfg *config.Config) (*predict.Predictor, error) {
	names, _, err := scoring.LoadFeatureNames(cfg.Model.FeaturesPath)
	if err != nil {
		return nil, err
	}
	schema, err := scoring.NewSchema(names)
	if err != nil {
		return nil, err
	}
	mode, err := scoring.ParseMode(cfg.Model.ValidationMode)
	if err != nil {
		return nil, err
	}
	path := scoring.ResolveModelPath(cfg.Model.Path, cfg.Model.FallbackPath)
	model, err := scoring.LoadModel(path, schema, scoring.LoadOptions{
		RemoteURL:       cfg.Model.RemoteURL,
		RemoteTimeout:   cfg.Model.RemoteTimeout,
		RemoteRateLimit: cfg.Model.RemoteRateLimit,
		RemoteBurst:     cfg.Model.RemoteBurst,
	})
	if err != nil {
		return nil, err
	}
	return predict.New(predict.Options{
		Schema:     schema,
		Model:      model,
		Thresholds: cfg.RetentionPolicy.Thresholds(),
		ModelPath:  path,
		Mode:       mode,
	})
}

func readFeatures(c *cli.Context, path string) (map[string]any, error) {
	var r io.Reader
	if path == "-" {
		r = c.App.Reader
	} else {
		f, err := os.Open(path) //nolint:gosec // operator-supplied path
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var raw map[string]any
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("features must be a JSON object: %w", err)
	}
	return raw, nil
}

// TokenResult is the output of churnctl token.
type TokenResult struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "mint a bearer token for /api/v1 with the configured JWT secret",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Required: true},
			&cli.StringFlag{Name: "role", Aliases: []string{"r"}, Value: "viewer"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			role := c.String("role")

			enforcer, err := authz.NewEnforcer(cfg.Security.PolicyPath, cfg.Security.DefaultRole)
			if err != nil {
				return err
			}
			// Every role in the policy can at least read predictions.
			if ok, err := enforcer.Enforce(role, authz.ObjectPredictions, authz.ActionRead); err != nil || !ok {
				return fmt.Errorf("role %q is not defined in the authorization policy", role)
			}

			m, err := auth.NewJWTManager(&cfg.Security)
			if err != nil {
				return err
			}
			token, err := m.GenerateToken(c.String("user"), role)
			if err != nil {
				return err
			}
			return output(c, TokenResult{
				Token:     token,
				Username:  c.String("user"),
				Role:      role,
				ExpiresAt: time.Now().Add(m.Timeout()).UTC().Truncate(time.Second),
			})
		},
	}
}

// ConfigSummary is the output of churnctl check-config.
type ConfigSummary struct {
	ConfigFile     string            `json:"config_file"`
	Environment    string            `json:"environment"`
	Listen         string            `json:"listen"`
	ModelPath      string            `json:"model_path"`
	ModelExists    bool              `json:"model_exists"`
	ValidationMode string            `json:"validation_mode"`
	Thresholds     policy.Thresholds `json:"thresholds"`
	DataDir        string            `json:"data_dir"`
	AuthMode       string            `json:"auth_mode"`
	Events         bool              `json:"events_enabled"`
	Audit          bool              `json:"audit_enabled"`
	Warnings       []string          `json:"warnings,omitempty"`
}

func checkConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "check-config",
		Usage: "load and validate configuration",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			configFile := cfg.ConfigFile
			if configFile == "" {
				configFile = "(defaults)"
			}

			path := scoring.ResolveModelPath(cfg.Model.Path, cfg.Model.FallbackPath)
			_, statErr := os.Stat(path)

			s := ConfigSummary{
				ConfigFile:     configFile,
				Environment:    cfg.Server.Environment,
				Listen:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
				ModelPath:      path,
				ModelExists:    statErr == nil,
				ValidationMode: cfg.Model.ValidationMode,
				Thresholds:     cfg.RetentionPolicy.Thresholds(),
				DataDir:        cfg.Data.Dir,
				AuthMode:       cfg.Security.AuthMode,
				Events:         cfg.Events.Enabled,
				Audit:          cfg.Audit.Enabled,
			}
			if statErr != nil {
				s.Warnings = append(s.Warnings, "model artifact not found: /predict will answer 503")
			}
			if cfg.ShouldWarnAboutCORS() {
				s.Warnings = append(s.Warnings, "wildcard CORS origin combined with authentication")
			}
			if cfg.Security.AuthMode == auth.ModeNone && cfg.IsProduction() {
				s.Warnings = append(s.Warnings, "authentication disabled in production")
			}
			return output(c, s)
		},
	}
}
