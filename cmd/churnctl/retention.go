// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package main

import (
	"github.com/urfave/cli/v2"

	"github.com/tomtom215/churnwatch/internal/database"
	"github.com/tomtom215/churnwatch/internal/policy"
	"github.com/tomtom215/churnwatch/internal/retention"
	"github.com/tomtom215/churnwatch/internal/validation"
)

// RetentionSummary is the output of churnctl retention summary.
type RetentionSummary struct {
	Overview     retention.Overview        `json:"overview"`
	Actions      []retention.ActionSummary `json:"actions,omitempty"`
	Distribution []retention.ActionCount   `json:"distribution,omitempty"`
}

func retentionCommand() *cli.Command {
	return &cli.Command{
		Name:  "retention",
		Usage: "query the retention tables without a running server",
		Subcommands: []*cli.Command{
			{
				Name:  "summary",
				Usage: "overview plus per-action value at stake",
				Flags: []cli.Flag{dataDirFlag()},
				Action: withRetention(func(c *cli.Context, svc *retention.Service) error {
					ov, err := svc.Overview(c.Context)
					if err != nil {
						return err
					}
					out := RetentionSummary{Overview: ov}
					// Action breakdowns need a retention policy table.
					if svc.Mode() == database.ModePolicy {
						if out.Actions, err = svc.ActionSummary(c.Context); err != nil {
							return err
						}
						if out.Distribution, err = svc.ActionDistribution(c.Context); err != nil {
							return err
						}
					}
					return output(c, out)
				}),
			},
			{
				Name:  "list",
				Usage: "priority list, or the at-risk list when no policy table exists",
				Flags: []cli.Flag{
					dataDirFlag(),
					&cli.StringSliceFlag{Name: "action", Usage: "keep customers with this recommended action (repeatable)"},
					&cli.Float64Flag{Name: "min-priority", Usage: "minimum priority score"},
					&cli.BoolFlag{Name: "top", Usage: "keep customers at or above the configured priority quantile"},
					&cli.Float64Flag{Name: "threshold", Usage: "minimum churn risk for the at-risk list"},
					&cli.IntFlag{Name: "limit", Usage: "maximum rows"},
				},
				Action: withRetention(func(c *cli.Context, svc *retention.Service) error {
					if svc.Mode() != database.ModePolicy {
						var threshold *float64
						if c.IsSet("threshold") {
							v := c.Float64("threshold")
							threshold = &v
						}
						page, err := svc.AtRisk(c.Context, threshold, c.Int("limit"))
						if err != nil {
							return err
						}
						return output(c, page)
					}

					q := retention.Query{Filter: retention.FilterAll, Limit: c.Int("limit")}
					if actions := c.StringSlice("action"); len(actions) > 0 {
						q.Filter = retention.FilterAction
						q.Actions = actions
					} else if c.IsSet("min-priority") {
						v := c.Float64("min-priority")
						q.Filter = retention.FilterPriority
						q.MinPriority = &v
					} else if c.Bool("top") {
						q.Filter = retention.FilterPriority
					}
					if err := validation.ValidateStruct(&q); err != nil {
						return err
					}
					page, err := svc.PriorityList(c.Context, q)
					if err != nil {
						return err
					}
					return output(c, page)
				}),
			},
			{
				Name:  "rebuild",
				Usage: "regenerate the retention policy from churn risk and write it to the data dir",
				Flags: []cli.Flag{dataDirFlag()},
				Action: withRetention(func(c *cli.Context, svc *retention.Service) error {
					res, err := svc.Rebuild(c.Context)
					if err != nil {
						return err
					}
					return output(c, res)
				}),
			},
		},
	}
}

func dataDirFlag() cli.Flag {
	return &cli.StringFlag{Name: "data-dir", Usage: "directory holding the retention CSVs, overrides data.dir"}
}

// withRetention loads the retention tables into an in-memory DuckDB and
// hands the service to fn. Rebuilds are always persisted: without a running
// server there is nowhere else for them to go.
func withRetention(fn func(*cli.Context, *retention.Service) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		if dir := c.String("data-dir"); dir != "" {
			cfg.Data.Dir = dir
		}
		cfg.Data.DuckDBPath = ""
		cfg.Data.PersistRebuild = true

		db, err := database.New(&cfg.Data)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		if err := db.Load(c.Context); err != nil {
			return err
		}

		evaluator, err := policy.NewEvaluator(cfg.RetentionPolicy.Thresholds())
		if err != nil {
			return err
		}
		svc := retention.NewService(db, evaluator, retention.OptionsFromConfig(cfg), nil)
		return fn(c, svc)
	}
}
