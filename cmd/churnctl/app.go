// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package main

import (
	"github.com/urfave/cli/v2"

	"github.com/tomtom215/churnwatch/internal/config"
	"github.com/tomtom215/churnwatch/internal/logging"
)

const (
	flagConfig   = "config"
	flagOutput   = "output"
	flagLogLevel = "log-level"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "churnctl",
		Usage: "score customers and inspect retention policy data offline",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "config file (defaults to the server's discovery rules)",
				EnvVars: []string{config.ConfigPathEnvVar},
			},
			&cli.StringFlag{
				Name:    flagOutput,
				Aliases: []string{"o"},
				Usage:   "output format: json or yaml",
				Value:   FormatJSON,
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "log level for diagnostics on stderr",
				Value: "warn",
			},
		},
		Before: func(c *cli.Context) error {
			logging.Init(logging.Config{
				Level:     c.String(flagLogLevel),
				Format:    "console",
				Timestamp: true,
				Output:    c.App.ErrWriter,
			})
			return nil
		},
		Commands: []*cli.Command{
			tierCommand(),
			priorityCommand(),
			scoreCommand(),
			retentionCommand(),
			tokenCommand(),
			checkConfigCommand(),
		},
	}
}

// loadConfig applies the --config flag on top of the server's layering.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String(flagConfig); path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func output(c *cli.Context, v interface{}) error {
	return render(c.App.Writer, c.String(flagOutput), v)
}
