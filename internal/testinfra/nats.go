// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultNATSImage matches the server version the embedded broker links against.
	DefaultNATSImage = "nats:2.12-alpine"

	natsClientPort  = "4222/tcp"
	natsMonitorPort = "8222/tcp"
)

// NATSContainer is a standalone NATS broker for exercising the event bus
// against an external server.
type NATSContainer struct {
	testcontainers.Container
	URL string
}

// NATSOption configures the broker container.
type NATSOption func(*natsConfig)

type natsConfig struct {
	image        string
	startTimeout time.Duration
}

// WithNATSImage overrides DefaultNATSImage.
func WithNATSImage(image string) NATSOption {
	return func(c *natsConfig) { c.image = image }
}

// WithNATSStartTimeout bounds how long to wait for the broker to report healthy.
func WithNATSStartTimeout(d time.Duration) NATSOption {
	return func(c *natsConfig) { c.startTimeout = d }
}

// NewNATSContainer starts a broker and returns its client URL.
func NewNATSContainer(ctx context.Context, opts ...NATSOption) (*NATSContainer, error) {
	cfg := &natsConfig{image: DefaultNATSImage, startTimeout: 60 * time.Second}
	for _, opt := range opts {
		opt(cfg)
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{natsClientPort, natsMonitorPort},
		Cmd:          []string{"-m", "8222"},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(natsClientPort),
			wait.ForHTTP("/healthz").WithPort(natsMonitorPort),
		).WithStartupTimeout(cfg.startTimeout),
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create nats container: %w", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("get container host: %w", err)
	}
	port, err := c.MappedPort(ctx, natsClientPort)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("get mapped port: %w", err)
	}

	return &NATSContainer{
		Container: c,
		URL:       fmt.Sprintf("nats://%s:%s", host, port.Port()),
	}, nil
}
