// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

//go:build integration

package testinfra

import (
	"context"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
)

// SkipDockerEnvVar disables container tests even when a daemon is reachable.
const SkipDockerEnvVar = "CHURNWATCH_SKIP_DOCKER"

// RequireDocker skips t when no Docker daemon answers or SkipDockerEnvVar is set.
func RequireDocker(t *testing.T) {
	t.Helper()
	if os.Getenv(SkipDockerEnvVar) != "" {
		t.Skipf("skipping container test: %s is set", SkipDockerEnvVar)
	}
	if !DockerAvailable() {
		t.Skip("skipping container test: docker not available")
	}
}

// DockerAvailable runs `docker info` with a short timeout.
func DockerAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, "docker", "info").Run() == nil
}

// Terminate stops c on test cleanup, logging instead of failing.
func Terminate(t *testing.T, c testcontainers.Container) {
	t.Helper()
	if c == nil {
		return
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := c.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})
}
