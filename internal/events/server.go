// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package events

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// EmbeddedServer is an in-process NATS server for single-instance
// deployments that want NATS without running one.
type EmbeddedServer struct {
	server    *server.Server
	clientURL string
}

// NewEmbeddedServer starts a core NATS server on host:port. Port -1 picks a
// random free port.
func NewEmbeddedServer(host string, port int) (*EmbeddedServer, error) {
	opts := &server.Options{
		ServerName: "churnwatch-events",
		Host:       host,
		Port:       port,
		NoSigs:     true,
		NoLog:      true,
		MaxPayload: 1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within timeout")
	}

	return &EmbeddedServer{server: ns, clientURL: ns.ClientURL()}, nil
}

// ClientURL returns the connection URL for clients.
func (s *EmbeddedServer) ClientURL() string {
	return s.clientURL
}

// IsRunning reports server health.
func (s *EmbeddedServer) IsRunning() bool {
	return s.server.Running()
}

// Shutdown stops the server and waits for it to exit.
func (s *EmbeddedServer) Shutdown() {
	s.server.Shutdown()
	s.server.WaitForShutdown()
}
