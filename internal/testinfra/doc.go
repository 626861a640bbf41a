// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

// Package testinfra starts real dependencies in Docker for integration tests.
//
// Everything here sits behind the integration build tag:
//
//	go test -tags integration ./internal/testinfra/...
//
// NATSContainer runs a standalone broker so the event bus can be checked
// against an external server instead of the embedded one:
//
//	broker, err := testinfra.NewNATSContainer(ctx)
//	if err != nil {
//	    t.Fatal(err)
//	}
//	testinfra.Terminate(t, broker)
//
//	bus, err := events.NewBus(&config.EventsConfig{
//	    Transport: events.TransportNATS,
//	    NATSURL:   broker.URL,
//	})
//
// Tests call RequireDocker first and skip when no daemon is reachable or
// CHURNWATCH_SKIP_DOCKER is set.
package testinfra
