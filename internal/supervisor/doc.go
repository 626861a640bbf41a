// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

// Package supervisor runs churnwatch's long-lived goroutines under a suture
// v4 supervisor tree.
//
// Every background component implements suture.Service (Serve(ctx) error)
// and is added to one of three layers:
//
//	data-layer       audit.BadgerStore (value-log GC), cache.Cache (janitor)
//	messaging-layer  websocket.Hub, events.Forwarder
//	api-layer        services.HTTPServerService
//
// A service that returns an error or panics is restarted. Repeated failures
// decay at FailureDecay per second; once they exceed FailureThreshold the
// layer waits FailureBackoff before the next restart. Returning
// suture.ErrDoNotRestart stops a service for good.
//
// Shutdown is driven by context cancellation:
//
//	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
//	tree.AddAPIService(services.NewHTTPServerService(srv, addr, 10*time.Second))
//	errCh := tree.ServeBackground(ctx)
//	<-ctx.Done()
//	<-errCh
//
// Supervisor events (restarts, backoff, stop timeouts) go to slog through
// sutureslog, which the logging package bridges to zerolog.
package supervisor
