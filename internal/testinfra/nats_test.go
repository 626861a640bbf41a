// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

//go:build integration

package testinfra_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/churnwatch/internal/config"
	"github.com/tomtom215/churnwatch/internal/events"
	"github.com/tomtom215/churnwatch/internal/policy"
	"github.com/tomtom215/churnwatch/internal/predict"
	"github.com/tomtom215/churnwatch/internal/testinfra"
)

type sink struct {
	mu  sync.Mutex
	got []events.HighRiskEvent
}

func (s *sink) BroadcastAlert(e events.HighRiskEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, e)
}

func (s *sink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func TestEventBus_ExternalNATS(t *testing.T) {
	testinfra.RequireDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker, err := testinfra.NewNATSContainer(ctx)
	if err != nil {
		t.Fatalf("NewNATSContainer() error = %v", err)
	}
	testinfra.Terminate(t, broker)

	bus, err := events.NewBus(&config.EventsConfig{
		Enabled:   true,
		Transport: events.TransportNATS,
		Topic:     "retention.high_risk.integration",
		NATSURL:   broker.URL,
	})
	if err != nil {
		t.Fatalf("NewBus() error = %v", err)
	}
	defer func() { _ = bus.Close() }()

	s := &sink{}
	fwd := events.NewForwarder(bus, s)
	fwdCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- fwd.Serve(fwdCtx) }()

	notifier := events.NewNotifier(bus, policy.TierHigh)
	high := predict.Prediction{
		ID:          "p-high",
		Probability: 0.91,
		Tier:        policy.TierHigh,
		Action:      policy.ActionImmediateCampaign,
		ScoredAt:    time.Now().UTC(),
	}
	low := high
	low.ID, low.Probability, low.Tier, low.Action = "p-low", 0.1, policy.TierLow, policy.ActionNone

	// Core NATS drops publishes that race the subscription; retry until the
	// forwarder has seen one.
	deadline := time.Now().Add(30 * time.Second)
	for s.len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no event forwarded from the external broker")
		}
		if err := notifier.Observe(ctx, low); err != nil {
			t.Fatalf("Observe(low) error = %v", err)
		}
		if err := notifier.Observe(ctx, high); err != nil {
			t.Fatalf("Observe(high) error = %v", err)
		}
		time.Sleep(200 * time.Millisecond)
	}

	stop()
	<-done

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.got {
		if e.PredictionID != "p-high" || e.Tier != string(policy.TierHigh) {
			t.Errorf("forwarded %+v, want only p-high", e)
		}
	}
	if fwd.Invalid() != 0 {
		t.Errorf("Invalid() = %d", fwd.Invalid())
	}
}
