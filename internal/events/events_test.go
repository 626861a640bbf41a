// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/churnwatch/internal/config"
	"github.com/tomtom215/churnwatch/internal/logging"
	"github.com/tomtom215/churnwatch/internal/policy"
	"github.com/tomtom215/churnwatch/internal/predict"
)

func highRisk(id string) predict.Prediction {
	return predict.Prediction{
		ID:          id,
		Probability: 0.91,
		Tier:        policy.TierHigh,
		Action:      policy.ActionImmediateCampaign,
		ScoredAt:    time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []HighRiskEvent
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, e HighRiskEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, e)
	return nil
}

func TestNotifier_MinTier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		minTier policy.Tier
		tier    policy.Tier
		want    int
	}{
		{"high at high", policy.TierHigh, policy.TierHigh, 1},
		{"medium below high", policy.TierHigh, policy.TierMedium, 0},
		{"medium at medium", policy.TierMedium, policy.TierMedium, 1},
		{"high above medium", policy.TierMedium, policy.TierHigh, 1},
		{"low below low-medium", policy.TierLowMedium, policy.TierLow, 0},
		{"default is high", "", policy.TierMedium, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			pub := &recordingPublisher{}
			n := NewNotifier(pub, tt.minTier)

			p := highRisk("p-1")
			p.Tier = tt.tier
			if err := n.Observe(context.Background(), p); err != nil {
				t.Fatalf("Observe() error = %v", err)
			}
			if len(pub.events) != tt.want {
				t.Errorf("published %d events, want %d", len(pub.events), tt.want)
			}
		})
	}
}

func TestNotifier_CarriesRequestID(t *testing.T) {
	t.Parallel()
	pub := &recordingPublisher{}
	n := NewNotifier(pub, policy.TierHigh)

	ctx := logging.ContextWithRequestID(context.Background(), "req-7")
	if err := n.Observe(ctx, highRisk("p-9")); err != nil {
		t.Fatal(err)
	}
	got := pub.events[0]
	if got.PredictionID != "p-9" || got.RequestID != "req-7" || got.Tier != "High" {
		t.Errorf("event = %+v", got)
	}
}

func TestNotifier_ReturnsPublishError(t *testing.T) {
	t.Parallel()
	pub := &recordingPublisher{err: errors.New("broker down")}
	n := NewNotifier(pub, policy.TierHigh)

	if err := n.Observe(context.Background(), highRisk("p-1")); err == nil {
		t.Error("expected publish error")
	}
}

func TestMessageRoundTrip(t *testing.T) {
	t.Parallel()
	e := FromPrediction(highRisk("p-3"), "req-3")

	msg, err := newMessage(e)
	if err != nil {
		t.Fatal(err)
	}
	if msg.UUID != "p-3" || msg.Metadata.Get("tier") != "High" {
		t.Errorf("message uuid=%s metadata=%v", msg.UUID, msg.Metadata)
	}
	got, err := decodeMessage(msg)
	if err != nil {
		t.Fatal(err)
	}
	if got != e {
		t.Errorf("decoded %+v, want %+v", got, e)
	}

	if _, err := decodeMessage(message.NewMessage("bad", []byte("{"))); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func receive(t *testing.T, ch <-chan *message.Message) HighRiskEvent {
	t.Helper()
	select {
	case msg := <-ch:
		msg.Ack()
		e, err := decodeMessage(msg)
		if err != nil {
			t.Fatal(err)
		}
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return HighRiskEvent{}
	}
}

func TestBus_GoChannel(t *testing.T) {
	t.Parallel()
	bus, err := NewBus(&config.EventsConfig{Transport: TransportGoChannel})
	if err != nil {
		t.Fatalf("NewBus() error = %v", err)
	}
	defer func() { _ = bus.Close() }()

	if bus.Topic() != DefaultTopic {
		t.Errorf("Topic() = %s", bus.Topic())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := bus.Subscribe(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if err := bus.Publish(ctx, FromPrediction(highRisk("p-1"), "")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if got := receive(t, ch); got.PredictionID != "p-1" {
		t.Errorf("received %+v", got)
	}

	_ = bus.Close()
	if err := bus.Publish(ctx, FromPrediction(highRisk("p-2"), "")); !errors.Is(err, ErrClosed) {
		t.Errorf("Publish() after Close error = %v, want ErrClosed", err)
	}
}

func TestBus_UnknownTransport(t *testing.T) {
	t.Parallel()
	if _, err := NewBus(&config.EventsConfig{Transport: "kafka"}); err == nil {
		t.Error("expected error for unknown transport")
	}
}

type failingPublisher struct{}

func (failingPublisher) Publish(string, ...*message.Message) error { return errors.New("unreachable") }
func (failingPublisher) Close() error                              { return nil }

func TestBus_BreakerOpens(t *testing.T) {
	t.Parallel()
	bus := &Bus{
		transport: TransportNATS,
		topic:     DefaultTopic,
		publisher: failingPublisher{},
		breaker:   newBreaker("test-breaker"),
	}

	for i := 0; i < 5; i++ {
		if err := bus.Publish(context.Background(), FromPrediction(highRisk("p"), "")); err == nil {
			t.Fatal("expected publish error")
		}
	}
	if bus.BreakerState() != gobreaker.StateOpen.String() {
		t.Fatalf("BreakerState() = %s, want open", bus.BreakerState())
	}
	err := bus.Publish(context.Background(), FromPrediction(highRisk("p"), ""))
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Publish() with open breaker error = %v, want ErrOpenState", err)
	}
}

func TestBus_EmbeddedNATS(t *testing.T) {
	t.Parallel()
	bus, err := NewBus(&config.EventsConfig{
		Transport:    TransportNATS,
		Topic:        "retention.high_risk.test",
		EmbeddedNATS: true,
		NATSHost:     "127.0.0.1",
		NATSPort:     -1,
	})
	if err != nil {
		t.Fatalf("NewBus() error = %v", err)
	}
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := bus.Subscribe(ctx)
	if err != nil {
		t.Fatal(err)
	}

	// Core NATS drops messages published before the subscription reaches
	// the server, so publish until one arrives.
	deadline := time.After(10 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		if err := bus.Publish(ctx, FromPrediction(highRisk("p-nats"), "")); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		select {
		case msg := <-ch:
			msg.Ack()
			e, err := decodeMessage(msg)
			if err != nil {
				t.Fatal(err)
			}
			if e.PredictionID != "p-nats" {
				t.Errorf("received %+v", e)
			}
			return
		case <-ticker.C:
		case <-deadline:
			t.Fatal("no event received over NATS")
		}
	}
}

type chanSubscriber struct {
	ch chan *message.Message
}

func (c chanSubscriber) Subscribe(context.Context) (<-chan *message.Message, error) { return c.ch, nil }

type recordingSink struct {
	mu     sync.Mutex
	events []HighRiskEvent
	got    chan struct{}
}

func (r *recordingSink) BroadcastAlert(e HighRiskEvent) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	r.got <- struct{}{}
}

func TestForwarder(t *testing.T) {
	t.Parallel()
	sub := chanSubscriber{ch: make(chan *message.Message, 4)}
	sink := &recordingSink{got: make(chan struct{}, 4)}
	f := NewForwarder(sub, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Serve(ctx) }()

	sub.ch <- message.NewMessage("bad", []byte("not json"))
	good, _ := newMessage(FromPrediction(highRisk("p-5"), ""))
	sub.ch <- good

	select {
	case <-sink.got:
	case <-time.After(5 * time.Second):
		t.Fatal("event not forwarded")
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v, want context.Canceled", err)
	}

	if f.Forwarded() != 1 || f.Invalid() != 1 {
		t.Errorf("forwarded=%d invalid=%d, want 1 and 1", f.Forwarded(), f.Invalid())
	}
	if sink.events[0].PredictionID != "p-5" {
		t.Errorf("forwarded %+v", sink.events[0])
	}
}

func TestForwarder_SubscriptionClosed(t *testing.T) {
	t.Parallel()
	sub := chanSubscriber{ch: make(chan *message.Message)}
	close(sub.ch)
	f := NewForwarder(sub, &recordingSink{got: make(chan struct{}, 1)})

	if err := f.Serve(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Serve() error = %v, want ErrClosed", err)
	}
}
