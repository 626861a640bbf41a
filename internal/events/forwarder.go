// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package events

import (
	"context"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/churnwatch/internal/logging"
)

// Sink receives forwarded events. The websocket hub is the production sink.
type Sink interface {
	BroadcastAlert(e HighRiskEvent)
}

// Subscriber is the subscribe side of a Bus.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan *message.Message, error)
}

// Forwarder relays bus events to a Sink. It implements suture.Service.
type Forwarder struct {
	sub       Subscriber
	sink      Sink
	forwarded atomic.Int64
	invalid   atomic.Int64
}

// NewForwarder builds a forwarder from sub to sink.
func NewForwarder(sub Subscriber, sink Sink) *Forwarder {
	return &Forwarder{sub: sub, sink: sink}
}

// Serve subscribes and forwards until ctx is done or the subscription ends.
// Malformed messages are acked and skipped so they are not redelivered.
func (f *Forwarder) Serve(ctx context.Context) error {
	msgs, err := f.sub.Subscribe(ctx)
	if err != nil {
		return err
	}
	logging.Info().Msg("Event forwarder subscribed")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return ErrClosed
			}
			e, err := decodeMessage(msg)
			if err != nil {
				f.invalid.Add(1)
				logging.Warn().Err(err).Msg("Dropping malformed event")
				msg.Ack()
				continue
			}
			f.sink.BroadcastAlert(e)
			f.forwarded.Add(1)
			msg.Ack()
		}
	}
}

// String names the service in supervisor logs.
func (f *Forwarder) String() string { return "event-forwarder" }

// Forwarded returns how many events reached the sink.
func (f *Forwarder) Forwarded() int64 { return f.forwarded.Load() }

// Invalid returns how many messages could not be decoded.
func (f *Forwarder) Invalid() int64 { return f.invalid.Load() }
