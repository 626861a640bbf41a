// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/churnwatch/internal/config"
	"github.com/tomtom215/churnwatch/internal/logging"
	"github.com/tomtom215/churnwatch/internal/metrics"
)

// Transports.
const (
	TransportGoChannel = "gochannel"
	TransportNATS      = "nats"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("event bus is closed")

// Bus publishes and subscribes to high-risk events over watermill.
type Bus struct {
	transport  string
	topic      string
	publisher  message.Publisher
	subscriber message.Subscriber
	embedded   *EmbeddedServer
	breaker    *gobreaker.CircuitBreaker[struct{}]
	logger     watermill.LoggerAdapter

	mu     sync.RWMutex
	closed bool
}

// NewBus builds the transport selected by cfg. With TransportNATS and
// EmbeddedNATS set, an in-process server is started first.
func NewBus(cfg *config.EventsConfig) (*Bus, error) {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	logger := watermill.NewSlogLogger(logging.NewComponentSlogLogger("events"))

	b := &Bus{
		transport: cfg.Transport,
		topic:     topic,
		logger:    logger,
		breaker:   newBreaker("event-publisher"),
	}

	switch cfg.Transport {
	case "", TransportGoChannel:
		b.transport = TransportGoChannel
		ch := gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            256,
			BlockPublishUntilSubscriberAck: false,
		}, logger)
		b.publisher, b.subscriber = ch, ch

	case TransportNATS:
		url := cfg.NATSURL
		if cfg.EmbeddedNATS {
			srv, err := NewEmbeddedServer(cfg.NATSHost, cfg.NATSPort)
			if err != nil {
				return nil, err
			}
			b.embedded = srv
			url = srv.ClientURL()
		}
		if err := b.connectNATS(url); err != nil {
			if b.embedded != nil {
				b.embedded.Shutdown()
			}
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown event transport %q", cfg.Transport)
	}

	logging.Info().
		Str("transport", b.transport).
		Str("topic", topic).
		Bool("embedded_nats", b.embedded != nil).
		Msg("Event bus ready")
	return b, nil
}

func (b *Bus) connectNATS(url string) error {
	natsOpts := []natsgo.Option{
		natsgo.Name("churnwatch"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				b.logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			b.logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}
	// Alerts are fire-and-forget; core NATS is enough.
	js := wmNats.JetStreamConfig{Disabled: true}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   js,
	}, b.logger)
	if err != nil {
		return fmt.Errorf("create NATS publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		SubscribersCount: 1,
		CloseTimeout:     5 * time.Second,
		AckWaitTimeout:   30 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        js,
	}, b.logger)
	if err != nil {
		_ = pub.Close()
		return fmt.Errorf("create NATS subscriber: %w", err)
	}

	b.publisher, b.subscriber = pub, sub
	return nil
}

func newBreaker(name string) *gobreaker.CircuitBreaker[struct{}] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("[CIRCUIT BREAKER] State transition")
			metrics.RecordCircuitBreakerTransition(name, from, to)
		},
	})
}

// Topic returns the configured topic.
func (b *Bus) Topic() string { return b.topic }

// Transport returns the active transport name.
func (b *Bus) Transport() string { return b.transport }

// BreakerState reports the publish circuit breaker state.
func (b *Bus) BreakerState() string { return b.breaker.State().String() }

// Publish sends e through the circuit breaker. An open breaker fails fast
// with gobreaker.ErrOpenState.
func (b *Bus) Publish(_ context.Context, e HighRiskEvent) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	msg, err := newMessage(e)
	if err != nil {
		return err
	}

	_, err = b.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, b.publisher.Publish(b.topic, msg)
	})
	metrics.RecordEventPublish(b.topic, err)
	if err != nil {
		return fmt.Errorf("publish %s: %w", b.topic, err)
	}
	return nil
}

// Subscribe returns the message channel for the topic. The channel closes
// when ctx is done or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}
	return b.subscriber.Subscribe(ctx, b.topic)
}

// Close shuts down publisher, subscriber and the embedded server.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	if err := b.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	// gochannel uses one value for both sides.
	if b.transport != TransportGoChannel {
		if err := b.subscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close subscriber: %w", err))
		}
	}
	if b.embedded != nil {
		b.embedded.Shutdown()
	}
	return errors.Join(errs...)
}
