// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package websocket

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/churnwatch/internal/logging"
	"github.com/tomtom215/churnwatch/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Subscribers only ever send {"type":"ping"}.
	maxMessageSize = 4 * 1024

	// alertBacklog is how many alerts may queue for one subscriber before
	// the hub disconnects it as too slow.
	alertBacklog = 64
)

var clientIDCounter atomic.Uint64

// Client is one subscriber of the alert stream. High-risk alerts and policy
// rebuild notices flow to it; the only frame read back is the
// application-level ping.
type Client struct {
	id   uint64
	hub  *Hub
	conn *websocket.Conn
	send chan Message
}

// NewClient wraps conn. Register it with the hub, then call Start.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   clientIDCounter.Add(1),
		hub:  hub,
		conn: conn,
		send: make(chan Message, alertBacklog),
	}
}

// ID returns the subscriber's sequence number. Alerts fan out in ID order.
func (c *Client) ID() uint64 { return c.id }

// readPings answers subscriber pings until the connection drops, then
// unregisters the subscriber.
func (c *Client) readPings() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Uint64("client_id", c.id).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Uint64("client_id", c.id).Msg("alert subscriber closed unexpectedly")
			}
			return
		}
		if msg.Type != MessageTypePing {
			continue
		}
		// A full backlog already means the hub is about to drop us.
		select {
		case c.send <- Message{Type: MessageTypePong}:
		default:
		}
	}
}

// deliverAlerts writes queued alerts to the subscriber and keeps the
// connection alive with control pings.
func (c *Client) deliverAlerts() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				logging.Debug().Err(err).Uint64("client_id", c.id).Str("type", msg.Type).Msg("alert delivery failed")
				return
			}
			if msg.Type != MessageTypePong {
				metrics.RecordAlertDelivered(msg.Type)
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start runs delivery and ping handling for the subscriber.
func (c *Client) Start() {
	go c.deliverAlerts()
	go c.readPings()
}
