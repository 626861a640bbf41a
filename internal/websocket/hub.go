// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/churnwatch/internal/events"
	"github.com/tomtom215/churnwatch/internal/logging"
	"github.com/tomtom215/churnwatch/internal/metrics"
)

// Message types.
const (
	MessageTypeHighRisk = "high_risk_alert"
	MessageTypeRebuild  = "policy_rebuilt"
	MessageTypePing     = "ping"
	MessageTypePong     = "pong"
)

// Message is the envelope of every frame sent to clients.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub tracks connected clients and fans broadcasts out to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

var _ events.Sink = (*Hub)(nil)

// NewHub creates a hub. Call Serve to start it.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Serve runs the hub until ctx is done, then closes every client. Lifecycle
// events are handled before broadcasts so a message is never sent to a
// client that already left. It implements suture.Service.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		default:
		}

		select {
		case c := <-h.Register:
			h.add(c)
			continue
		case c := <-h.Unregister:
			h.remove(c)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		case c := <-h.Register:
			h.add(c)
		case c := <-h.Unregister:
			h.remove(c)
		case msg := <-h.broadcast:
			h.broadcastToClients(msg)
		}
	}
}

// String names the service in supervisor logs.
func (h *Hub) String() string { return "websocket-hub" }

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WebSocketClients.Set(float64(n))
	logging.Info().Int("total_clients", n).Msg("websocket client connected")
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WebSocketClients.Set(float64(n))
	logging.Info().Int("total_clients", n).Msg("websocket client disconnected")
}

func (h *Hub) sortedClients() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })
	return clients
}

// broadcastToClients delivers in client id order. Clients whose send buffer
// is full are dropped.
func (h *Hub) broadcastToClients(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.sortedClients() {
		select {
		case c.send <- msg:
		default:
			close(c.send)
			delete(h.clients, c)
			logging.Warn().Uint64("client_id", c.id).Msg("websocket client too slow, disconnecting")
		}
	}
	metrics.WebSocketClients.Set(float64(len(h.clients)))
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	n := len(h.clients)
	for _, c := range h.sortedClients() {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()
	metrics.WebSocketClients.Set(0)

	logging.Info().
		Str("component", "websocket-hub").
		Int("clients_closed", n).
		Msg("websocket hub stopped")
}

// BroadcastJSON queues a message for every client. A full queue drops it.
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	select {
	case h.broadcast <- Message{Type: messageType, Data: data}:
	default:
		logging.Warn().Str("message_type", messageType).Msg("broadcast channel full, dropping message")
	}
}

// BroadcastAlert sends a high-risk prediction alert.
func (h *Hub) BroadcastAlert(e events.HighRiskEvent) {
	h.BroadcastJSON(MessageTypeHighRisk, e)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
