// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package websocket

import (
	"context"
	"sync"

	"github.com/tomtom215/herald/internal/logging"
	"github.com/tomtom215/herald/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Delivery results, used as metric labels.
const (
	DeliveryDelivered = "delivered"
	DeliveryOffline   = "offline"
	DeliveryDropped   = "dropped"
)

// DefaultDeliverBuffer is the hub's pending delivery queue size.
const DefaultDeliverBuffer = 1024

type deliveryEvent struct {
	userID string
	body   []byte
}

// Hub maintains the registry of connected recipients.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	deliver    chan deliveryEvent
	mu         sync.RWMutex

	// open holds every connection not yet closed, replaced ones included.
	// Only the event loop touches it.
	open map[*Client]struct{}
}

// NewHub creates a hub. deliverBuffer <= 0 uses DefaultDeliverBuffer.
func NewHub(deliverBuffer int) *Hub {
	if deliverBuffer <= 0 {
		deliverBuffer = DefaultDeliverBuffer
	}
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan deliveryEvent, deliverBuffer),
		open:       make(map[*Client]struct{}),
	}
}

// Register adds c, replacing any connection registered for the same
// recipient. It returns false if ctx ends before the hub accepts it.
func (h *Hub) Register(ctx context.Context, c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

// Unregister removes c if it is still the recipient's connection.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-c.done:
	}
}

// Deliver queues body for userID. It returns false when the queue is full.
func (h *Hub) Deliver(userID string, body []byte) bool {
	select {
	case h.deliver <- deliveryEvent{userID: userID, body: body}:
		return true
	default:
		metrics.RecordWSDelivery(DeliveryDropped)
		return false
	}
}

// Connected reports whether userID has a registered connection.
func (h *Hub) Connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// GetClientCount returns the number of registered recipients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RunWithContext processes hub events until ctx is cancelled, then closes
// every registered connection.
//
// Lifecycle events are drained before deliveries so a message never races
// ahead of the registration it depends on.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case c := <-h.register:
			h.add(c)
			continue
		case c := <-h.unregister:
			h.remove(c)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case ev := <-h.deliver:
			h.send(ev)
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	old := h.clients[c.userID]
	h.clients[c.userID] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.open[c] = struct{}{}

	metrics.SetWSConnections(n)
	ev := logging.Info().Str("user_id", c.userID).Int("total_clients", n)
	if old != nil {
		ev = ev.Bool("replaced", true)
	}
	ev.Msg("websocket client connected")
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	current := h.clients[c.userID] == c
	if current {
		delete(h.clients, c.userID)
	}
	n := len(h.clients)
	h.mu.Unlock()

	delete(h.open, c)
	c.close()
	if current {
		metrics.SetWSConnections(n)
		logging.Info().Str("user_id", c.userID).Int("total_clients", n).Msg("websocket client disconnected")
	}
}

func (h *Hub) send(ev deliveryEvent) {
	h.mu.RLock()
	c := h.clients[ev.userID]
	h.mu.RUnlock()

	if c == nil {
		metrics.RecordWSDelivery(DeliveryOffline)
		return
	}
	select {
	case c.send <- ev.body:
		metrics.RecordWSDelivery(DeliveryDelivered)
	default:
		metrics.RecordWSDelivery(DeliveryDropped)
		logging.Debug().Str("user_id", ev.userID).Msg("websocket send buffer full, dropping message")
	}
}

func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	closed := len(h.open)
	for c := range h.open {
		c.close()
		delete(h.open, c)
	}
	metrics.SetWSConnections(0)

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", closed).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}
