// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package websocket

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/herald/internal/broker"
	"github.com/tomtom215/herald/internal/logging"
	"github.com/tomtom215/herald/internal/metrics"
	"github.com/tomtom215/herald/internal/models"
)

// FanOut forwards websocket deliveries from the broker to the hub.
type FanOut struct {
	hub        *Hub
	subscriber broker.MessageSubscriber
	topic      string
	now        func() time.Time
}

// NewFanOut creates a consumer of topic. The subscriber should not require
// acknowledgements; delivery is at most once.
func NewFanOut(hub *Hub, sub broker.MessageSubscriber, topic string) *FanOut {
	return &FanOut{hub: hub, subscriber: sub, topic: topic, now: time.Now}
}

// Serve consumes until ctx is cancelled.
func (f *FanOut) Serve(ctx context.Context) error {
	messages, err := f.subscriber.Subscribe(ctx, f.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", f.topic, err)
	}
	logging.Info().Str("topic", f.topic).Msg("websocket fan-out started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			f.handle(msg)
			msg.Ack()
		}
	}
}

func (f *FanOut) String() string {
	return "websocket-fanout(" + f.topic + ")"
}

func (f *FanOut) handle(msg *message.Message) {
	var d models.WebsocketDelivery
	if err := json.Unmarshal(msg.Payload, &d); err != nil {
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("dropping undecodable websocket message")
		metrics.RecordWSDelivery("invalid")
		return
	}
	if !d.ExpireAt.IsZero() && !d.ExpireAt.After(f.now()) {
		metrics.RecordWSDelivery("expired")
		return
	}

	userID := d.UserID.String()
	if !f.hub.Connected(userID) {
		metrics.RecordWSDelivery(DeliveryOffline)
		return
	}
	f.hub.Deliver(userID, []byte(d.MsgBody))
}
