// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package broker

import (
	"context"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/herald/internal/logging"
	"github.com/tomtom215/herald/internal/metrics"
)

// MessagePublisher publishes watermill messages.
type MessagePublisher interface {
	Publish(ctx context.Context, topic string, msg *message.Message) error
}

// MessageSubscriber yields watermill messages for a topic.
type MessageSubscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
}

// DelayForwarder drains a retry subject. Each message is held until its
// Herald-Retry-At time and then republished to Herald-Retry-Target.
//
// The retry subject is filled with a fixed delay, so due times arrive in
// order and a single sequential consumer never holds a message that is due
// behind one that is not. The subscriber's AckWait must exceed the delay.
type DelayForwarder struct {
	subscriber MessageSubscriber
	publisher  MessagePublisher
	topic      string
	now        func() time.Time
}

// NewDelayForwarder creates a forwarder for topic.
func NewDelayForwarder(sub MessageSubscriber, pub MessagePublisher, topic string) *DelayForwarder {
	return &DelayForwarder{
		subscriber: sub,
		publisher:  pub,
		topic:      topic,
		now:        time.Now,
	}
}

// Serve consumes the retry subject until ctx is cancelled.
func (f *DelayForwarder) Serve(ctx context.Context) error {
	messages, err := f.subscriber.Subscribe(ctx, f.topic)
	if err != nil {
		return NewRetryableError("subscribe to "+f.topic, err)
	}

	logging.Info().Str("topic", f.topic).Msg("delay forwarder started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := f.forward(ctx, msg); err != nil {
				msg.Nack()
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logging.Warn().Err(err).Str("topic", f.topic).Msg("retry forward failed, message will be redelivered")
				continue
			}
			msg.Ack()
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (f *DelayForwarder) String() string {
	return "delay-forwarder(" + f.topic + ")"
}

func (f *DelayForwarder) forward(ctx context.Context, msg *message.Message) error {
	target := msg.Metadata.Get(HeaderRetryTarget)
	if target == "" {
		logging.Error().Err(ErrMissingRetryTarget).Str("message_uuid", msg.UUID).Msg("dropping retry message")
		return nil
	}

	if due, ok := RetryAt(msg.Metadata); ok {
		if wait := due.Sub(f.now()); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	out := message.NewMessage(watermill.NewUUID(), msg.Payload)
	for k, v := range msg.Metadata {
		if k == HeaderRetryAt || k == HeaderRetryTarget || strings.HasPrefix(k, "Nats-") || strings.HasPrefix(k, "_watermill") {
			continue
		}
		out.Metadata.Set(k, v)
	}

	if err := f.publisher.Publish(ctx, target, out); err != nil {
		return err
	}
	metrics.RecordRetryForwarded()
	logging.Debug().Str("target", target).Str("message_uuid", out.UUID).Msg("retry forwarded")
	return nil
}
