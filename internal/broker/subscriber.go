// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package broker

import (
	"context"
	"fmt"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
)

// Subscriber wraps a watermill-nats JetStream subscriber bound to an
// existing stream.
type Subscriber struct {
	subscriber message.Subscriber
	logger     watermill.LoggerAdapter
}

// NewSubscriber creates a subscriber. cfg.StreamName must name an existing
// stream; subjects are bound to it rather than auto-provisioned.
func NewSubscriber(cfg *SubscriberConfig, logger watermill.LoggerAdapter) (*Subscriber, error) {
	if cfg.StreamName == "" {
		return nil, fmt.Errorf("%w: subscriber stream name required", ErrInvalidConfig)
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("Subscriber disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("Subscriber reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	subOpts := []natsgo.SubOpt{
		natsgo.BindStream(cfg.StreamName),
		natsgo.MaxAckPending(cfg.MaxAckPending),
		natsgo.AckWait(cfg.AckWaitTimeout),
	}
	if cfg.MaxDeliver != 0 {
		subOpts = append(subOpts, natsgo.MaxDeliver(cfg.MaxDeliver))
	}
	if cfg.DeliverAll {
		subOpts = append(subOpts, natsgo.DeliverAll())
	} else {
		subOpts = append(subOpts, natsgo.DeliverNew())
	}
	if cfg.AckNone {
		subOpts = append(subOpts, natsgo.AckNone())
	}

	wmConfig := wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: max(cfg.SubscribersCount, 1),
		AckWaitTimeout:   cfg.AckWaitTimeout,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:          false,
			AutoProvision:     false,
			AckAsync:          false,
			SubscribeOptions:  subOpts,
			DurablePrefix:     cfg.DurableName,
			DurableCalculator: durableName,
		},
	}

	sub, err := wmNats.NewSubscriber(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}

	return &Subscriber{subscriber: sub, logger: logger}, nil
}

// durableName gives each subscribed subject its own durable consumer, so one
// subscriber can consume several lanes. Durable names cannot contain dots.
func durableName(prefix, topic string) string {
	if prefix == "" {
		return ""
	}
	return prefix + "_" + durableReplacer.Replace(topic)
}

var durableReplacer = strings.NewReplacer(".", "_", "*", "_", ">", "_")

// NewSubscriberFrom wraps an existing watermill subscriber. Tests use it
// with in-memory pub/sub.
func NewSubscriberFrom(sub message.Subscriber, logger watermill.LoggerAdapter) *Subscriber {
	return &Subscriber{subscriber: sub, logger: logger}
}

// Subscribe returns the message channel for topic.
func (s *Subscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return s.subscriber.Subscribe(ctx, topic)
}

// Close stops all subscriptions.
func (s *Subscriber) Close() error {
	return s.subscriber.Close()
}

// MessageHandler consumes one topic, acking handled messages and nacking
// failures.
type MessageHandler struct {
	source  MessageSubscriber
	logger  watermill.LoggerAdapter
	topic   string
	handler func(ctx context.Context, msg *message.Message) error
}

// NewMessageHandler returns a handler for topic. Call Handle before Run.
func (s *Subscriber) NewMessageHandler(topic string) *MessageHandler {
	return &MessageHandler{source: s, logger: s.logger, topic: topic}
}

// NewLaneHandler returns a handler for both lanes of topic, high lane first.
func (s *Subscriber) NewLaneHandler(topic string) *MessageHandler {
	return &MessageHandler{source: NewLaneSubscriber(s), logger: s.logger, topic: topic}
}

// Handle sets the processing function.
func (h *MessageHandler) Handle(fn func(ctx context.Context, msg *message.Message) error) *MessageHandler {
	h.handler = fn
	return h
}

// Run consumes until ctx is cancelled or the subscription closes.
func (h *MessageHandler) Run(ctx context.Context) error {
	messages, err := h.source.Subscribe(ctx, h.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", h.topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := h.process(ctx, msg); err != nil {
				h.logger.Error("Message processing failed", err, watermill.LogFields{
					"message_uuid": msg.UUID,
					"topic":        h.topic,
				})
			}
		}
	}
}

func (h *MessageHandler) process(ctx context.Context, msg *message.Message) error {
	if h.handler == nil {
		msg.Ack()
		return nil
	}
	if err := h.handler(ctx, msg); err != nil {
		msg.Nack()
		return err
	}
	msg.Ack()
	return nil
}
