// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package broker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

func TestMessageHandler_NackRedelivers(t *testing.T) {
	t.Parallel()

	ps := newTestPubSub(t)
	pub := NewPublisherFrom(ps)
	if err := pub.Publish(context.Background(), "delivery.websocket", message.NewMessage(watermill.NewUUID(), []byte(`{}`))); err != nil {
		t.Fatalf("Publish() = %v", err)
	}

	var calls atomic.Int32
	handled := make(chan struct{})
	h := NewSubscriberFrom(ps, watermill.NopLogger{}).
		NewMessageHandler("delivery.websocket").
		Handle(func(context.Context, *message.Message) error {
			if calls.Add(1) == 1 {
				return errors.New("transient")
			}
			close(handled)
			return nil
		})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatalf("message not redelivered after nack, calls = %d", calls.Load())
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
}

func TestPublisher_Closed(t *testing.T) {
	t.Parallel()

	pub := NewPublisherFrom(newTestPubSub(t))
	if err := pub.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}

	err := pub.Publish(context.Background(), "notice", message.NewMessage(watermill.NewUUID(), nil))
	if !errors.Is(err, ErrPublisherClosed) {
		t.Errorf("Publish() after Close = %v, want ErrPublisherClosed", err)
	}
}

func TestNewSubscriber_RequiresStream(t *testing.T) {
	t.Parallel()

	_, err := NewSubscriber(&SubscriberConfig{URL: "nats://127.0.0.1:4222"}, watermill.NopLogger{})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("NewSubscriber() = %v, want ErrInvalidConfig", err)
	}
}
