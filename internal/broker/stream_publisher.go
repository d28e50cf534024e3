// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package broker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/herald/internal/metrics"
)

// Outbound is a message for StreamPublisher.
type Outbound struct {
	Subject string
	Payload []byte

	// MsgID sets Nats-Msg-Id for broker-side deduplication.
	MsgID string

	// TTL sets a per-message expiry (Nats-TTL). Zero keeps the stream MaxAge.
	TTL time.Duration

	Headers map[string]string
}

// JetStreamPublisher is the publishing subset of jetstream.JetStream.
type JetStreamPublisher interface {
	PublishMsg(ctx context.Context, msg *natsgo.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// StreamPublisher publishes directly through JetStream so messages can carry
// per-message TTLs.
type StreamPublisher struct {
	js     JetStreamPublisher
	cb     *gobreaker.CircuitBreaker[*jetstream.PubAck]
	closed atomic.Bool
}

// NewStreamPublisher creates a publisher guarded by a circuit breaker.
func NewStreamPublisher(js JetStreamPublisher) *StreamPublisher {
	return &StreamPublisher{
		js: js,
		cb: NewCircuitBreaker[*jetstream.PubAck](DefaultCircuitBreakerConfig("nats-publish")),
	}
}

// Publish sends out and waits for the stream acknowledgement.
func (p *StreamPublisher) Publish(ctx context.Context, out Outbound) error {
	if p.closed.Load() {
		return ErrPublisherClosed
	}

	msg := natsgo.NewMsg(out.Subject)
	msg.Data = out.Payload
	for k, v := range out.Headers {
		msg.Header.Set(k, v)
	}

	var opts []jetstream.PublishOpt
	if out.MsgID != "" {
		opts = append(opts, jetstream.WithMsgID(out.MsgID))
	}
	if out.TTL > 0 {
		opts = append(opts, jetstream.WithMsgTTL(out.TTL))
	}

	_, err := p.cb.Execute(func() (*jetstream.PubAck, error) {
		return p.js.PublishMsg(ctx, msg, opts...)
	})
	metrics.RecordNATSPublish(out.Subject, err)
	if err != nil {
		return NewRetryableError(fmt.Sprintf("publish to %s", out.Subject), err)
	}
	return nil
}

// Close rejects further publishes. The underlying connection is owned by
// the caller.
func (p *StreamPublisher) Close() error {
	p.closed.Store(true)
	return nil
}
