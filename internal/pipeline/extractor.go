// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/herald/internal/broker"
	"github.com/tomtom215/herald/internal/logging"
	"github.com/tomtom215/herald/internal/models"
	"github.com/tomtom215/herald/internal/validation"
)

// Acker settles one inbound message.
type Acker interface {
	Ack() error
	NakWithDelay(delay time.Duration) error
	InProgress() error
}

// Delivery is a notice fetched from the ingest stream.
type Delivery struct {
	Notice models.Notice
	Acker  Acker

	// Attempt is the broker delivery count, starting at 1.
	Attempt uint64
}

// Source yields notices. Fetch returns (nil, nil) when nothing arrived
// within its poll window.
type Source interface {
	Fetch(ctx context.Context) (*Delivery, error)
}

// MessageFetcher is the subset of jetstream.Consumer used by Extractor.
type MessageFetcher interface {
	Next(opts ...jetstream.FetchOpt) (jetstream.Msg, error)
}

// ExtractorConfig configures the durable pull consumer.
type ExtractorConfig struct {
	Stream        string
	Subject       string
	Durable       string
	AckWait       time.Duration
	FetchWait     time.Duration
	MaxDeliver    int
	MaxAckPending int
}

// highLaneWait bounds the high lane poll that precedes each normal fetch.
const highLaneWait = 100 * time.Millisecond

// Extractor pulls notices one at a time from durable consumers on the ingest
// lanes, draining the high priority lane before the normal one.
type Extractor struct {
	lanes     []MessageFetcher
	fetchWait time.Duration
}

// NewExtractor creates or updates one durable consumer per lane and returns
// an extractor reading from them. The high lane consumer is named
// cfg.Durable + "_high".
func NewExtractor(ctx context.Context, js jetstream.StreamConsumerManager, cfg ExtractorConfig) (*Extractor, error) {
	high, err := createLaneConsumer(ctx, js, cfg, cfg.Durable+"_high", broker.HighLane(cfg.Subject))
	if err != nil {
		return nil, err
	}
	normal, err := createLaneConsumer(ctx, js, cfg, cfg.Durable, cfg.Subject)
	if err != nil {
		return nil, err
	}
	return NewExtractorFrom(cfg.FetchWait, high, normal), nil
}

func createLaneConsumer(ctx context.Context, js jetstream.StreamConsumerManager, cfg ExtractorConfig, durable, subject string) (jetstream.Consumer, error) {
	consumer, err := js.CreateOrUpdateConsumer(ctx, cfg.Stream, jetstream.ConsumerConfig{
		Durable:       durable,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       cfg.AckWait,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		MaxDeliver:    cfg.MaxDeliver,
		MaxAckPending: max(cfg.MaxAckPending, 1),
	})
	if err != nil {
		return nil, broker.NewRetryableError(fmt.Sprintf("create consumer %s on %s", durable, cfg.Stream), err)
	}
	logging.Info().
		Str("stream", cfg.Stream).
		Str("durable", durable).
		Str("subject", subject).
		Msg("pipeline consumer ready")
	return consumer, nil
}

// NewExtractorFrom wraps existing consumers, ordered from highest priority
// lane to lowest. Every lane but the last is polled for at most
// highLaneWait; the last one for fetchWait.
func NewExtractorFrom(fetchWait time.Duration, lanes ...MessageFetcher) *Extractor {
	if fetchWait <= 0 {
		fetchWait = time.Second
	}
	return &Extractor{lanes: lanes, fetchWait: fetchWait}
}

// Fetch implements Source. Messages that are not valid notices are
// terminated so they are never redelivered, and Fetch reports idle.
func (e *Extractor) Fetch(ctx context.Context) (*Delivery, error) {
	for i, lane := range e.lanes {
		wait := e.fetchWait
		if i < len(e.lanes)-1 {
			wait = min(highLaneWait, e.fetchWait)
		}
		d, err := e.fetchLane(ctx, lane, wait)
		if err != nil || d != nil {
			return d, err
		}
	}
	return nil, nil
}

func (e *Extractor) fetchLane(ctx context.Context, lane MessageFetcher, wait time.Duration) (*Delivery, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	msg, err := lane.Next(jetstream.FetchContext(fetchCtx))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, natsgo.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, broker.NewRetryableError("fetch notice", err)
	}

	notice, err := decodeNotice(msg.Data())
	if err != nil {
		logging.Error().Err(err).Str("subject", msg.Subject()).Msg("terminating invalid notice")
		if termErr := msg.TermWithReason(err.Error()); termErr != nil {
			logging.Warn().Err(termErr).Msg("failed to terminate invalid notice")
		}
		return nil, nil
	}

	d := &Delivery{Notice: notice, Acker: msg, Attempt: 1}
	if md, err := msg.Metadata(); err == nil {
		d.Attempt = md.NumDelivered
	}
	return d, nil
}

// decodeNotice parses and validates an ingest payload.
func decodeNotice(data []byte) (models.Notice, error) {
	var n models.Notice
	if err := json.Unmarshal(data, &n); err != nil {
		return models.Notice{}, broker.NewPermanentError("decode notice", err)
	}
	if verr := validation.ValidateStruct(&n); verr != nil {
		return models.Notice{}, broker.NewPermanentError("invalid notice", verr)
	}
	return n, nil
}
