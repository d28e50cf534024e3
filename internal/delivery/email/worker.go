// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package email

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/herald/internal/broker"
	"github.com/tomtom215/herald/internal/config"
	"github.com/tomtom215/herald/internal/logging"
	"github.com/tomtom215/herald/internal/metrics"
	"github.com/tomtom215/herald/internal/models"
	"github.com/tomtom215/herald/internal/validation"
)

// Attempt results, used as log values and metric labels.
const (
	ResultSent     = "sent"
	ResultRetry    = "retry"
	ResultDropped  = "dropped"
	ResultExpired  = "expired"
	ResultInvalid  = "invalid"
	lowPriorityMax = 1
)

// WorkerConfig holds the worker settings.
type WorkerConfig struct {
	Subject       string
	RetrySubject  string
	From          string
	MaxRetries    int
	RetryInterval time.Duration

	// WindowStart and WindowEnd bound low priority sends, as offsets from
	// the recipient's local midnight.
	WindowStart time.Duration
	WindowEnd   time.Duration
}

// WorkerConfigFrom converts the email config section.
func WorkerConfigFrom(cfg *config.EmailConfig) (WorkerConfig, error) {
	start, err := config.ParseClock(cfg.WindowStart)
	if err != nil {
		return WorkerConfig{}, fmt.Errorf("window_start: %w", err)
	}
	end, err := config.ParseClock(cfg.WindowEnd)
	if err != nil {
		return WorkerConfig{}, fmt.Errorf("window_end: %w", err)
	}
	return WorkerConfig{
		Subject:       cfg.Subject,
		RetrySubject:  cfg.RetrySubject,
		From:          cfg.From,
		MaxRetries:    cfg.MaxRetries,
		RetryInterval: cfg.RetryInterval,
		WindowStart:   start,
		WindowEnd:     end,
	}, nil
}

// Worker consumes the email queue.
type Worker struct {
	subscriber *broker.Subscriber
	retry      broker.MessagePublisher
	provider   Provider
	cfg        WorkerConfig
	now        func() time.Time
}

// NewWorker creates a worker. retry receives failed messages on
// cfg.RetrySubject.
func NewWorker(sub *broker.Subscriber, retry broker.MessagePublisher, provider Provider, cfg WorkerConfig) *Worker {
	return &Worker{
		subscriber: sub,
		retry:      retry,
		provider:   provider,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Serve consumes both lanes of cfg.Subject until ctx is cancelled.
func (w *Worker) Serve(ctx context.Context) error {
	logging.Info().Str("subject", w.cfg.Subject).Msg("email worker started")
	return w.subscriber.NewLaneHandler(w.cfg.Subject).Handle(w.Handle).Run(ctx)
}

func (w *Worker) String() string {
	return "email-worker"
}

// Handle processes one message. It never fails: every message is acked
// once the attempt is over, and failures travel through the retry subject.
func (w *Worker) Handle(ctx context.Context, msg *message.Message) error {
	result := w.process(ctx, msg)
	metrics.RecordEmailAttempt(result)
	return nil
}

func (w *Worker) process(ctx context.Context, msg *message.Message) string {
	var d models.EmailDelivery
	if err := json.Unmarshal(msg.Payload, &d); err != nil {
		logging.Error().Err(err).Str("message_uuid", msg.UUID).Msg("dropping undecodable email message")
		return ResultInvalid
	}
	if verr := validation.ValidateStruct(&d); verr != nil {
		logging.Error().Err(verr).Str("message_uuid", msg.UUID).Msg("dropping invalid email message")
		return ResultInvalid
	}

	ctx = logging.ContextWithRequestID(ctx, d.XRequestID)
	ctx = logging.ContextWithNoticeID(ctx, d.NoticeID.String())
	log := logging.Ctx(ctx).With().
		Str("msg_id", d.MsgID.String()).
		Str("to", logging.RedactEmail(d.MsgMeta.Email)).
		Int("retries", d.Retries).
		Logger()

	now := w.now()
	if d.Expired(now) {
		log.Info().Time("expire_at", d.ExpireAt).Msg("email expired, dropping")
		return ResultExpired
	}

	e := &Email{
		MsgID:   d.MsgID.String(),
		From:    w.cfg.From,
		To:      d.MsgMeta.Email,
		Subject: d.MsgMeta.Subject,
		HTML:    d.MsgBody,
	}
	priority := broker.Priority(msg.Metadata)
	if priority <= lowPriorityMax {
		sendAt, err := NextSendTime(now, d.UserTZ, w.cfg.WindowStart, w.cfg.WindowEnd)
		if err != nil {
			log.Warn().Err(err).Msg("sending without schedule")
		}
		e.SendAt = sendAt
	}

	if err := w.provider.Send(ctx, e); err != nil {
		log.Error().Err(err).Int("priority", priority).Msg("email send failed")
		return w.requeue(ctx, msg, &d)
	}

	log.Info().Int("priority", priority).Time("send_at", e.SendAt).Msg("email sent")
	return ResultSent
}

// requeue publishes d to the retry subject, due after RetryInterval, or
// drops it once MaxRetries is reached.
func (w *Worker) requeue(ctx context.Context, src *message.Message, d *models.EmailDelivery) string {
	log := logging.Ctx(ctx).With().Str("msg_id", d.MsgID.String()).Logger()
	if d.Retries >= w.cfg.MaxRetries {
		log.Error().Int("retries", d.Retries).Msg("email retries exhausted, dropping")
		return ResultDropped
	}

	d.Retries++
	payload, err := json.Marshal(d)
	if err != nil {
		log.Error().Err(err).Msg("encode retry message")
		return ResultDropped
	}

	out := message.NewMessage(watermill.NewUUID(), payload)
	out.Metadata.Set(broker.HeaderPriority, src.Metadata.Get(broker.HeaderPriority))
	out.Metadata.Set(broker.HeaderRequestID, d.XRequestID)
	target := broker.LaneSubject(w.cfg.Subject, broker.Priority(src.Metadata))
	broker.SetRetry(out.Metadata, w.now().Add(w.cfg.RetryInterval), target)

	if err := w.retry.Publish(ctx, w.cfg.RetrySubject, out); err != nil {
		log.Error().Err(err).Msg("email retry publish failed, dropping")
		return ResultDropped
	}
	log.Info().Int("retries", d.Retries).Dur("retry_in", w.cfg.RetryInterval).Msg("email queued for retry")
	return ResultRetry
}
