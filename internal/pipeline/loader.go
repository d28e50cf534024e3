// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package pipeline

import (
	"context"
	"fmt"
	"iter"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/herald/internal/broker"
	"github.com/tomtom215/herald/internal/dedup"
	"github.com/tomtom215/herald/internal/logging"
	"github.com/tomtom215/herald/internal/metrics"
	"github.com/tomtom215/herald/internal/models"
)

// Publisher sends one message to the broker.
type Publisher interface {
	Publish(ctx context.Context, out broker.Outbound) error
}

// Loader publishes rendered messages to their transport subjects and marks
// each recipient queued.
type Loader struct {
	publisher     Publisher
	marks         dedup.Store
	subjectPrefix string
	markBuffer    time.Duration
	now           func() time.Time
}

// NewLoader creates a loader publishing to "<subjectPrefix>.<transport>",
// or its high lane for high priority messages.
func NewLoader(pub Publisher, marks dedup.Store, subjectPrefix string, markBuffer time.Duration) *Loader {
	return &Loader{
		publisher:     pub,
		marks:         marks,
		subjectPrefix: subjectPrefix,
		markBuffer:    markBuffer,
		now:           time.Now,
	}
}

// Load drains seq. It returns the number of messages queued and stops at the
// first error, from the sequence or its own.
func (l *Loader) Load(ctx context.Context, seq iter.Seq2[models.Outgoing, error]) (int, error) {
	queued := 0
	for out, err := range seq {
		if err != nil {
			return queued, err
		}
		sent, err := l.load(ctx, &out)
		if sent {
			queued++
		}
		if err != nil {
			return queued, err
		}
	}
	return queued, nil
}

// load publishes first and marks second. A crash in between leaves the
// recipient unmarked, so a redelivery sends it again.
func (l *Loader) load(ctx context.Context, out *models.Outgoing) (bool, error) {
	msg := &out.Message
	now := l.now()
	ttl := models.TTLSeconds(msg.ExpireAt, now)
	if ttl <= 0 {
		logging.Ctx(ctx).Debug().
			Str("msg_id", msg.MsgID.String()).
			Time("expire_at", msg.ExpireAt).
			Msg("message expired before publish")
		return false, nil
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return false, fmt.Errorf("encode message %s: %w", msg.MsgID, err)
	}

	subject := broker.LaneSubject(l.subjectPrefix+"."+out.Transport.String(), out.Priority)
	err = l.publisher.Publish(ctx, broker.Outbound{
		Subject: subject,
		Payload: payload,
		MsgID:   msg.MsgID.String(),
		TTL:     time.Duration(ttl) * time.Second,
		Headers: map[string]string{
			broker.HeaderPriority:  strconv.Itoa(out.Priority),
			broker.HeaderRequestID: msg.XRequestID,
		},
	})
	if err != nil {
		return false, err
	}
	metrics.RecordMessageQueued(out.Transport.String())

	markTTL := models.MarkTTL(msg.ExpireAt, now, l.markBuffer)
	if err := l.marks.Set(ctx, msg.NoticeID, msg.UserID.String(), models.MarkQueued, markTTL); err != nil {
		return true, fmt.Errorf("write queued mark: %w", err)
	}
	metrics.RecordMark(models.MarkQueued.String())

	logging.Ctx(ctx).Debug().
		Str("subject", subject).
		Str("msg_id", msg.MsgID.String()).
		Str("user_id", msg.UserID.String()).
		Msg("message queued")
	return true, nil
}
