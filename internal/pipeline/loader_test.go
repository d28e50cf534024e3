// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/herald/internal/broker"
	"github.com/tomtom215/herald/internal/models"
)

func TestLoadPublishesAndMarks(t *testing.T) {
	t.Parallel()

	a, b, c := user("a"), user("b"), user("c")
	f := newFixture(a, b, c)
	n := f.notice(models.TransportEmail, a, b, c)

	queued, err := f.loader.Load(context.Background(), f.tr.Transform(context.Background(), n))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if queued != 3 {
		t.Errorf("queued = %d, want 3", queued)
	}

	sent := f.publisher.Sent()
	if len(sent) != 3 {
		t.Fatalf("published %d, want 3", len(sent))
	}
	for _, out := range sent {
		if out.Subject != "delivery.email.high" {
			t.Errorf("subject = %q", out.Subject)
		}
		if out.Headers[broker.HeaderPriority] != "3" || out.Headers[broker.HeaderRequestID] != "req-1" {
			t.Errorf("headers = %v", out.Headers)
		}
		if out.TTL <= 0 || out.TTL > time.Hour {
			t.Errorf("TTL = %v", out.TTL)
		}

		var msg struct {
			MsgID  string         `json:"msg_id"`
			UserID string         `json:"user_id"`
			Meta   map[string]any `json:"msg_meta"`
		}
		if err := json.Unmarshal(out.Payload, &msg); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if msg.MsgID != out.MsgID {
			t.Errorf("Nats-Msg-Id %q does not match msg_id %q", out.MsgID, msg.MsgID)
		}
		if msg.Meta["subject"] != "Hello" {
			t.Errorf("msg_meta = %v", msg.Meta)
		}
	}

	ctx := context.Background()
	for _, u := range []models.UserInfo{a, b, c} {
		m, found, _ := f.marks.Get(ctx, n.NoticeID, u.UserID.String())
		if !found || m != models.MarkQueued {
			t.Errorf("mark for %s = %v, %v", u.Username, m, found)
		}
		// ttl + buffer: at least the 60s buffer on top of the remaining lifetime.
		if ttl := f.marks.TTL(u.UserID.String()); ttl < time.Hour-2*time.Second+time.Minute {
			t.Errorf("mark TTL for %s = %v", u.Username, ttl)
		}
	}
}

func TestLoadRoutesByPriorityLane(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		transport models.Transport
		priority  int
		want      string
	}{
		{"low email", models.TransportEmail, 0, "delivery.email"},
		{"window email", models.TransportEmail, 1, "delivery.email"},
		{"high email", models.TransportEmail, 2, "delivery.email.high"},
		{"low websocket", models.TransportWebsocket, 1, "delivery.websocket"},
		{"high websocket", models.TransportWebsocket, 9, "delivery.websocket.high"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := user("a")
			f := newFixture(a)
			n := f.notice(tt.transport, a)
			n.Priority = tt.priority

			if _, err := f.loader.Load(context.Background(), f.tr.Transform(context.Background(), n)); err != nil {
				t.Fatal(err)
			}
			if sent := f.publisher.Sent(); len(sent) != 1 || sent[0].Subject != tt.want {
				t.Errorf("published %+v, want subject %s", sent, tt.want)
			}
		})
	}
}

func TestLoadRepeatedRecipientQueuedOnce(t *testing.T) {
	t.Parallel()

	alice := user("alice")
	f := newFixture(alice)
	n := f.notice(models.TransportEmail, alice, alice, alice)

	queued, err := f.loader.Load(context.Background(), f.tr.Transform(context.Background(), n))
	if err != nil {
		t.Fatal(err)
	}
	if queued != 1 || len(f.publisher.Sent()) != 1 {
		t.Errorf("queued = %d, published = %d; want 1", queued, len(f.publisher.Sent()))
	}
}

func TestLoadMarkTTLNotRoundedDown(t *testing.T) {
	t.Parallel()

	a := user("a")
	f := newFixture(a)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f.loader.now = func() time.Time { return now }
	expire := now.Add(90*time.Second + 900*time.Millisecond)

	seq := func(yield func(models.Outgoing, error) bool) {
		yield(models.Outgoing{
			Transport: models.TransportEmail,
			Message: models.RenderedMessage{
				NoticeID: uuid.New(),
				MsgID:    uuid.New(),
				UserID:   a.UserID,
				ExpireAt: expire,
			},
		}, nil)
	}
	if _, err := f.loader.Load(context.Background(), seq); err != nil {
		t.Fatal(err)
	}

	if got, want := f.marks.TTL(a.UserID.String()), expire.Sub(now)+time.Minute; got < want {
		t.Errorf("mark TTL = %v, want at least %v", got, want)
	}
	// Nats-TTL stays in whole seconds.
	if sent := f.publisher.Sent(); len(sent) != 1 || sent[0].TTL != 90*time.Second {
		t.Errorf("published = %+v", sent)
	}
}

func TestLoadRedeliveryOnlySendsRemaining(t *testing.T) {
	t.Parallel()

	a, b, c := user("a"), user("b"), user("c")
	f := newFixture(a, b, c)
	n := f.notice(models.TransportEmail, a, b, c)
	ctx := context.Background()

	_ = f.marks.Set(ctx, n.NoticeID, models.NoticeSentinel, models.MarkQueued, time.Hour)
	_ = f.marks.Set(ctx, n.NoticeID, a.UserID.String(), models.MarkQueued, time.Hour)

	queued, err := f.loader.Load(ctx, f.tr.Transform(ctx, n))
	if err != nil {
		t.Fatal(err)
	}
	if queued != 2 || len(f.publisher.Sent()) != 2 {
		t.Errorf("queued = %d, published = %d; want 2", queued, len(f.publisher.Sent()))
	}

	// A third pass finds everyone marked.
	queued, err = f.loader.Load(ctx, f.tr.Transform(ctx, n))
	if err != nil || queued != 0 {
		t.Errorf("third pass = %d, %v", queued, err)
	}
}

func TestLoadPublishFailure(t *testing.T) {
	t.Parallel()

	a := user("a")
	f := newFixture(a)
	f.publisher.err = errors.New("nats unavailable")
	n := f.notice(models.TransportEmail, a)

	queued, err := f.loader.Load(context.Background(), f.tr.Transform(context.Background(), n))
	if err == nil || queued != 0 {
		t.Fatalf("Load() = %d, %v; want error", queued, err)
	}
	if _, found, _ := f.marks.Get(context.Background(), n.NoticeID, a.UserID.String()); found {
		t.Error("recipient marked although publish failed")
	}
}

func TestLoadSkipsExpiredMessage(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.loader.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	seq := func(yield func(models.Outgoing, error) bool) {
		yield(models.Outgoing{
			Transport: models.TransportEmail,
			Message:   models.RenderedMessage{ExpireAt: time.Now().Add(time.Hour)},
		}, nil)
	}
	queued, err := f.loader.Load(context.Background(), seq)
	if err != nil || queued != 0 || len(f.publisher.Sent()) != 0 {
		t.Errorf("Load() = %d, %v, published %d", queued, err, len(f.publisher.Sent()))
	}
}

func TestLoadPropagatesSequenceError(t *testing.T) {
	t.Parallel()

	f := newFixture()
	boom := errors.New("boom")
	seq := func(yield func(models.Outgoing, error) bool) {
		yield(models.Outgoing{}, boom)
	}
	if _, err := f.loader.Load(context.Background(), seq); !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
}
