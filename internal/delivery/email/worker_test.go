// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package email

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/herald/internal/broker"
	"github.com/tomtom215/herald/internal/config"
	"github.com/tomtom215/herald/internal/models"
)

type fakeProvider struct {
	mu   sync.Mutex
	sent []Email
	err  error
}

func (p *fakeProvider) Send(_ context.Context, e *Email) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, *e)
	return p.err
}

// flakyProvider fails its first failures calls, then succeeds.
type flakyProvider struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (p *flakyProvider) Send(context.Context, *Email) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.failures {
		return errors.New("smtp 451 try again later")
	}
	return nil
}

func (p *fakeProvider) Sent() []Email {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Email(nil), p.sent...)
}

type published struct {
	topic string
	msg   *message.Message
}

type fakeRetry struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (r *fakeRetry) Publish(_ context.Context, topic string, msg *message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, published{topic, msg})
	return nil
}

var testNow = time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)

func testConfig() WorkerConfig {
	return WorkerConfig{
		Subject:       "delivery.email",
		RetrySubject:  "delivery.email.retry",
		From:          "noreply@example.com",
		MaxRetries:    3,
		RetryInterval: 5 * time.Second,
		WindowStart:   9 * time.Hour,
		WindowEnd:     21 * time.Hour,
	}
}

func newTestWorker(p Provider, r broker.MessagePublisher) *Worker {
	w := NewWorker(nil, r, p, testConfig())
	w.now = func() time.Time { return testNow }
	return w
}

func deliveryMessage(t *testing.T, retries, priority int) *message.Message {
	t.Helper()
	d := models.EmailDelivery{
		XRequestID: "req-1",
		NoticeID:   uuid.New(),
		MsgID:      uuid.New(),
		UserID:     uuid.New(),
		UserTZ:     "UTC",
		MsgMeta:    models.EmailMeta{Email: "user@example.com", Subject: "Hello"},
		MsgBody:    "<p>Hi</p>",
		ExpireAt:   testNow.Add(time.Hour),
		Retries:    retries,
	}
	payload, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(broker.HeaderPriority, strconv.Itoa(priority))
	return msg
}

func TestWorkerSends(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		priority   int
		wantSendAt time.Time
	}{
		{"high priority is immediate", 5, time.Time{}},
		{"low priority waits for window", 1, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)},
		{"zero priority waits for window", 0, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := &fakeProvider{}
			w := newTestWorker(p, &fakeRetry{})

			if got := w.process(context.Background(), deliveryMessage(t, 0, tt.priority)); got != ResultSent {
				t.Fatalf("result = %q, want sent", got)
			}
			sent := p.Sent()
			if len(sent) != 1 {
				t.Fatalf("sent %d", len(sent))
			}
			e := sent[0]
			if e.To != "user@example.com" || e.Subject != "Hello" || e.From != "noreply@example.com" || e.HTML != "<p>Hi</p>" {
				t.Errorf("email = %+v", e)
			}
			if !e.SendAt.Equal(tt.wantSendAt) {
				t.Errorf("SendAt = %v, want %v", e.SendAt, tt.wantSendAt)
			}
		})
	}
}

func TestWorkerRetries(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{err: errors.New("smtp down")}
	r := &fakeRetry{}
	w := newTestWorker(p, r)

	if got := w.process(context.Background(), deliveryMessage(t, 1, 4)); got != ResultRetry {
		t.Fatalf("result = %q, want retry", got)
	}
	if len(r.msgs) != 1 {
		t.Fatalf("retry publishes = %d", len(r.msgs))
	}
	out := r.msgs[0]
	if out.topic != "delivery.email.retry" {
		t.Errorf("topic = %q", out.topic)
	}
	if target := out.msg.Metadata.Get(broker.HeaderRetryTarget); target != "delivery.email.high" {
		t.Errorf("retry target = %q", target)
	}
	if due, ok := broker.RetryAt(out.msg.Metadata); !ok || !due.Equal(testNow.Add(5*time.Second)) {
		t.Errorf("retry at = %v, %v", due, ok)
	}
	if broker.Priority(out.msg.Metadata) != 4 {
		t.Errorf("priority not kept: %v", out.msg.Metadata)
	}

	var d models.EmailDelivery
	if err := json.Unmarshal(out.msg.Payload, &d); err != nil {
		t.Fatal(err)
	}
	if d.Retries != 2 {
		t.Errorf("retries = %d, want 2", d.Retries)
	}
}

func TestWorkerRecoversWithinMaxRetries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		priority int
		target   string
	}{
		{"low lane", 1, "delivery.email"},
		{"high lane", 5, "delivery.email.high"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := &flakyProvider{failures: 2}
			r := &fakeRetry{}
			w := newTestWorker(p, r)

			// Each retry message is handed back to the worker the way the
			// delay forwarder would.
			msg := deliveryMessage(t, 0, tt.priority)
			var results []string
			for range 5 {
				result := w.process(context.Background(), msg)
				results = append(results, result)
				if result != ResultRetry {
					break
				}
				last := r.msgs[len(r.msgs)-1].msg
				if target := last.Metadata.Get(broker.HeaderRetryTarget); target != tt.target {
					t.Errorf("retry target = %q, want %q", target, tt.target)
				}
				msg = message.NewMessage(watermill.NewUUID(), last.Payload)
				msg.Metadata.Set(broker.HeaderPriority, last.Metadata.Get(broker.HeaderPriority))
			}

			if want := []string{ResultRetry, ResultRetry, ResultSent}; !slices.Equal(results, want) {
				t.Errorf("results = %v, want %v", results, want)
			}
			if p.calls != 3 {
				t.Errorf("provider calls = %d, want 3", p.calls)
			}
			if len(r.msgs) != 2 {
				t.Fatalf("retry publishes = %d, want 2", len(r.msgs))
			}
			for i, out := range r.msgs {
				var d models.EmailDelivery
				if err := json.Unmarshal(out.msg.Payload, &d); err != nil {
					t.Fatal(err)
				}
				if d.Retries != i+1 {
					t.Errorf("retry %d carries retries = %d, want %d", i, d.Retries, i+1)
				}
			}
		})
	}
}

func TestWorkerDropsAfterMaxRetries(t *testing.T) {
	t.Parallel()

	r := &fakeRetry{}
	w := newTestWorker(&fakeProvider{err: errors.New("down")}, r)

	if got := w.process(context.Background(), deliveryMessage(t, 3, 5)); got != ResultDropped {
		t.Errorf("result = %q, want dropped", got)
	}
	if len(r.msgs) != 0 {
		t.Error("message requeued past max retries")
	}
}

func TestWorkerDropsBadMessages(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{}
	w := newTestWorker(p, &fakeRetry{})

	if got := w.process(context.Background(), message.NewMessage("1", []byte("not json"))); got != ResultInvalid {
		t.Errorf("garbage: result = %q", got)
	}

	bad := models.EmailDelivery{NoticeID: uuid.New(), MsgID: uuid.New(), UserID: uuid.New(), MsgMeta: models.EmailMeta{Email: "nope"}}
	payload, _ := json.Marshal(bad)
	if got := w.process(context.Background(), message.NewMessage("2", payload)); got != ResultInvalid {
		t.Errorf("bad address: result = %q", got)
	}

	expired := deliveryMessage(t, 0, 5)
	w.now = func() time.Time { return testNow.Add(2 * time.Hour) }
	if got := w.process(context.Background(), expired); got != ResultExpired {
		t.Errorf("expired: result = %q", got)
	}

	if len(p.Sent()) != 0 {
		t.Error("provider called for a dropped message")
	}
}

func TestWorkerRetryPublishFailure(t *testing.T) {
	t.Parallel()

	w := newTestWorker(&fakeProvider{err: errors.New("down")}, &fakeRetry{err: errors.New("nats down")})
	if got := w.process(context.Background(), deliveryMessage(t, 0, 5)); got != ResultDropped {
		t.Errorf("result = %q, want dropped", got)
	}
}

func TestWorkerServeAcksEveryMessage(t *testing.T) {
	t.Parallel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NopLogger{})
	defer func() { _ = pubSub.Close() }()

	p := &fakeProvider{err: errors.New("down")}
	r := &fakeRetry{}
	w := NewWorker(broker.NewSubscriberFrom(pubSub, watermill.NopLogger{}), r, p, testConfig())
	w.now = func() time.Time { return testNow }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Serve(ctx) }()

	// A failing send still acks, so the second message is delivered.
	if err := pubSub.Publish("delivery.email", deliveryMessage(t, 0, 5), deliveryMessage(t, 0, 5)); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for len(p.Sent()) < 2 {
		select {
		case <-deadline:
			t.Fatalf("provider saw %d messages, want 2", len(p.Sent()))
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v", err)
	}
}

func TestWorkerConfigFrom(t *testing.T) {
	t.Parallel()

	cfg, err := WorkerConfigFrom(&config.EmailConfig{
		Subject: "delivery.email", WindowStart: "09:00", WindowEnd: "21:30", MaxRetries: 3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.WindowStart != 9*time.Hour || cfg.WindowEnd != 21*time.Hour+30*time.Minute {
		t.Errorf("window = %v..%v", cfg.WindowStart, cfg.WindowEnd)
	}

	if _, err := WorkerConfigFrom(&config.EmailConfig{WindowStart: "9am", WindowEnd: "21:00"}); err == nil {
		t.Error("expected error for bad clock")
	}
}
