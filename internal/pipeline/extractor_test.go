// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package pipeline

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/herald/internal/broker"
	"github.com/tomtom215/herald/internal/models"
)

// fakeMsg implements jetstream.Msg.
type fakeMsg struct {
	data       []byte
	delivered  uint64
	termReason string
	acked      bool
}

func (m *fakeMsg) Metadata() (*jetstream.MsgMetadata, error) {
	return &jetstream.MsgMetadata{NumDelivered: m.delivered}, nil
}
func (m *fakeMsg) Data() []byte                       { return m.data }
func (m *fakeMsg) Headers() natsgo.Header             { return natsgo.Header{} }
func (m *fakeMsg) Subject() string                    { return "notice.ingest" }
func (m *fakeMsg) Reply() string                      { return "" }
func (m *fakeMsg) Ack() error                         { m.acked = true; return nil }
func (m *fakeMsg) DoubleAck(context.Context) error    { return nil }
func (m *fakeMsg) Nak() error                         { return nil }
func (m *fakeMsg) NakWithDelay(time.Duration) error   { return nil }
func (m *fakeMsg) InProgress() error                  { return nil }
func (m *fakeMsg) Term() error                        { return nil }
func (m *fakeMsg) TermWithReason(reason string) error { m.termReason = reason; return nil }

type fakeFetcher struct {
	msg jetstream.Msg
	err error
}

func (f *fakeFetcher) Next(...jetstream.FetchOpt) (jetstream.Msg, error) {
	return f.msg, f.err
}

// laneFetcher serves queued messages in order, then times out.
type laneFetcher struct {
	mu    sync.Mutex
	msgs  []jetstream.Msg
	calls int
}

func (f *laneFetcher) Next(...jetstream.FetchOpt) (jetstream.Msg, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.msgs) == 0 {
		return nil, natsgo.ErrTimeout
	}
	msg := f.msgs[0]
	f.msgs = f.msgs[1:]
	return msg, nil
}

func noticeWithPriority(priority int) *fakeMsg {
	data := strings.Replace(validNotice, `"priority": 2`, `"priority": `+strconv.Itoa(priority), 1)
	return &fakeMsg{data: []byte(data), delivered: 1}
}

const validNotice = `{
	"notice_id": "5f0f4b1e-7a3c-4a44-9d41-1b2f2c0e8a10",
	"users_id": ["0b7a6e9e-1d5c-4c47-8f6e-9d2b3a4c5d6e"],
	"template_id": "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d",
	"transport": "email",
	"priority": 2,
	"msg_type": "news",
	"expire_at": "2030-01-01T00:00:00"
}`

func TestExtractorFetch(t *testing.T) {
	t.Parallel()

	msg := &fakeMsg{data: []byte(validNotice), delivered: 3}
	e := NewExtractorFrom(50*time.Millisecond, &fakeFetcher{msg: msg})

	d, err := e.Fetch(context.Background())
	if err != nil || d == nil {
		t.Fatalf("Fetch() = %v, %v", d, err)
	}
	if d.Attempt != 3 {
		t.Errorf("Attempt = %d, want 3", d.Attempt)
	}
	if d.Notice.Transport != models.TransportEmail || d.Notice.Priority != 2 {
		t.Errorf("notice = %+v", d.Notice)
	}
	if d.Notice.XRequestID != models.NoRequestID {
		t.Errorf("XRequestID = %q, want default", d.Notice.XRequestID)
	}
	if d.Notice.ExpireAt.Location() != time.UTC {
		t.Error("naive expire_at not treated as UTC")
	}

	if err := d.Acker.Ack(); err != nil || !msg.acked {
		t.Error("acker is not the underlying message")
	}
}

func TestExtractorTerminatesInvalidNotice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{"not json", `{{`},
		{"missing users", `{"notice_id":"5f0f4b1e-7a3c-4a44-9d41-1b2f2c0e8a10","template_id":"9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d","transport":"email","msg_type":"x","expire_at":"2030-01-01T00:00:00Z"}`},
		{"unknown transport", `{"notice_id":"5f0f4b1e-7a3c-4a44-9d41-1b2f2c0e8a10","users_id":["0b7a6e9e-1d5c-4c47-8f6e-9d2b3a4c5d6e"],"template_id":"9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d","transport":"pigeon","msg_type":"x","expire_at":"2030-01-01T00:00:00Z"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg := &fakeMsg{data: []byte(tt.data)}
			e := NewExtractorFrom(0, &fakeFetcher{msg: msg})

			d, err := e.Fetch(context.Background())
			if d != nil || err != nil {
				t.Fatalf("Fetch() = %v, %v; want idle", d, err)
			}
			if msg.termReason == "" {
				t.Error("invalid notice was not terminated")
			}
		})
	}
}

func TestExtractorIdleAndErrors(t *testing.T) {
	t.Parallel()

	e := NewExtractorFrom(time.Millisecond, &fakeFetcher{err: natsgo.ErrTimeout})
	if d, err := e.Fetch(context.Background()); d != nil || err != nil {
		t.Errorf("timeout: Fetch() = %v, %v; want idle", d, err)
	}

	e = NewExtractorFrom(time.Millisecond, &fakeFetcher{err: errors.New("connection closed")})
	_, err := e.Fetch(context.Background())
	if !broker.IsRetryable(err) {
		t.Errorf("fetch failure = %v, want retryable", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e = NewExtractorFrom(time.Millisecond, &fakeFetcher{err: context.Canceled})
	if _, err := e.Fetch(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled: error = %v", err)
	}
}

func TestExtractorDrainsHighLaneFirst(t *testing.T) {
	t.Parallel()

	// Normal notices were queued before the high one.
	normal := &laneFetcher{msgs: []jetstream.Msg{noticeWithPriority(0), noticeWithPriority(1), noticeWithPriority(0)}}
	high := &laneFetcher{msgs: []jetstream.Msg{noticeWithPriority(7)}}
	e := NewExtractorFrom(50*time.Millisecond, high, normal)

	var got []int
	for range 4 {
		d, err := e.Fetch(context.Background())
		if err != nil || d == nil {
			t.Fatalf("Fetch() = %v, %v", d, err)
		}
		got = append(got, d.Notice.Priority)
	}
	if want := []int{7, 0, 1, 0}; !slices.Equal(got, want) {
		t.Errorf("priorities = %v, want %v", got, want)
	}
	if high.calls != 4 {
		t.Errorf("high lane polled %d times, want once per fetch", high.calls)
	}

	if d, err := e.Fetch(context.Background()); d != nil || err != nil {
		t.Errorf("empty lanes: Fetch() = %v, %v; want idle", d, err)
	}
}

func TestExtractorHighLaneError(t *testing.T) {
	t.Parallel()

	normal := &laneFetcher{msgs: []jetstream.Msg{noticeWithPriority(0)}}
	e := NewExtractorFrom(50*time.Millisecond, &fakeFetcher{err: errors.New("connection closed")}, normal)

	if _, err := e.Fetch(context.Background()); !broker.IsRetryable(err) {
		t.Errorf("Fetch() error = %v, want retryable", err)
	}
	if normal.calls != 0 {
		t.Error("normal lane fetched after a high lane failure")
	}
}
