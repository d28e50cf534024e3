// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package pipeline

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/herald/internal/broker"
	"github.com/tomtom215/herald/internal/dedup"
	"github.com/tomtom215/herald/internal/logging"
	"github.com/tomtom215/herald/internal/models"
	"github.com/tomtom215/herald/internal/recipients"
	"github.com/tomtom215/herald/internal/templates"
)

func init() {
	logging.SetLogger(logging.NewTestLogger(io.Discard))
}

// fakePublisher records published messages.
type fakePublisher struct {
	mu   sync.Mutex
	sent []broker.Outbound
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, out broker.Outbound) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, out)
	return nil
}

func (p *fakePublisher) Sent() []broker.Outbound {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]broker.Outbound(nil), p.sent...)
}

// recordingStore wraps a MemoryStore and remembers the TTL of every write.
type recordingStore struct {
	*dedup.MemoryStore
	mu   sync.Mutex
	ttls map[string]time.Duration
	err  error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: dedup.NewMemoryStore(), ttls: map[string]time.Duration{}}
}

func (s *recordingStore) Set(ctx context.Context, noticeID uuid.UUID, recipient string, mark models.Mark, ttl time.Duration) error {
	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		return s.err
	}
	s.ttls[recipient] = ttl
	s.mu.Unlock()
	return s.MemoryStore.Set(ctx, noticeID, recipient, mark, ttl)
}

func (s *recordingStore) TTL(recipient string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttls[recipient]
}

type fixture struct {
	template  *templates.Template
	templates *templates.MemoryStore
	marks     *recordingStore
	users     *recipients.StaticProvider
	publisher *fakePublisher
	tr        *Transformer
	loader    *Loader
}

func newFixture(users ...models.UserInfo) *fixture {
	tmpl, err := templates.Parse(uuid.New(), "Hello", "Hi {{.username}}")
	if err != nil {
		panic(err)
	}
	f := &fixture{
		template:  tmpl,
		templates: templates.NewMemoryStore(tmpl),
		marks:     newRecordingStore(),
		users:     recipients.NewStaticProvider(users...),
		publisher: &fakePublisher{},
	}
	f.tr = NewTransformer(f.templates, f.marks, f.users, 2, time.Minute)
	f.loader = NewLoader(f.publisher, f.marks, "delivery", time.Minute)
	return f
}

func (f *fixture) notice(transport models.Transport, users ...models.UserInfo) *models.Notice {
	ids := make([]uuid.UUID, len(users))
	for i := range users {
		ids[i] = users[i].UserID
	}
	return &models.Notice{
		XRequestID: "req-1",
		NoticeID:   uuid.New(),
		UsersID:    ids,
		TemplateID: f.template.ID,
		Extra:      map[string]any{},
		Transport:  transport,
		Priority:   3,
		MsgType:    "news",
		ExpireAt:   time.Now().Add(time.Hour).UTC(),
	}
}

func user(name string) models.UserInfo {
	return models.UserInfo{
		UserID:       uuid.New(),
		Email:        name + "@example.com",
		Username:     name,
		TimeZone:     "UTC",
		RejectNotice: []string{},
	}
}
