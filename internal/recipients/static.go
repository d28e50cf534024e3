// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package recipients

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/tomtom215/herald/internal/models"
)

// StaticProvider answers lookups from a fixed set of users.
type StaticProvider struct {
	mu    sync.RWMutex
	users map[uuid.UUID]models.UserInfo
	err   error
	calls [][]uuid.UUID
}

// NewStaticProvider creates a provider knowing users.
func NewStaticProvider(users ...models.UserInfo) *StaticProvider {
	p := &StaticProvider{users: make(map[uuid.UUID]models.UserInfo, len(users))}
	for _, u := range users {
		p.users[u.UserID] = u
	}
	return p
}

// SetError makes every following lookup fail with err (nil clears it).
func (p *StaticProvider) SetError(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

// Calls returns the id batches requested so far.
func (p *StaticProvider) Calls() [][]uuid.UUID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([][]uuid.UUID(nil), p.calls...)
}

// Lookup implements Provider, returning known users in request order.
func (p *StaticProvider) Lookup(_ context.Context, _ string, userIDs []uuid.UUID) ([]models.UserInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, append([]uuid.UUID(nil), userIDs...))
	if p.err != nil {
		return nil, p.err
	}
	out := make([]models.UserInfo, 0, len(userIDs))
	for _, id := range userIDs {
		if u, ok := p.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}
