// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package templates

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/herald/internal/metrics"
)

type cacheEntry struct {
	template  *Template
	expiresAt time.Time
}

// CachedStore caches successful lookups from another Store for a fixed TTL.
// Lookup errors, not-found included, are never cached.
type CachedStore struct {
	store Store
	ttl   time.Duration
	now   func() time.Time

	mu      sync.RWMutex
	entries map[uuid.UUID]cacheEntry
}

// NewCachedStore wraps store. A ttl <= 0 disables caching.
func NewCachedStore(store Store, ttl time.Duration) *CachedStore {
	return &CachedStore{
		store:   store,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[uuid.UUID]cacheEntry),
	}
}

// Get implements Store.
func (c *CachedStore) Get(ctx context.Context, id uuid.UUID) (*Template, error) {
	if c.ttl <= 0 {
		return c.store.Get(ctx, id)
	}

	now := c.now()
	c.mu.RLock()
	entry, ok := c.entries[id]
	c.mu.RUnlock()
	if ok && now.Before(entry.expiresAt) {
		metrics.RecordTemplateCache(true)
		return entry.template, nil
	}
	metrics.RecordTemplateCache(false)

	t, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[id] = cacheEntry{template: t, expiresAt: now.Add(c.ttl)}
	c.evictExpired(now)
	c.mu.Unlock()
	return t, nil
}

// Invalidate drops id from the cache.
func (c *CachedStore) Invalidate(id uuid.UUID) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

// evictExpired must be called with mu held.
func (c *CachedStore) evictExpired(now time.Time) {
	for id, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, id)
		}
	}
}
