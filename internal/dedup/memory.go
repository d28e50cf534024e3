// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package dedup

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/herald/internal/models"
)

// minSweep is the map size below which Set never sweeps.
const minSweep = 1024

type memoryEntry struct {
	mark      models.Mark
	expiresAt time.Time
}

// MemoryStore keeps marks in a map. Marks are lost on restart.
//
// Expired entries are dropped when Get finds them, and swept by Set once
// the map has doubled since the last sweep.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	sweepAt int
	closed  bool
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		sweepAt: minSweep,
		now:     time.Now,
	}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, noticeID uuid.UUID, recipient string) (models.Mark, bool, error) {
	key := models.MarkKey(noticeID, recipient)

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return 0, false, ErrStoreClosed
	}
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return 0, false, nil
	}
	if s.now().Before(e.expiresAt) {
		return e.mark, true, nil
	}

	s.mu.Lock()
	// Set may have replaced it since the read lock was released.
	if cur, ok := s.entries[key]; ok && !s.now().Before(cur.expiresAt) {
		delete(s.entries, key)
	}
	s.mu.Unlock()
	return 0, false, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, noticeID uuid.UUID, recipient string, mark models.Mark, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	now := s.now()
	if len(s.entries) >= s.sweepAt {
		for key, e := range s.entries {
			if !now.Before(e.expiresAt) {
				delete(s.entries, key)
			}
		}
		s.sweepAt = max(minSweep, 2*len(s.entries))
	}
	s.entries[models.MarkKey(noticeID, recipient)] = memoryEntry{
		mark:      mark,
		expiresAt: now.Add(ttl),
	}
	return nil
}

// Len returns the number of stored entries, including expired ones not yet
// evicted.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.entries = nil
	return nil
}
