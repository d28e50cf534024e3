// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package templates

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore holds templates in memory. Used by tests and local runs
// without a template database.
type MemoryStore struct {
	mu        sync.RWMutex
	templates map[uuid.UUID]*Template
}

// NewMemoryStore creates a store holding templates.
func NewMemoryStore(templates ...*Template) *MemoryStore {
	s := &MemoryStore{templates: make(map[uuid.UUID]*Template, len(templates))}
	for _, t := range templates {
		s.templates[t.ID] = t
	}
	return s
}

// Put adds or replaces a template.
func (s *MemoryStore) Put(t *Template) {
	s.mu.Lock()
	s.templates[t.ID] = t
	s.mu.Unlock()
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	return t, nil
}
