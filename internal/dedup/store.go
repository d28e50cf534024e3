// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/herald/internal/config"
	"github.com/tomtom215/herald/internal/models"
)

// Backend names accepted by Open.
const (
	BackendBadger = "badger"
	BackendNATS   = "nats"
	BackendMemory = "memory"
)

var (
	// ErrStoreClosed is returned after Close.
	ErrStoreClosed = errors.New("dedup store is closed")

	// ErrInvalidTTL is returned when a mark would expire immediately.
	ErrInvalidTTL = errors.New("mark TTL must be positive")
)

// Store reads and writes delivery marks.
type Store interface {
	// Get returns the mark for (noticeID, recipient). ok is false when no
	// unexpired mark exists.
	Get(ctx context.Context, noticeID uuid.UUID, recipient string) (mark models.Mark, ok bool, err error)

	// Set writes a mark that expires after ttl, replacing any previous one.
	Set(ctx context.Context, noticeID uuid.UUID, recipient string, mark models.Mark, ttl time.Duration) error

	Close() error
}

// Open creates the store selected by cfg.Backend. js is only used by the
// nats backend and may be nil otherwise.
func Open(ctx context.Context, cfg *config.DedupConfig, js jetstream.KeyValueManager) (Store, error) {
	switch cfg.Backend {
	case BackendBadger:
		return OpenBadgerStore(cfg.Path)
	case BackendNATS:
		if js == nil {
			return nil, fmt.Errorf("dedup backend %q requires a JetStream connection", cfg.Backend)
		}
		return OpenKVStore(ctx, js, cfg.Bucket, cfg.BucketMaxAge)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown dedup backend %q", cfg.Backend)
	}
}
