// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package dedup

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/tomtom215/herald/internal/logging"
	"github.com/tomtom215/herald/internal/metrics"
	"github.com/tomtom215/herald/internal/models"
)

// BadgerStore keeps marks in BadgerDB using native key TTLs.
type BadgerStore struct {
	db     *badger.DB
	ownsDB bool
	mu     sync.RWMutex
	closed bool
}

// OpenBadgerStore opens (or creates) a BadgerDB at path.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for marks: %w", err)
	}
	logging.Info().Str("path", path).Msg("dedup store opened (badger)")
	return &BadgerStore{db: db, ownsDB: true}, nil
}

// NewBadgerStoreFromDB wraps an already open database. Close leaves db open.
func NewBadgerStoreFromDB(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Get implements Store.
func (s *BadgerStore) Get(_ context.Context, noticeID uuid.UUID, recipient string) (models.Mark, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, false, ErrStoreClosed
	}

	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(models.MarkKey(noticeID, recipient)))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("badger get mark: %w", err)
	}

	mark, err := models.ParseMark(string(raw))
	if err != nil {
		return 0, false, fmt.Errorf("badger mark %s: %w", models.MarkKey(noticeID, recipient), err)
	}
	return mark, true, nil
}

// Set implements Store.
func (s *BadgerStore) Set(_ context.Context, noticeID uuid.UUID, recipient string, mark models.Mark, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}

	key := []byte(models.MarkKey(noticeID, recipient))
	val := []byte(strconv.Itoa(int(mark)))
	err := s.db.Update(func(txn *badger.Txn) error {
		// Badger stores expiry as unix seconds, rounding down.
		return txn.SetEntry(badger.NewEntry(key, val).WithTTL(ttl + time.Second))
	})
	if err != nil {
		return fmt.Errorf("badger set mark: %w", err)
	}
	return nil
}

// RunGC reclaims value-log space until a pass rewrites nothing.
func (s *BadgerStore) RunGC(discardRatio float64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}

	rewrites := 0
	for {
		err := s.db.RunValueLogGC(discardRatio)
		switch {
		case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrGCInMemoryMode):
			if rewrites == 0 {
				metrics.RecordDedupGC("noop")
			} else {
				metrics.RecordDedupGC("ok")
			}
			return nil
		case errors.Is(err, badger.ErrRejected):
			metrics.RecordDedupGC("rejected")
			return nil
		case err != nil:
			metrics.RecordDedupGC("error")
			return fmt.Errorf("badger value log gc: %w", err)
		}
		rewrites++
	}
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}
