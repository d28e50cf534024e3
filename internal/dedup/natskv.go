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
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/herald/internal/logging"
	"github.com/tomtom215/herald/internal/models"
)

// KeyValueBucket is the subset of jetstream.KeyValue used by KVStore.
type KeyValueBucket interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
}

// KVStore keeps marks in a JetStream key-value bucket so several pipeline
// processes can share them.
//
// Plain Put has no per-key TTL, so each value is "<mark>:<expiry unix ms>"
// and Get ignores expired values. The bucket MaxAge bounds storage and must
// exceed the longest notice lifetime.
type KVStore struct {
	kv     KeyValueBucket
	now    func() time.Time
	closed atomic.Bool
}

// OpenKVStore creates or updates bucket and returns a store on it.
func OpenKVStore(ctx context.Context, js jetstream.KeyValueManager, bucket string, maxAge time.Duration) (*KVStore, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "herald delivery marks",
		History:     1,
		TTL:         maxAge,
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("open kv bucket %s: %w", bucket, err)
	}
	logging.Info().Str("bucket", bucket).Dur("max_age", maxAge).Msg("dedup store opened (nats kv)")
	return NewKVStore(kv), nil
}

// NewKVStore wraps an existing bucket.
func NewKVStore(kv KeyValueBucket) *KVStore {
	return &KVStore{kv: kv, now: time.Now}
}

// KVKey converts a mark key to a valid KV key.
func KVKey(noticeID uuid.UUID, recipient string) string {
	return strings.ReplaceAll(models.MarkKey(noticeID, recipient), ":", ".")
}

// Get implements Store.
func (s *KVStore) Get(ctx context.Context, noticeID uuid.UUID, recipient string) (models.Mark, bool, error) {
	if s.closed.Load() {
		return 0, false, ErrStoreClosed
	}

	entry, err := s.kv.Get(ctx, KVKey(noticeID, recipient))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("kv get mark: %w", err)
	}

	mark, expiresAt, err := decodeKVValue(entry.Value())
	if err != nil {
		return 0, false, fmt.Errorf("kv mark %s: %w", entry.Key(), err)
	}
	if !s.now().Before(expiresAt) {
		return 0, false, nil
	}
	return mark, true, nil
}

// Set implements Store.
func (s *KVStore) Set(ctx context.Context, noticeID uuid.UUID, recipient string, mark models.Mark, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	if s.closed.Load() {
		return ErrStoreClosed
	}

	value := encodeKVValue(mark, s.now().Add(ttl))
	if _, err := s.kv.Put(ctx, KVKey(noticeID, recipient), value); err != nil {
		return fmt.Errorf("kv put mark: %w", err)
	}
	return nil
}

// Close implements Store. The bucket belongs to the connection owner.
func (s *KVStore) Close() error {
	s.closed.Store(true)
	return nil
}

func encodeKVValue(mark models.Mark, expiresAt time.Time) []byte {
	return []byte(strconv.Itoa(int(mark)) + ":" + strconv.FormatInt(expiresAt.UnixMilli(), 10))
}

func decodeKVValue(value []byte) (models.Mark, time.Time, error) {
	code, expiry, found := strings.Cut(string(value), ":")
	if !found {
		return 0, time.Time{}, fmt.Errorf("malformed value %q", value)
	}
	mark, err := models.ParseMark(code)
	if err != nil {
		return 0, time.Time{}, err
	}
	ms, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("malformed expiry %q: %w", expiry, err)
	}
	return mark, time.UnixMilli(ms), nil
}
