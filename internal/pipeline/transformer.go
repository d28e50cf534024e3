// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package pipeline

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/herald/internal/dedup"
	"github.com/tomtom215/herald/internal/logging"
	"github.com/tomtom215/herald/internal/metrics"
	"github.com/tomtom215/herald/internal/models"
	"github.com/tomtom215/herald/internal/recipients"
	"github.com/tomtom215/herald/internal/templates"
)

// DefaultBatchSize is the recipient lookup batch size.
const DefaultBatchSize = 100

// Transformer expands a notice into rendered per-recipient messages.
type Transformer struct {
	templates  templates.Store
	marks      dedup.Store
	recipients recipients.Provider
	batchSize  int
	markBuffer time.Duration
	now        func() time.Time
}

// NewTransformer creates a transformer. batchSize <= 0 uses DefaultBatchSize.
func NewTransformer(tmpl templates.Store, marks dedup.Store, provider recipients.Provider, batchSize int, markBuffer time.Duration) *Transformer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Transformer{
		templates:  tmpl,
		marks:      marks,
		recipients: provider,
		batchSize:  batchSize,
		markBuffer: markBuffer,
		now:        time.Now,
	}
}

// Transform returns the lazy sequence of messages for n. Work happens as the
// sequence is consumed. An error is yielded once and ends the sequence.
//
// Side effects while iterating: the notice sentinel mark on first sight,
// and rejected_no_consent / rejected_missing_data marks for recipients that
// produce no message.
func (t *Transformer) Transform(ctx context.Context, n *models.Notice) iter.Seq2[models.Outgoing, error] {
	return func(yield func(models.Outgoing, error) bool) {
		log := logging.Ctx(ctx).With().
			Str("notice_id", n.NoticeID.String()).
			Str("request_id", n.XRequestID).
			Logger()

		now := t.now()
		if n.Expired(now) {
			log.Debug().Time("expire_at", n.ExpireAt).Msg("notice expired, skipping")
			return
		}
		markTTL := t.markTTL(n.ExpireAt, now)

		tmpl, err := t.templates.Get(ctx, n.TemplateID)
		if err != nil {
			yield(models.Outgoing{}, fmt.Errorf("template %s: %w", n.TemplateID, err))
			return
		}

		users, err := t.pending(ctx, n, markTTL)
		if err != nil {
			yield(models.Outgoing{}, err)
			return
		}

		for start := 0; start < len(users); start += t.batchSize {
			batch := users[start:min(start+t.batchSize, len(users))]
			infos, err := t.recipients.Lookup(ctx, n.XRequestID, batch)
			if err != nil {
				yield(models.Outgoing{}, fmt.Errorf("lookup recipients: %w", err))
				return
			}
			if missing := len(batch) - len(infos); missing > 0 {
				log.Debug().Int("missing", missing).Msg("recipients without user info")
			}

			for i := range infos {
				out, ok, err := t.render(ctx, n, tmpl, &infos[i], markTTL)
				if err != nil {
					yield(models.Outgoing{}, err)
					return
				}
				if !ok {
					continue
				}
				if !yield(out, nil) {
					return
				}
			}
		}
	}
}

// pending returns the distinct recipients still to process, in first
// occurrence order. On first sight of the notice it writes the sentinel
// mark and returns everyone.
func (t *Transformer) pending(ctx context.Context, n *models.Notice, markTTL time.Duration) ([]uuid.UUID, error) {
	_, resumed, err := t.marks.Get(ctx, n.NoticeID, models.NoticeSentinel)
	if err != nil {
		return nil, fmt.Errorf("read notice mark: %w", err)
	}
	if !resumed {
		if err := t.marks.Set(ctx, n.NoticeID, models.NoticeSentinel, models.MarkQueued, markTTL); err != nil {
			return nil, fmt.Errorf("write notice mark: %w", err)
		}
	}

	seen := make(map[uuid.UUID]struct{}, len(n.UsersID))
	users := make([]uuid.UUID, 0, len(n.UsersID))
	for _, id := range n.UsersID {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if resumed {
			_, done, err := t.marks.Get(ctx, n.NoticeID, id.String())
			if err != nil {
				return nil, fmt.Errorf("read recipient mark: %w", err)
			}
			if done {
				continue
			}
		}
		users = append(users, id)
	}
	if resumed {
		logging.Ctx(ctx).Debug().
			Str("notice_id", n.NoticeID.String()).
			Int("remaining", len(users)).
			Int("total", len(seen)).
			Msg("resuming notice")
	}
	return users, nil
}

// render builds the message for one recipient. ok is false when the
// recipient was rejected and marked instead.
func (t *Transformer) render(ctx context.Context, n *models.Notice, tmpl *templates.Template, user *models.UserInfo, markTTL time.Duration) (models.Outgoing, bool, error) {
	if user.Rejects(n.MsgType) {
		return models.Outgoing{}, false, t.reject(ctx, n, user, models.MarkRejectedNoConsent, markTTL)
	}

	meta, ok := models.MetaFor(n.Transport, user, tmpl.Subject)
	if !ok {
		return models.Outgoing{}, false, t.reject(ctx, n, user, models.MarkRejectedMissingData, markTTL)
	}

	body, err := tmpl.Render(user.TemplateData(n.Extra))
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("notice_id", n.NoticeID.String()).
			Str("user_id", user.UserID.String()).
			Msg("template render failed")
		return models.Outgoing{}, false, t.reject(ctx, n, user, models.MarkRejectedMissingData, markTTL)
	}

	return models.Outgoing{
		Transport: n.Transport,
		Priority:  n.Priority,
		Message: models.RenderedMessage{
			XRequestID: n.XRequestID,
			NoticeID:   n.NoticeID,
			MsgID:      uuid.New(),
			UserID:     user.UserID,
			UserTZ:     user.TimeZone,
			MsgMeta:    meta,
			MsgBody:    body,
			ExpireAt:   n.ExpireAt,
		},
	}, true, nil
}

func (t *Transformer) reject(ctx context.Context, n *models.Notice, user *models.UserInfo, mark models.Mark, markTTL time.Duration) error {
	if err := t.marks.Set(ctx, n.NoticeID, user.UserID.String(), mark, markTTL); err != nil {
		return fmt.Errorf("write %s mark: %w", mark, err)
	}
	metrics.RecordMark(mark.String())
	return nil
}

func (t *Transformer) markTTL(expireAt, now time.Time) time.Duration {
	return models.MarkTTL(expireAt, now, t.markBuffer)
}
