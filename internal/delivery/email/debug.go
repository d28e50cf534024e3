// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package email

import (
	"context"
	"time"

	"github.com/tomtom215/herald/internal/logging"
)

// DebugProvider logs messages instead of sending them.
type DebugProvider struct{}

// NewDebugProvider returns a provider that always succeeds.
func NewDebugProvider() *DebugProvider {
	return &DebugProvider{}
}

// Send implements Provider.
func (DebugProvider) Send(ctx context.Context, e *Email) error {
	sendAt := e.SendAt
	if sendAt.IsZero() {
		sendAt = time.Now().UTC()
	}
	logging.Ctx(ctx).Info().
		Str("msg_id", e.MsgID).
		Str("from", e.From).
		Str("to", e.To).
		Str("subject", e.Subject).
		Time("send_at", sendAt).
		Str("body", e.HTML).
		Msg("email would be sent")
	return nil
}
