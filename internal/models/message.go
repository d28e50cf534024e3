// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package models

import (
	"time"

	"github.com/google/uuid"
)

// RenderedMessage is one personalized notification for one recipient.
// ExpireAt is always the notice's expiry.
type RenderedMessage struct {
	XRequestID string        `json:"x_request_id"`
	NoticeID   uuid.UUID     `json:"notice_id"`
	MsgID      uuid.UUID     `json:"msg_id"`
	UserID     uuid.UUID     `json:"user_id"`
	UserTZ     string        `json:"user_tz"`
	MsgMeta    TransportMeta `json:"msg_meta"`
	MsgBody    string        `json:"msg_body"`
	ExpireAt   time.Time     `json:"expire_at"`
}

// Outgoing is a rendered message routed to a transport queue.
type Outgoing struct {
	Transport Transport
	Priority  int
	Message   RenderedMessage
}

// EmailDelivery is the email worker's view of a rendered message.
type EmailDelivery struct {
	XRequestID string    `json:"x_request_id"`
	NoticeID   uuid.UUID `json:"notice_id" validate:"required"`
	MsgID      uuid.UUID `json:"msg_id" validate:"required"`
	UserID     uuid.UUID `json:"user_id" validate:"required"`
	UserTZ     string    `json:"user_tz"`
	MsgMeta    EmailMeta `json:"msg_meta"`
	MsgBody    string    `json:"msg_body"`
	ExpireAt   time.Time `json:"expire_at"`
	Retries    int       `json:"retries" validate:"min=0"`
}

// Expired reports whether the delivery can no longer be sent. A zero
// expiry never expires.
func (d *EmailDelivery) Expired(now time.Time) bool {
	return !d.ExpireAt.IsZero() && !d.ExpireAt.After(now)
}

// WebsocketDelivery is the fan-out consumer's view of a rendered message.
type WebsocketDelivery struct {
	XRequestID string    `json:"x_request_id"`
	NoticeID   uuid.UUID `json:"notice_id"`
	MsgID      uuid.UUID `json:"msg_id"`
	UserID     uuid.UUID `json:"user_id"`
	MsgBody    string    `json:"msg_body"`
	ExpireAt   time.Time `json:"expire_at"`
}
