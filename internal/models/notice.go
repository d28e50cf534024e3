// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// NoRequestID replaces a missing x_request_id so traces always carry a value.
const NoRequestID = "request_id: None"

// Notice is a request to deliver one template to a set of recipients.
type Notice struct {
	XRequestID string         `json:"x_request_id" validate:"max=256"`
	NoticeID   uuid.UUID      `json:"notice_id" validate:"required"`
	UsersID    []uuid.UUID    `json:"users_id" validate:"required,min=1,max=100000"`
	TemplateID uuid.UUID      `json:"template_id" validate:"required"`
	Extra      map[string]any `json:"extra"`
	Transport  Transport      `json:"transport" validate:"required,oneof=email sms websocket push"`
	Priority   int            `json:"priority" validate:"min=0,max=10"`
	MsgType    string         `json:"msg_type" validate:"required,max=64"`
	ExpireAt   time.Time      `json:"expire_at" validate:"required"`
}

// UnmarshalJSON accepts expire_at with or without a zone (naive means UTC)
// and applies field defaults.
func (n *Notice) UnmarshalJSON(data []byte) error {
	type alias Notice
	aux := struct {
		*alias
		XRequestID *string `json:"x_request_id"`
		ExpireAt   *string `json:"expire_at"`
	}{alias: (*alias)(n)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	n.XRequestID = ""
	if aux.XRequestID != nil {
		n.XRequestID = *aux.XRequestID
	}
	n.ExpireAt = time.Time{}
	if aux.ExpireAt != nil && *aux.ExpireAt != "" {
		t, err := ParseTimestamp(*aux.ExpireAt)
		if err != nil {
			return fmt.Errorf("expire_at: %w", err)
		}
		n.ExpireAt = t
	}

	n.Normalize()
	return nil
}

// Normalize applies defaults: request id placeholder, empty extra, UTC expiry.
func (n *Notice) Normalize() {
	if n.XRequestID == "" {
		n.XRequestID = NoRequestID
	}
	if n.Extra == nil {
		n.Extra = map[string]any{}
	}
	if !n.ExpireAt.IsZero() {
		n.ExpireAt = n.ExpireAt.UTC()
	}
}

// Expired reports whether the notice expiry is at or before now.
func (n *Notice) Expired(now time.Time) bool {
	return !n.ExpireAt.After(now)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp. Values without a zone are UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// TTLSeconds returns whole seconds from now until expireAt, truncated.
// The result is zero or negative when the expiry has passed.
func TTLSeconds(expireAt, now time.Time) int64 {
	return int64(expireAt.Sub(now) / time.Second)
}

// MarkTTL is the exact time left until expireAt plus buffer. It is not
// rounded, so a mark never expires before the message it guards.
func MarkTTL(expireAt, now time.Time, buffer time.Duration) time.Duration {
	return expireAt.Sub(now) + buffer
}
