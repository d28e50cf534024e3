// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package models

import (
	"slices"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// DefaultTimeZone is used when the auth service omits time_zone.
const DefaultTimeZone = "UTC"

// UserInfo is recipient data returned by the auth service.
type UserInfo struct {
	UserID       uuid.UUID `json:"user_id"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Username     string    `json:"username"`
	TimeZone     string    `json:"time_zone"`
	RejectNotice []string  `json:"reject_notice"`
}

// UnmarshalJSON applies the time_zone and reject_notice defaults.
func (u *UserInfo) UnmarshalJSON(data []byte) error {
	type alias UserInfo
	if err := json.Unmarshal(data, (*alias)(u)); err != nil {
		return err
	}
	if u.TimeZone == "" {
		u.TimeZone = DefaultTimeZone
	}
	if u.RejectNotice == nil {
		u.RejectNotice = []string{}
	}
	return nil
}

// Rejects reports whether the user opted out of msgType.
func (u *UserInfo) Rejects(msgType string) bool {
	return slices.Contains(u.RejectNotice, msgType)
}

// TemplateData returns the user's fields keyed by their JSON names, merged
// with extra. Keys in extra win.
func (u *UserInfo) TemplateData(extra map[string]any) map[string]any {
	data := map[string]any{
		"user_id":       u.UserID.String(),
		"email":         u.Email,
		"phone":         u.Phone,
		"username":      u.Username,
		"time_zone":     u.TimeZone,
		"reject_notice": u.RejectNotice,
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}
