// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package broker

import (
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Message headers. Watermill exposes them as message metadata.
const (
	HeaderPriority    = "Herald-Priority"
	HeaderRequestID   = "Herald-Request-Id"
	HeaderRetryAt     = "Herald-Retry-At"     // unix milliseconds
	HeaderRetryTarget = "Herald-Retry-Target" // subject to republish to
)

// Priority reads the priority header, defaulting to 0.
func Priority(md message.Metadata) int {
	p, err := strconv.Atoi(md.Get(HeaderPriority))
	if err != nil {
		return 0
	}
	return p
}

// RetryAt reads the retry due time. ok is false when the header is missing
// or malformed.
func RetryAt(md message.Metadata) (t time.Time, ok bool) {
	ms, err := strconv.ParseInt(md.Get(HeaderRetryAt), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// SetRetry stamps md with a due time and a target subject.
func SetRetry(md message.Metadata, at time.Time, target string) {
	md.Set(HeaderRetryAt, strconv.FormatInt(at.UnixMilli(), 10))
	md.Set(HeaderRetryTarget, target)
}
