// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package models

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// Mark is the delivery state of one recipient for one notice.
// The integer values are stored and must not change.
type Mark int

const (
	MarkRejectedNoConsent   Mark = 0
	MarkRejectedMissingData Mark = 1
	MarkQueued              Mark = 2
	MarkSent                Mark = 3
)

// String returns the mark name used in logs and metric labels.
func (m Mark) String() string {
	switch m {
	case MarkRejectedNoConsent:
		return "rejected_no_consent"
	case MarkRejectedMissingData:
		return "rejected_missing_data"
	case MarkQueued:
		return "queued"
	case MarkSent:
		return "sent"
	default:
		return fmt.Sprintf("mark(%d)", int(m))
	}
}

// Valid reports whether m is one of the defined marks.
func (m Mark) Valid() bool {
	return m >= MarkRejectedNoConsent && m <= MarkSent
}

// ParseMark decodes a stored mark value.
func ParseMark(s string) (Mark, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid mark %q: %w", s, err)
	}
	m := Mark(v)
	if !m.Valid() {
		return 0, fmt.Errorf("unknown mark value %d", v)
	}
	return m, nil
}

// NoticeSentinel is the recipient id of the whole-notice mark.
const NoticeSentinel = "0"

// MarkKey returns the dedup key for a (notice, recipient) pair.
func MarkKey(noticeID uuid.UUID, recipient string) string {
	return "notice:" + noticeID.String() + ":user:" + recipient
}
