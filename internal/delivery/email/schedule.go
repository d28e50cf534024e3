// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package email

import (
	"fmt"
	"time"
)

// NextSendTime returns when a low priority message for a user in tz should
// go out, given a daily window [start, end] expressed as offsets from local
// midnight:
//
//   - before start: today at start
//   - within the window: now
//   - after end: tomorrow at start
//
// An unknown tz returns now in UTC together with an error.
func NextSendTime(now time.Time, tz string, start, end time.Duration) (time.Time, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return now.UTC(), fmt.Errorf("unknown time zone %q: %w", tz, err)
	}

	local := now.In(loc)
	h, m, s := local.Clock()
	tod := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second + time.Duration(local.Nanosecond())

	switch {
	case tod < start:
		return atClock(local, 0, start), nil
	case tod <= end:
		return local, nil
	default:
		return atClock(local, 1, start), nil
	}
}

// atClock returns the wall clock time offset on the day days after t.
func atClock(t time.Time, days int, offset time.Duration) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d+days,
		int(offset/time.Hour), int(offset%time.Hour/time.Minute), 0, 0, t.Location())
}
