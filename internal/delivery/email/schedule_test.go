// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package email

import (
	"testing"
	"time"
)

func TestNextSendTime(t *testing.T) {
	t.Parallel()

	start := 9 * time.Hour
	end := 21 * time.Hour
	moscow, err := time.LoadLocation("Europe/Moscow") // UTC+3, no DST
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	tests := []struct {
		name string
		now  time.Time
		tz   string
		want time.Time
	}{
		{
			name: "before window",
			now:  time.Date(2026, 3, 10, 4, 30, 0, 0, time.UTC),
			tz:   "UTC",
			want: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "inside window",
			now:  time.Date(2026, 3, 10, 12, 15, 0, 0, time.UTC),
			tz:   "UTC",
			want: time.Date(2026, 3, 10, 12, 15, 0, 0, time.UTC),
		},
		{
			name: "at window end",
			now:  time.Date(2026, 3, 10, 21, 0, 0, 0, time.UTC),
			tz:   "UTC",
			want: time.Date(2026, 3, 10, 21, 0, 0, 0, time.UTC),
		},
		{
			name: "after window",
			now:  time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC),
			tz:   "UTC",
			want: time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "local zone shifts the window",
			now:  time.Date(2026, 3, 10, 19, 0, 0, 0, time.UTC), // 22:00 in Moscow
			tz:   "Europe/Moscow",
			want: time.Date(2026, 3, 11, 9, 0, 0, 0, moscow),
		},
		{
			name: "end of month rolls over",
			now:  time.Date(2026, 1, 31, 23, 0, 0, 0, time.UTC),
			tz:   "UTC",
			want: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := NextSendTime(tt.now, tt.tz, start, end)
			if err != nil {
				t.Fatalf("NextSendTime() error = %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("NextSendTime() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextSendTimeUnknownZone(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC)
	got, err := NextSendTime(now, "Mars/Olympus_Mons", 9*time.Hour, 21*time.Hour)
	if err == nil {
		t.Fatal("expected error for unknown zone")
	}
	if !got.Equal(now) {
		t.Errorf("fallback = %v, want now", got)
	}
}
