// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package logging

import "testing"

func TestRedactEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"johnny@example.com", "jo***@example.com"},
		{"ab@example.com", "***@example.com"},
		{"not-an-email", "***"},
		{"@example.com", "***"},
	}
	for _, tt := range tests {
		if got := RedactEmail(tt.in); got != tt.want {
			t.Errorf("RedactEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRedactPhone(t *testing.T) {
	t.Parallel()

	if got := RedactPhone("+15551234567"); got != "***67" {
		t.Errorf("RedactPhone = %q", got)
	}
	if got := RedactPhone("1"); got != "***" {
		t.Errorf("RedactPhone short = %q", got)
	}
}

func TestRedactToken(t *testing.T) {
	t.Parallel()

	if got := RedactToken("eyJhbGciOiJIUzI1NiJ9.payload.sig"); got != "eyJh....sig" {
		t.Errorf("RedactToken = %q", got)
	}
	if got := RedactToken("short"); got != "***" {
		t.Errorf("RedactToken short = %q", got)
	}
}
