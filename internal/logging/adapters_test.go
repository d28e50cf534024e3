// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

func TestSlogHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := &SlogHandler{logger: NewTestLogger(&buf)}
	logger := slog.New(h).With("service", "pipeline").WithGroup("supervisor")

	logger.Warn("service restarted", "attempt", 3, "err", errors.New("boom"))

	out := buf.String()
	for _, want := range []string{
		`"level":"warn"`,
		`"service":"pipeline"`,
		`"supervisor.attempt":3`,
		`"supervisor.err":"boom"`,
		"service restarted",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}

func TestSlogLevelMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   slog.Level
		want zerolog.Level
	}{
		{slog.LevelDebug - 4, zerolog.TraceLevel},
		{slog.LevelDebug, zerolog.DebugLevel},
		{slog.LevelInfo, zerolog.InfoLevel},
		{slog.LevelWarn, zerolog.WarnLevel},
		{slog.LevelError, zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		if got := slogLevel(tt.in); got != tt.want {
			t.Errorf("slogLevel(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSlogHandlerEnabled(t *testing.T) {
	t.Parallel()

	h := &SlogHandler{logger: NewTestLogger(&bytes.Buffer{}).Level(zerolog.WarnLevel)}
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled for a warn logger")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled for a warn logger")
	}
}

func TestWatermillLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	var adapter watermill.LoggerAdapter = &WatermillLogger{logger: NewTestLogger(&buf), verbose: false}
	adapter = adapter.With(watermill.LogFields{"topic": "delivery.email"})

	adapter.Error("publish failed", errors.New("nats down"), watermill.LogFields{"attempt": 2})
	adapter.Info("subscribed", nil)

	out := buf.String()
	for _, want := range []string{`"topic":"delivery.email"`, `"error":"nats down"`, `"attempt":2`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
	// Info is demoted to debug, which the default global level filters out.
	if strings.Contains(out, "subscribed") {
		t.Errorf("non-verbose info should be demoted: %s", out)
	}
}

func TestWatermillLoggerVerbose(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	adapter := &WatermillLogger{logger: NewTestLogger(&buf), verbose: true}
	adapter.Info("connected", watermill.LogFields{"url": "nats://127.0.0.1:4222"})

	if !strings.Contains(buf.String(), `"level":"info"`) {
		t.Errorf("verbose adapter should log info at info: %s", buf.String())
	}
}
