// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	noticeIDKey  contextKey = "notice_id"
	loggerKey    contextKey = "logger"
)

// GenerateRequestID returns a fresh request id.
func GenerateRequestID() string {
	return uuid.New().String()
}

// ContextWithRequestID stores the X-Request-Id of the originating call.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the stored request id or "".
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithNoticeID stores the notice being processed.
func ContextWithNoticeID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, noticeIDKey, id)
}

// NoticeIDFromContext returns the stored notice id or "".
func NoticeIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(noticeIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithLogger stores a preconfigured logger in ctx.
//
//nolint:gocritic // zerolog.Logger is a value type
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext returns the logger stored in ctx, or the global one.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return Logger()
}

// Ctx returns a logger carrying request_id and notice_id from ctx.
//
//	logging.Ctx(ctx).Info().Int("recipients", n).Msg("Notice transformed")
func Ctx(ctx context.Context) *zerolog.Logger {
	l := CtxWith(ctx).Logger()
	return &l
}

// CtxWith returns a logger context prefilled from ctx, for adding more fields.
func CtxWith(ctx context.Context) zerolog.Context {
	logger := LoggerFromContext(ctx)
	lc := logger.With()
	if id := RequestIDFromContext(ctx); id != "" {
		lc = lc.Str("request_id", id)
	}
	if id := NoticeIDFromContext(ctx); id != "" {
		lc = lc.Str("notice_id", id)
	}
	return lc
}

// WithComponent returns a child logger tagged with component.
//
//	log := logging.WithComponent("email-worker")
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}
