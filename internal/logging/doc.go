// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

// Package logging provides the process-wide zerolog logger used by every
// Herald component.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("subject", "delivery.email").Msg("Subscriber started")
//	logging.Ctx(ctx).Warn().Err(err).Msg("Template lookup failed")
//
// Context helpers attach the request id and notice id carried by a
// notification, so every log line emitted while a notice moves through the
// pipeline can be correlated:
//
//	ctx = logging.ContextWithRequestID(ctx, notice.RequestID)
//	ctx = logging.ContextWithNoticeID(ctx, notice.NoticeID.String())
//	logging.Ctx(ctx).Debug().Msg("Notice extracted")
//
// # Adapters
//
// Two third-party loggers are bridged onto the same sink:
//
//   - NewSlogLogger returns a *slog.Logger for sutureslog (supervisor events).
//   - NewWatermillLogger returns a watermill.LoggerAdapter for the NATS
//     publisher and subscribers.
//
// # Configuration
//
// Environment variables (via internal/config):
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: include caller file:line (default: false)
//
// Personal data (email addresses, phone numbers, tokens) must go through the
// Redact helpers before being logged.
package logging
