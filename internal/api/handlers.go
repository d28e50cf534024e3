// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package api

import (
	"context"
	"time"

	"github.com/tomtom215/herald/internal/broker"
)

// DefaultExpiry is applied to notices published without expire_at.
const DefaultExpiry = 24 * time.Hour

// maxBodyBytes bounds a publish request body.
const maxBodyBytes = 8 << 20

// NoticePublisher puts notices on the broker.
type NoticePublisher interface {
	Publish(ctx context.Context, out broker.Outbound) error
}

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck func(ctx context.Context) error

// HandlerConfig configures the ingress handlers.
type HandlerConfig struct {
	// Subject is the ingest subject notices are published to.
	Subject       string
	DefaultExpiry time.Duration
}

// Handler serves the ingress API.
type Handler struct {
	publisher NoticePublisher
	cfg       HandlerConfig
	checks    map[string]ReadinessCheck
	startTime time.Time
	now       func() time.Time
}

// NewHandler creates a handler. checks are run by the readiness probe.
func NewHandler(pub NoticePublisher, cfg HandlerConfig, checks map[string]ReadinessCheck) *Handler {
	if cfg.DefaultExpiry <= 0 {
		cfg.DefaultExpiry = DefaultExpiry
	}
	return &Handler{
		publisher: pub,
		cfg:       cfg,
		checks:    checks,
		startTime: time.Now(),
		now:       time.Now,
	}
}
