// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/herald/internal/logging"
	"github.com/tomtom215/herald/internal/metrics"
)

// ControllerConfig holds loop timings.
type ControllerConfig struct {
	// IdleSleep is the pause after an empty fetch.
	IdleSleep time.Duration

	// FailureBackoff delays redelivery of a notice that failed.
	FailureBackoff time.Duration

	// AckWait is the consumer ack deadline; heartbeats are sent at half of it.
	AckWait time.Duration
}

// Controller drives Extract -> Transform -> Load, one notice at a time.
type Controller struct {
	source      Source
	transformer *Transformer
	loader      *Loader
	cfg         ControllerConfig
	stopped     atomic.Bool
}

// NewController wires the three stages.
func NewController(source Source, transformer *Transformer, loader *Loader, cfg ControllerConfig) *Controller {
	if cfg.IdleSleep <= 0 {
		cfg.IdleSleep = 100 * time.Millisecond
	}
	return &Controller{
		source:      source,
		transformer: transformer,
		loader:      loader,
		cfg:         cfg,
	}
}

// Run processes notices until Stop is called or ctx is cancelled. A notice
// in progress is always finished first.
func (c *Controller) Run(ctx context.Context) error {
	logging.Info().Msg("pipeline started")
	defer logging.Info().Msg("pipeline stopped")

	for !c.stopped.Load() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		d, err := c.source.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.Warn().Err(err).Msg("fetch failed")
			c.sleep(ctx, c.cfg.FailureBackoff)
			continue
		}
		if d == nil {
			c.sleep(ctx, c.cfg.IdleSleep)
			continue
		}

		c.handle(context.WithoutCancel(ctx), d)
	}
	return nil
}

// Serve adapts Run to a supervised service.
func (c *Controller) Serve(ctx context.Context) error {
	return c.Run(ctx)
}

// Stop makes Run return after the current notice.
func (c *Controller) Stop() {
	c.stopped.Store(true)
}

func (c *Controller) String() string {
	return "pipeline-controller"
}

// handle runs one notice to completion. It is detached from shutdown so a
// notice is never abandoned halfway; a failure naks it for redelivery.
func (c *Controller) handle(ctx context.Context, d *Delivery) {
	n := &d.Notice
	ctx = logging.ContextWithRequestID(ctx, n.XRequestID)
	ctx = logging.ContextWithNoticeID(ctx, n.NoticeID.String())
	log := logging.Ctx(ctx)

	start := time.Now()
	stopHeartbeat := c.heartbeat(d.Acker)
	queued, err := c.loader.Load(ctx, c.transformer.Transform(ctx, n))
	stopHeartbeat()

	if err != nil {
		metrics.RecordNotice("failed", time.Since(start))
		log.Error().Err(err).
			Int("queued", queued).
			Uint64("attempt", d.Attempt).
			Dur("retry_in", c.cfg.FailureBackoff).
			Msg("notice failed, will be redelivered")
		if nakErr := d.Acker.NakWithDelay(c.cfg.FailureBackoff); nakErr != nil {
			log.Warn().Err(nakErr).Msg("nak failed")
		}
		return
	}

	if err := d.Acker.Ack(); err != nil {
		// Unacked notices are redelivered; the marks make that a no-op.
		metrics.RecordNotice("ack_failed", time.Since(start))
		log.Warn().Err(err).Msg("ack failed")
		return
	}
	metrics.RecordNotice("processed", time.Since(start))
	log.Info().
		Int("queued", queued).
		Int("recipients", len(n.UsersID)).
		Str("transport", n.Transport.String()).
		Dur("duration", time.Since(start)).
		Msg("notice processed")
}

// heartbeat extends the ack deadline every AckWait/2 until the returned
// function is called.
func (c *Controller) heartbeat(acker Acker) func() {
	interval := c.cfg.AckWait / 2
	if interval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := acker.InProgress(); err != nil && !errors.Is(err, context.Canceled) {
					logging.Warn().Err(err).Msg("in-progress heartbeat failed")
				}
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}

func (c *Controller) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
