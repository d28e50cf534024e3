// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package dedup

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/tomtom215/herald/internal/logging"
)

// GarbageCollector is implemented by stores that need periodic compaction.
type GarbageCollector interface {
	RunGC(discardRatio float64) error
}

// GCScheduler runs value-log GC on a cron schedule. It is a supervised
// service.
type GCScheduler struct {
	store        GarbageCollector
	spec         string
	discardRatio float64
	parser       cron.Parser
}

// NewGCScheduler validates spec ("@every 10m", "0 3 * * *", ...) and returns
// a scheduler.
func NewGCScheduler(store GarbageCollector, spec string, discardRatio float64) (*GCScheduler, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(spec); err != nil {
		return nil, fmt.Errorf("invalid dedup gc schedule %q: %w", spec, err)
	}
	if discardRatio <= 0 || discardRatio >= 1 {
		return nil, fmt.Errorf("dedup gc discard ratio %v must be in (0, 1)", discardRatio)
	}
	return &GCScheduler{
		store:        store,
		spec:         spec,
		discardRatio: discardRatio,
		parser:       parser,
	}, nil
}

// Serve runs the schedule until ctx is cancelled and waits for a running GC
// pass to finish.
func (g *GCScheduler) Serve(ctx context.Context) error {
	c := cron.New(cron.WithParser(g.parser))
	if _, err := c.AddFunc(g.spec, g.run); err != nil {
		return fmt.Errorf("schedule dedup gc: %w", err)
	}
	c.Start()
	logging.Debug().Str("schedule", g.spec).Msg("dedup gc scheduled")

	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}

func (g *GCScheduler) run() {
	if err := g.store.RunGC(g.discardRatio); err != nil {
		logging.Warn().Err(err).Msg("dedup gc failed")
	}
}

func (g *GCScheduler) String() string {
	return "dedup-gc(" + g.spec + ")"
}
