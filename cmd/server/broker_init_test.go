// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package main

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/herald/internal/config"
)

func embeddedConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := &config.Config{}
	cfg.NATS.EmbeddedServer = true
	cfg.NATS.Host = "127.0.0.1"
	cfg.NATS.Port = -1
	cfg.NATS.StoreDir = t.TempDir()
	cfg.NATS.NoticeStream = "NOTICES"
	cfg.NATS.DeliveryStream = "DELIVERY"
	cfg.NATS.StreamMaxAge = time.Hour
	cfg.NATS.DuplicateWindow = time.Minute
	cfg.NATS.Replicas = 1
	cfg.NATS.MaxReconnects = -1
	cfg.NATS.ReconnectWait = 100 * time.Millisecond
	cfg.NATS.ConnectTimeout = 5 * time.Second
	cfg.Pipeline.IngestSubject = "notice"
	cfg.Pipeline.SubjectPrefix = "delivery"
	return cfg
}

func TestInitBroker_Embedded(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bc, err := InitBroker(ctx, embeddedConfig(t))
	if err != nil {
		t.Fatalf("InitBroker: %v", err)
	}
	defer bc.Shutdown(context.Background())

	if err := bc.Ready(ctx); err != nil {
		t.Errorf("Ready: %v", err)
	}
	if bc.URL() == "" {
		t.Error("URL is empty")
	}

	for _, name := range []string{"NOTICES", "DELIVERY"} {
		if _, err := bc.js.Stream(ctx, name); err != nil {
			t.Errorf("stream %s: %v", name, err)
		}
	}

	// Both ingest lanes land in NOTICES.
	for _, subject := range []string{"notice", "notice.high"} {
		if _, err := bc.js.StreamNameBySubject(ctx, subject); err != nil {
			t.Errorf("no stream for %s: %v", subject, err)
		}
	}
}

func TestBrokerComponents_NilSafe(t *testing.T) {
	t.Parallel()

	var bc *BrokerComponents
	bc.Shutdown(context.Background())
	if err := bc.Ready(context.Background()); err == nil {
		t.Error("Ready on nil components should fail")
	}

	(&BrokerComponents{}).Shutdown(context.Background())
}
