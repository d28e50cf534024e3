// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package broker

import (
	"context"
	"fmt"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/herald/internal/logging"
)

// Connect dials NATS and waits, with exponential backoff, until the
// connection is established or cfg.ConnectTimeout elapses.
func Connect(ctx context.Context, cfg ConnConfig) (*natsgo.Conn, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: NATS URL required", ErrInvalidConfig)
	}

	logger := logging.WithComponent("nats").With().Str("conn", cfg.Name).Logger()

	opts := []natsgo.Option{
		natsgo.Name(cfg.Name),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		natsgo.ErrorHandler(func(_ *natsgo.Conn, sub *natsgo.Subscription, err error) {
			ev := logger.Error().Err(err)
			if sub != nil {
				ev = ev.Str("subject", sub.Subject)
			}
			ev.Msg("NATS async error")
		}),
	}

	nc, err := natsgo.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, NewRetryableError("connect to NATS", err)
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	deadline := time.Now().Add(timeout)
	wait := 50 * time.Millisecond
	for !nc.IsConnected() {
		if time.Now().After(deadline) {
			nc.Close()
			return nil, NewRetryableError("connect to NATS", fmt.Errorf("not connected to %s after %v", cfg.URL, timeout))
		}
		logger.Debug().Dur("wait", wait).Msg("waiting for NATS connection")
		select {
		case <-ctx.Done():
			nc.Close()
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		wait = min(wait*2, 5*time.Second)
	}

	logger.Info().Str("url", nc.ConnectedUrl()).Msg("connected to NATS")
	return nc, nil
}

// NewJetStream returns a JetStream handle for nc.
func NewJetStream(nc *natsgo.Conn) (jetstream.JetStream, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	return js, nil
}
