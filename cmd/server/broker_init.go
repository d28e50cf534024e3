// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package main

import (
	"context"
	"errors"
	"fmt"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/herald/internal/broker"
	"github.com/tomtom215/herald/internal/config"
	"github.com/tomtom215/herald/internal/logging"
)

// BrokerComponents are the NATS resources shared by every role.
type BrokerComponents struct {
	server    *broker.EmbeddedServer
	conn      *natsgo.Conn
	js        jetstream.JetStream
	publisher *broker.StreamPublisher
	url       string
}

// InitBroker starts the embedded server when configured, connects, and makes
// sure Herald's streams exist.
func InitBroker(ctx context.Context, cfg *config.Config) (*BrokerComponents, error) {
	c := &BrokerComponents{url: cfg.NATS.URL}

	if cfg.NATS.EmbeddedServer {
		srv, err := broker.NewEmbeddedServer(broker.ServerConfigFrom(&cfg.NATS))
		if err != nil {
			return nil, err
		}
		c.server = srv
		c.url = srv.ClientURL()
		logging.Info().Str("url", c.url).Msg("embedded NATS server started")
	}

	connCfg := broker.ConnConfigFrom(&cfg.NATS, "herald")
	connCfg.URL = c.url
	nc, err := broker.Connect(ctx, connCfg)
	if err != nil {
		c.Shutdown(context.Background())
		return nil, err
	}
	c.conn = nc

	js, err := broker.NewJetStream(nc)
	if err != nil {
		c.Shutdown(context.Background())
		return nil, err
	}
	c.js = js

	if err := broker.EnsureStreams(ctx, js, broker.StreamsFrom(cfg)); err != nil {
		c.Shutdown(context.Background())
		return nil, fmt.Errorf("ensure streams: %w", err)
	}

	c.publisher = broker.NewStreamPublisher(js)
	return c, nil
}

// URL is the address watermill clients dial.
func (c *BrokerComponents) URL() string {
	return c.url
}

// Ready reports whether the shared connection is usable.
func (c *BrokerComponents) Ready(context.Context) error {
	if c == nil || c.conn == nil {
		return errors.New("not initialized")
	}
	if !c.conn.IsConnected() {
		return fmt.Errorf("NATS connection %s", c.conn.Status())
	}
	if c.server != nil {
		return c.server.Check()
	}
	return nil
}

// Shutdown drains the connection and stops the embedded server. It is safe
// on partially initialized components.
func (c *BrokerComponents) Shutdown(ctx context.Context) {
	if c == nil {
		return
	}
	if c.publisher != nil {
		_ = c.publisher.Close()
	}
	if c.conn != nil {
		if err := c.conn.Drain(); err != nil {
			logging.Warn().Err(err).Msg("NATS drain failed")
			c.conn.Close()
		}
	}
	if c.server != nil {
		if err := c.server.Shutdown(ctx); err != nil {
			logging.Warn().Err(err).Msg("embedded NATS shutdown failed")
		}
	}
}
