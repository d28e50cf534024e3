// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package broker

import (
	"time"

	"github.com/tomtom215/herald/internal/config"
)

// ConnConfig configures a NATS client connection.
type ConnConfig struct {
	URL            string
	Name           string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
}

// ConnConfigFrom derives connection settings from process configuration.
func ConnConfigFrom(cfg *config.NATSConfig, name string) ConnConfig {
	return ConnConfig{
		URL:            cfg.URL,
		Name:           name,
		MaxReconnects:  cfg.MaxReconnects,
		ReconnectWait:  cfg.ReconnectWait,
		ConnectTimeout: cfg.ConnectTimeout,
	}
}

// ServerConfig configures the embedded NATS server.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64

	// ReadyTimeout bounds startup. Zero means 30s.
	ReadyTimeout time.Duration
}

// ServerConfigFrom derives embedded server settings from process configuration.
func ServerConfigFrom(cfg *config.NATSConfig) ServerConfig {
	return ServerConfig{
		Host:              cfg.Host,
		Port:              cfg.Port,
		StoreDir:          cfg.StoreDir,
		JetStreamMaxMem:   cfg.MaxMemory,
		JetStreamMaxStore: cfg.MaxStore,
	}
}

// StreamConfig describes a JetStream stream Herald owns.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	DuplicateWindow time.Duration
	Replicas        int
}

// StreamsFrom returns the NOTICES and DELIVERY stream definitions. NOTICES
// carries both ingest lanes; the DELIVERY wildcard already covers the
// transport lanes.
func StreamsFrom(cfg *config.Config) []StreamConfig {
	return []StreamConfig{
		{
			Name:            cfg.NATS.NoticeStream,
			Subjects:        []string{cfg.Pipeline.IngestSubject, HighLane(cfg.Pipeline.IngestSubject)},
			MaxAge:          cfg.NATS.StreamMaxAge,
			MaxBytes:        -1,
			DuplicateWindow: cfg.NATS.DuplicateWindow,
			Replicas:        cfg.NATS.Replicas,
		},
		{
			Name:            cfg.NATS.DeliveryStream,
			Subjects:        []string{cfg.Pipeline.SubjectPrefix + ".>"},
			MaxAge:          cfg.NATS.StreamMaxAge,
			MaxBytes:        -1,
			DuplicateWindow: cfg.NATS.DuplicateWindow,
			Replicas:        cfg.NATS.Replicas,
		},
	}
}

// SubscriberConfig configures a watermill JetStream subscriber bound to an
// existing stream.
type SubscriberConfig struct {
	URL              string
	StreamName       string
	DurableName      string
	QueueGroup       string
	SubscribersCount int
	AckWaitTimeout   time.Duration
	MaxDeliver       int
	MaxAckPending    int
	CloseTimeout     time.Duration
	MaxReconnects    int
	ReconnectWait    time.Duration

	// DeliverAll replays stored messages on first subscription; otherwise
	// only new messages are delivered.
	DeliverAll bool

	// AckNone consumes fire-and-forget; the broker never redelivers.
	AckNone bool
}

// DefaultSubscriberConfig returns a single-flight subscriber configuration.
func DefaultSubscriberConfig(url, stream, durable string) SubscriberConfig {
	return SubscriberConfig{
		URL:              url,
		StreamName:       stream,
		DurableName:      durable,
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		MaxDeliver:       -1,
		MaxAckPending:    1,
		CloseTimeout:     30 * time.Second,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
		DeliverAll:       true,
	}
}

// PublisherConfig configures the watermill publisher.
type PublisherConfig struct {
	URL             string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectBuffer int
	TrackMsgID      bool
}

// DefaultPublisherConfig returns a publisher configuration with unlimited
// reconnects and message-id tracking.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:             url,
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		ReconnectBuffer: 8 * 1024 * 1024,
		TrackMsgID:      true,
	}
}

// CircuitBreakerConfig configures a gobreaker circuit breaker.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32        // Allowed in half-open state
	Interval         time.Duration // Reset interval for counts
	Timeout          time.Duration // Time to stay open
	FailureThreshold uint32        // Consecutive failures before opening
}

// DefaultCircuitBreakerConfig returns breaker defaults shared by all Herald
// outbound calls.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}
