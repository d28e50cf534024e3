// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package config

import (
	"fmt"
	"slices"
	"time"
)

// Roles a Herald process can run. A single process may run several.
const (
	RolePipeline  = "pipeline"
	RoleEmail     = "email"
	RoleWebsocket = "websocket"
	RoleAPI       = "api"
)

// AllRoles lists every known role.
var AllRoles = []string{RolePipeline, RoleEmail, RoleWebsocket, RoleAPI}

// Config is the complete process configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	NATS       NATSConfig       `koanf:"nats"`
	Pipeline   PipelineConfig   `koanf:"pipeline"`
	Dedup      DedupConfig      `koanf:"dedup"`
	Templates  TemplatesConfig  `koanf:"templates"`
	Recipients RecipientsConfig `koanf:"recipients"`
	Email      EmailConfig      `koanf:"email"`
	Websocket  WebsocketConfig  `koanf:"websocket"`
	API        APIConfig        `koanf:"api"`
}

// ServerConfig controls process-level behaviour.
type ServerConfig struct {
	// Roles selects the components this process supervises.
	Roles []string `koanf:"roles"`

	// Environment is "development" or "production".
	Environment string `koanf:"environment"`

	// ShutdownTimeout bounds graceful stop of each supervisor layer.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// FailureThreshold and FailureBackoff tune suture restart behaviour.
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// NATSConfig holds broker connection and stream settings.
type NATSConfig struct {
	URL string `koanf:"url"`

	// EmbeddedServer starts an in-process nats-server with JetStream.
	EmbeddedServer bool   `koanf:"embedded"`
	Host           string `koanf:"host"`
	Port           int    `koanf:"port"`
	StoreDir       string `koanf:"store_dir"`
	MaxMemory      int64  `koanf:"max_memory"`
	MaxStore       int64  `koanf:"max_store"`

	NoticeStream    string        `koanf:"notice_stream"`
	DeliveryStream  string        `koanf:"delivery_stream"`
	StreamMaxAge    time.Duration `koanf:"stream_max_age"`
	DuplicateWindow time.Duration `koanf:"duplicate_window"`
	Replicas        int           `koanf:"replicas"`

	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`

	// ConnectTimeout is the max total wait for the broker at startup.
	ConnectTimeout time.Duration `koanf:"connect_timeout"`

	// VerboseLogging promotes watermill info logs from debug to info.
	VerboseLogging bool `koanf:"verbose_logging"`
}

// PipelineConfig tunes the extract/transform/load loop.
type PipelineConfig struct {
	IngestSubject  string        `koanf:"ingest_subject"`
	SubjectPrefix  string        `koanf:"subject_prefix"`
	Durable        string        `koanf:"durable"`
	FetchWait      time.Duration `koanf:"fetch_wait"`
	IdleSleep      time.Duration `koanf:"idle_sleep"`
	AckWait        time.Duration `koanf:"ack_wait"`
	FailureBackoff time.Duration `koanf:"failure_backoff"`
	BatchSize      int           `koanf:"batch_size"`
	MarkBuffer     time.Duration `koanf:"mark_buffer"`
}

// DedupConfig selects the delivery mark store.
type DedupConfig struct {
	// Backend is badger, nats or memory.
	Backend string `koanf:"backend"`

	// Path is the badger directory.
	Path string `koanf:"path"`

	// GCSchedule is a cron spec for badger value-log GC.
	GCSchedule     string  `koanf:"gc_schedule"`
	GCDiscardRatio float64 `koanf:"gc_discard_ratio"`

	// Bucket and BucketMaxAge configure the NATS key-value backend.
	Bucket       string        `koanf:"bucket"`
	BucketMaxAge time.Duration `koanf:"bucket_max_age"`
}

// TemplatesConfig configures the SQL template store.
type TemplatesConfig struct {
	// Driver is duckdb or sqlite.
	Driver   string        `koanf:"driver"`
	DSN      string        `koanf:"dsn"`
	Table    string        `koanf:"table"`
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// RecipientsConfig configures the auth service user-info client.
type RecipientsConfig struct {
	URL       string        `koanf:"url"`
	Path      string        `koanf:"path"`
	Secret    string        `koanf:"secret"`
	Timeout   time.Duration `koanf:"timeout"`
	RateLimit float64       `koanf:"rate_limit"`
	Burst     int           `koanf:"burst"`
}

// EmailConfig configures the email delivery worker.
type EmailConfig struct {
	Subject       string        `koanf:"subject"`
	RetrySubject  string        `koanf:"retry_subject"`
	Durable       string        `koanf:"durable"`
	QueueGroup    string        `koanf:"queue_group"`
	MaxRetries    int           `koanf:"max_retries"`
	RetryInterval time.Duration `koanf:"retry_interval"`

	// WindowStart and WindowEnd are local "HH:MM" bounds for low priority sends.
	WindowStart string `koanf:"window_start"`
	WindowEnd   string `koanf:"window_end"`

	// Provider is sendgrid or debug.
	Provider       string        `koanf:"provider"`
	From           string        `koanf:"from"`
	SendGridAPIKey string        `koanf:"sendgrid_api_key"`
	SendGridURL    string        `koanf:"sendgrid_url"`
	Timeout        time.Duration `koanf:"timeout"`
}

// WebsocketConfig configures the live-connection server.
type WebsocketConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Path        string        `koanf:"path"`
	JWTSecret   string        `koanf:"jwt_secret"`
	AuthTimeout time.Duration `koanf:"auth_timeout"`
	Subject     string        `koanf:"subject"`
	Durable     string        `koanf:"durable"`
	SendBuffer  int           `koanf:"send_buffer"`
	// AllowedOrigins restricts the Origin header; empty allows all.
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// APIConfig configures the ingress HTTP API.
type APIConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	Timeout           time.Duration `koanf:"timeout"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	// DefaultExpiry is applied when a publish request omits expire_at.
	DefaultExpiry time.Duration `koanf:"default_expiry"`
}

// Load reads configuration from defaults, optional YAML file and environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// HasRole reports whether role is enabled for this process.
func (c *Config) HasRole(role string) bool {
	return slices.Contains(c.Server.Roles, role)
}

// IsDevelopment reports whether the process runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "" || c.Server.Environment == "development"
}

// DeliverySubject returns the queue subject for a transport.
func (c *PipelineConfig) DeliverySubject(transport string) string {
	return fmt.Sprintf("%s.%s", c.SubjectPrefix, transport)
}

// Addr returns host:port for the websocket listener.
func (c *WebsocketConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Addr returns host:port for the ingress listener.
func (c *APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
