// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists config file locations in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/herald/config.yaml",
	"/etc/herald/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Roles:            append([]string(nil), AllRoles...),
			Environment:      "development",
			ShutdownTimeout:  10 * time.Second,
			FailureThreshold: 5,
			FailureBackoff:   15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		NATS: NATSConfig{
			URL:             "nats://127.0.0.1:4222",
			EmbeddedServer:  true,
			Host:            "127.0.0.1",
			Port:            4222,
			StoreDir:        "/data/herald/jetstream",
			MaxMemory:       256 << 20, // 256MB
			MaxStore:        4 << 30,   // 4GB
			NoticeStream:    "NOTICES",
			DeliveryStream:  "DELIVERY",
			StreamMaxAge:    7 * 24 * time.Hour,
			DuplicateWindow: 2 * time.Minute,
			Replicas:        1,
			MaxReconnects:   -1,
			ReconnectWait:   2 * time.Second,
			ConnectTimeout:  2 * time.Minute,
		},
		Pipeline: PipelineConfig{
			IngestSubject:  "notice",
			SubjectPrefix:  "delivery",
			Durable:        "herald-pipeline",
			FetchWait:      time.Second,
			IdleSleep:      100 * time.Millisecond,
			AckWait:        5 * time.Minute,
			FailureBackoff: 5 * time.Second,
			BatchSize:      100,
			MarkBuffer:     60 * time.Second,
		},
		Dedup: DedupConfig{
			Backend:        "badger",
			Path:           "/data/herald/marks",
			GCSchedule:     "@every 10m",
			GCDiscardRatio: 0.5,
			Bucket:         "herald_marks",
			BucketMaxAge:   30 * 24 * time.Hour,
		},
		Templates: TemplatesConfig{
			Driver:   "duckdb",
			DSN:      "/data/herald/templates.duckdb",
			Table:    "templates",
			CacheTTL: time.Minute,
		},
		Recipients: RecipientsConfig{
			URL:       "http://127.0.0.1:5000",
			Path:      "/auth/v1/userinfo",
			Secret:    "",
			Timeout:   10 * time.Second,
			RateLimit: 0, // Unlimited
			Burst:     10,
		},
		Email: EmailConfig{
			Subject:       "delivery.email",
			RetrySubject:  "delivery.email.retry",
			Durable:       "herald-email",
			QueueGroup:    "email-workers",
			MaxRetries:    3,
			RetryInterval: 5 * time.Second,
			WindowStart:   "09:00",
			WindowEnd:     "21:00",
			Provider:      "debug",
			From:          "noreply@example.com",
			SendGridURL:   "https://api.sendgrid.com/v3/mail/send",
			Timeout:       10 * time.Second,
		},
		Websocket: WebsocketConfig{
			Host:           "0.0.0.0",
			Port:           8888,
			Path:           "/ws",
			AuthTimeout:    10 * time.Second,
			Subject:        "delivery.websocket",
			SendBuffer:     16,
			AllowedOrigins: []string{},
		},
		API: APIConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			DefaultExpiry:   24 * time.Hour,
		},
	}
}

// LoadWithKoanf loads configuration with layered sources:
//  1. Defaults
//  2. Optional YAML config file
//  3. Environment variables
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"server.roles",
	"api.cors_origins",
	"websocket.allowed_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	"herald_roles":      "server.roles",
	"environment":       "server.environment",
	"shutdown_timeout":  "server.shutdown_timeout",
	"failure_threshold": "server.failure_threshold",
	"failure_backoff":   "server.failure_backoff",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"nats_url":              "nats.url",
	"nats_embedded":         "nats.embedded",
	"nats_host":             "nats.host",
	"nats_port":             "nats.port",
	"nats_store_dir":        "nats.store_dir",
	"nats_max_memory":       "nats.max_memory",
	"nats_max_store":        "nats.max_store",
	"nats_notice_stream":    "nats.notice_stream",
	"nats_delivery_stream":  "nats.delivery_stream",
	"nats_stream_max_age":   "nats.stream_max_age",
	"nats_replicas":         "nats.replicas",
	"nats_connect_timeout":  "nats.connect_timeout",
	"nats_verbose_logging":  "nats.verbose_logging",
	"nats_duplicate_window": "nats.duplicate_window",

	"pipeline_ingest_subject":  "pipeline.ingest_subject",
	"pipeline_subject_prefix":  "pipeline.subject_prefix",
	"pipeline_durable":         "pipeline.durable",
	"pipeline_fetch_wait":      "pipeline.fetch_wait",
	"pipeline_idle_sleep":      "pipeline.idle_sleep",
	"pipeline_ack_wait":        "pipeline.ack_wait",
	"pipeline_failure_backoff": "pipeline.failure_backoff",
	"pipeline_batch_size":      "pipeline.batch_size",
	"pipeline_mark_buffer":     "pipeline.mark_buffer",

	"dedup_backend":          "dedup.backend",
	"dedup_path":             "dedup.path",
	"dedup_gc_schedule":      "dedup.gc_schedule",
	"dedup_gc_discard_ratio": "dedup.gc_discard_ratio",
	"dedup_bucket":           "dedup.bucket",
	"dedup_bucket_max_age":   "dedup.bucket_max_age",

	"templates_driver":    "templates.driver",
	"templates_dsn":       "templates.dsn",
	"templates_table":     "templates.table",
	"templates_cache_ttl": "templates.cache_ttl",

	"auth_service_url":        "recipients.url",
	"auth_service_path":       "recipients.path",
	"auth_service_secret":     "recipients.secret",
	"auth_service_timeout":    "recipients.timeout",
	"auth_service_rate_limit": "recipients.rate_limit",
	"auth_service_burst":      "recipients.burst",

	"email_subject":        "email.subject",
	"email_retry_subject":  "email.retry_subject",
	"email_durable":        "email.durable",
	"email_queue_group":    "email.queue_group",
	"email_max_retries":    "email.max_retries",
	"email_retry_interval": "email.retry_interval",
	"email_window_start":   "email.window_start",
	"email_window_end":     "email.window_end",
	"email_provider":       "email.provider",
	"email_from":           "email.from",
	"sendgrid_api_key":     "email.sendgrid_api_key",
	"sendgrid_url":         "email.sendgrid_url",
	"email_timeout":        "email.timeout",

	"websocket_host":            "websocket.host",
	"websocket_port":            "websocket.port",
	"websocket_path":            "websocket.path",
	"websocket_jwt_secret":      "websocket.jwt_secret",
	"websocket_auth_timeout":    "websocket.auth_timeout",
	"websocket_subject":         "websocket.subject",
	"websocket_durable":         "websocket.durable",
	"websocket_send_buffer":     "websocket.send_buffer",
	"websocket_allowed_origins": "websocket.allowed_origins",

	"http_host":           "api.host",
	"http_port":           "api.port",
	"http_timeout":        "api.timeout",
	"cors_origins":        "api.cors_origins",
	"rate_limit_requests": "api.rate_limit_requests",
	"rate_limit_window":   "api.rate_limit_window",
	"disable_rate_limit":  "api.rate_limit_disabled",
	"default_expiry":      "api.default_expiry",
}

// envTransformFunc maps an environment variable name to a koanf path.
//
// Examples:
//   - NATS_URL -> nats.url
//   - AUTH_SERVICE_SECRET -> recipients.secret
//   - HTTP_PORT -> api.port
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
