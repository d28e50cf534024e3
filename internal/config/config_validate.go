// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

// Validate checks that the configuration is complete for the enabled roles.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateNATS(); err != nil {
		return err
	}
	if c.HasRole(RolePipeline) {
		if err := c.validatePipeline(); err != nil {
			return err
		}
	}
	if c.HasRole(RoleEmail) {
		if err := c.validateEmail(); err != nil {
			return err
		}
	}
	if c.HasRole(RoleWebsocket) {
		if err := c.validateWebsocket(); err != nil {
			return err
		}
	}
	if c.HasRole(RoleAPI) {
		if err := c.validateAPI(); err != nil {
			return err
		}
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if len(c.Server.Roles) == 0 {
		return fmt.Errorf("HERALD_ROLES must name at least one role")
	}
	for _, role := range c.Server.Roles {
		if !slices.Contains(AllRoles, role) {
			return fmt.Errorf("unknown role %q (valid: %s)", role, strings.Join(AllRoles, ", "))
		}
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateNATS() error {
	if c.NATS.URL == "" && !c.NATS.EmbeddedServer {
		return fmt.Errorf("NATS_URL is required when the embedded server is disabled")
	}
	if c.NATS.NoticeStream == "" || c.NATS.DeliveryStream == "" {
		return fmt.Errorf("stream names must not be empty")
	}
	if c.NATS.StreamMaxAge <= 0 {
		return fmt.Errorf("NATS_STREAM_MAX_AGE must be positive")
	}
	if c.NATS.EmbeddedServer {
		if c.NATS.StoreDir == "" {
			return fmt.Errorf("NATS_STORE_DIR is required for the embedded server")
		}
		if c.NATS.MaxMemory <= 0 || c.NATS.MaxStore <= 0 {
			return fmt.Errorf("NATS_MAX_MEMORY and NATS_MAX_STORE must be positive")
		}
	}
	return nil
}

// minMarkBuffer is the least time a mark outlives its message.
const minMarkBuffer = 60 * time.Second

func (c *Config) validatePipeline() error {
	if c.Pipeline.IngestSubject == "" || c.Pipeline.SubjectPrefix == "" {
		return fmt.Errorf("pipeline subjects must not be empty")
	}
	if c.Pipeline.Durable == "" {
		return fmt.Errorf("PIPELINE_DURABLE must not be empty")
	}
	if c.Pipeline.BatchSize < 1 {
		return fmt.Errorf("PIPELINE_BATCH_SIZE must be at least 1, got %d", c.Pipeline.BatchSize)
	}
	if c.Pipeline.AckWait < 2*time.Second {
		return fmt.Errorf("PIPELINE_ACK_WAIT must be at least 2s, got %v", c.Pipeline.AckWait)
	}
	if c.Pipeline.FetchWait <= 0 {
		return fmt.Errorf("PIPELINE_FETCH_WAIT must be positive")
	}
	if c.Pipeline.MarkBuffer < minMarkBuffer {
		return fmt.Errorf("PIPELINE_MARK_BUFFER must be at least %v, got %v", minMarkBuffer, c.Pipeline.MarkBuffer)
	}
	if err := c.validateDedup(); err != nil {
		return err
	}
	if err := c.validateTemplates(); err != nil {
		return err
	}
	return c.validateRecipients()
}

func (c *Config) validateDedup() error {
	switch c.Dedup.Backend {
	case "badger":
		if c.Dedup.Path == "" {
			return fmt.Errorf("DEDUP_PATH is required for the badger backend")
		}
		if c.Dedup.GCDiscardRatio <= 0 || c.Dedup.GCDiscardRatio >= 1 {
			return fmt.Errorf("DEDUP_GC_DISCARD_RATIO must be in (0, 1), got %v", c.Dedup.GCDiscardRatio)
		}
	case "nats":
		if c.Dedup.Bucket == "" {
			return fmt.Errorf("DEDUP_BUCKET is required for the nats backend")
		}
		// Marks must outlive any message still retained in the streams.
		if c.Dedup.BucketMaxAge < c.NATS.StreamMaxAge {
			return fmt.Errorf("DEDUP_BUCKET_MAX_AGE (%v) must be at least NATS_STREAM_MAX_AGE (%v)",
				c.Dedup.BucketMaxAge, c.NATS.StreamMaxAge)
		}
	case "memory":
	default:
		return fmt.Errorf("DEDUP_BACKEND must be badger, nats or memory, got %q", c.Dedup.Backend)
	}
	return nil
}

func (c *Config) validateTemplates() error {
	switch c.Templates.Driver {
	case "duckdb", "sqlite":
	default:
		return fmt.Errorf("TEMPLATES_DRIVER must be duckdb or sqlite, got %q", c.Templates.Driver)
	}
	if c.Templates.Table == "" {
		return fmt.Errorf("TEMPLATES_TABLE must not be empty")
	}
	return nil
}

func (c *Config) validateRecipients() error {
	if c.Recipients.URL == "" {
		return fmt.Errorf("AUTH_SERVICE_URL is required for the pipeline role")
	}
	if err := validateHTTPURL(c.Recipients.URL); err != nil {
		return fmt.Errorf("AUTH_SERVICE_URL: %w", err)
	}
	if c.Recipients.RateLimit < 0 {
		return fmt.Errorf("AUTH_SERVICE_RATE_LIMIT must not be negative")
	}
	return nil
}

func (c *Config) validateEmail() error {
	if c.Email.Subject == "" || c.Email.RetrySubject == "" {
		return fmt.Errorf("email subjects must not be empty")
	}
	if c.Email.MaxRetries < 0 {
		return fmt.Errorf("EMAIL_MAX_RETRIES must not be negative")
	}
	if c.Email.RetryInterval <= 0 {
		return fmt.Errorf("EMAIL_RETRY_INTERVAL must be positive")
	}
	start, err := ParseClock(c.Email.WindowStart)
	if err != nil {
		return fmt.Errorf("EMAIL_WINDOW_START: %w", err)
	}
	end, err := ParseClock(c.Email.WindowEnd)
	if err != nil {
		return fmt.Errorf("EMAIL_WINDOW_END: %w", err)
	}
	if end <= start {
		return fmt.Errorf("EMAIL_WINDOW_END must be after EMAIL_WINDOW_START")
	}
	switch c.Email.Provider {
	case "debug":
	case "sendgrid":
		if c.Email.SendGridAPIKey == "" {
			return fmt.Errorf("SENDGRID_API_KEY is required for the sendgrid provider")
		}
		if err := validateHTTPURL(c.Email.SendGridURL); err != nil {
			return fmt.Errorf("SENDGRID_URL: %w", err)
		}
	default:
		return fmt.Errorf("EMAIL_PROVIDER must be sendgrid or debug, got %q", c.Email.Provider)
	}
	if c.Email.From == "" {
		return fmt.Errorf("EMAIL_FROM is required")
	}
	return nil
}

func (c *Config) validateWebsocket() error {
	if len(c.Websocket.JWTSecret) < 32 {
		return fmt.Errorf("WEBSOCKET_JWT_SECRET must be at least 32 characters")
	}
	if c.Websocket.Port < 1 || c.Websocket.Port > 65535 {
		return fmt.Errorf("WEBSOCKET_PORT must be between 1 and 65535, got %d", c.Websocket.Port)
	}
	if c.Websocket.AuthTimeout <= 0 {
		return fmt.Errorf("WEBSOCKET_AUTH_TIMEOUT must be positive")
	}
	if c.Websocket.SendBuffer < 1 {
		return fmt.Errorf("WEBSOCKET_SEND_BUFFER must be at least 1")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.API.Port)
	}
	if c.API.DefaultExpiry <= 0 {
		return fmt.Errorf("DEFAULT_EXPIRY must be positive")
	}
	if !c.API.RateLimitDisabled {
		if c.API.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
		}
		if c.API.RateLimitWindow < time.Second {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s")
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error; got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

// ParseClock parses "HH:MM" into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q, want HH:MM", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
