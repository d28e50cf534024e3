// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()

	if len(cfg.Server.Roles) != len(AllRoles) {
		t.Errorf("Server.Roles = %v, want all roles", cfg.Server.Roles)
	}
	if cfg.Pipeline.IngestSubject != "notice" {
		t.Errorf("Pipeline.IngestSubject = %q, want notice", cfg.Pipeline.IngestSubject)
	}
	if cfg.Pipeline.BatchSize != 100 {
		t.Errorf("Pipeline.BatchSize = %d, want 100", cfg.Pipeline.BatchSize)
	}
	if cfg.Pipeline.MarkBuffer != 60*time.Second {
		t.Errorf("Pipeline.MarkBuffer = %v, want 60s", cfg.Pipeline.MarkBuffer)
	}
	if cfg.Email.MaxRetries != 3 {
		t.Errorf("Email.MaxRetries = %d, want 3", cfg.Email.MaxRetries)
	}
	if cfg.Email.RetryInterval != 5*time.Second {
		t.Errorf("Email.RetryInterval = %v, want 5s", cfg.Email.RetryInterval)
	}
	if cfg.Email.WindowStart != "09:00" || cfg.Email.WindowEnd != "21:00" {
		t.Errorf("Email window = %s-%s, want 09:00-21:00", cfg.Email.WindowStart, cfg.Email.WindowEnd)
	}
	if cfg.API.DefaultExpiry != 24*time.Hour {
		t.Errorf("API.DefaultExpiry = %v, want 24h", cfg.API.DefaultExpiry)
	}
	if cfg.Templates.Driver != "duckdb" {
		t.Errorf("Templates.Driver = %q, want duckdb", cfg.Templates.Driver)
	}
	if got := cfg.Pipeline.DeliverySubject("email"); got != "delivery.email" {
		t.Errorf("DeliverySubject(email) = %q", got)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected string
	}{
		{"NATS_URL", "nats.url"},
		{"HERALD_ROLES", "server.roles"},
		{"AUTH_SERVICE_URL", "recipients.url"},
		{"AUTH_SERVICE_SECRET", "recipients.secret"},
		{"SENDGRID_API_KEY", "email.sendgrid_api_key"},
		{"WEBSOCKET_JWT_SECRET", "websocket.jwt_secret"},
		{"HTTP_PORT", "api.port"},
		{"log_level", "logging.level"},
		{"PATH", ""},
		{"HOME", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := envTransformFunc(tt.input); got != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLoadWithKoanfEnvVars(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("WEBSOCKET_JWT_SECRET", testJWTSecret)
	t.Setenv("HERALD_ROLES", "pipeline, email")
	t.Setenv("NATS_URL", "nats://nats:4222")
	t.Setenv("EMAIL_MAX_RETRIES", "5")
	t.Setenv("PIPELINE_ACK_WAIT", "30s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if !cfg.HasRole(RolePipeline) || !cfg.HasRole(RoleEmail) || cfg.HasRole(RoleAPI) {
		t.Errorf("Server.Roles = %v, want [pipeline email]", cfg.Server.Roles)
	}
	if cfg.NATS.URL != "nats://nats:4222" {
		t.Errorf("NATS.URL = %q", cfg.NATS.URL)
	}
	if cfg.Email.MaxRetries != 5 {
		t.Errorf("Email.MaxRetries = %d, want 5", cfg.Email.MaxRetries)
	}
	if cfg.Pipeline.AckWait != 30*time.Second {
		t.Errorf("Pipeline.AckWait = %v, want 30s", cfg.Pipeline.AckWait)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadWithKoanfFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "herald.yaml")
	yaml := `
server:
  roles: [email]
email:
  provider: sendgrid
  sendgrid_api_key: SG.test
  window_start: "08:30"
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("EMAIL_WINDOW_END", "20:00")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Email.Provider != "sendgrid" {
		t.Errorf("Email.Provider = %q, want sendgrid", cfg.Email.Provider)
	}
	if cfg.Email.WindowStart != "08:30" {
		t.Errorf("Email.WindowStart = %q, want 08:30 from file", cfg.Email.WindowStart)
	}
	if cfg.Email.WindowEnd != "20:00" {
		t.Errorf("Email.WindowEnd = %q, want 20:00 from env", cfg.Email.WindowEnd)
	}
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	t.Setenv(ConfigPathEnvVar, "")
	if got := findConfigFile(); got != "" {
		t.Errorf("findConfigFile() = %q, want empty", got)
	}

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("x: 1"), 0o600); err != nil {
		t.Fatal(err)
	}
	if got := findConfigFile(); got != "config.yaml" {
		t.Errorf("findConfigFile() = %q, want config.yaml", got)
	}

	t.Setenv(ConfigPathEnvVar, "/non/existent.yaml")
	if got := findConfigFile(); got != "config.yaml" {
		t.Errorf("missing CONFIG_PATH should fall back, got %q", got)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Websocket.JWTSecret = testJWTSecret
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown role", func(c *Config) { c.Server.Roles = []string{"sms"} }, "unknown role"},
		{"no roles", func(c *Config) { c.Server.Roles = nil }, "at least one role"},
		{"short jwt secret", func(c *Config) { c.Websocket.JWTSecret = "short" }, "WEBSOCKET_JWT_SECRET"},
		{"jwt ignored without websocket role", func(c *Config) {
			c.Server.Roles = []string{RoleEmail}
			c.Websocket.JWTSecret = ""
		}, ""},
		{"bad dedup backend", func(c *Config) { c.Dedup.Backend = "redis" }, "DEDUP_BACKEND"},
		{"bad template driver", func(c *Config) { c.Templates.Driver = "postgres" }, "TEMPLATES_DRIVER"},
		{"bad auth url", func(c *Config) { c.Recipients.URL = "ftp://auth" }, "AUTH_SERVICE_URL"},
		{"sendgrid without key", func(c *Config) { c.Email.Provider = "sendgrid" }, "SENDGRID_API_KEY"},
		{"inverted window", func(c *Config) { c.Email.WindowStart = "22:00" }, "EMAIL_WINDOW_END"},
		{"bad clock", func(c *Config) { c.Email.WindowStart = "9am" }, "EMAIL_WINDOW_START"},
		{"zero batch", func(c *Config) { c.Pipeline.BatchSize = 0 }, "PIPELINE_BATCH_SIZE"},
		{"short mark buffer", func(c *Config) { c.Pipeline.MarkBuffer = 59 * time.Second }, "PIPELINE_MARK_BUFFER"},
		{"minimum mark buffer", func(c *Config) { c.Pipeline.MarkBuffer = 60 * time.Second }, ""},
		{"kv bucket shorter than stream", func(c *Config) {
			c.Dedup.Backend = "nats"
			c.Dedup.BucketMaxAge = 24 * time.Hour
		}, "DEDUP_BUCKET_MAX_AGE"},
		{"kv bucket matches stream", func(c *Config) {
			c.Dedup.Backend = "nats"
			c.Dedup.BucketMaxAge = c.NATS.StreamMaxAge
		}, ""},
		{"badger ignores bucket age", func(c *Config) { c.Dedup.BucketMaxAge = time.Hour }, ""},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
		{"rate limit disabled skips checks", func(c *Config) {
			c.API.RateLimitDisabled = true
			c.API.RateLimitReqs = 0
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	t.Parallel()

	got, err := ParseClock("09:30")
	if err != nil {
		t.Fatal(err)
	}
	if got != 9*time.Hour+30*time.Minute {
		t.Errorf("ParseClock(09:30) = %v", got)
	}
	if _, err := ParseClock("25:00"); err == nil {
		t.Error("ParseClock(25:00) should fail")
	}
}
