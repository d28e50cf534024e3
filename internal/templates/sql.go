// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package templates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	// SQL drivers selectable through TEMPLATES_DRIVER.
	_ "github.com/duckdb/duckdb-go/v2"
	_ "modernc.org/sqlite"

	"github.com/tomtom215/herald/internal/config"
	"github.com/tomtom215/herald/internal/logging"
)

// Drivers accepted by OpenSQLStore.
const (
	DriverDuckDB = "duckdb"
	DriverSQLite = "sqlite"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// SQLStore reads templates from a table with id, subject and body columns.
type SQLStore struct {
	db    *sql.DB
	table string
	owns  bool

	getQuery string
}

// OpenSQLStore opens cfg.DSN with cfg.Driver and waits, with exponential
// backoff for up to maxWait, until the template table answers a query.
func OpenSQLStore(ctx context.Context, cfg *config.TemplatesConfig, maxWait time.Duration) (*SQLStore, error) {
	if cfg.Driver != DriverDuckDB && cfg.Driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported template driver %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open template database: %w", err)
	}
	if cfg.Driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	store, err := NewSQLStore(db, cfg.Table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	store.owns = true

	if err := store.waitReady(ctx, maxWait); err != nil {
		_ = db.Close()
		return nil, err
	}

	logging.Info().Str("driver", cfg.Driver).Str("table", cfg.Table).Msg("template store ready")
	return store, nil
}

// NewSQLStore wraps an open database. Close leaves db open.
func NewSQLStore(db *sql.DB, table string) (*SQLStore, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid template table name %q", table)
	}
	return &SQLStore{
		db:       db,
		table:    table,
		getQuery: "SELECT subject, body FROM " + table + " WHERE CAST(id AS VARCHAR) = ?",
	}, nil
}

// waitReady checks the table, backing off between attempts.
func (s *SQLStore) waitReady(ctx context.Context, maxWait time.Duration) error {
	deadline := time.Now().Add(maxWait)
	delay := 100 * time.Millisecond

	for attempt := 1; ; attempt++ {
		err := s.Ping(ctx)
		if err == nil {
			return nil
		}
		if time.Now().Add(delay).After(deadline) {
			return fmt.Errorf("template store not ready after %d attempts: %w", attempt, err)
		}

		logging.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("template store not ready")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, 5*time.Second)
	}
}

// Ping verifies the connection and the template table.
func (s *SQLStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping template database: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, "SELECT id, subject, body FROM "+s.table+" LIMIT 1")
	if err != nil {
		return fmt.Errorf("query template table: %w", err)
	}
	return rows.Close()
}

// Get implements Store.
func (s *SQLStore) Get(ctx context.Context, id uuid.UUID) (*Template, error) {
	var subject, body string
	err := s.db.QueryRowContext(ctx, s.getQuery, id.String()).Scan(&subject, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query template %s: %w", id, err)
	}
	return Parse(id, subject, body)
}

// CreateSchema creates the template table if it does not exist.
func (s *SQLStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS "+s.table+
		" (id VARCHAR PRIMARY KEY, subject VARCHAR NOT NULL, body VARCHAR NOT NULL)")
	if err != nil {
		return fmt.Errorf("create template table: %w", err)
	}
	return nil
}

// Save inserts or replaces a template row.
func (s *SQLStore) Save(ctx context.Context, id uuid.UUID, subject, body string) error {
	if _, err := Parse(id, subject, body); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, "INSERT INTO "+s.table+" (id, subject, body) VALUES (?, ?, ?)"+
		" ON CONFLICT (id) DO UPDATE SET subject = excluded.subject, body = excluded.body",
		id.String(), subject, body)
	if err != nil {
		return fmt.Errorf("save template %s: %w", id, err)
	}
	return nil
}

// Close closes the database if the store opened it.
func (s *SQLStore) Close() error {
	if s.owns {
		return s.db.Close()
	}
	return nil
}
