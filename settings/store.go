// Copyright 2025 The SmogMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package settings persists user preferences.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/smogmap/smogmap/airquality"
)

// DBFileName is the database file created under the configured db path.
const DBFileName = "smogmap.duckdb"

// KeySelectedDataSource holds the wire name of the preferred data source.
const KeySelectedDataSource = "selectedDataSource"

// ErrNotFound is returned by Get for unknown keys.
var ErrNotFound = errors.New("setting not found")

// Store reads and writes the preferred data source.
type Store interface {
	SelectedDataSource(ctx context.Context) (airquality.DataSource, error)
	SetSelectedDataSource(ctx context.Context, source airquality.DataSource) error
}

// Setting is a stored value.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	_ Store = (*DuckDBStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

// DuckDBStore keeps settings in a key-value table.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore creates a store on top of db. Call CreateSchema before use.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

// Open opens (creating it when needed) the database file under dbPath.
func Open(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(dbPath, 0o755); err != nil {
		return nil, fmt.Errorf("creating db path: %w", err)
	}

	dbpath := filepath.Join(dbPath, DBFileName)

	db, err := sql.Open("duckdb", dbpath)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", dbpath, err)
	}

	return db, nil
}

// CreateSchema creates the settings table.
func (s *DuckDBStore) CreateSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			key VARCHAR PRIMARY KEY,
			value VARCHAR NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)

	return err
}

// Get returns the setting stored under key.
func (s *DuckDBStore) Get(ctx context.Context, key string) (*Setting, error) {
	var setting Setting

	err := s.db.QueryRowContext(ctx,
		"SELECT key, value, updated_at FROM settings WHERE key = ?", key,
	).Scan(&setting.Key, &setting.Value, &setting.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if err != nil {
		return nil, fmt.Errorf("reading setting %s: %w", key, err)
	}

	return &setting, nil
}

// Set stores value under key, replacing any previous value.
func (s *DuckDBStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("writing setting %s: %w", key, err)
	}

	return nil
}

// SelectedDataSource returns the preferred source, SourceAll when nothing
// (or something unrecognized) is stored.
func (s *DuckDBStore) SelectedDataSource(ctx context.Context) (airquality.DataSource, error) {
	setting, err := s.Get(ctx, KeySelectedDataSource)
	if errors.Is(err, ErrNotFound) {
		return airquality.SourceAll, nil
	}

	if err != nil {
		return airquality.SourceAll, err
	}

	source := airquality.ParseDataSource(setting.Value)
	if source.String() != setting.Value {
		slog.Warn("unknown stored data source, using default", "value", setting.Value, "default", source)
	}

	return source, nil
}

// SetSelectedDataSource persists the preferred source.
func (s *DuckDBStore) SetSelectedDataSource(ctx context.Context, source airquality.DataSource) error {
	if !source.Valid() {
		return fmt.Errorf("invalid data source %d", int(source))
	}

	return s.Set(ctx, KeySelectedDataSource, source.String())
}

// MemoryStore keeps the preference in memory, for runs without a database.
type MemoryStore struct {
	mu     sync.Mutex
	source airquality.DataSource
}

// SelectedDataSource implements Store.
func (m *MemoryStore) SelectedDataSource(_ context.Context) (airquality.DataSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.source, nil
}

// SetSelectedDataSource implements Store.
func (m *MemoryStore) SetSelectedDataSource(_ context.Context, source airquality.DataSource) error {
	if !source.Valid() {
		return fmt.Errorf("invalid data source %d", int(source))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.source = source

	return nil
}
