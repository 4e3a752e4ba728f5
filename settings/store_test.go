// Copyright 2025 The SmogMap Authors
// SPDX-License-Identifier: Apache-2.0

package settings

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/smogmap/smogmap/airquality"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*sql.DB, *DuckDBStore) {
	t.Helper()

	db, err := sql.Open("duckdb", "") // In-memory database
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewDuckDBStore(db)
	require.NoError(t, store.CreateSchema())
	// CreateSchema is idempotent
	require.NoError(t, store.CreateSchema())

	return db, store
}

func TestSelectedDataSourceDefault(t *testing.T) {
	_, store := setupStore(t)

	got, err := store.SelectedDataSource(context.Background())
	require.NoError(t, err)
	assert.Equal(t, airquality.SourceAll, got)
}

func TestSetSelectedDataSource(t *testing.T) {
	_, store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetSelectedDataSource(ctx, airquality.SourceGIOS))
	got, err := store.SelectedDataSource(ctx)
	require.NoError(t, err)
	assert.Equal(t, airquality.SourceGIOS, got)

	require.NoError(t, store.SetSelectedDataSource(ctx, airquality.SourceSyngeos))
	got, err = store.SelectedDataSource(ctx)
	require.NoError(t, err)
	assert.Equal(t, airquality.SourceSyngeos, got)

	setting, err := store.Get(ctx, KeySelectedDataSource)
	require.NoError(t, err)
	assert.Equal(t, "SYNGEOS", setting.Value)
	assert.WithinDuration(t, time.Now().UTC(), setting.UpdatedAt, time.Minute)

	assert.Error(t, store.SetSelectedDataSource(ctx, airquality.DataSource(77)))
}

func TestSelectedDataSourceUnknownValue(t *testing.T) {
	db, store := setupStore(t)

	_, err := db.Exec("INSERT INTO settings (key, value) VALUES (?, ?)", KeySelectedDataSource, "AIRLY")
	require.NoError(t, err)

	got, err := store.SelectedDataSource(context.Background())
	require.NoError(t, err)
	assert.Equal(t, airquality.SourceAll, got)
}

func TestGetMissing(t *testing.T) {
	_, store := setupStore(t)

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir() + "/nested"

	db, err := Open(dir)
	require.NoError(t, err)
	defer db.Close()

	store := NewDuckDBStore(db)
	require.NoError(t, store.CreateSchema())
	require.NoError(t, store.SetSelectedDataSource(context.Background(), airquality.SourceLookO2))
	assert.FileExists(t, dir+"/"+DBFileName)
}

func TestMemoryStore(t *testing.T) {
	var store Store = &MemoryStore{}

	got, err := store.SelectedDataSource(context.Background())
	require.NoError(t, err)
	assert.Equal(t, airquality.SourceAll, got)

	require.NoError(t, store.SetSelectedDataSource(context.Background(), airquality.SourceOpenAQLT))
	got, _ = store.SelectedDataSource(context.Background())
	assert.Equal(t, airquality.SourceOpenAQLT, got)
}
