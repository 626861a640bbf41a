// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/churnwatch/internal/config"
	"github.com/tomtom215/churnwatch/internal/logging"
)

// DB wraps the DuckDB connection holding the retention tables.
type DB struct {
	conn *sql.DB
	cfg  *config.DataConfig

	mu     sync.RWMutex
	tables map[string]TableInfo
	mode   Mode

	// dataVersion increments on every successful Load or table replacement.
	dataVersion int64
}

// New opens DuckDB. An empty DuckDBPath keeps everything in memory, which is
// the normal setup since the tables are rebuilt from CSV on each start.
func New(cfg *config.DataConfig) (*DB, error) {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	if cfg.DuckDBPath != "" {
		dir := filepath.Dir(cfg.DuckDBPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "512MB"
	}

	// Extensions are not needed: read_csv_auto and COPY are built in.
	connStr := fmt.Sprintf("%s?threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.DuckDBPath, threads, maxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{
		conn:   conn,
		cfg:    cfg,
		tables: make(map[string]TableInfo),
		mode:   ModeNone,
	}
	db.configureConnectionPool()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	return db.conn.PingContext(ctx)
}

// Close closes the connection pool.
func (db *DB) Close() error {
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// Mode reports which retention data is available.
func (db *DB) Mode() Mode {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.mode
}

// DataVersion increments whenever table contents change.
func (db *DB) DataVersion() int64 {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.dataVersion
}

// Tables returns the loaded tables sorted by name.
func (db *DB) Tables() []TableInfo {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]TableInfo, 0, len(db.tables))
	for _, name := range allTables {
		if t, ok := db.tables[name]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Table returns one loaded table.
func (db *DB) Table(name string) (TableInfo, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	t, ok := db.tables[name]
	return t, ok
}

// ensureContext adds a 30-second timeout when ctx has no deadline.
func ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), 30*time.Second)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, 30*time.Second)
	}
	return ctx, func() {}
}

func logTables(tables []TableInfo, mode Mode) {
	for _, t := range tables {
		logging.Info().
			Str("table", t.Name).
			Str("source", t.Source).
			Int64("rows", t.Rows).
			Strs("columns", t.Columns).
			Msg("Loaded retention table")
	}
	logging.Info().Str("mode", string(mode)).Msg("Retention data ready")
}
