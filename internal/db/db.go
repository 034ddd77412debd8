// Package db stores collections as JSON documents in SQLite and serves them
// as a polled DataSource.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"
)

// DefaultPollInterval is used when Options leaves it unset.
const DefaultPollInterval = 5 * time.Second

// pragmas run on every connection open. WAL lets the poller read while
// another process writes.
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA temp_store=MEMORY",
}

// Options configures Open.
type Options struct {
	Path string
	// PollInterval paces Subscribe. Writes made through this DB are pushed
	// to subscribers right away regardless.
	PollInterval time.Duration
}

// DB is a document store on top of one SQLite file.
type DB struct {
	*sql.DB
	path         string
	pollInterval time.Duration
	changes      *broadcaster
}

// Open creates the file and its directory if needed, then brings the schema
// up to date.
func Open(ctx context.Context, opts Options) (*DB, error) {
	if opts.Path == "" {
		return nil, errors.New("database path is empty")
	}
	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{
		DB:           sqlDB,
		path:         opts.Path,
		pollInterval: opts.PollInterval,
		changes:      newBroadcaster(),
	}
	if db.pollInterval <= 0 {
		db.pollInterval = DefaultPollInterval
	}

	if err := db.init(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) init(ctx context.Context) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("failed to execute %s: %w", p, err)
		}
	}
	if err := db.migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close checkpoints the WAL into the main file and closes the pool.
func (db *DB) Close() error {
	db.changes.close()
	_, _ = db.ExecContext(context.Background(), "PRAGMA wal_checkpoint(TRUNCATE)")
	return db.DB.Close()
}
