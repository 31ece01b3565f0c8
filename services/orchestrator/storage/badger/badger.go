// Copyright (C) 2025 Lantern Education (oss@lantern-ed.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badger wraps BadgerDB behind a small transactional API for the
// orchestrator's embedded caches.
package badger

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	dgbadger "github.com/dgraph-io/badger/v4"
)

// Config holds BadgerDB open options.
type Config struct {
	// Path is the database directory. Created if absent.
	Path string

	// InMemory runs the database without touching disk. For tests.
	InMemory bool
}

// DefaultConfig returns a Config suitable for a service-local cache.
func DefaultConfig() Config {
	return Config{}
}

// DB wraps a BadgerDB instance with context-aware transaction helpers.
//
// # Thread Safety
//
// Safe for concurrent use. BadgerDB transactions are per-goroutine.
type DB struct {
	db *dgbadger.DB
}

// OpenDB opens (or creates) a BadgerDB database.
//
// # Inputs
//
//   - cfg: Open options. Path is required unless InMemory is set.
//
// # Outputs
//
//   - *DB: Opened database. Caller owns the lifecycle and must Close it.
//   - error: Non-nil if the directory cannot be created or opened.
func OpenDB(cfg Config) (*DB, error) {
	var opts dgbadger.Options
	if cfg.InMemory {
		opts = dgbadger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("badger: path must not be empty")
		}
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("badger: create directory %s: %w", cfg.Path, err)
		}
		opts = dgbadger.DefaultOptions(cfg.Path)
	}
	// Badger's default logger writes to stderr outside slog; silence it and
	// let callers log at the cache layer instead.
	opts = opts.WithLogger(nil)

	db, err := dgbadger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open %s: %w", cfg.Path, err)
	}
	return &DB{db: db}, nil
}

// Close flushes and closes the database.
func (d *DB) Close() error {
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("badger: close: %w", err)
	}
	return nil
}

// WithTxn runs fn in a read-write transaction, committing on success.
// Returns the context error if ctx is already done.
func (d *DB) WithTxn(ctx context.Context, fn func(txn *dgbadger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.Update(fn)
}

// WithReadTxn runs fn in a read-only transaction.
// Returns the context error if ctx is already done.
func (d *DB) WithReadTxn(ctx context.Context, fn func(txn *dgbadger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.View(fn)
}

// RunGC runs one round of value log garbage collection. Badger returns an
// error when nothing was collected; that is reported as (false, nil).
func (d *DB) RunGC(discardRatio float64) (bool, error) {
	err := d.db.RunValueLogGC(discardRatio)
	if err == dgbadger.ErrNoRewrite {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("badger: value log GC: %w", err)
	}
	slog.Debug("badger value log GC rewrote a file")
	return true, nil
}
