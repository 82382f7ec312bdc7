// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/runfeed/internal/cache"
	"github.com/tomtom215/runfeed/internal/metrics"
)

const duckdbTier = "duckdb"

// CacheStore is the persistent cache tier backed by the cache_entries table.
// Each Set is a single INSERT OR REPLACE in its own transaction, so a row
// is always either the old or the new value.
type CacheStore struct {
	db  *DB
	now func() time.Time
}

var (
	_ cache.Store  = (*CacheStore)(nil)
	_ cache.Pruner = (*CacheStore)(nil)
)

// NewCacheStore returns a cache.Store over db.
func NewCacheStore(db *DB) *CacheStore {
	return &CacheStore{db: db, now: time.Now}
}

// Name implements cache.Store.
func (s *CacheStore) Name() string { return duckdbTier }

// Get implements cache.Store. Rows past expires_at are invisible.
func (s *CacheStore) Get(ctx context.Context, key string) (cache.Entry, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	entry := cache.Entry{Key: key}
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT value, expires_at FROM cache_entries WHERE key = ? AND expires_at > ?`,
		key, s.now().UTC()).Scan(&entry.Value, &entry.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.CacheMisses.WithLabelValues(duckdbTier).Inc()
		return cache.Entry{}, cache.ErrMiss
	}
	if err != nil {
		return cache.Entry{}, fmt.Errorf("cache get %s: %w", key, err)
	}
	metrics.CacheHits.WithLabelValues(duckdbTier).Inc()
	return entry, nil
}

// Set implements cache.Store.
func (s *CacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return s.Delete(ctx, key)
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	now := s.now().UTC()
	expiresAt := now.Add(ttl)
	payload := make([]byte, len(value))
	copy(payload, value)

	err := s.db.withConflictRetry(ctx, "cache_set", func() error {
		tx, err := s.db.conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO cache_entries (key, value, expires_at, updated_at) VALUES (?, ?, ?, ?)`,
			key, payload, expiresAt, now); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete implements cache.Store.
func (s *CacheStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	err := s.db.withConflictRetry(ctx, "cache_delete", func() error {
		_, err := s.db.conn.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key)
		return err
	})
	if err != nil {
		return fmt.Errorf("cache delete %s: %w", key, err)
	}
	return nil
}

// Prune deletes expired rows and returns how many were removed.
func (s *CacheStore) Prune(ctx context.Context) (int, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var removed int
	err := s.db.withConflictRetry(ctx, "cache_prune", func() error {
		res, err := s.db.conn.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= ?`, s.now().UTC())
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		removed = int(n)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cache prune: %w", err)
	}
	metrics.CacheEvictions.WithLabelValues(duckdbTier).Add(float64(removed))

	var size int
	if err := s.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_entries`).Scan(&size); err == nil {
		metrics.CacheSize.WithLabelValues(duckdbTier).Set(float64(size))
	}
	return removed, nil
}
