// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

// Package cache provides the TTL key/value stores that hold derived feed data.
//
// Every backend satisfies Store and shares one contract: a key read after its
// expiry behaves exactly like a key that was never written. Values are opaque
// bytes (JSON feed payloads in practice); writes are last-write-wins and
// atomic per key.
//
// Backends:
//
//   - Memory: process-local map, lost on restart.
//   - Badger: BadgerDB on disk or in memory, survives restarts.
//   - Tiered: Memory in front of any persistent Store.
//   - database.CacheStore (package database): DuckDB table.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get for unknown and expired keys alike.
var ErrMiss = errors.New("cache miss")

// ErrMalformedPayload reports a cached value that could not be decoded.
// Callers treat it as a miss and refetch.
var ErrMalformedPayload = errors.New("malformed cached payload")

// Entry is one cached value.
type Entry struct {
	Key       string
	Value     []byte
	ExpiresAt time.Time
}

// Expired reports whether the entry is past its expiry at now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Remaining returns the time left before expiry, never negative.
func (e Entry) Remaining(now time.Time) time.Duration {
	if d := e.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Store is the contract every cache backend implements.
type Store interface {
	// Get returns the live entry for key or ErrMiss.
	Get(ctx context.Context, key string) (Entry, error)

	// Set stores value under key for ttl. A non-positive ttl removes the key.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an unknown key is not an error.
	Delete(ctx context.Context, key string) error

	// Name identifies the backend in logs and metrics.
	Name() string
}

// Pruner is implemented by stores that can remove expired entries in bulk.
type Pruner interface {
	Prune(ctx context.Context) (int, error)
}

// Compile-time interface checks
var (
	_ Store  = (*Memory)(nil)
	_ Store  = (*Badger)(nil)
	_ Store  = (*Tiered)(nil)
	_ Pruner = (*Memory)(nil)
	_ Pruner = (*Badger)(nil)
	_ Pruner = (*Tiered)(nil)
)
