// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package database

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/tomtom215/runfeed/internal/logging"
)

// ErrUserNotFound is returned when no registered user matches.
var ErrUserNotFound = errors.New("user not found")

// ErrClosed is returned by operations on a closed database.
var ErrClosed = errors.New("database is closed")

// closeWithLog closes a resource and logs any error.
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource, ignoring errors. Use only for cleanup on
// paths that already return an error.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

// isTransactionConflict checks if an error is a DuckDB write-write conflict.
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Transaction conflict") ||
		strings.Contains(msg, "Conflict on update") ||
		strings.Contains(msg, "Conflict on tuple deletion") ||
		strings.Contains(msg, "cannot update a table that has been altered")
}

// withConflictRetry runs fn, retrying with exponential backoff while DuckDB
// reports a transaction conflict.
func (db *DB) withConflictRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= db.conflictRetries; attempt++ {
		if attempt > 0 {
			delay := db.conflictDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err = fn(); !isTransactionConflict(err) {
			return err
		}
		logging.Ctx(ctx).Debug().Str("op", op).Int("attempt", attempt+1).Msg("Retrying after transaction conflict")
	}
	return err
}
