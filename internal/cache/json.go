// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/runfeed/internal/logging"
)

// Key joins parts into a namespaced cache key, lowercasing each part:
//
//	cache.Key("feed", "live-runs", "v1") // "feed:live-runs:v1"
func Key(parts ...string) string {
	clean := make([]string, len(parts))
	for i, p := range parts {
		clean[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(clean, ":")
}

// GetJSON reads key and decodes it into T.
//
// Returns ErrMiss for unknown or expired keys. A value that fails to decode
// is deleted and reported as ErrMalformedPayload wrapping the decode error;
// callers treat it like a miss.
func GetJSON[T any](ctx context.Context, s Store, key string) (T, Entry, error) {
	var out T

	entry, err := s.Get(ctx, key)
	if err != nil {
		return out, Entry{}, err
	}

	if err := json.Unmarshal(entry.Value, &out); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Str("tier", s.Name()).Msg("discarding malformed cached payload")
		if derr := s.Delete(ctx, key); derr != nil {
			logging.Ctx(ctx).Warn().Err(derr).Str("key", key).Msg("failed to delete malformed cache entry")
		}
		var zero T
		return zero, Entry{}, fmt.Errorf("%w: %s: %w", ErrMalformedPayload, key, err)
	}
	return out, entry, nil
}

// SetJSON encodes v and stores it under key for ttl.
func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data, ttl)
}

// IsMiss reports whether err means the caller should refetch.
func IsMiss(err error) bool {
	return errors.Is(err, ErrMiss) || errors.Is(err, ErrMalformedPayload)
}
