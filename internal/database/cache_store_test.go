// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package database

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/runfeed/internal/cache"
	"github.com/tomtom215/runfeed/internal/cache/cachetest"
)

func TestCacheStoreContract(t *testing.T) {
	cachetest.RunStoreContract(t, func(t *testing.T, now func() time.Time) cache.Store {
		store := NewCacheStore(setupTestDB(t))
		store.now = now
		return store
	})
}

func TestCacheStoreSurvivesTiering(t *testing.T) {
	clock := cachetest.NewClock()
	back := NewCacheStore(setupTestDB(t))
	back.now = clock.Now
	ctx := context.Background()

	if err := back.Set(ctx, "feed:recent-paces:v1", []byte(`{"recentPaces":[]}`), time.Hour); err != nil {
		t.Fatal(err)
	}

	// A fresh memory tier, as after a restart, is filled from DuckDB.
	front := cache.NewMemory(0)
	defer front.Close()
	tiered := cache.NewTiered(front, back)

	payload, entry, err := cache.GetJSON[map[string][]int](ctx, tiered, "feed:recent-paces:v1")
	if err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if _, ok := payload["recentPaces"]; !ok {
		t.Errorf("payload = %v", payload)
	}
	if want := clock.Now().Add(time.Hour); !entry.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", entry.ExpiresAt, want)
	}
}
