// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package feed

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/runfeed/internal/cache"
	"github.com/tomtom215/runfeed/internal/events"
	"github.com/tomtom215/runfeed/internal/models"
)

func TestInvalidationHandler(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.runs.runs = []models.LiveRun{{Nickname: "Steve"}}
	ctx := context.Background()
	handle := h.agg.InvalidationHandler("self")

	if _, _, err := h.agg.GetFeed(ctx, LiveRuns, nil); err != nil {
		t.Fatalf("GetFeed: %v", err)
	}

	if err := handle(ctx, events.Invalidation{Origin: "self", Feeds: []string{"live-runs"}}); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if _, err := h.memory.Get(ctx, LiveRuns.CacheKey()); err != nil {
		t.Fatalf("own notice should not invalidate: %v", err)
	}

	err := handle(ctx, events.Invalidation{Origin: "other", Feeds: []string{"live-runs", "bogus"}})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if _, err := h.memory.Get(ctx, LiveRuns.CacheKey()); !errors.Is(err, cache.ErrMiss) {
		t.Errorf("remote notice did not invalidate: %v", err)
	}
}
