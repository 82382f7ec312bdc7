// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package services

import (
	"context"
	"time"

	"github.com/tomtom215/runfeed/internal/cache"
	"github.com/tomtom215/runfeed/internal/logging"
)

// CachePruneService periodically removes expired entries from a store that
// does not expire them on its own, such as the DuckDB cache table.
type CachePruneService struct {
	pruner   cache.Pruner
	interval time.Duration
	name     string
}

// NewCachePruneService creates a pruning service. A non-positive interval
// falls back to ten minutes.
func NewCachePruneService(pruner cache.Pruner, interval time.Duration) *CachePruneService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &CachePruneService{
		pruner:   pruner,
		interval: interval,
		name:     "cache-pruner",
	}
}

// Serve implements suture.Service. Prune failures are logged and retried on
// the next tick.
func (p *CachePruneService) Serve(ctx context.Context) error {
	logger := logging.WithComponent(p.name)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			removed, err := p.pruner.Prune(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("Cache prune failed")
				continue
			}
			if removed > 0 {
				logger.Debug().Int("removed", removed).Msg("Pruned expired cache entries")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (p *CachePruneService) String() string {
	return p.name
}
