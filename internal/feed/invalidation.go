// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package feed

import (
	"context"

	"github.com/tomtom215/runfeed/internal/events"
	"github.com/tomtom215/runfeed/internal/logging"
)

// InvalidationHandler drops the cache entries named by notices from other
// instances. Notices from origin are ignored: the local refresh already
// rewrote or deleted those entries.
func (a *Aggregator) InvalidationHandler(origin string) events.Handler {
	return func(ctx context.Context, e events.Invalidation) error {
		if e.Origin == origin {
			return nil
		}
		types := make([]Type, 0, len(e.Feeds))
		for _, name := range e.Feeds {
			t, err := ParseType(name)
			if err != nil {
				logging.Ctx(ctx).Debug().Str("feed", name).Msg("Ignoring invalidation of unknown feed")
				continue
			}
			types = append(types, t)
		}
		return a.Invalidate(ctx, types...)
	}
}
