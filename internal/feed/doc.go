// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

/*
Package feed builds the public feeds served at /api/feed.

An Aggregator owns one cache entry per feed type, shared by every caller.
On a miss it fans out to the source adapters and the user store, stores the
envelope with the TTL of the feed and returns it. Concurrent misses for the
same feed collapse into one build through singleflight.

Favourites never influence what is cached: they only reorder a copy of the
cached slice on the way out.

Upstream failures do not fail a read. The feed degrades to an empty result,
keeping the user index when it could be read, that is cached for the short
failure TTL so the next build is attempted soon. GetFeed reports how long
the entry it served from remains valid, and CacheControl never advertises
more than that:

	resp, remaining, err := agg.GetFeed(ctx, feed.TwitchStreams, favs)
	// err is only non-nil for an unknown feed type
	w.Header().Set("Cache-Control", agg.CacheControl(feed.TwitchStreams, remaining))
*/
package feed
