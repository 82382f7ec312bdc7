// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

/*
Package models defines the data structures shared by the Runfeed packages.

Every feed entity is derived, replaceable state: the upstream source owns it
and Runfeed only holds a time-bounded replica in its caches.

Model Categories:

1. Feed Entities:
  - LiveRun: an in-progress PaceMan run with its split list
  - RecentPace: a completed or abandoned run from the PaceMan stats API
  - Stream: a channel that is live right now on Twitch
  - Video: a catalogued YouTube upload or broadcast

2. Local Users:
  - RegisteredUser: a player profile with linked channel handles
  - UserIndex: lowercase username to display identity, rebuilt per cache miss
  - FavoriteSet: caller favourites used only for ordering

3. API Envelope:
  - APIError and ErrorResponse: the error body every endpoint shares

JSON Marshaling:

Feed entities use camelCase field names because they are served unchanged to
the browser. Times are RFC3339. Optional values use omitempty.

Thread Safety:

Models are plain data. Feed slices read from the cache are copies, so callers
may reorder them freely.
*/
package models
