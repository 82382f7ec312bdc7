// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

/*
Package events carries cache invalidation notices between the refresh
actions and everything that holds feed state.

A refresh action publishes an Invalidation naming the feeds whose data
changed. Consumers react independently:

  - the feed invalidator drops the named entries from the local memory tier
    when the notice came from another instance
  - the websocket hub tells connected clients to refetch

Backends:

  - memory (default): watermill gochannel, process local
  - nats: watermill-nats over core NATS (JetStream disabled), shared by all
    instances; only available in binaries built with -tags=nats

Notices are hints. Losing one only delays a refetch until the TTL runs out.
*/
package events
