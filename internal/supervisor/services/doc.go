// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

/*
Package services provides suture.Service wrappers for runfeed components.

Each wrapper translates a component's lifecycle (ListenAndServe, a run loop,
a ticker) into suture's context-aware Serve method and implements
fmt.Stringer so supervisor logs name the service.

# Available Services

HTTPServerService wraps *http.Server. Cancellation triggers Shutdown with a
configurable drain timeout; http.ErrServerClosed is not treated as a failure.

WebSocketHubService runs the websocket.Hub that pushes feed_updated messages.
All clients are closed when the hub stops.

CachePruneService periodically calls Prune on cache stores that keep expired
rows around, such as the DuckDB-backed store. Failures are logged and retried
on the next tick rather than restarting the service.

Refresh tickers and event consumers live in the refresh and events packages
and implement suture.Service directly.
*/
package services
