// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

/*
Package websocket pushes feed change notices to browsers.

A Hub owns the set of connected clients and fans broadcasts out to them. It
subscribes to the invalidation bus through InvalidationHandler, so every
notice becomes a message clients use to refetch:

	{"type":"feed_updated","data":{"feeds":["live-runs","youtube-live"]}}

Each Client runs two goroutines. readLoop reads client pings and answers
with a pong message; writeLoop drains the send buffer and pings the peer
every pingPeriod. Frames are encoded once per broadcast and shared by all
clients. A client whose buffer fills is dropped by the hub.

RunWithContext must be running, usually under the supervisor's
WebSocketHubService; Register blocks while it is not.
*/
package websocket
