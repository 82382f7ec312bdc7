// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

/*
Command runfeed serves the speedrun live feed API.

Runfeed aggregates live runs from PaceMan, Twitch streams and a YouTube video
catalogue for a set of registered players, caches the results per feed with
per-source TTLs, and pushes feed_updated notices to browsers over WebSocket.

# Commands

	runfeed [serve]                      run the HTTP server and background services
	runfeed refresh discover|verify|live run one refresh action and print its result
	runfeed users import <file.yaml>     create or update players from YAML
	runfeed users list                   list registered players
	runfeed version                      print version information

Every command except version loads configuration first.

# Supervisor Tree

	runfeed
	├── data-layer
	│   ├── cache-pruner
	│   └── refresh-discover, refresh-verify, refresh-live (refresh.internal)
	├── messaging-layer
	│   ├── websocket-hub
	│   ├── feed-invalidation
	│   └── websocket-push
	└── api-layer
	    └── http-server

# Configuration

Configuration is loaded via Koanf v2 (environment > config file > defaults).
Commonly set variables:

	HTTP_PORT=8080
	LOG_LEVEL=info
	DUCKDB_PATH=/data/runfeed.duckdb
	CACHE_PERSISTENT=duckdb          # duckdb, badger or memory
	TWITCH_CLIENT_ID / TWITCH_CLIENT_SECRET
	YOUTUBE_API_KEY
	CRON_SECRET=<token>              # empty disables the cron endpoints
	EVENTS_BACKEND=memory            # or nats (build with -tags nats)

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains for
server.shutdown_timeout, then the event bus, caches and database are closed.
*/
package main
