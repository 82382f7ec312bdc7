// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

/*
Package supervisor runs Runfeed's long-lived services under suture v4.

	RootSupervisor ("runfeed")
	├── DataSupervisor ("data-layer")
	│   ├── CachePruneService
	│   └── refresh tickers (discover, verify, live) when refresh.internal is set
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocketHubService
	│   ├── feed-invalidation consumer
	│   └── websocket-push consumer
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services restart with suture's backoff. Supervisor events are logged
through sutureslog, backed by the zerolog slog adapter in internal/logging.

Services return ctx.Err() on a normal stop. A service that returns any other
error is restarted; returning suture.ErrDoNotRestart stops it for good.
*/
package supervisor
