// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

/*
Package api exposes the feeds over HTTP using the Chi router.

Routes:

	GET       /api/feed?type=<feed>     cached feed, favourites first
	GET|POST  /api/cron/{action}        discover, verify or live (bearer secret)
	GET       /api/ws                   feed_updated push
	GET       /healthz                  liveness
	GET       /readyz                   readiness (database ping)
	GET       /metrics                  Prometheus

The feed route never fails because an upstream source is down: the
aggregator degrades that feed to an empty list. Errors use one envelope:

	{"success": false, "error": {"code": "VALIDATION_ERROR", "message": "..."}}

Cron failures are the exception and answer {"success": false, "error": "..."}
so schedulers can log the message verbatim.

Favourites are read from the "favorites" cookie, which may hold a JSON array
or a comma separated list, URL-encoded or not. They only reorder entries and
are never forwarded upstream.
*/
package api
