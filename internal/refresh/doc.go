// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

/*
Package refresh keeps the YouTube catalogue and the hot feed caches warm
independently of request traffic.

Three actions exist, all safe to repeat and to overlap (the last write wins):

  - discover: list the latest uploads of every registered YouTube channel and
    upsert them into the catalogue
  - verify: re-check every catalogued video, drop the ones that are gone and
    prune expired persistent cache entries
  - live: refresh the live state of current and recent broadcasts, then
    rebuild the live feeds

Actions run through Runner.Run, which applies the timeout and records
metrics. They are triggered by the cron endpoints, by the CLI and, when
enabled, by a Ticker service per action. Each finished action publishes an
invalidation notice for the feeds it touched.
*/
package refresh
