// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

// Package database provides the DuckDB data layer for Runfeed.
//
// # Overview
//
// Three tables live in one DuckDB file:
//   - users: registered players and their linked Twitch/YouTube handles
//   - youtube_videos: the durable video catalogue kept by the refresh actions
//   - cache_entries: the persistent cache tier (see CacheStore)
//
// # Architecture
//
//   - database.go: lifecycle (open, pool, checkpoint, close)
//   - migrations.go: versioned schema migrations tracked in schema_migrations
//   - users.go: registered user queries
//   - videos.go: video catalogue upserts and lookups
//   - cache_store.go: cache.Store implementation over cache_entries
//   - errors.go: sentinel errors, close helpers, conflict retry
//
// # Concurrency
//
// DuckDB uses optimistic concurrency: two transactions writing the same row
// conflict and one fails. Writes that may race (cache upserts, video upserts)
// go through withConflictRetry, so the last writer wins instead of erroring.
//
// # Testing
//
// Tests open ":memory:" databases; no files are created.
package database
