// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

/*
Package sources contains the upstream adapters: PaceMan, Twitch Helix and the
YouTube Data API v3.

Each adapter owns one integration and normalizes its response into the types
in internal/models. Adapters never cache feed data; the only cached lookup is
channel resolution (ChannelResolver), which uses its own long TTL.

Error Handling:

  - Unreachable upstreams and non-2xx answers return *UpstreamError
  - A valid empty answer (nobody live) is success with an empty slice
  - Missing optional fields take defaults instead of failing the decode

Resilience:

Every adapter shares the same HTTP plumbing (httpClient):

  - http.Client timeout as the ceiling for each call
  - Outbound token bucket per source (golang.org/x/time/rate)
  - Circuit breaker per source (sony/gobreaker/v2); opens after at least
    10 requests with a 60% failure rate
  - HTTP 429 retried with Retry-After or exponential backoff
  - Error bodies read through a 64KB io.LimitReader
*/
package sources
