// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/runfeed/internal/cache"
	"github.com/tomtom215/runfeed/internal/config"
	"github.com/tomtom215/runfeed/internal/logging"
	"github.com/tomtom215/runfeed/internal/metrics"
	"github.com/tomtom215/runfeed/internal/models"
)

// defaultBuildTimeout bounds one feed build. It is detached from the
// triggering request so a caller hanging up does not fail the builds
// shared with other callers.
const defaultBuildTimeout = 45 * time.Second

// UserStore lists registered users.
type UserStore interface {
	ListUsers(ctx context.Context) ([]models.RegisteredUser, error)
}

// VideoCatalog reads the durable YouTube catalogue.
type VideoCatalog interface {
	ListVideos(ctx context.Context, limit int) ([]models.Video, error)
	ListBroadcasts(ctx context.Context) ([]models.Video, error)
}

// LiveRunSource fetches live runs. Filtering is separate from fetching so
// the fetch can run alongside the user index build.
type LiveRunSource interface {
	FetchLiveRuns(ctx context.Context) ([]models.LiveRun, error)
	FilterLiveRuns(runs []models.LiveRun, registered models.UserIndex) []models.LiveRun
}

// PaceSource fetches the recent runs of one player.
type PaceSource interface {
	RecentPaces(ctx context.Context, nickname string, hours, limit int) ([]models.RecentPace, error)
}

// StreamSource lists who among users is live.
type StreamSource interface {
	LiveStreams(ctx context.Context, users []models.RegisteredUser) ([]models.Stream, error)
}

// Sources are the inputs of the aggregator. A nil Streams disables the
// twitch-streams feed, which then serves empty.
type Sources struct {
	Users   UserStore
	Videos  VideoCatalog
	Runs    LiveRunSource
	Paces   PaceSource
	Streams StreamSource
}

// Tiers are the cache stores feeds are written to. Persistent may be the
// same store as Memory.
type Tiers struct {
	Memory     cache.Store
	Persistent cache.Store
}

// Aggregator builds, caches and serves feeds.
type Aggregator struct {
	cfg          config.FeedConfig
	recentHours  int
	recentLimit  int
	tiers        Tiers
	src          Sources
	now          func() time.Time
	buildTimeout time.Duration

	group singleflight.Group

	// background revalidation
	bgCtx        context.Context
	bgCancel     context.CancelFunc
	bg           sync.WaitGroup
	revalidating sync.Map
}

// New creates an Aggregator.
func New(cfg config.FeedConfig, paceman config.PaceManConfig, tiers Tiers, src Sources) *Aggregator {
	if tiers.Persistent == nil {
		tiers.Persistent = tiers.Memory
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Aggregator{
		cfg:          cfg,
		recentHours:  paceman.RecentHours,
		recentLimit:  paceman.RecentLimit,
		tiers:        tiers,
		src:          src,
		now:          time.Now,
		buildTimeout: defaultBuildTimeout,
		bgCtx:        ctx,
		bgCancel:     cancel,
	}
}

// Close cancels background revalidations and waits for them to finish.
func (a *Aggregator) Close() {
	a.bgCancel()
	a.bg.Wait()
}

// TTL returns the cache lifetime of a successful build of t.
func (a *Aggregator) TTL(t Type) time.Duration {
	switch t {
	case LiveRuns:
		return a.cfg.LiveRunsTTL
	case RecentPaces:
		return a.cfg.RecentPacesTTL
	case TwitchStreams:
		return a.cfg.TwitchStreamsTTL
	case YouTubeVideos:
		return a.cfg.YouTubeVideosTTL
	case YouTubeLive:
		return a.cfg.YouTubeLiveTTL
	default:
		return 0
	}
}

// CacheControl returns the Cache-Control header value for t served from a
// cache entry with remaining lifetime. The shared max age never exceeds the
// feed TTL nor remaining.
func (a *Aggregator) CacheControl(t Type, remaining time.Duration) string {
	n := min(t.sMaxAge(), remaining)
	if ttl := a.TTL(t); ttl > 0 {
		n = min(n, ttl)
	}
	secs := max(int(n/time.Second), 0)
	return fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate=%d", secs, 2*secs)
}

func (a *Aggregator) store(t Type) cache.Store {
	if t.persistent() {
		return a.tiers.Persistent
	}
	return a.tiers.Memory
}

// GetFeed returns feed t ordered favourites-first for the caller, along
// with the remaining lifetime of the cache entry it was served from. It
// only fails for an unknown type; upstream trouble yields an empty feed
// cached for FailureTTL.
func (a *Aggregator) GetFeed(ctx context.Context, t Type, favs models.FavoriteSet) (Response, time.Duration, error) {
	if !t.Valid() {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}

	var remaining time.Duration
	resp, entry, err := a.read(ctx, t)
	switch {
	case err == nil:
		metrics.FeedRequests.WithLabelValues(string(t), "hit").Inc()
		remaining = entry.Remaining(a.now())
		if a.shouldRevalidate(t, remaining) {
			a.revalidate(t)
		}
	case cache.IsMiss(err):
		metrics.FeedRequests.WithLabelValues(string(t), "miss").Inc()
		resp, remaining = a.load(ctx, t)
	default:
		// A broken persistent tier must not break the read path.
		logging.Ctx(ctx).Warn().Err(err).Str("feed", string(t)).Msg("Feed cache read failed, rebuilding")
		metrics.FeedRequests.WithLabelValues(string(t), "error").Inc()
		resp, remaining = a.load(ctx, t)
	}

	return resp.withFavorites(favs), remaining, nil
}

// read decodes the cached envelope of t. A payload that fails to decode has
// already been deleted by cache.GetJSON and reads as a miss.
func (a *Aggregator) read(ctx context.Context, t Type) (Response, cache.Entry, error) {
	store, key := a.store(t), t.CacheKey()
	switch t {
	case LiveRuns:
		return readAs[LiveRunsFeed](ctx, store, key)
	case RecentPaces:
		return readAs[RecentPacesFeed](ctx, store, key)
	case TwitchStreams:
		return readAs[TwitchStreamsFeed](ctx, store, key)
	case YouTubeVideos:
		return readAs[YouTubeVideosFeed](ctx, store, key)
	case YouTubeLive:
		return readAs[YouTubeLiveFeed](ctx, store, key)
	default:
		return nil, cache.Entry{}, ErrUnknownType
	}
}

func readAs[T Response](ctx context.Context, store cache.Store, key string) (Response, cache.Entry, error) {
	v, entry, err := cache.GetJSON[T](ctx, store, key)
	if err != nil {
		return nil, entry, err
	}
	return v, entry, nil
}

// stored is a freshly built envelope and the TTL it was cached with.
type stored struct {
	resp Response
	ttl  time.Duration
}

// load builds t once for all concurrent callers.
func (a *Aggregator) load(ctx context.Context, t Type) (Response, time.Duration) {
	v, _, _ := a.group.Do(string(t), func() (any, error) {
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.buildTimeout)
		defer cancel()
		return a.buildAndStore(bctx, t), nil
	})
	s := v.(stored)
	return s.resp, s.ttl
}

// buildAndStore builds t and caches the result. A failed build is cached
// empty, keeping the user index when the build got that far, for
// FailureTTL.
func (a *Aggregator) buildAndStore(ctx context.Context, t Type) stored {
	start := time.Now()
	resp, err := a.build(ctx, t)
	ttl := a.TTL(t)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("feed", string(t)).Msg("Feed build failed, serving empty result")
		metrics.FeedDegraded.WithLabelValues(string(t)).Inc()
		if resp == nil {
			resp = Empty(t)
		}
		ttl = a.cfg.FailureTTL
	}
	metrics.FeedBuildDuration.WithLabelValues(string(t)).Observe(time.Since(start).Seconds())
	metrics.FeedItems.WithLabelValues(string(t)).Set(float64(resp.Len()))

	if err := cache.SetJSON(ctx, a.store(t), t.CacheKey(), resp, ttl); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("feed", string(t)).Msg("Failed to cache feed")
	}
	return stored{resp: resp, ttl: ttl}
}

// shouldRevalidate reports whether a hit on t with remaining lifetime is
// past half its TTL. Entries within FailureTTL of expiry, which includes
// every degraded entry, are left to expire and rebuild on the next miss.
func (a *Aggregator) shouldRevalidate(t Type, remaining time.Duration) bool {
	return t.revalidating() && remaining < a.TTL(t)/2 && remaining > a.cfg.FailureTTL
}

// revalidate rebuilds t in the background unless a rebuild is already
// running. Errors are only logged.
func (a *Aggregator) revalidate(t Type) {
	if _, running := a.revalidating.LoadOrStore(t, struct{}{}); running {
		return
	}
	if a.bgCtx.Err() != nil {
		a.revalidating.Delete(t)
		return
	}

	a.bg.Add(1)
	go func() {
		defer a.bg.Done()
		defer a.revalidating.Delete(t)

		ctx, cancel := context.WithTimeout(a.bgCtx, a.buildTimeout)
		defer cancel()
		if _, err := a.Refresh(ctx, t); err != nil && !errors.Is(err, context.Canceled) {
			logging.Warn().Err(err).Str("feed", string(t)).Msg("Background feed revalidation failed")
		}
	}()
}

// Refresh rebuilds t, overwrites its cache entry and returns the new
// envelope. Unlike a read, a failed build is returned and the existing
// entry is left alone.
func (a *Aggregator) Refresh(ctx context.Context, t Type) (Response, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	resp, err := a.build(ctx, t)
	if err != nil {
		// A partial envelope from a failed build is never written here.
		return nil, fmt.Errorf("refresh %s: %w", t, err)
	}
	metrics.FeedItems.WithLabelValues(string(t)).Set(float64(resp.Len()))
	if err := cache.SetJSON(ctx, a.store(t), t.CacheKey(), resp, a.TTL(t)); err != nil {
		return nil, fmt.Errorf("refresh %s: %w", t, err)
	}
	return resp, nil
}

// Invalidate deletes the cache entries of types.
func (a *Aggregator) Invalidate(ctx context.Context, types ...Type) error {
	var errs []error
	for _, t := range types {
		if !t.Valid() {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownType, t))
			continue
		}
		if err := a.store(t).Delete(ctx, t.CacheKey()); err != nil {
			errs = append(errs, fmt.Errorf("invalidate %s: %w", t, err))
		}
	}
	return errors.Join(errs...)
}
