// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package feed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/runfeed/internal/cache"
	"github.com/tomtom215/runfeed/internal/config"
	"github.com/tomtom215/runfeed/internal/metrics"
	"github.com/tomtom215/runfeed/internal/models"
)

var errUpstream = errors.New("upstream down")

type fakeUsers struct {
	users []models.RegisteredUser
	err   error
	calls atomic.Int32
}

func (f *fakeUsers) ListUsers(context.Context) ([]models.RegisteredUser, error) {
	f.calls.Add(1)
	return f.users, f.err
}

type fakeRuns struct {
	runs  []models.LiveRun
	err   error
	calls atomic.Int32

	// gate, when set, blocks fetches until closed.
	gate    chan struct{}
	entered chan struct{}
	once    sync.Once
}

func (f *fakeRuns) FetchLiveRuns(ctx context.Context) ([]models.LiveRun, error) {
	f.calls.Add(1)
	if f.gate != nil {
		f.once.Do(func() { close(f.entered) })
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.runs, f.err
}

// FilterLiveRuns keeps registered players and enriches them, like the
// PaceMan adapter with unregistered runs excluded.
func (f *fakeRuns) FilterLiveRuns(runs []models.LiveRun, idx models.UserIndex) []models.LiveRun {
	out := make([]models.LiveRun, 0, len(runs))
	for _, r := range runs {
		u, ok := idx.Lookup(r.Nickname)
		if !ok {
			continue
		}
		r.Registered, r.DisplayName, r.AvatarURL = true, u.DisplayName, u.AvatarURL
		out = append(out, r)
	}
	return out
}

type fakePaces struct {
	mu     sync.Mutex
	calls  map[string]int
	paces  map[string][]models.RecentPace
	failOn map[string]bool
}

func (f *fakePaces) RecentPaces(_ context.Context, nickname string, _, _ int) ([]models.RecentPace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[nickname]++
	if f.failOn[nickname] {
		return nil, errUpstream
	}
	return f.paces[nickname], nil
}

func (f *fakePaces) callsFor(nickname string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[nickname]
}

func (f *fakePaces) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

type fakeStreams struct {
	streams []models.Stream
	err     error
	calls   atomic.Int32
}

func (f *fakeStreams) LiveStreams(context.Context, []models.RegisteredUser) ([]models.Stream, error) {
	f.calls.Add(1)
	return f.streams, f.err
}

type fakeVideos struct {
	videos     []models.Video
	broadcasts []models.Video
	err        error
	calls      atomic.Int32
}

func (f *fakeVideos) ListVideos(context.Context, int) ([]models.Video, error) {
	f.calls.Add(1)
	return f.videos, f.err
}

func (f *fakeVideos) ListBroadcasts(context.Context) ([]models.Video, error) {
	f.calls.Add(1)
	return f.broadcasts, f.err
}

func testFeedConfig() config.FeedConfig {
	return config.FeedConfig{
		LiveRunsTTL:            30 * time.Second,
		RecentPacesTTL:         time.Hour,
		TwitchStreamsTTL:       60 * time.Second,
		YouTubeVideosTTL:       10 * time.Minute,
		YouTubeLiveTTL:         60 * time.Second,
		FailureTTL:             10 * time.Second,
		VideosLimit:            50,
		RecentPacesConcurrency: 4,
	}
}

var testUsers = []models.RegisteredUser{
	{Username: "Steve", DisplayName: "Steve the Runner", AvatarURL: "https://cdn.example/steve.png"},
	{Username: "alex", DisplayName: "Alex"},
	{Username: "bob", DisplayName: "Bob"},
	{Username: "dana", DisplayName: "Dana"},
}

type harness struct {
	agg     *Aggregator
	memory  *cache.Memory
	users   *fakeUsers
	runs    *fakeRuns
	paces   *fakePaces
	streams *fakeStreams
	videos  *fakeVideos
}

// newHarness builds an aggregator whose persistent tier is the memory tier.
func newHarness(t *testing.T) *harness {
	t.Helper()
	h := newFakes()
	h.agg = newTestAggregator(t, h, Tiers{Memory: h.memory})
	return h
}

// newTieredHarness puts an in-memory badger store behind the memory tier
// for persistent feeds, as the badger cache backend does.
func newTieredHarness(t *testing.T) *harness {
	t.Helper()
	back, err := cache.OpenBadger("")
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	t.Cleanup(func() { _ = back.Close() })

	h := newFakes()
	h.agg = newTestAggregator(t, h, Tiers{Memory: h.memory, Persistent: cache.NewTiered(h.memory, back)})
	return h
}

func newFakes() *harness {
	return &harness{
		memory:  cache.NewMemory(0),
		users:   &fakeUsers{users: testUsers},
		runs:    &fakeRuns{},
		paces:   &fakePaces{},
		streams: &fakeStreams{},
		videos:  &fakeVideos{},
	}
}

func newTestAggregator(t *testing.T, h *harness, tiers Tiers) *Aggregator {
	t.Helper()
	agg := New(testFeedConfig(), config.PaceManConfig{RecentHours: 24, RecentLimit: 10}, tiers,
		Sources{Users: h.users, Videos: h.videos, Runs: h.runs, Paces: h.paces, Streams: h.streams})
	t.Cleanup(agg.Close)
	return agg
}

// sourceCalls counts adapter and store calls made by the aggregator.
type sourceCalls struct {
	Users, Runs, Paces, Streams, Videos int
}

func (h *harness) calls() sourceCalls {
	return sourceCalls{
		Users:   int(h.users.calls.Load()),
		Runs:    int(h.runs.calls.Load()),
		Paces:   h.paces.total(),
		Streams: int(h.streams.calls.Load()),
		Videos:  int(h.videos.calls.Load()),
	}
}

// failSources makes every feed data source fail. The user store keeps
// working.
func (h *harness) failSources() {
	h.runs.err = errUpstream
	h.streams.err = errUpstream
	h.videos.err = errUpstream
	h.paces.failOn = map[string]bool{}
	for _, u := range testUsers {
		h.paces.failOn[u.Username] = true
	}
}

func usersOf(t *testing.T, resp Response) models.UserIndex {
	t.Helper()
	switch f := resp.(type) {
	case LiveRunsFeed:
		return f.Users
	case RecentPacesFeed:
		return f.Users
	case TwitchStreamsFeed:
		return f.Users
	case YouTubeVideosFeed:
		return f.Users
	case YouTubeLiveFeed:
		return f.Users
	default:
		t.Fatalf("unexpected envelope %T", resp)
		return nil
	}
}

func runNames(runs []models.LiveRun) []string {
	names := make([]string, len(runs))
	for i, r := range runs {
		names[i] = r.Nickname
	}
	return names
}

func TestGetFeedCacheHitSkipsSources(t *testing.T) {
	t.Parallel()

	for _, ft := range Types() {
		for _, degraded := range []bool{false, true} {
			name := string(ft)
			if degraded {
				name += "/degraded"
			}
			t.Run(name, func(t *testing.T) {
				t.Parallel()

				h := newTieredHarness(t)
				h.runs.runs = []models.LiveRun{{Nickname: "Steve"}}
				h.streams.streams = []models.Stream{{ChannelID: "c1", Player: "Steve", ViewerCount: 5}}
				h.videos.videos = []models.Video{{VideoID: "v1"}}
				h.videos.broadcasts = []models.Video{{VideoID: "b1", LiveStatus: models.LiveStatusLive}}
				h.paces.paces = map[string][]models.RecentPace{"Steve": {{ID: 1, Nickname: "Steve"}}}
				if degraded {
					h.failSources()
				}
				ctx := context.Background()

				if _, _, err := h.agg.GetFeed(ctx, ft, nil); err != nil {
					t.Fatalf("GetFeed: %v", err)
				}
				built := h.calls()
				if built == (sourceCalls{}) {
					t.Fatal("first read did not build the feed")
				}

				for i := 0; i < 3; i++ {
					if _, _, err := h.agg.GetFeed(ctx, ft, models.NewFavoriteSet("steve")); err != nil {
						t.Fatalf("GetFeed: %v", err)
					}
				}
				if ft.persistent() {
					// Served from the badger tier and back-filled into memory.
					if err := h.memory.Delete(ctx, ft.CacheKey()); err != nil {
						t.Fatalf("Delete: %v", err)
					}
					if _, _, err := h.agg.GetFeed(ctx, ft, nil); err != nil {
						t.Fatalf("GetFeed: %v", err)
					}
					if _, err := h.memory.Get(ctx, ft.CacheKey()); err != nil {
						t.Errorf("persistent hit was not back-filled: %v", err)
					}
				}

				if diff := cmp.Diff(built, h.calls()); diff != "" {
					t.Errorf("cache hits called sources (-after build +after hits):\n%s", diff)
				}
			})
		}
	}
}

func TestGetFeedReportsRemainingLifetime(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.streams.err = errUpstream
	ctx := context.Background()

	_, remaining, err := h.agg.GetFeed(ctx, LiveRuns, nil)
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if remaining != 30*time.Second {
		t.Errorf("fresh build remaining = %v, want the feed TTL", remaining)
	}

	_, remaining, err = h.agg.GetFeed(ctx, TwitchStreams, nil)
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if remaining != 10*time.Second {
		t.Errorf("degraded build remaining = %v, want the failure TTL", remaining)
	}
	if got, want := h.agg.CacheControl(TwitchStreams, remaining), "public, s-maxage=10, stale-while-revalidate=20"; got != want {
		t.Errorf("degraded Cache-Control = %q, want %q", got, want)
	}

	h.agg.now = func() time.Time { return time.Now().Add(4 * time.Second) }
	_, remaining, err = h.agg.GetFeed(ctx, TwitchStreams, nil)
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if remaining <= 0 || remaining > 6*time.Second {
		t.Errorf("cached degraded entry remaining = %v, want at most 6s", remaining)
	}
}

func TestGetFeedDegradedKeepsUserIndex(t *testing.T) {
	t.Parallel()

	for _, ft := range Types() {
		t.Run(string(ft), func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			h.failSources()
			resp, _, err := h.agg.GetFeed(context.Background(), ft, nil)
			if err != nil {
				t.Fatalf("GetFeed: %v", err)
			}
			if resp.Len() != 0 {
				t.Errorf("degraded feed has %d items", resp.Len())
			}
			if _, ok := usersOf(t, resp).Lookup("steve"); !ok {
				t.Errorf("users index dropped: %v", usersOf(t, resp))
			}
		})
	}

	// Without the user store there is nothing to keep.
	h := newHarness(t)
	h.users.err = errUpstream
	resp, _, err := h.agg.GetFeed(context.Background(), LiveRuns, nil)
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if users := usersOf(t, resp); users == nil || len(users) != 0 {
		t.Errorf("users = %#v, want empty non-nil index", users)
	}
}

func TestGetFeedEnrichesRegisteredRuns(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.runs.runs = []models.LiveRun{{Nickname: "steve"}, {Nickname: "stranger"}}

	resp, _, _, err := h.agg.GetFeed(context.Background(), LiveRuns, nil)
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	feed := resp.(LiveRunsFeed)
	if len(feed.LiveRuns) != 1 {
		t.Fatalf("got %d runs, want 1", len(feed.LiveRuns))
	}
	if r := feed.LiveRuns[0]; !r.Registered || r.DisplayName != "Steve the Runner" || r.AvatarURL == "" {
		t.Errorf("run not enriched: %+v", r)
	}
	if _, ok := feed.Users["steve"]; !ok {
		t.Errorf("users index missing steve: %v", feed.Users)
	}
}

func TestGetFeedFavoritesFirst(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.runs.runs = []models.LiveRun{{Nickname: "alex"}, {Nickname: "bob"}, {Nickname: "Steve"}, {Nickname: "dana"}}
	ctx := context.Background()

	resp, _, _, err := h.agg.GetFeed(ctx, LiveRuns, models.NewFavoriteSet("ALEX", "steve"))
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if diff := cmp.Diff([]string{"alex", "Steve", "bob", "dana"}, runNames(resp.(LiveRunsFeed).LiveRuns)); diff != "" {
		t.Errorf("favourite order mismatch (-want +got):\n%s", diff)
	}

	// The shared cache entry keeps the upstream order.
	resp, _, err = h.agg.GetFeed(ctx, LiveRuns, nil)
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if diff := cmp.Diff([]string{"alex", "bob", "Steve", "dana"}, runNames(resp.(LiveRunsFeed).LiveRuns)); diff != "" {
		t.Errorf("cached order mismatch (-want +got):\n%s", diff)
	}
}

func TestGetFeedUpstreamFailureServesEmpty(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.streams.err = errUpstream
	ctx := context.Background()
	before := testutil.ToFloat64(metrics.FeedDegraded.WithLabelValues(string(TwitchStreams)))

	resp, _, _, err := h.agg.GetFeed(ctx, TwitchStreams, nil)
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	feed := resp.(TwitchStreamsFeed)
	if feed.LiveStreams == nil || len(feed.LiveStreams) != 0 {
		t.Errorf("want empty non-nil streams, got %#v", feed.LiveStreams)
	}

	entry, err := h.memory.Get(ctx, TwitchStreams.CacheKey())
	if err != nil {
		t.Fatalf("degraded result not cached: %v", err)
	}
	if remaining := time.Until(entry.ExpiresAt); remaining > 10*time.Second {
		t.Errorf("degraded entry lives %v, want at most the failure TTL", remaining)
	}
	if after := testutil.ToFloat64(metrics.FeedDegraded.WithLabelValues(string(TwitchStreams))); after < before+1 {
		t.Errorf("degraded counter did not increase: %v -> %v", before, after)
	}
}

func TestGetFeedTwitchDisabled(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.agg.src.Streams = nil
	ctx := context.Background()

	resp, _, _, err := h.agg.GetFeed(ctx, TwitchStreams, nil)
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if resp.Len() != 0 {
		t.Errorf("want empty feed, got %d items", resp.Len())
	}
	entry, err := h.memory.Get(ctx, TwitchStreams.CacheKey())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if remaining := time.Until(entry.ExpiresAt); remaining <= 10*time.Second {
		t.Errorf("disabled source is not a failure; entry lives only %v", remaining)
	}
}

func TestGetFeedConcurrentMissesCollapse(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.runs.runs = []models.LiveRun{{Nickname: "Steve"}}
	h.runs.gate = make(chan struct{})
	h.runs.entered = make(chan struct{})
	ctx := context.Background()

	const callers = 20
	var wg sync.WaitGroup
	results := make([]Response, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, _, _, err := h.agg.GetFeed(ctx, LiveRuns, nil)
			if err != nil {
				t.Errorf("GetFeed: %v", err)
				return
			}
			results[i] = resp
		}()
	}

	<-h.runs.entered
	time.Sleep(50 * time.Millisecond)
	close(h.runs.gate)
	wg.Wait()

	if got := h.runs.calls.Load(); got != 1 {
		t.Errorf("live run fetches = %d, want 1", got)
	}
	for i, r := range results {
		if r == nil || r.Len() != 1 {
			t.Errorf("caller %d got %v", i, r)
		}
	}
}

func TestGetFeedMalformedCacheEntryIsRebuilt(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.runs.runs = []models.LiveRun{{Nickname: "Steve"}}
	ctx := context.Background()

	if err := h.memory.Set(ctx, LiveRuns.CacheKey(), []byte(`{"liveRuns":`), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	resp, _, _, err := h.agg.GetFeed(ctx, LiveRuns, nil)
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if resp.Len() != 1 {
		t.Errorf("got %d runs, want 1", resp.Len())
	}
	if got := h.runs.calls.Load(); got != 1 {
		t.Errorf("fetches = %d, want 1", got)
	}
}

func TestGetFeedUnknownType(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	if _, _, err := h.agg.GetFeed(context.Background(), Type("tiktok"), nil); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestRecentPacesMergesNewestFirst(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	h.paces.paces = map[string][]models.RecentPace{
		"Steve": {{ID: 1, Nickname: "Steve", Time: base}},
		"bob":   {{ID: 2, Nickname: "bob", Time: base.Add(time.Hour)}},
		"dana":  {{ID: 3, Nickname: "dana", Time: base.Add(-time.Hour)}},
	}
	h.paces.failOn = map[string]bool{"alex": true}

	resp, _, _, err := h.agg.GetFeed(context.Background(), RecentPaces, nil)
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	got := resp.(RecentPacesFeed).RecentPaces
	ids := make([]int64, len(got))
	for i, p := range got {
		ids[i] = p.ID
	}
	if diff := cmp.Diff([]int64{2, 1, 3}, ids); diff != "" {
		t.Errorf("pace order mismatch (-want +got):\n%s", diff)
	}
	for _, u := range testUsers {
		if n := h.paces.callsFor(u.Username); n != 1 {
			t.Errorf("calls for %s = %d, want 1", u.Username, n)
		}
	}
}

func TestRecentPacesAllPlayersFailing(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.paces.failOn = map[string]bool{"Steve": true, "alex": true, "bob": true, "dana": true}

	if _, err := h.agg.build(context.Background(), RecentPaces); !errors.Is(err, errAllPlayersFailed) {
		t.Fatalf("expected errAllPlayersFailed, got %v", err)
	}
}

func TestRecentPacesRevalidatesInBackground(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	now := time.Now()
	var clock atomic.Int64
	clock.Store(now.UnixNano())
	h.agg.now = func() time.Time { return time.Unix(0, clock.Load()) }
	ctx := context.Background()

	if _, _, err := h.agg.GetFeed(ctx, RecentPaces, nil); err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if _, _, err := h.agg.GetFeed(ctx, RecentPaces, nil); err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if n := h.paces.callsFor("Steve"); n != 1 {
		t.Fatalf("fresh entry revalidated: calls = %d", n)
	}

	clock.Store(now.Add(40 * time.Minute).UnixNano())
	if _, _, err := h.agg.GetFeed(ctx, RecentPaces, nil); err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	h.agg.Close()

	if n := h.paces.callsFor("Steve"); n != 2 {
		t.Errorf("calls after revalidation = %d, want 2", n)
	}
}

func TestRefreshAndInvalidate(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.videos.broadcasts = []models.Video{{VideoID: "live1", LiveStatus: models.LiveStatusLive}}
	ctx := context.Background()

	if _, err := h.agg.Refresh(ctx, YouTubeLive); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	resp, _, _, err := h.agg.GetFeed(ctx, YouTubeLive, nil)
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if resp.Len() != 1 {
		t.Errorf("got %d live videos, want 1", resp.Len())
	}

	if err := h.agg.Invalidate(ctx, YouTubeLive, YouTubeVideos); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, err := h.memory.Get(ctx, YouTubeLive.CacheKey()); !errors.Is(err, cache.ErrMiss) {
		t.Errorf("entry survived invalidation: %v", err)
	}
}

func TestRefreshFailureKeepsEntry(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.videos.videos = []models.Video{{VideoID: "v1"}}
	ctx := context.Background()

	if _, err := h.agg.Refresh(ctx, YouTubeVideos); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	h.videos.err = errUpstream
	if _, err := h.agg.Refresh(ctx, YouTubeVideos); !errors.Is(err, errUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	resp, _, _, err := h.agg.GetFeed(ctx, YouTubeVideos, nil)
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if resp.Len() != 1 {
		t.Errorf("failed refresh clobbered the cached feed")
	}
}

func TestCacheControl(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	tests := []struct {
		feed Type
		want string
	}{
		{LiveRuns, "public, s-maxage=15, stale-while-revalidate=30"},
		{RecentPaces, "public, s-maxage=300, stale-while-revalidate=600"},
		{TwitchStreams, "public, s-maxage=60, stale-while-revalidate=120"},
		{YouTubeVideos, "public, s-maxage=300, stale-while-revalidate=600"},
		{YouTubeLive, "public, s-maxage=60, stale-while-revalidate=120"},
	}
	for _, tt := range tests {
		if got := h.agg.CacheControl(tt.feed, time.Hour); got != tt.want {
			t.Errorf("CacheControl(%s) = %q, want %q", tt.feed, got, tt.want)
		}
	}

	capped := []struct {
		feed      Type
		remaining time.Duration
		want      string
	}{
		{TwitchStreams, 10 * time.Second, "public, s-maxage=10, stale-while-revalidate=20"},
		{RecentPaces, 90*time.Second + 500*time.Millisecond, "public, s-maxage=90, stale-while-revalidate=180"},
		{LiveRuns, 0, "public, s-maxage=0, stale-while-revalidate=0"},
	}
	for _, tt := range capped {
		if got := h.agg.CacheControl(tt.feed, tt.remaining); got != tt.want {
			t.Errorf("CacheControl(%s, %v) = %q, want %q", tt.feed, tt.remaining, got, tt.want)
		}
	}

	h.agg.cfg.LiveRunsTTL = 5 * time.Second
	if got := h.agg.CacheControl(LiveRuns, time.Hour); got != "public, s-maxage=5, stale-while-revalidate=10" {
		t.Errorf("s-maxage should be capped by the TTL, got %q", got)
	}
}

func TestTwitchStreamsOrderIsStable(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.streams.streams = []models.Stream{
		{ChannelID: "c3", Player: "dana", ViewerCount: 40},
		{ChannelID: "c2", Player: "bob", ViewerCount: 90},
		{ChannelID: "c4", Player: "alex", ViewerCount: 40},
		{ChannelID: "c1", Player: "Steve", ViewerCount: 40},
	}

	resp, err := h.agg.build(context.Background(), TwitchStreams)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	var got []string
	for _, s := range resp.(TwitchStreamsFeed).LiveStreams {
		got = append(got, s.ChannelID)
	}
	if diff := cmp.Diff([]string{"c2", "c1", "c3", "c4"}, got); diff != "" {
		t.Errorf("stream order mismatch (-want +got):\n%s", diff)
	}
}
