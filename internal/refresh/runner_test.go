// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tomtom215/runfeed/internal/config"
	"github.com/tomtom215/runfeed/internal/database"
	"github.com/tomtom215/runfeed/internal/feed"
	"github.com/tomtom215/runfeed/internal/models"
	"github.com/tomtom215/runfeed/internal/sources"
)

var errYouTube = errors.New("youtube down")

var epoch = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

type fakeChannels struct {
	channels []sources.YouTubeChannel
}

func (f *fakeChannels) YouTubeChannels(context.Context, []models.RegisteredUser) ([]sources.YouTubeChannel, error) {
	return f.channels, nil
}

type fakeYouTube struct {
	mu          sync.Mutex
	uploads     map[string][]models.Video
	details     map[string]models.Video
	uploadsErr  map[string]error
	detailsErr  error
	detailCalls int
}

func (f *fakeYouTube) RecentUploads(_ context.Context, playlistID string, _ int) ([]models.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.uploadsErr[playlistID]; err != nil {
		return nil, err
	}
	out := make([]models.Video, len(f.uploads[playlistID]))
	copy(out, f.uploads[playlistID])
	return out, nil
}

func (f *fakeYouTube) VideoDetails(_ context.Context, ids []string) ([]models.Video, []string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls++
	if f.detailsErr != nil {
		return nil, nil, f.detailsErr
	}
	var found []models.Video
	var missing []string
	for _, id := range ids {
		if v, ok := f.details[id]; ok {
			found = append(found, v)
		} else {
			missing = append(missing, id)
		}
	}
	return found, missing, nil
}

type fakeFeeds struct {
	mu          sync.Mutex
	refreshed   []feed.Type
	invalidated []feed.Type
	failOn      map[feed.Type]bool
}

func (f *fakeFeeds) Refresh(_ context.Context, t feed.Type) (feed.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[t] {
		return nil, errors.New("rebuild failed")
	}
	f.refreshed = append(f.refreshed, t)
	switch t {
	case feed.TwitchStreams:
		return feed.TwitchStreamsFeed{LiveStreams: []models.Stream{{ChannelLogin: "a"}, {ChannelLogin: "b"}}}, nil
	case feed.LiveRuns:
		return feed.LiveRunsFeed{LiveRuns: []models.LiveRun{{Nickname: "steve"}}}, nil
	default:
		return feed.Empty(t), nil
	}
}

func (f *fakeFeeds) Invalidate(_ context.Context, types ...feed.Type) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, types...)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events [][]string
}

func (f *fakePublisher) Publish(_ context.Context, source string, feeds ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, append([]string{source}, feeds...))
	return nil
}

type fakePruner struct{ calls atomic.Int32 }

func (f *fakePruner) Prune(context.Context) (int, error) {
	f.calls.Add(1)
	return 3, nil
}

type fixture struct {
	db        *database.DB
	runner    *Runner
	youtube   *fakeYouTube
	feeds     *fakeFeeds
	publisher *fakePublisher
	pruner    *fakePruner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.New(&config.DatabaseConfig{Path: database.MemoryPath, MaxMemory: "256MB", Threads: 1})
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.UpsertUser(context.Background(), &models.RegisteredUser{Username: "steve", YouTubeHandle: "@stevettv"}); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}

	f := &fixture{
		db: db,
		youtube: &fakeYouTube{
			uploads: map[string][]models.Video{
				"UU-steve": {
					{VideoID: "v1", Title: "PB", PublishedAt: epoch},
					{VideoID: "v2", Title: "Reset spam", PublishedAt: epoch.Add(time.Hour)},
				},
			},
			details: map[string]models.Video{},
		},
		feeds:     &fakeFeeds{},
		publisher: &fakePublisher{},
		pruner:    &fakePruner{},
	}
	f.runner = NewRunner(
		config.RefreshConfig{Timeout: 30 * time.Second},
		config.YouTubeConfig{UploadsPerChannel: 15},
		Deps{
			Catalog: db,
			Channels: &fakeChannels{channels: []sources.YouTubeChannel{
				{Player: "steve", Handle: "stevettv", Channel: sources.Channel{ID: "UC-steve", UploadsPlaylistID: "UU-steve"}},
			}},
			Videos:    f.youtube,
			Feeds:     f.feeds,
			Pruner:    f.pruner,
			Publisher: f.publisher,
		},
	)
	f.runner.now = func() time.Time { return epoch.Add(2 * time.Hour) }
	return f
}

func TestDiscoverIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.runner.Discover(ctx)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if diff := cmp.Diff(DiscoverResult{Channels: 1, Fetched: 2, Inserted: 2}, res); diff != "" {
		t.Errorf("first run mismatch (-want +got):\n%s", diff)
	}

	res, err = f.runner.Discover(ctx)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if res.Inserted != 0 {
		t.Errorf("second run inserted %d, want 0", res.Inserted)
	}
	n, err := f.db.CountVideos(ctx)
	if err != nil || n != 2 {
		t.Errorf("CountVideos = %d, %v; want 2", n, err)
	}

	videos, err := f.db.ListVideos(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range videos {
		if v.Player != "steve" || v.ChannelID != "UC-steve" {
			t.Errorf("video %s not attributed: %+v", v.VideoID, v)
		}
	}

	if diff := cmp.Diff([]feed.Type{feed.YouTubeVideos, feed.YouTubeLive, feed.YouTubeVideos, feed.YouTubeLive}, f.feeds.invalidated); diff != "" {
		t.Errorf("invalidations mismatch (-want +got):\n%s", diff)
	}
	if len(f.publisher.events) != 2 || f.publisher.events[0][0] != "discover" {
		t.Errorf("events = %v", f.publisher.events)
	}
}

func TestDiscoverEveryChannelFailing(t *testing.T) {
	f := newFixture(t)
	f.youtube.uploadsErr = map[string]error{"UU-steve": errYouTube}

	res, err := f.runner.Discover(context.Background())
	if !errors.Is(err, errYouTube) {
		t.Fatalf("Discover error = %v, want errYouTube", err)
	}
	if res.Failed != 1 {
		t.Errorf("Failed = %d, want 1", res.Failed)
	}
	if len(f.publisher.events) != 0 {
		t.Error("failed run should not announce")
	}
}

func TestVerifyRemovesMissingAndUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.runner.Discover(ctx); err != nil {
		t.Fatalf("Discover: %v", err)
	}

	// v2 was deleted on YouTube; v1 got a new title.
	f.youtube.details = map[string]models.Video{
		"v1": {VideoID: "v1", Title: "PB (sub 10)", PublishedAt: epoch, LiveStatus: models.LiveStatusNone},
	}
	res, err := f.runner.Verify(ctx)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if diff := cmp.Diff(VerifyResult{Checked: 2, Updated: 1, Removed: 1, PrunedCache: 3}, res); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}

	videos, err := f.db.ListVideos(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(videos) != 1 || videos[0].Title != "PB (sub 10)" {
		t.Errorf("catalogue after verify = %+v", videos)
	}
}

func TestVerifyDetailsFailureKeepsCatalogue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.runner.Discover(ctx); err != nil {
		t.Fatalf("Discover: %v", err)
	}
	f.youtube.detailsErr = errYouTube

	if _, err := f.runner.Verify(ctx); !errors.Is(err, errYouTube) {
		t.Fatalf("Verify error = %v, want errYouTube", err)
	}
	if n, _ := f.db.CountVideos(ctx); n != 2 {
		t.Errorf("CountVideos = %d, want 2 (nothing removed on failure)", n)
	}
}

func TestPollLive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.runner.Discover(ctx); err != nil {
		t.Fatalf("Discover: %v", err)
	}

	viewers := int64(99)
	f.youtube.details = map[string]models.Video{
		"v1": {VideoID: "v1", Title: "PB", LiveStatus: models.LiveStatusCompleted},
		"v2": {VideoID: "v2", Title: "LIVE", LiveStatus: models.LiveStatusLive, ConcurrentViewers: &viewers},
	}
	res, err := f.runner.PollLive(ctx)
	if err != nil {
		t.Fatalf("PollLive: %v", err)
	}
	if diff := cmp.Diff(LiveResult{Checked: 2, Live: 1, Ended: 1, Streams: 2, Runs: 1}, res); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}

	broadcasts, err := f.db.ListBroadcasts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(broadcasts) != 1 || broadcasts[0].VideoID != "v2" {
		t.Errorf("broadcasts = %+v", broadcasts)
	}
	if diff := cmp.Diff([]feed.Type{feed.TwitchStreams, feed.LiveRuns, feed.YouTubeLive}, f.feeds.refreshed); diff != "" {
		t.Errorf("refreshed feeds mismatch (-want +got):\n%s", diff)
	}
}

func TestPollLiveAttemptsEveryFeed(t *testing.T) {
	f := newFixture(t)
	f.feeds.failOn = map[feed.Type]bool{feed.TwitchStreams: true}

	_, err := f.runner.PollLive(context.Background())
	if err == nil {
		t.Fatal("expected error from failed rebuild")
	}
	if diff := cmp.Diff([]feed.Type{feed.LiveRuns, feed.YouTubeLive}, f.feeds.refreshed); diff != "" {
		t.Errorf("refreshed feeds mismatch (-want +got):\n%s", diff)
	}
	last := f.publisher.events[len(f.publisher.events)-1]
	if diff := cmp.Diff([]string{"live", "live-runs", "youtube-live"}, last); diff != "" {
		t.Errorf("event mismatch (-want +got):\n%s", diff)
	}
}

func TestYouTubeDisabled(t *testing.T) {
	f := newFixture(t)
	f.runner.deps.Videos = nil
	ctx := context.Background()

	if res, err := f.runner.Discover(ctx); err != nil || res != (DiscoverResult{}) {
		t.Errorf("Discover = %+v, %v", res, err)
	}
	res, err := f.runner.Verify(ctx)
	if err != nil || res.Checked != 0 || res.PrunedCache != 3 {
		t.Errorf("Verify = %+v, %v", res, err)
	}
}

func TestRunDispatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.runner.Run(ctx, ActionDiscover, TriggerCLI)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok := got.(DiscoverResult); !ok {
		t.Errorf("Run(discover) returned %T", got)
	}
	if _, err := f.runner.Run(ctx, Action("nap"), TriggerCLI); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("Run(nap) error = %v, want ErrUnknownAction", err)
	}
}

func TestParseAction(t *testing.T) {
	for _, s := range []string{"discover", " VERIFY ", "live"} {
		if _, err := ParseAction(s); err != nil {
			t.Errorf("ParseAction(%q): %v", s, err)
		}
	}
	if _, err := ParseAction("purge"); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("ParseAction(purge) error = %v", err)
	}
}

func TestTickerRunsOnInterval(t *testing.T) {
	f := newFixture(t)
	tk := NewTicker(f.runner, ActionVerify, 10*time.Millisecond)
	if tk.String() != "refresh-verify" {
		t.Errorf("String() = %q", tk.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tk.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for f.pruner.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
	if f.pruner.calls.Load() < 2 {
		t.Error("ticker did not run repeatedly")
	}
}
