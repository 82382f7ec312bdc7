// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/runfeed/internal/logging"
	"github.com/tomtom215/runfeed/internal/models"
)

// errAllPlayersFailed reports that no player's recent paces could be read.
var errAllPlayersFailed = errors.New("recent paces unavailable for every player")

// build fetches the data of t. It does not touch the cache.
func (a *Aggregator) build(ctx context.Context, t Type) (Response, error) {
	switch t {
	case LiveRuns:
		return a.buildLiveRuns(ctx)
	case RecentPaces:
		return a.buildRecentPaces(ctx)
	case TwitchStreams:
		return a.buildTwitchStreams(ctx)
	case YouTubeVideos:
		return a.buildYouTubeVideos(ctx)
	case YouTubeLive:
		return a.buildYouTubeLive(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
}

func (a *Aggregator) listUsers(ctx context.Context) ([]models.RegisteredUser, error) {
	users, err := a.src.Users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// fetchWithUsers lists users while fetch runs. Neither cancels the other,
// so a failed fetch still leaves the user index for the degraded envelope.
func (a *Aggregator) fetchWithUsers(ctx context.Context, fetch func(context.Context) error) (users []models.RegisteredUser, usersErr, fetchErr error) {
	var g errgroup.Group
	g.Go(func() error {
		users, usersErr = a.listUsers(ctx)
		return usersErr
	})
	g.Go(func() error {
		fetchErr = fetch(ctx)
		return fetchErr
	})
	_ = g.Wait()
	return users, usersErr, fetchErr
}

// Builds return a non-nil envelope alongside an error when only the feed
// data failed; it carries the user index and no items.

func (a *Aggregator) buildLiveRuns(ctx context.Context) (Response, error) {
	var runs []models.LiveRun
	users, usersErr, err := a.fetchWithUsers(ctx, func(ctx context.Context) (err error) {
		runs, err = a.src.Runs.FetchLiveRuns(ctx)
		return err
	})
	if usersErr != nil {
		return nil, errors.Join(usersErr, err)
	}
	idx := models.NewUserIndex(users)
	if err != nil {
		return emptyWithUsers(LiveRuns, idx), err
	}
	return LiveRunsFeed{LiveRuns: nonNil(a.src.Runs.FilterLiveRuns(runs, idx)), Users: idx}, nil
}

// buildRecentPaces queries every registered player with bounded
// concurrency. A player that fails is skipped; the feed only fails when
// every player does.
func (a *Aggregator) buildRecentPaces(ctx context.Context) (Response, error) {
	users, err := a.listUsers(ctx)
	if err != nil {
		return nil, err
	}
	idx := models.NewUserIndex(users)

	var (
		mu       sync.Mutex
		paces    = make([]models.RecentPace, 0)
		failures int
		lastErr  error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(a.cfg.RecentPacesConcurrency, 1))
	for _, u := range users {
		g.Go(func() error {
			got, err := a.src.Paces.RecentPaces(gctx, u.Username, a.recentHours, a.recentLimit)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				lastErr = err
				logging.Ctx(ctx).Debug().Err(err).Str("player", u.Username).Msg("Recent paces unavailable")
				return nil
			}
			paces = append(paces, got...)
			return nil
		})
	}
	_ = g.Wait()

	if len(users) > 0 && failures == len(users) {
		return emptyWithUsers(RecentPaces, idx), fmt.Errorf("%w: %w", errAllPlayersFailed, lastErr)
	}

	sort.SliceStable(paces, func(i, j int) bool {
		if paces[i].Time.Equal(paces[j].Time) {
			return paces[i].ID > paces[j].ID
		}
		return paces[i].Time.After(paces[j].Time)
	})
	return RecentPacesFeed{RecentPaces: paces, Users: idx}, nil
}

func (a *Aggregator) buildTwitchStreams(ctx context.Context) (Response, error) {
	users, err := a.listUsers(ctx)
	if err != nil {
		return nil, err
	}
	idx := models.NewUserIndex(users)
	if a.src.Streams == nil {
		return TwitchStreamsFeed{LiveStreams: []models.Stream{}, Users: idx}, nil
	}

	streams, err := a.src.Streams.LiveStreams(ctx, users)
	if err != nil {
		return emptyWithUsers(TwitchStreams, idx), err
	}
	// Most watched first, then by channel ID so ties are stable across builds;
	// favourites are moved ahead per caller later.
	sort.SliceStable(streams, func(i, j int) bool {
		if streams[i].ViewerCount != streams[j].ViewerCount {
			return streams[i].ViewerCount > streams[j].ViewerCount
		}
		return streams[i].ChannelID < streams[j].ChannelID
	})
	return TwitchStreamsFeed{LiveStreams: nonNil(streams), Users: idx}, nil
}

func (a *Aggregator) buildYouTubeVideos(ctx context.Context) (Response, error) {
	var videos []models.Video
	users, usersErr, err := a.fetchWithUsers(ctx, func(ctx context.Context) (err error) {
		videos, err = a.src.Videos.ListVideos(ctx, a.cfg.VideosLimit)
		return err
	})
	if usersErr != nil {
		return nil, errors.Join(usersErr, err)
	}
	idx := models.NewUserIndex(users)
	if err != nil {
		return emptyWithUsers(YouTubeVideos, idx), err
	}
	return YouTubeVideosFeed{Videos: nonNil(videos), Users: idx}, nil
}

func (a *Aggregator) buildYouTubeLive(ctx context.Context) (Response, error) {
	var videos []models.Video
	users, usersErr, err := a.fetchWithUsers(ctx, func(ctx context.Context) (err error) {
		videos, err = a.src.Videos.ListBroadcasts(ctx)
		return err
	})
	if usersErr != nil {
		return nil, errors.Join(usersErr, err)
	}
	idx := models.NewUserIndex(users)
	if err != nil {
		return emptyWithUsers(YouTubeLive, idx), err
	}
	return YouTubeLiveFeed{LiveVideos: nonNil(videos), Users: idx}, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
