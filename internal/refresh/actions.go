// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package refresh

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/runfeed/internal/feed"
	"github.com/tomtom215/runfeed/internal/logging"
	"github.com/tomtom215/runfeed/internal/models"
)

// DiscoverResult summarises a discover run.
type DiscoverResult struct {
	Channels int `json:"channels"`
	Fetched  int `json:"fetched"`
	Inserted int `json:"inserted"`
	Failed   int `json:"failed"`
}

// VerifyResult summarises a verify run.
type VerifyResult struct {
	Checked     int `json:"checked"`
	Updated     int `json:"updated"`
	Removed     int `json:"removed"`
	PrunedCache int `json:"prunedCache"`
}

// LiveResult summarises a live poll.
type LiveResult struct {
	Checked int `json:"checked"`
	Live    int `json:"live"`
	Ended   int `json:"ended"`
	Streams int `json:"streams"`
	Runs    int `json:"runs"`
}

// Discover upserts the latest uploads of every registered YouTube channel.
// A channel whose uploads cannot be listed is skipped; the run fails only
// when every channel fails.
func (r *Runner) Discover(ctx context.Context) (DiscoverResult, error) {
	var res DiscoverResult
	if r.deps.Videos == nil {
		logging.Ctx(ctx).Debug().Msg("YouTube disabled, nothing to discover")
		return res, nil
	}

	users, err := r.deps.Catalog.ListUsers(ctx)
	if err != nil {
		return res, fmt.Errorf("discover: %w", err)
	}
	channels, err := r.deps.Channels.YouTubeChannels(ctx, users)
	if err != nil {
		return res, fmt.Errorf("discover: resolve channels: %w", err)
	}
	res.Channels = len(channels)

	var (
		batch   []models.Video
		lastErr error
	)
	for _, ch := range channels {
		uploads, err := r.deps.Videos.RecentUploads(ctx, ch.UploadsPlaylistID, r.uploadsPerChannel)
		if err != nil {
			res.Failed++
			lastErr = err
			logging.Ctx(ctx).Warn().Err(err).Str("player", ch.Player).Str("channel", ch.ID).Msg("Listing uploads failed")
			continue
		}
		for i := range uploads {
			uploads[i].Player = ch.Player
			if uploads[i].ChannelID == "" {
				uploads[i].ChannelID = ch.ID
			}
		}
		batch = append(batch, uploads...)
	}
	res.Fetched = len(batch)
	if res.Channels > 0 && res.Failed == res.Channels {
		return res, fmt.Errorf("discover: every channel failed: %w", lastErr)
	}

	inserted, err := r.deps.Catalog.UpsertVideos(ctx, batch)
	if err != nil {
		return res, fmt.Errorf("discover: %w", err)
	}
	res.Inserted = inserted

	r.updateCatalogGauge(ctx)
	r.announce(ctx, ActionDiscover, []feed.Type{feed.YouTubeVideos, feed.YouTubeLive}, nil)
	return res, nil
}

// Verify re-checks every catalogued video, removes the ones YouTube no
// longer returns and prunes expired persistent cache entries.
func (r *Runner) Verify(ctx context.Context) (VerifyResult, error) {
	var res VerifyResult

	if r.deps.Videos != nil {
		ids, err := r.deps.Catalog.ListVideoIDs(ctx)
		if err != nil {
			return res, fmt.Errorf("verify: %w", err)
		}
		res.Checked = len(ids)

		found, missing, err := r.deps.Videos.VideoDetails(ctx, ids)
		if err != nil {
			return res, fmt.Errorf("verify: video details: %w", err)
		}
		if res.Updated, err = r.deps.Catalog.UpdateVideoDetails(ctx, found); err != nil {
			return res, fmt.Errorf("verify: %w", err)
		}
		if res.Removed, err = r.deps.Catalog.DeleteVideos(ctx, missing); err != nil {
			return res, fmt.Errorf("verify: %w", err)
		}
	}

	if r.deps.Pruner != nil {
		n, err := r.deps.Pruner.Prune(ctx)
		if err != nil {
			// Expired entries are invisible to reads; pruning only reclaims space.
			logging.Ctx(ctx).Warn().Err(err).Msg("Cache prune failed")
		}
		res.PrunedCache = n
	}

	r.updateCatalogGauge(ctx)
	r.announce(ctx, ActionVerify, []feed.Type{feed.YouTubeVideos, feed.YouTubeLive}, nil)
	return res, nil
}

// PollLive refreshes the live state of current broadcasts and recently
// published videos, then rebuilds the live feeds. Feed rebuild failures are
// collected and returned after every feed was attempted.
func (r *Runner) PollLive(ctx context.Context) (LiveResult, error) {
	var res LiveResult
	var errs []error

	if r.deps.Videos != nil {
		ids, err := r.deps.Catalog.ListLiveCandidates(ctx, r.now().Add(-liveWindow))
		if err != nil {
			return res, fmt.Errorf("live: %w", err)
		}
		res.Checked = len(ids)

		found, _, err := r.deps.Videos.VideoDetails(ctx, ids)
		if err != nil {
			errs = append(errs, fmt.Errorf("live: video details: %w", err))
		} else {
			for _, v := range found {
				switch v.LiveStatus {
				case models.LiveStatusLive:
					res.Live++
				case models.LiveStatusCompleted:
					res.Ended++
				}
			}
			if _, err := r.deps.Catalog.UpdateVideoDetails(ctx, found); err != nil {
				errs = append(errs, fmt.Errorf("live: %w", err))
			}
		}
	}

	var rebuilt []feed.Type
	for _, t := range []feed.Type{feed.TwitchStreams, feed.LiveRuns, feed.YouTubeLive} {
		resp, err := r.deps.Feeds.Refresh(ctx, t)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rebuilt = append(rebuilt, t)
		switch t {
		case feed.TwitchStreams:
			res.Streams = resp.Len()
		case feed.LiveRuns:
			res.Runs = resp.Len()
		}
	}

	r.announce(ctx, ActionLive, nil, rebuilt)
	return res, errors.Join(errs...)
}
