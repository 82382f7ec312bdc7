// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/runfeed/internal/config"
	"github.com/tomtom215/runfeed/internal/models"
)

const (
	sourceYouTube = "youtube"

	// youtubeBatchSize is the Data API maximum ids per videos.list call.
	youtubeBatchSize = 50
)

// YouTube is the Data API v3 adapter, authenticated with an API key.
type YouTube struct {
	api *httpClient
	now func() time.Time
}

// Channel is a resolved YouTube channel.
type Channel struct {
	ID                string `json:"id"`
	UploadsPlaylistID string `json:"uploadsPlaylistId"`
}

// NewYouTube creates the adapter.
func NewYouTube(cfg config.YouTubeConfig, timeout time.Duration) *YouTube {
	api := newHTTPClient(clientConfig{
		Source:            sourceYouTube,
		BaseURL:           cfg.BaseURL,
		Timeout:           timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	})
	key := cfg.APIKey
	api.authorize = func(_ context.Context, req *http.Request) error {
		q := req.URL.Query()
		q.Set("key", key)
		req.URL.RawQuery = q.Encode()
		return nil
	}
	return &YouTube{api: api, now: time.Now}
}

type ytThumbnails struct {
	Default *ytThumbnail `json:"default"`
	Medium  *ytThumbnail `json:"medium"`
	High    *ytThumbnail `json:"high"`
}

type ytThumbnail struct {
	URL string `json:"url"`
}

// best returns the largest available thumbnail.
func (t ytThumbnails) best() string {
	for _, th := range []*ytThumbnail{t.High, t.Medium, t.Default} {
		if th != nil && th.URL != "" {
			return th.URL
		}
	}
	return ""
}

type ytSnippet struct {
	PublishedAt          time.Time    `json:"publishedAt"`
	ChannelID            string       `json:"channelId"`
	Title                string       `json:"title"`
	Thumbnails           ytThumbnails `json:"thumbnails"`
	LiveBroadcastContent string       `json:"liveBroadcastContent"`
	ResourceID           struct {
		VideoID string `json:"videoId"`
	} `json:"resourceId"`
}

type ytListResponse[T any] struct {
	Items         []T    `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

type ytChannel struct {
	ID             string `json:"id"`
	ContentDetails struct {
		RelatedPlaylists struct {
			Uploads string `json:"uploads"`
		} `json:"relatedPlaylists"`
	} `json:"contentDetails"`
}

type ytPlaylistItem struct {
	Snippet        ytSnippet `json:"snippet"`
	ContentDetails struct {
		VideoID          string     `json:"videoId"`
		VideoPublishedAt *time.Time `json:"videoPublishedAt"`
	} `json:"contentDetails"`
}

type ytVideo struct {
	ID                   string    `json:"id"`
	Snippet              ytSnippet `json:"snippet"`
	LiveStreamingDetails *struct {
		ActualStartTime    *time.Time `json:"actualStartTime"`
		ActualEndTime      *time.Time `json:"actualEndTime"`
		ScheduledStartTime *time.Time `json:"scheduledStartTime"`
		ConcurrentViewers  string     `json:"concurrentViewers"`
	} `json:"liveStreamingDetails"`
}

// ResolveChannel looks a channel up by its @handle. It returns
// ErrChannelNotFound when the handle does not exist.
func (y *YouTube) ResolveChannel(ctx context.Context, handle string) (Channel, error) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		return Channel{}, ErrChannelNotFound
	}

	q := url.Values{}
	q.Set("part", "id,contentDetails")
	q.Set("forHandle", "@"+handle)

	var resp ytListResponse[ytChannel]
	if err := y.api.getJSON(ctx, "/channels", q, &resp); err != nil {
		return Channel{}, err
	}
	if len(resp.Items) == 0 {
		return Channel{}, fmt.Errorf("@%s: %w", handle, ErrChannelNotFound)
	}
	c := resp.Items[0]
	return Channel{ID: c.ID, UploadsPlaylistID: c.ContentDetails.RelatedPlaylists.Uploads}, nil
}

// RecentUploads lists up to max of the newest videos in a playlist. Only ids,
// titles, thumbnails and publish times are known at this point; live status
// comes from VideoDetails.
func (y *YouTube) RecentUploads(ctx context.Context, playlistID string, max int) ([]models.Video, error) {
	if max <= 0 || max > youtubeBatchSize {
		max = youtubeBatchSize
	}
	q := url.Values{}
	q.Set("part", "snippet,contentDetails")
	q.Set("playlistId", playlistID)
	q.Set("maxResults", strconv.Itoa(max))

	var resp ytListResponse[ytPlaylistItem]
	if err := y.api.getJSON(ctx, "/playlistItems", q, &resp); err != nil {
		if IsNotFound(err) {
			return []models.Video{}, nil
		}
		return nil, err
	}

	videos := make([]models.Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		id := item.ContentDetails.VideoID
		if id == "" {
			id = item.Snippet.ResourceID.VideoID
		}
		if id == "" {
			continue
		}
		published := item.Snippet.PublishedAt
		if item.ContentDetails.VideoPublishedAt != nil {
			published = *item.ContentDetails.VideoPublishedAt
		}
		videos = append(videos, models.Video{
			VideoID:      id,
			ChannelID:    item.Snippet.ChannelID,
			Title:        item.Snippet.Title,
			PublishedAt:  published.UTC(),
			ThumbnailURL: item.Snippet.Thumbnails.best(),
			LiveStatus:   models.LiveStatusNone,
		})
	}
	return videos, nil
}

// VideoDetails fetches current details for ids in batches of 50. Ids the
// API does not return no longer exist (deleted or made private) and are
// reported in missing.
func (y *YouTube) VideoDetails(ctx context.Context, ids []string) (found []models.Video, missing []string, err error) {
	found = make([]models.Video, 0, len(ids))
	for _, batch := range chunk(ids, youtubeBatchSize) {
		q := url.Values{}
		q.Set("part", "snippet,liveStreamingDetails")
		q.Set("id", strings.Join(batch, ","))
		q.Set("maxResults", strconv.Itoa(youtubeBatchSize))

		var resp ytListResponse[ytVideo]
		if err := y.api.getJSON(ctx, "/videos", q, &resp); err != nil {
			return nil, nil, err
		}

		seen := make(map[string]struct{}, len(resp.Items))
		for _, item := range resp.Items {
			seen[item.ID] = struct{}{}
			found = append(found, y.normalizeVideo(item))
		}
		for _, id := range batch {
			if _, ok := seen[id]; !ok {
				missing = append(missing, id)
			}
		}
	}
	return found, missing, nil
}

func (y *YouTube) normalizeVideo(item ytVideo) models.Video {
	v := models.Video{
		VideoID:      item.ID,
		ChannelID:    item.Snippet.ChannelID,
		Title:        item.Snippet.Title,
		PublishedAt:  item.Snippet.PublishedAt.UTC(),
		ThumbnailURL: item.Snippet.Thumbnails.best(),
		LiveStatus:   models.ParseLiveStatus(item.Snippet.LiveBroadcastContent),
		UpdatedAt:    y.now().UTC(),
	}

	if d := item.LiveStreamingDetails; d != nil {
		v.ScheduledStart = utcPtr(d.ScheduledStartTime)
		v.ActualStart = utcPtr(d.ActualStartTime)
		if d.ActualEndTime != nil && v.LiveStatus == models.LiveStatusNone {
			v.LiveStatus = models.LiveStatusCompleted
		}
		if v.LiveStatus == models.LiveStatusLive && d.ConcurrentViewers != "" {
			if n, err := strconv.ParseInt(d.ConcurrentViewers, 10, 64); err == nil {
				v.ConcurrentViewers = &n
			}
		}
	}
	return v
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
