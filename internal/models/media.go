// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package models

import (
	"strings"
	"time"
)

// Platform identifies a streaming or video platform.
type Platform string

const (
	PlatformTwitch  Platform = "twitch"
	PlatformYouTube Platform = "youtube"
)

// Stream is a channel that is live now. Offline channels have no Stream.
type Stream struct {
	Platform     Platform  `json:"platform"`
	ChannelID    string    `json:"channelId"`
	ChannelLogin string    `json:"channelLogin"`
	ChannelName  string    `json:"channelName,omitempty"`
	Title        string    `json:"title"`
	ViewerCount  int       `json:"viewerCount"`
	StartedAt    time.Time `json:"startedAt"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`

	// Player is the registered username that owns the channel.
	Player string `json:"player,omitempty"`
}

// PlayerKey implements Keyed. Streams without an owner sort by channel.
func (s Stream) PlayerKey() string {
	if s.Player != "" {
		return strings.ToLower(s.Player)
	}
	return strings.ToLower(s.ChannelLogin)
}

// LiveStatus is the broadcast state of a YouTube video.
type LiveStatus string

const (
	LiveStatusNone      LiveStatus = "none"
	LiveStatusUpcoming  LiveStatus = "upcoming"
	LiveStatusLive      LiveStatus = "live"
	LiveStatusCompleted LiveStatus = "completed"
)

// ParseLiveStatus maps the YouTube liveBroadcastContent value. Unknown and
// empty values become LiveStatusNone.
func ParseLiveStatus(s string) LiveStatus {
	switch LiveStatus(strings.ToLower(strings.TrimSpace(s))) {
	case LiveStatusUpcoming:
		return LiveStatusUpcoming
	case LiveStatusLive:
		return LiveStatusLive
	case LiveStatusCompleted:
		return LiveStatusCompleted
	default:
		return LiveStatusNone
	}
}

// IsBroadcast reports whether the video is live or scheduled.
func (s LiveStatus) IsBroadcast() bool {
	return s == LiveStatusLive || s == LiveStatusUpcoming
}

// Video is a row of the durable YouTube catalogue.
type Video struct {
	VideoID           string     `json:"videoId"`
	ChannelID         string     `json:"channelId"`
	Player            string     `json:"player"`
	Title             string     `json:"title"`
	PublishedAt       time.Time  `json:"publishedAt"`
	ThumbnailURL      string     `json:"thumbnailUrl,omitempty"`
	LiveStatus        LiveStatus `json:"liveStatus"`
	ScheduledStart    *time.Time `json:"scheduledStart,omitempty"`
	ActualStart       *time.Time `json:"actualStart,omitempty"`
	ConcurrentViewers *int64     `json:"concurrentViewers,omitempty"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// PlayerKey implements Keyed.
func (v Video) PlayerKey() string { return strings.ToLower(v.Player) }

// URL returns the watch page of the video.
func (v Video) URL() string { return "https://www.youtube.com/watch?v=" + v.VideoID }
