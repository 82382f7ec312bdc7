// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package feed

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/runfeed/internal/cache"
	"github.com/tomtom215/runfeed/internal/models"
)

// ErrUnknownType is returned for a feed type outside the enum.
var ErrUnknownType = errors.New("unknown feed type")

// Type identifies a feed.
type Type string

const (
	LiveRuns      Type = "live-runs"
	RecentPaces   Type = "recent-paces"
	TwitchStreams Type = "twitch-streams"
	YouTubeVideos Type = "youtube-videos"
	YouTubeLive   Type = "youtube-live"
)

// cacheVersion is bumped when an envelope changes shape so old entries are
// never decoded into the new type.
const cacheVersion = "v1"

// Types returns every feed type in a stable order.
func Types() []Type {
	return []Type{LiveRuns, RecentPaces, TwitchStreams, YouTubeVideos, YouTubeLive}
}

// TypeNames returns the feed types as strings, for error messages and
// validation tags.
func TypeNames() []string {
	types := Types()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}

// ParseType validates s as a feed type.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q (expected one of %s)", ErrUnknownType, s, strings.Join(TypeNames(), ", "))
	}
	return t, nil
}

// Valid reports whether t is a known feed type.
func (t Type) Valid() bool {
	switch t {
	case LiveRuns, RecentPaces, TwitchStreams, YouTubeVideos, YouTubeLive:
		return true
	default:
		return false
	}
}

// DataKey is the JSON key of the item list in the envelope.
func (t Type) DataKey() string {
	switch t {
	case LiveRuns:
		return "liveRuns"
	case RecentPaces:
		return "recentPaces"
	case TwitchStreams:
		return "liveStreams"
	case YouTubeVideos:
		return "videos"
	case YouTubeLive:
		return "liveVideos"
	default:
		return ""
	}
}

// CacheKey is the shared cache key of the feed.
func (t Type) CacheKey() string {
	return cache.Key("feed", string(t), cacheVersion)
}

// persistent reports whether the feed is kept in the persistent tier.
// Recent paces cost one upstream call per registered player, so they
// survive restarts; everything else is cheap enough to rebuild.
func (t Type) persistent() bool {
	return t == RecentPaces
}

// revalidating feeds are refreshed in the background once an entry is past
// half its TTL.
func (t Type) revalidating() bool {
	return t == RecentPaces
}

// sMaxAge is the shared cache lifetime advertised to CDNs.
func (t Type) sMaxAge() time.Duration {
	switch t {
	case LiveRuns:
		return 15 * time.Second
	case RecentPaces, YouTubeVideos:
		return 300 * time.Second
	case TwitchStreams, YouTubeLive:
		return 60 * time.Second
	default:
		return 0
	}
}

// Response is the typed envelope of one feed.
type Response interface {
	// FeedType returns the feed the envelope belongs to.
	FeedType() Type

	// Len returns the number of items.
	Len() int

	// withFavorites returns a copy with favourites sorted first.
	withFavorites(favs models.FavoriteSet) Response
}

// LiveRunsFeed is the live-runs envelope.
type LiveRunsFeed struct {
	LiveRuns []models.LiveRun `json:"liveRuns"`
	Users    models.UserIndex `json:"users"`
}

func (LiveRunsFeed) FeedType() Type { return LiveRuns }
func (f LiveRunsFeed) Len() int     { return len(f.LiveRuns) }

func (f LiveRunsFeed) withFavorites(favs models.FavoriteSet) Response {
	f.LiveRuns = models.SortFavoritesFirst(f.LiveRuns, favs)
	return f
}

// RecentPacesFeed is the recent-paces envelope, newest first.
type RecentPacesFeed struct {
	RecentPaces []models.RecentPace `json:"recentPaces"`
	Users       models.UserIndex    `json:"users"`
}

func (RecentPacesFeed) FeedType() Type { return RecentPaces }
func (f RecentPacesFeed) Len() int     { return len(f.RecentPaces) }

func (f RecentPacesFeed) withFavorites(favs models.FavoriteSet) Response {
	f.RecentPaces = models.SortFavoritesFirst(f.RecentPaces, favs)
	return f
}

// TwitchStreamsFeed is the twitch-streams envelope.
type TwitchStreamsFeed struct {
	LiveStreams []models.Stream  `json:"liveStreams"`
	Users       models.UserIndex `json:"users"`
}

func (TwitchStreamsFeed) FeedType() Type { return TwitchStreams }
func (f TwitchStreamsFeed) Len() int     { return len(f.LiveStreams) }

func (f TwitchStreamsFeed) withFavorites(favs models.FavoriteSet) Response {
	f.LiveStreams = models.SortFavoritesFirst(f.LiveStreams, favs)
	return f
}

// YouTubeVideosFeed is the youtube-videos envelope.
type YouTubeVideosFeed struct {
	Videos []models.Video   `json:"videos"`
	Users  models.UserIndex `json:"users"`
}

func (YouTubeVideosFeed) FeedType() Type { return YouTubeVideos }
func (f YouTubeVideosFeed) Len() int     { return len(f.Videos) }

func (f YouTubeVideosFeed) withFavorites(favs models.FavoriteSet) Response {
	f.Videos = models.SortFavoritesFirst(f.Videos, favs)
	return f
}

// YouTubeLiveFeed is the youtube-live envelope: live broadcasts first, then
// upcoming ones.
type YouTubeLiveFeed struct {
	LiveVideos []models.Video   `json:"liveVideos"`
	Users      models.UserIndex `json:"users"`
}

func (YouTubeLiveFeed) FeedType() Type { return YouTubeLive }
func (f YouTubeLiveFeed) Len() int     { return len(f.LiveVideos) }

func (f YouTubeLiveFeed) withFavorites(favs models.FavoriteSet) Response {
	f.LiveVideos = models.SortFavoritesFirst(f.LiveVideos, favs)
	return f
}

// Empty returns the envelope of t with no items and no users.
func Empty(t Type) Response {
	return emptyWithUsers(t, models.UserIndex{})
}

// emptyWithUsers is the envelope a degraded build serves when the user
// index could still be read.
func emptyWithUsers(t Type, users models.UserIndex) Response {
	if users == nil {
		users = models.UserIndex{}
	}
	switch t {
	case LiveRuns:
		return LiveRunsFeed{LiveRuns: []models.LiveRun{}, Users: users}
	case RecentPaces:
		return RecentPacesFeed{RecentPaces: []models.RecentPace{}, Users: users}
	case TwitchStreams:
		return TwitchStreamsFeed{LiveStreams: []models.Stream{}, Users: users}
	case YouTubeVideos:
		return YouTubeVideosFeed{Videos: []models.Video{}, Users: users}
	case YouTubeLive:
		return YouTubeLiveFeed{LiveVideos: []models.Video{}, Users: users}
	default:
		return nil
	}
}
