// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package sources

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/tomtom215/runfeed/internal/cache"
	"github.com/tomtom215/runfeed/internal/logging"
	"github.com/tomtom215/runfeed/internal/models"
)

// TwitchChannel links a registered player to a Helix user id.
type TwitchChannel struct {
	Player string
	Login  string
	ID     string
}

// YouTubeChannel links a registered player to a YouTube channel.
type YouTubeChannel struct {
	Player string
	Handle string
	Channel
}

// ChannelResolver maps registered users to platform channel ids. Lookups go
// through store under channels:<platform>:<login>. Handles the platform does
// not know are cached as empty so they are not retried until the entry
// expires.
type ChannelResolver struct {
	store   cache.Store
	ttl     time.Duration
	twitch  *Twitch
	youtube *YouTube
}

// NewChannelResolver creates a resolver. Either adapter may be nil when the
// platform is disabled.
func NewChannelResolver(store cache.Store, ttl time.Duration, twitch *Twitch, youtube *YouTube) *ChannelResolver {
	return &ChannelResolver{store: store, ttl: ttl, twitch: twitch, youtube: youtube}
}

func channelKey(platform models.Platform, login string) string {
	return cache.Key("channels", string(platform), login)
}

// TwitchChannels resolves the Twitch logins of users, ordered by login.
// Users without a valid login or whose login does not exist are left out.
func (r *ChannelResolver) TwitchChannels(ctx context.Context, users []models.RegisteredUser) ([]TwitchChannel, error) {
	if r.twitch == nil {
		return nil, nil
	}

	owners := make(map[string]string, len(users))
	for _, u := range users {
		login := strings.ToLower(strings.TrimSpace(u.TwitchLogin))
		if login == "" {
			continue
		}
		if !models.IsTwitchLogin(login) {
			logging.Ctx(ctx).Debug().Str("login", login).Str("player", u.Username).Msg("Skipping malformed Twitch login")
			continue
		}
		if _, dup := owners[login]; !dup {
			owners[login] = u.Username
		}
	}

	ids := make(map[string]string, len(owners))
	var unresolved []string
	for login := range owners {
		id, _, err := cache.GetJSON[string](ctx, r.store, channelKey(models.PlatformTwitch, login))
		if err != nil {
			if !cache.IsMiss(err) {
				logging.Ctx(ctx).Warn().Err(err).Str("login", login).Msg("channel cache read failed")
			}
			unresolved = append(unresolved, login)
			continue
		}
		ids[login] = id
	}

	if len(unresolved) > 0 {
		slices.Sort(unresolved)
		found, err := r.twitch.ResolveChannels(ctx, unresolved)
		if err != nil {
			return nil, err
		}
		for _, login := range unresolved {
			id := found[login]
			ids[login] = id
			r.remember(ctx, channelKey(models.PlatformTwitch, login), id)
		}
	}

	channels := make([]TwitchChannel, 0, len(ids))
	for login, id := range ids {
		if id == "" {
			continue
		}
		channels = append(channels, TwitchChannel{Player: owners[login], Login: login, ID: id})
	}
	slices.SortFunc(channels, func(a, b TwitchChannel) int {
		return strings.Compare(a.Login, b.Login)
	})
	return channels, nil
}

// YouTubeChannels resolves the YouTube handles of users.
func (r *ChannelResolver) YouTubeChannels(ctx context.Context, users []models.RegisteredUser) ([]YouTubeChannel, error) {
	if r.youtube == nil {
		return nil, nil
	}

	channels := make([]YouTubeChannel, 0, len(users))
	seen := make(map[string]struct{}, len(users))
	for _, u := range users {
		handle := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(u.YouTubeHandle), "@"))
		if handle == "" {
			continue
		}
		if _, dup := seen[handle]; dup {
			continue
		}
		seen[handle] = struct{}{}

		key := channelKey(models.PlatformYouTube, handle)
		ch, _, err := cache.GetJSON[Channel](ctx, r.store, key)
		if err != nil {
			if !cache.IsMiss(err) {
				logging.Ctx(ctx).Warn().Err(err).Str("handle", handle).Msg("channel cache read failed")
			}
			ch, err = r.youtube.ResolveChannel(ctx, handle)
			switch {
			case errors.Is(err, ErrChannelNotFound):
				ch = Channel{}
			case err != nil:
				return nil, err
			}
			r.remember(ctx, key, ch)
		}

		if ch.ID == "" {
			continue
		}
		channels = append(channels, YouTubeChannel{Player: u.Username, Handle: handle, Channel: ch})
	}
	return channels, nil
}

func (r *ChannelResolver) remember(ctx context.Context, key string, v any) {
	if err := cache.SetJSON(ctx, r.store, key, v, r.ttl); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("failed to cache channel lookup")
	}
}

// StreamLister answers "who is live on Twitch" for a set of registered users.
type StreamLister struct {
	resolver *ChannelResolver
	twitch   *Twitch
}

// NewStreamLister creates a lister. It returns nil when twitch is nil so
// callers can treat the platform as disabled.
func NewStreamLister(resolver *ChannelResolver, twitch *Twitch) *StreamLister {
	if twitch == nil {
		return nil
	}
	return &StreamLister{resolver: resolver, twitch: twitch}
}

// LiveStreams returns the live streams of users, each tagged with its owner.
func (l *StreamLister) LiveStreams(ctx context.Context, users []models.RegisteredUser) ([]models.Stream, error) {
	channels, err := l.resolver.TwitchChannels(ctx, users)
	if err != nil {
		return nil, err
	}
	if len(channels) == 0 {
		return []models.Stream{}, nil
	}

	owners := make(map[string]string, len(channels))
	ids := make([]string, 0, len(channels))
	for _, c := range channels {
		owners[c.ID] = c.Player
		ids = append(ids, c.ID)
	}

	streams, err := l.twitch.Streams(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range streams {
		streams[i].Player = owners[streams[i].ChannelID]
	}
	return streams, nil
}
