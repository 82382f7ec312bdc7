// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package models

import (
	"regexp"
	"strings"
	"time"
)

// twitchLoginPattern is the login syntax Helix accepts.
var twitchLoginPattern = regexp.MustCompile(`^[a-zA-Z0-9_]{4,25}$`)

// IsTwitchLogin reports whether login is a syntactically valid Twitch
// login. Helix rejects a whole lookup batch when one login is malformed.
func IsTwitchLogin(login string) bool {
	return twitchLoginPattern.MatchString(login)
}

// RegisteredUser is a local player profile. Username is the player
// identifier used by PaceMan; the handles link the external channels.
type RegisteredUser struct {
	ID            int64     `json:"id" koanf:"id"`
	Username      string    `json:"username" koanf:"username" validate:"required,max=32"`
	DisplayName   string    `json:"displayName" koanf:"display_name" validate:"max=64"`
	AvatarURL     string    `json:"avatarUrl" koanf:"avatar_url" validate:"omitempty,url"`
	TwitchLogin   string    `json:"twitchLogin,omitempty" koanf:"twitch_login" validate:"omitempty,twitch_login"`
	YouTubeHandle string    `json:"youtubeHandle,omitempty" koanf:"youtube_handle" validate:"max=100"`
	CreatedAt     time.Time `json:"createdAt" koanf:"-"`
	UpdatedAt     time.Time `json:"updatedAt" koanf:"-"`
}

// Key returns the lowercase player identifier.
func (u RegisteredUser) Key() string { return strings.ToLower(strings.TrimSpace(u.Username)) }

// Summary returns the public identity of the user, falling back to the
// username when no display name is set.
func (u RegisteredUser) Summary() UserSummary {
	name := u.DisplayName
	if name == "" {
		name = u.Username
	}
	return UserSummary{DisplayName: name, AvatarURL: u.AvatarURL}
}

// UserSummary is the display identity served alongside feeds.
type UserSummary struct {
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// UserIndex maps lowercase usernames to display identities. It is read-only
// once built.
type UserIndex map[string]UserSummary

// NewUserIndex builds an index from users. Later duplicates win.
func NewUserIndex(users []RegisteredUser) UserIndex {
	idx := make(UserIndex, len(users))
	for _, u := range users {
		if k := u.Key(); k != "" {
			idx[k] = u.Summary()
		}
	}
	return idx
}

// Lookup finds a user by identifier, ignoring case.
func (idx UserIndex) Lookup(id string) (UserSummary, bool) {
	s, ok := idx[strings.ToLower(strings.TrimSpace(id))]
	return s, ok
}

// Has reports whether id belongs to a registered user.
func (idx UserIndex) Has(id string) bool {
	_, ok := idx.Lookup(id)
	return ok
}
