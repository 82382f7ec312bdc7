// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package models

import (
	"strings"
	"time"
)

// DefaultGameVersion is assumed when PaceMan omits the game version.
const DefaultGameVersion = "1.16.1"

// Split is one timed event in a run. Times are milliseconds.
type Split struct {
	EventID string `json:"eventId"`
	IGT     int64  `json:"igt"`
	RTA     int64  `json:"rta,omitempty"`
}

// LiveRun is an in-progress run reported by PaceMan. A fetch replaces the
// whole list; runs are never updated in place.
type LiveRun struct {
	Nickname    string    `json:"nickname"`
	UUID        string    `json:"uuid,omitempty"`
	WorldID     string    `json:"worldId,omitempty"`
	GameVersion string    `json:"gameVersion"`
	Splits      []Split   `json:"splits"`
	LastUpdated time.Time `json:"lastUpdated"`
	LiveAccount string    `json:"liveAccount,omitempty"`

	// Enrichment, set only for registered players.
	Registered  bool   `json:"isRegistered"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// PlayerKey implements Keyed.
func (r LiveRun) PlayerKey() string { return strings.ToLower(r.Nickname) }

// LatestSplit returns the most recent split, or false when the run has none.
func (r LiveRun) LatestSplit() (Split, bool) {
	if len(r.Splits) == 0 {
		return Split{}, false
	}
	return r.Splits[len(r.Splits)-1], true
}

// RecentPace is a run from the PaceMan stats API. Split times are in-game
// milliseconds; splits the run never reached are omitted.
type RecentPace struct {
	ID       int64     `json:"id"`
	Nickname string    `json:"nickname"`
	UUID     string    `json:"uuid,omitempty"`
	Twitch   string    `json:"twitch,omitempty"`
	Splits   []Split   `json:"splits"`
	Finish   *int64    `json:"finish,omitempty"`
	Time     time.Time `json:"time"`
}

// PlayerKey implements Keyed.
func (p RecentPace) PlayerKey() string { return strings.ToLower(p.Nickname) }

// Completed reports whether the run reached the credits.
func (p RecentPace) Completed() bool { return p.Finish != nil }
