// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package sources

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/runfeed/internal/config"
	"github.com/tomtom215/runfeed/internal/models"
)

const sourcePaceMan = "paceman"

// PaceMan is the adapter for paceman.gg, the live-run tracker.
type PaceMan struct {
	api                 *httpClient
	includeUnregistered bool
}

// NewPaceMan creates the adapter.
func NewPaceMan(cfg config.PaceManConfig, timeout time.Duration) *PaceMan {
	return &PaceMan{
		api: newHTTPClient(clientConfig{
			Source:            sourcePaceMan,
			BaseURL:           cfg.BaseURL,
			Timeout:           timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Burst:             cfg.Burst,
		}),
		includeUnregistered: cfg.IncludeUnregistered,
	}
}

type pacemanEvent struct {
	EventID string `json:"eventId"`
	RTA     int64  `json:"rta"`
	IGT     int64  `json:"igt"`
}

type pacemanLiveRun struct {
	WorldID     string         `json:"worldId"`
	GameVersion string         `json:"gameVersion"`
	EventList   []pacemanEvent `json:"eventList"`
	User        struct {
		UUID        string  `json:"uuid"`
		LiveAccount *string `json:"liveAccount"`
	} `json:"user"`
	Nickname    string `json:"nickname"`
	LastUpdated int64  `json:"lastUpdated"`
	IsHidden    bool   `json:"isHidden"`
	IsCheated   bool   `json:"isCheated"`
}

// FetchLiveRuns returns every visible run PaceMan is tracking, unfiltered
// and without enrichment. Hidden and cheated runs are dropped.
func (p *PaceMan) FetchLiveRuns(ctx context.Context) ([]models.LiveRun, error) {
	var raw []pacemanLiveRun
	if err := p.api.getJSON(ctx, "/api/ars/liveruns", nil, &raw); err != nil {
		return nil, err
	}

	runs := make([]models.LiveRun, 0, len(raw))
	for _, r := range raw {
		if r.IsHidden || r.IsCheated || strings.TrimSpace(r.Nickname) == "" {
			continue
		}
		run := models.LiveRun{
			Nickname:    r.Nickname,
			UUID:        r.User.UUID,
			WorldID:     r.WorldID,
			GameVersion: r.GameVersion,
			Splits:      make([]models.Split, 0, len(r.EventList)),
		}
		if run.GameVersion == "" {
			run.GameVersion = models.DefaultGameVersion
		}
		if r.User.LiveAccount != nil {
			run.LiveAccount = *r.User.LiveAccount
		}
		if r.LastUpdated > 0 {
			run.LastUpdated = time.UnixMilli(r.LastUpdated).UTC()
		}
		for _, e := range r.EventList {
			run.Splits = append(run.Splits, models.Split{EventID: e.EventID, IGT: e.IGT, RTA: e.RTA})
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// FilterLiveRuns keeps runs of registered players and enriches them with
// their display identity. Unregistered runs are dropped, or kept bare when
// the adapter is configured to include them.
func (p *PaceMan) FilterLiveRuns(runs []models.LiveRun, registered models.UserIndex) []models.LiveRun {
	out := make([]models.LiveRun, 0, len(runs))
	for _, run := range runs {
		user, ok := registered.Lookup(run.Nickname)
		if !ok {
			if p.includeUnregistered {
				run.Registered = false
				run.DisplayName, run.AvatarURL = "", ""
				out = append(out, run)
			}
			continue
		}
		run.Registered = true
		run.DisplayName = user.DisplayName
		run.AvatarURL = user.AvatarURL
		out = append(out, run)
	}
	return out
}

// LiveRuns fetches and filters in one call.
func (p *PaceMan) LiveRuns(ctx context.Context, registered models.UserIndex) ([]models.LiveRun, error) {
	runs, err := p.FetchLiveRuns(ctx)
	if err != nil {
		return nil, err
	}
	return p.FilterLiveRuns(runs, registered), nil
}

type pacemanRecentRun struct {
	ID          int64   `json:"id"`
	Nickname    string  `json:"nickname"`
	UUID        string  `json:"uuid"`
	Twitch      *string `json:"twitch"`
	Nether      *int64  `json:"nether"`
	Bastion     *int64  `json:"bastion"`
	Fortress    *int64  `json:"fortress"`
	FirstPortal *int64  `json:"first_portal"`
	Stronghold  *int64  `json:"stronghold"`
	End         *int64  `json:"end"`
	Finish      *int64  `json:"finish"`
	Time        int64   `json:"time"`
}

// RecentPaces returns the runs nickname played in the last hours, newest
// first as PaceMan orders them. A player PaceMan does not know yields an
// empty result.
func (p *PaceMan) RecentPaces(ctx context.Context, nickname string, hours, limit int) ([]models.RecentPace, error) {
	q := url.Values{}
	q.Set("name", nickname)
	q.Set("hours", strconv.Itoa(hours))
	q.Set("limit", strconv.Itoa(limit))

	var raw []pacemanRecentRun
	if err := p.api.getJSON(ctx, "/stats/api/getRecentRuns/", q, &raw); err != nil {
		if IsNotFound(err) {
			return []models.RecentPace{}, nil
		}
		return nil, err
	}

	paces := make([]models.RecentPace, 0, len(raw))
	for _, r := range raw {
		pace := models.RecentPace{
			ID:       r.ID,
			Nickname: r.Nickname,
			UUID:     r.UUID,
			Finish:   r.Finish,
			Time:     time.Unix(r.Time, 0).UTC(),
		}
		if pace.Nickname == "" {
			pace.Nickname = nickname
		}
		if r.Twitch != nil {
			pace.Twitch = *r.Twitch
		}
		for _, s := range []struct {
			id string
			ms *int64
		}{
			{"nether", r.Nether},
			{"bastion", r.Bastion},
			{"fortress", r.Fortress},
			{"first_portal", r.FirstPortal},
			{"stronghold", r.Stronghold},
			{"end", r.End},
		} {
			if s.ms != nil {
				pace.Splits = append(pace.Splits, models.Split{EventID: s.id, IGT: *s.ms})
			}
		}
		if pace.Splits == nil {
			pace.Splits = []models.Split{}
		}
		paces = append(paces, pace)
	}
	return paces, nil
}
