// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package api

import (
	"context"
	"time"

	"github.com/tomtom215/runfeed/internal/config"
	"github.com/tomtom215/runfeed/internal/feed"
	"github.com/tomtom215/runfeed/internal/models"
	"github.com/tomtom215/runfeed/internal/refresh"
	ws "github.com/tomtom215/runfeed/internal/websocket"
)

// FeedService serves cached feeds. GetFeed also reports the remaining
// lifetime of the entry served, which bounds CacheControl.
type FeedService interface {
	GetFeed(ctx context.Context, t feed.Type, favs models.FavoriteSet) (feed.Response, time.Duration, error)
	CacheControl(t feed.Type, remaining time.Duration) string
}

// CronRunner executes refresh actions.
type CronRunner interface {
	Run(ctx context.Context, action refresh.Action, trigger string) (any, error)
}

// Pinger checks a dependency for readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HandlerDeps collects what the handlers need. Hub may be nil, which
// disables the websocket route.
type HandlerDeps struct {
	Feeds   FeedService
	Runner  CronRunner
	Hub     *ws.Hub
	DB      Pinger
	Config  *config.Config
	Version string
}

// Handler serves the HTTP API.
type Handler struct {
	feeds     FeedService
	runner    CronRunner
	wsHub     *ws.Hub
	db        Pinger
	config    *config.Config
	version   string
	startTime time.Time
}

// NewHandler creates a handler.
func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		feeds:     deps.Feeds,
		runner:    deps.Runner,
		wsHub:     deps.Hub,
		db:        deps.DB,
		config:    deps.Config,
		version:   deps.Version,
		startTime: time.Now(),
	}
}

func (h *Handler) refreshTimeout() time.Duration {
	if h.config == nil {
		return 0
	}
	return h.config.Refresh.Timeout
}

func (h *Handler) cronSecret() string {
	if h.config == nil {
		return ""
	}
	return h.config.Refresh.CronSecret
}
