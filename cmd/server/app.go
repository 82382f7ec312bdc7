// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package main

import (
	"errors"
	"fmt"

	"github.com/tomtom215/runfeed/internal/cache"
	"github.com/tomtom215/runfeed/internal/config"
	"github.com/tomtom215/runfeed/internal/database"
	"github.com/tomtom215/runfeed/internal/events"
	"github.com/tomtom215/runfeed/internal/feed"
	"github.com/tomtom215/runfeed/internal/logging"
	"github.com/tomtom215/runfeed/internal/refresh"
	"github.com/tomtom215/runfeed/internal/sources"
)

// app holds the long-lived components shared by the serve and refresh
// commands. close releases them in reverse construction order.
type app struct {
	cfg *config.Config

	db         *database.DB
	memory     *cache.Memory
	persistent cache.Store
	pruner     cache.Pruner
	agg        *feed.Aggregator
	bus        *events.Bus
	runner     *refresh.Runner

	closers []func() error
}

func (a *app) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// newApp wires storage, upstream adapters, the aggregator, the event bus
// and the refresh runner.
func newApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	ready := false
	defer func() {
		if !ready {
			if err := a.close(); err != nil {
				logging.Error().Err(err).Msg("Cleanup after failed startup")
			}
		}
	}()

	var err error
	a.db, err = database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.onClose(a.db.Close)
	logging.Info().Str("path", cfg.Database.Path).Msg("Database initialized")

	if err := a.openCache(); err != nil {
		return nil, err
	}

	timeout := cfg.Sources.HTTPTimeout
	paceman := sources.NewPaceMan(cfg.Sources.PaceMan, timeout)

	var twitch *sources.Twitch
	if cfg.Sources.Twitch.Enabled() {
		twitch = sources.NewTwitch(cfg.Sources.Twitch, timeout)
	} else {
		logging.Info().Msg("Twitch disabled: no client credentials configured")
	}
	var youtube *sources.YouTube
	if cfg.Sources.YouTube.Enabled() {
		youtube = sources.NewYouTube(cfg.Sources.YouTube, timeout)
	} else {
		logging.Info().Msg("YouTube disabled: no API key configured")
	}

	resolver := sources.NewChannelResolver(a.persistent, cfg.Sources.ChannelTTL, twitch, youtube)

	src := feed.Sources{
		Users:  a.db,
		Videos: a.db,
		Runs:   paceman,
		Paces:  paceman,
	}
	// Interface fields stay nil rather than holding a typed nil pointer.
	if lister := sources.NewStreamLister(resolver, twitch); lister != nil {
		src.Streams = lister
	}

	a.agg = feed.New(cfg.Feed, cfg.Sources.PaceMan, feed.Tiers{Memory: a.memory, Persistent: a.persistent}, src)
	a.onClose(func() error {
		a.agg.Close()
		return nil
	})

	a.bus, err = events.NewBus(cfg.Events)
	if err != nil {
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}
	a.onClose(a.bus.Close)

	deps := refresh.Deps{
		Catalog:   a.db,
		Channels:  resolver,
		Feeds:     a.agg,
		Pruner:    a.pruner,
		Publisher: a.bus,
	}
	if youtube != nil {
		deps.Videos = youtube
	}
	a.runner = refresh.NewRunner(cfg.Refresh, cfg.Sources.YouTube, deps)

	ready = true
	return a, nil
}

// openCache builds the memory tier and, unless the persistent backend is
// also memory, a tiered store with the memory tier in front.
func (a *app) openCache() error {
	cfg := a.cfg.Cache

	a.memory = cache.NewMemory(cfg.CleanupInterval)
	a.onClose(func() error {
		a.memory.Close()
		return nil
	})

	var back cache.Store
	switch cfg.Persistent {
	case "duckdb":
		back = database.NewCacheStore(a.db)
	case "badger":
		b, err := cache.OpenBadger(cfg.BadgerPath)
		if err != nil {
			return err
		}
		a.onClose(b.Close)
		back = b
	default:
		a.persistent = a.memory
		a.pruner = a.memory
		logging.Info().Msg("Persistent cache tier disabled, using memory only")
		return nil
	}

	tiered := cache.NewTiered(a.memory, back)
	a.persistent = tiered
	a.pruner = tiered
	logging.Info().Str("backend", cfg.Persistent).Msg("Persistent cache tier enabled")
	return nil
}
