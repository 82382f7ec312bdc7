// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/runfeed/internal/api"
	"github.com/tomtom215/runfeed/internal/events"
	"github.com/tomtom215/runfeed/internal/logging"
	"github.com/tomtom215/runfeed/internal/refresh"
	"github.com/tomtom215/runfeed/internal/supervisor"
	"github.com/tomtom215/runfeed/internal/supervisor/services"
	ws "github.com/tomtom215/runfeed/internal/websocket"
)

func newServeCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and background services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cmdCtx)
		},
	}
}

// runServer builds the supervisor tree and blocks until ctx is cancelled.
//
//	runfeed
//	├── data-layer:      cache-pruner, refresh tickers (optional)
//	├── messaging-layer: websocket-hub, feed-invalidation, websocket-push
//	└── api-layer:       http-server
func runServer(ctx context.Context, cmdCtx *commandContext) error {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return err
	}
	logging.Info().Str("version", version).Str("commit", commit).Msg("Starting runfeed")

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			logging.Error().Err(err).Msg("Error during shutdown")
		}
	}()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("failed to create supervisor tree: %w", err)
	}

	tree.AddDataService(services.NewCachePruneService(a.pruner, cfg.Cache.PruneInterval))
	if cfg.Refresh.Internal {
		tree.AddDataService(refresh.NewTicker(a.runner, refresh.ActionDiscover, cfg.Refresh.DiscoverInterval))
		tree.AddDataService(refresh.NewTicker(a.runner, refresh.ActionVerify, cfg.Refresh.VerifyInterval))
		tree.AddDataService(refresh.NewTicker(a.runner, refresh.ActionLive, cfg.Refresh.LiveInterval))
		logging.Info().
			Dur("discover", cfg.Refresh.DiscoverInterval).
			Dur("verify", cfg.Refresh.VerifyInterval).
			Dur("live", cfg.Refresh.LiveInterval).
			Msg("Internal refresh tickers enabled")
	}

	hub := ws.NewHub()
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddMessagingService(events.NewConsumer("feed-invalidation", a.bus, a.agg.InvalidationHandler(a.bus.Origin())))
	tree.AddMessagingService(events.NewConsumer("websocket-push", a.bus, hub.InvalidationHandler()))

	handler := api.NewHandler(api.HandlerDeps{
		Feeds:   a.agg,
		Runner:  a.runner,
		Hub:     hub,
		DB:      a.db,
		Config:  cfg,
		Version: version,
	})
	router := api.NewRouter(handler, api.NewChiMiddleware(api.NewChiMiddlewareConfig(cfg.Server)))

	addr := cfg.Server.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(srv, addr, cfg.Server.ShutdownTimeout))

	err = tree.Serve(ctx)
	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree failed: %w", err)
	}
	logging.Info().Msg("runfeed stopped")
	return nil
}
