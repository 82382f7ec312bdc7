// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package refresh

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/runfeed/internal/cache"
	"github.com/tomtom215/runfeed/internal/config"
	"github.com/tomtom215/runfeed/internal/feed"
	"github.com/tomtom215/runfeed/internal/logging"
	"github.com/tomtom215/runfeed/internal/metrics"
	"github.com/tomtom215/runfeed/internal/models"
	"github.com/tomtom215/runfeed/internal/sources"
)

// ErrUnknownAction is returned for an action name outside the enum.
var ErrUnknownAction = errors.New("unknown refresh action")

// Action names a refresh action.
type Action string

const (
	ActionDiscover Action = "discover"
	ActionVerify   Action = "verify"
	ActionLive     Action = "live"
)

// Trigger labels for metrics and logs.
const (
	TriggerCron     = "cron"
	TriggerInternal = "internal"
	TriggerCLI      = "cli"
)

// liveWindow is how far back PollLive looks for freshly published videos
// that may turn into or out of broadcasts.
const liveWindow = 48 * time.Hour

// ParseAction validates s as an action name.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionDiscover, ActionVerify, ActionLive:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}

// Catalog is the durable store the actions read and write.
type Catalog interface {
	ListUsers(ctx context.Context) ([]models.RegisteredUser, error)
	UpsertVideos(ctx context.Context, videos []models.Video) (int, error)
	UpdateVideoDetails(ctx context.Context, videos []models.Video) (int, error)
	DeleteVideos(ctx context.Context, ids []string) (int, error)
	ListVideoIDs(ctx context.Context) ([]string, error)
	ListLiveCandidates(ctx context.Context, since time.Time) ([]string, error)
	CountVideos(ctx context.Context) (int, error)
}

// ChannelResolver maps users to their YouTube channels.
type ChannelResolver interface {
	YouTubeChannels(ctx context.Context, users []models.RegisteredUser) ([]sources.YouTubeChannel, error)
}

// VideoSource reads uploads and video details from YouTube.
type VideoSource interface {
	RecentUploads(ctx context.Context, playlistID string, max int) ([]models.Video, error)
	VideoDetails(ctx context.Context, ids []string) (found []models.Video, missing []string, err error)
}

// Feeds rebuilds and drops feed cache entries.
type Feeds interface {
	Refresh(ctx context.Context, t feed.Type) (feed.Response, error)
	Invalidate(ctx context.Context, types ...feed.Type) error
}

// Publisher announces changed feeds.
type Publisher interface {
	Publish(ctx context.Context, source string, feeds ...string) error
}

// Deps are the collaborators of a Runner. Videos is nil when YouTube is
// disabled; Pruner and Publisher are optional.
type Deps struct {
	Catalog   Catalog
	Channels  ChannelResolver
	Videos    VideoSource
	Feeds     Feeds
	Pruner    cache.Pruner
	Publisher Publisher
}

// Runner executes refresh actions.
type Runner struct {
	deps              Deps
	timeout           time.Duration
	uploadsPerChannel int
	now               func() time.Time
}

// NewRunner creates a Runner.
func NewRunner(cfg config.RefreshConfig, yt config.YouTubeConfig, deps Deps) *Runner {
	return &Runner{
		deps:              deps,
		timeout:           cfg.Timeout,
		uploadsPerChannel: yt.UploadsPerChannel,
		now:               time.Now,
	}
}

// Run executes action with the configured timeout and returns its result
// struct.
func (r *Runner) Run(ctx context.Context, action Action, trigger string) (any, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	ctx = logging.ContextWithNewCorrelationID(ctx)

	start := time.Now()
	var (
		result any
		err    error
	)
	switch action {
	case ActionDiscover:
		result, err = r.Discover(ctx)
	case ActionVerify:
		result, err = r.Verify(ctx)
	case ActionLive:
		result, err = r.PollLive(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	elapsed := time.Since(start)
	metrics.RecordRefresh(string(action), trigger, elapsed, err)

	logger := logging.Ctx(ctx)
	if err != nil {
		logger.Error().Err(err).Str("action", string(action)).Str("trigger", trigger).
			Dur("duration", elapsed).Msg("Refresh action failed")
		return nil, err
	}
	logger.Info().Str("action", string(action)).Str("trigger", trigger).
		Dur("duration", elapsed).Interface("result", result).Msg("Refresh action completed")
	return result, nil
}

// announce drops local entries for types and tells other holders of feed
// state. Failures are logged: the data is already written.
func (r *Runner) announce(ctx context.Context, action Action, invalidate []feed.Type, changed []feed.Type) {
	if len(invalidate) > 0 {
		if err := r.deps.Feeds.Invalidate(ctx, invalidate...); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("action", string(action)).Msg("Feed invalidation failed")
		}
	}
	if r.deps.Publisher == nil {
		return
	}
	names := make([]string, 0, len(invalidate)+len(changed))
	for _, t := range invalidate {
		names = append(names, string(t))
	}
	for _, t := range changed {
		names = append(names, string(t))
	}
	if err := r.deps.Publisher.Publish(ctx, string(action), names...); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("action", string(action)).Msg("Failed to publish invalidation")
	}
}

func (r *Runner) updateCatalogGauge(ctx context.Context) {
	if n, err := r.deps.Catalog.CountVideos(ctx); err == nil {
		metrics.VideoCatalogSize.Set(float64(n))
	}
}
