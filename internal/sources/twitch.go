// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package sources

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/runfeed/internal/config"
	"github.com/tomtom215/runfeed/internal/logging"
	"github.com/tomtom215/runfeed/internal/models"
)

const (
	sourceTwitch     = "twitch"
	sourceTwitchAuth = "twitch_auth"

	// helixBatchSize is the Helix maximum for user_id / login filters.
	helixBatchSize = 100

	// tokenRefreshMargin renews the app token this long before it expires.
	tokenRefreshMargin = 60 * time.Second

	twitchThumbnailSize = "440x248"
)

// Twitch is the Helix adapter. It authenticates with an app access token
// obtained through the client-credentials grant.
type Twitch struct {
	api    *httpClient
	tokens *appTokenSource
}

// NewTwitch creates the adapter.
func NewTwitch(cfg config.TwitchConfig, timeout time.Duration) *Twitch {
	api := newHTTPClient(clientConfig{
		Source:            sourceTwitch,
		BaseURL:           cfg.BaseURL,
		Timeout:           timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	})
	authAPI := newHTTPClient(clientConfig{
		Source:  sourceTwitchAuth,
		BaseURL: cfg.AuthURL,
		Timeout: timeout,
	})

	t := &Twitch{
		api: api,
		tokens: &appTokenSource{
			api:          authAPI,
			clientID:     cfg.ClientID,
			clientSecret: cfg.ClientSecret,
			now:          time.Now,
		},
	}
	api.authorize = func(ctx context.Context, req *http.Request) error {
		token, err := t.tokens.Token(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Client-Id", cfg.ClientID)
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}
	return t
}

type helixUser struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

type helixStream struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	UserLogin    string    `json:"user_login"`
	UserName     string    `json:"user_name"`
	Type         string    `json:"type"`
	Title        string    `json:"title"`
	ViewerCount  int       `json:"viewer_count"`
	StartedAt    time.Time `json:"started_at"`
	ThumbnailURL string    `json:"thumbnail_url"`
}

type helixResponse[T any] struct {
	Data []T `json:"data"`
}

// ResolveChannels maps logins to Helix user ids. Logins Twitch does not
// know, or that are not valid logins, are absent from the result.
func (t *Twitch) ResolveChannels(ctx context.Context, logins []string) (map[string]string, error) {
	valid := slices.DeleteFunc(dedupeLower(logins), func(login string) bool {
		return !models.IsTwitchLogin(login)
	})
	ids := make(map[string]string, len(valid))
	for _, batch := range chunk(valid, helixBatchSize) {
		q := url.Values{}
		for _, login := range batch {
			q.Add("login", login)
		}
		var resp helixResponse[helixUser]
		if err := t.getWithReauth(ctx, "/users", q, &resp); err != nil {
			return nil, err
		}
		for _, u := range resp.Data {
			ids[strings.ToLower(u.Login)] = u.ID
		}
	}
	return ids, nil
}

// Streams returns the channels among channelIDs that are live now. Nobody
// live is an empty, successful result.
func (t *Twitch) Streams(ctx context.Context, channelIDs []string) ([]models.Stream, error) {
	streams := make([]models.Stream, 0)
	for _, batch := range chunk(channelIDs, helixBatchSize) {
		q := url.Values{}
		for _, id := range batch {
			q.Add("user_id", id)
		}
		q.Set("first", "100")

		var resp helixResponse[helixStream]
		if err := t.getWithReauth(ctx, "/streams", q, &resp); err != nil {
			return nil, err
		}
		for _, s := range resp.Data {
			if s.Type != "" && s.Type != "live" {
				continue
			}
			streams = append(streams, models.Stream{
				Platform:     models.PlatformTwitch,
				ChannelID:    s.UserID,
				ChannelLogin: strings.ToLower(s.UserLogin),
				ChannelName:  s.UserName,
				Title:        s.Title,
				ViewerCount:  s.ViewerCount,
				StartedAt:    s.StartedAt,
				ThumbnailURL: twitchThumbnail(s.ThumbnailURL),
			})
		}
	}
	return streams, nil
}

// getWithReauth retries once with a fresh token when Helix rejects the
// cached one.
func (t *Twitch) getWithReauth(ctx context.Context, path string, q url.Values, out any) error {
	err := t.api.getJSON(ctx, path, q, out)
	if !IsUnauthorized(err) {
		return err
	}
	logging.Ctx(ctx).Info().Msg("Twitch app token rejected, requesting a new one")
	t.tokens.Invalidate()
	return t.api.getJSON(ctx, path, q, out)
}

func twitchThumbnail(template string) string {
	return strings.NewReplacer("{width}x{height}", twitchThumbnailSize, "%{width}x%{height}", twitchThumbnailSize).Replace(template)
}

// appTokenSource caches a Twitch app access token.
type appTokenSource struct {
	api          *httpClient
	clientID     string
	clientSecret string
	now          func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// Token returns a valid token, fetching one when none is cached or the
// cached one is about to expire. Concurrent callers share one fetch.
func (s *appTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Add(tokenRefreshMargin).Before(s.expiry) {
		return s.token, nil
	}

	form := url.Values{}
	form.Set("client_id", s.clientID)
	form.Set("client_secret", s.clientSecret)
	form.Set("grant_type", "client_credentials")

	var resp tokenResponse
	if err := s.api.postForm(ctx, "", form, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", &UpstreamError{Source: sourceTwitchAuth, StatusCode: http.StatusOK, Err: errEmptyToken}
	}

	s.token = resp.AccessToken
	s.expiry = s.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	return s.token, nil
}

// Invalidate drops the cached token.
func (s *appTokenSource) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

func chunk(items []string, size int) [][]string {
	var out [][]string
	for len(items) > size {
		out = append(out, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}

func dedupeLower(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
