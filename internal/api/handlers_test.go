// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/tomtom215/runfeed/internal/config"
	"github.com/tomtom215/runfeed/internal/feed"
	"github.com/tomtom215/runfeed/internal/models"
	"github.com/tomtom215/runfeed/internal/refresh"
)

const testSecret = "s3cret-token"

// fakeFeeds records the favourites it was asked to apply.
type fakeFeeds struct {
	mu       sync.Mutex
	lastType feed.Type
	lastFavs models.FavoriteSet
	err      error
}

func (f *fakeFeeds) GetFeed(_ context.Context, t feed.Type, favs models.FavoriteSet) (feed.Response, time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastType, f.lastFavs = t, favs
	if f.err != nil {
		return nil, 0, f.err
	}
	return feed.Empty(t), 15 * time.Second, nil
}

func (f *fakeFeeds) CacheControl(_ feed.Type, remaining time.Duration) string {
	secs := int(remaining / time.Second)
	return fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate=%d", secs, 2*secs)
}

type fakeRunner struct {
	mu      sync.Mutex
	calls   []refresh.Action
	trigger string
	result  any
	err     error
	delay   time.Duration
}

func (f *fakeRunner) Run(_ context.Context, action refresh.Action, trigger string) (any, error) {
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, action)
	f.trigger = trigger
	return f.result, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type testServer struct {
	feeds   *fakeFeeds
	runner  *fakeRunner
	handler http.Handler
}

func newTestServer(t *testing.T, opts ...func(*HandlerDeps)) *testServer {
	t.Helper()
	cfg := &config.Config{}
	cfg.Refresh.CronSecret = testSecret
	cfg.Server.CORSOrigins = []string{"https://runs.example"}

	ts := &testServer{
		feeds:  &fakeFeeds{},
		runner: &fakeRunner{result: refresh.DiscoverResult{Channels: 2, Fetched: 10, Inserted: 3}},
	}
	deps := HandlerDeps{
		Feeds:   ts.feeds,
		Runner:  ts.runner,
		DB:      fakePinger{},
		Config:  cfg,
		Version: "test",
	}
	for _, opt := range opts {
		opt(&deps)
	}

	mc := DefaultChiMiddlewareConfig()
	mc.RateLimitDisabled = true
	ts.handler = NewRouter(NewHandler(deps), NewChiMiddleware(mc)).SetupChi()
	return ts
}

func (ts *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return body
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, rec)
	if body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
	e, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("error field = %#v", body["error"])
	}
	code, _ := e["code"].(string)
	return code
}

func TestFeedServesEnvelope(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/feed?type=live-runs", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, s-maxage=15, stale-while-revalidate=30" {
		t.Errorf("Cache-Control = %q", got)
	}
	if got := rec.Header().Get("X-Request-ID"); got == "" {
		t.Error("X-Request-ID missing")
	}
	body := decodeBody(t, rec)
	if _, ok := body["liveRuns"]; !ok {
		t.Errorf("liveRuns key missing: %v", body)
	}
	if _, ok := body["users"]; !ok {
		t.Errorf("users key missing: %v", body)
	}
	if ts.feeds.lastType != feed.LiveRuns {
		t.Errorf("requested %q", ts.feeds.lastType)
	}
}

func TestFeedRejectsBadType(t *testing.T) {
	ts := newTestServer(t)
	for _, target := range []string{"/api/feed", "/api/feed?type=", "/api/feed?type=speedruns"} {
		t.Run(target, func(t *testing.T) {
			rec := ts.do(t, httptest.NewRequest(http.MethodGet, target, nil))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rec.Code)
			}
			if code := errorCode(t, rec); code != ErrCodeValidation {
				t.Errorf("code = %q, want %s", code, ErrCodeValidation)
			}
		})
	}
}

func TestFeedTypeIsCaseInsensitive(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/feed?type=YouTube-Live", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ts.feeds.lastType != feed.YouTubeLive {
		t.Errorf("requested %q", ts.feeds.lastType)
	}
}

func TestFeedInternalError(t *testing.T) {
	ts := newTestServer(t)
	ts.feeds.err = errors.New("cache exploded")

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/feed?type=live-runs", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if code := errorCode(t, rec); code != ErrCodeInternal {
		t.Errorf("code = %q", code)
	}
	if strings.Contains(rec.Body.String(), "exploded") {
		t.Error("internal error detail leaked to the client")
	}
}

func TestFeedPassesFavoritesCookie(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/feed?type=recent-paces", nil)
	req.AddCookie(&http.Cookie{Name: FavoritesCookie, Value: url.QueryEscape(`["Steve","dana"]`)})

	if rec := ts.do(t, req); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if diff := cmp.Diff(models.NewFavoriteSet("steve", "dana"), ts.feeds.lastFavs); diff != "" {
		t.Errorf("favourites (-want +got):\n%s", diff)
	}
}

func TestParseFavoritesValue(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"json array", `["Steve","alex"]`, []string{"Steve", "alex"}},
		{"encoded json array", url.QueryEscape(`["Steve","alex"]`), []string{"Steve", "alex"}},
		{"csv", "Steve, alex,,bob", []string{"Steve", "alex", "bob"}},
		{"encoded csv", url.QueryEscape("Steve,alex"), []string{"Steve", "alex"}},
		{"quoted csv", `"Steve","alex"`, []string{"Steve", "alex"}},
		{"broken json", `["Steve"`, nil},
		{"blank", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, parseFavoritesValue(tt.raw)); diff != "" {
				t.Errorf("parseFavoritesValue(%q) (-want +got):\n%s", tt.raw, diff)
			}
		})
	}
}

func TestParseFavoritesCapsEntries(t *testing.T) {
	ids := make([]string, maxFavorites+50)
	for i := range ids {
		ids[i] = fmt.Sprintf("player%d", i)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: FavoritesCookie, Value: strings.Join(ids, ",")})

	if got := len(parseFavorites(req)); got > maxFavorites {
		t.Errorf("kept %d favourites, want at most %d", got, maxFavorites)
	}
}

func TestCronRequiresBearerSecret(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong secret", "Bearer nope"},
		{"wrong scheme", "Basic " + testSecret},
		{"prefix of secret", "Bearer " + testSecret[:4]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/cron/discover", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := ts.do(t, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d", rec.Code)
			}
			if code := errorCode(t, rec); code != ErrCodeUnauthorized {
				t.Errorf("code = %q", code)
			}
		})
	}
	if len(ts.runner.calls) != 0 {
		t.Errorf("runner called %d times for rejected requests", len(ts.runner.calls))
	}
}

func TestCronDisabledWithoutSecret(t *testing.T) {
	ts := newTestServer(t, func(d *HandlerDeps) { d.Config.Refresh.CronSecret = "" })

	req := httptest.NewRequest(http.MethodGet, "/api/cron/live", nil)
	req.Header.Set("Authorization", "Bearer ")
	if rec := ts.do(t, req); rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestCronRunsAction(t *testing.T) {
	ts := newTestServer(t)
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		req := httptest.NewRequest(method, "/api/cron/discover", nil)
		req.Header.Set("Authorization", "Bearer "+testSecret)
		rec := ts.do(t, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d, body %s", method, rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		if body["success"] != true || body["action"] != "discover" {
			t.Errorf("body = %v", body)
		}
		if body["inserted"] != float64(3) || body["channels"] != float64(2) {
			t.Errorf("counts missing from body: %v", body)
		}
	}
	if diff := cmp.Diff([]refresh.Action{refresh.ActionDiscover, refresh.ActionDiscover}, ts.runner.calls); diff != "" {
		t.Errorf("calls (-want +got):\n%s", diff)
	}
	if ts.runner.trigger != refresh.TriggerCron {
		t.Errorf("trigger = %q", ts.runner.trigger)
	}
}

func TestCronFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.runner.err = errors.New("youtube quota exceeded")

	req := httptest.NewRequest(http.MethodPost, "/api/cron/verify", nil)
	req.Header.Set("Authorization", "Bearer "+testSecret)
	rec := ts.do(t, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != false || body["error"] != "youtube quota exceeded" {
		t.Errorf("body = %v", body)
	}
}

func TestCronOutlivesServerWriteTimeout(t *testing.T) {
	ts := newTestServer(t, func(d *HandlerDeps) {
		d.Config.Refresh.Timeout = 5 * time.Second
	})
	ts.runner.delay = 300 * time.Millisecond

	srv := httptest.NewUnstartedServer(ts.handler)
	srv.Config.WriteTimeout = 100 * time.Millisecond
	srv.Start()
	t.Cleanup(srv.Close)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/cron/verify", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+testSecret)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("cron request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["success"] != true || body["action"] != "verify" {
		t.Errorf("body = %v", body)
	}
}

func TestCronUnknownAction(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/cron/reindex", nil)
	req.Header.Set("Authorization", "Bearer "+testSecret)

	rec := ts.do(t, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(ts.runner.calls) != 0 {
		t.Error("runner called for an unknown action")
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
}

func TestReadyz(t *testing.T) {
	ts := newTestServer(t)
	if rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/readyz", nil)); rec.Code != http.StatusOK {
		t.Errorf("ready status = %d", rec.Code)
	}

	down := newTestServer(t, func(d *HandlerDeps) { d.DB = fakePinger{err: errors.New("closed")} })
	rec := down.do(t, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	body := decodeBody(t, rec)
	checks, _ := body["checks"].(map[string]interface{})
	if checks["database"] != "unreachable" {
		t.Errorf("checks = %v", checks)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, httptest.NewRequest(http.MethodGet, "/api/feed?type=live-runs", nil))

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "runfeed_") {
		t.Error("runfeed metrics missing from exposition")
	}
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != ErrCodeNotFound {
		t.Errorf("unknown route: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, httptest.NewRequest(http.MethodDelete, "/api/feed?type=live-runs", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE status = %d", rec.Code)
	}
}

func TestRateLimitUsesEnvelope(t *testing.T) {
	mc := DefaultChiMiddlewareConfig()
	mc.RateLimitRequests = 1
	cfg := &config.Config{}
	h := NewRouter(NewHandler(HandlerDeps{Feeds: &fakeFeeds{}, Runner: &fakeRunner{}, Config: cfg}), NewChiMiddleware(mc)).SetupChi()

	var last *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		last = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/feed?type=live-runs", nil)
		req.RemoteAddr = "203.0.113.9:4000"
		h.ServeHTTP(last, req)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", last.Code)
	}
	if code := errorCode(t, last); code != ErrCodeRateLimited {
		t.Errorf("code = %q", code)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/feed?type=live-runs", nil)
	req.Header.Set("Origin", "https://runs.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	rec := ts.do(t, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://runs.example" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}
