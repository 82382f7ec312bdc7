// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/runfeed/internal/logging"
	"github.com/tomtom215/runfeed/internal/metrics"
)

// maxErrorBodySize limits how much of an error response is read.
const maxErrorBodySize = 64 * 1024

// maxRetryDelay is the longest Retry-After we are willing to wait inside a
// request. Longer waits fail the call and leave the retry to the next fetch.
const maxRetryDelay = 10 * time.Second

const userAgent = "runfeed/1.0 (+https://github.com/tomtom215/runfeed)"

// clientConfig configures the shared HTTP plumbing of one source.
type clientConfig struct {
	Source            string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// httpClient executes JSON requests against one upstream with rate limiting,
// 429 backoff and a circuit breaker.
type httpClient struct {
	source  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker *breaker

	// authorize decorates each request, e.g. with an API token.
	authorize func(ctx context.Context, req *http.Request) error

	maxRetries     int
	retryBaseDelay time.Duration
}

func newHTTPClient(cfg clientConfig) *httpClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &httpClient{
		source:         cfg.Source,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		client:         &http.Client{Timeout: timeout},
		limiter:        rate.NewLimiter(limit, burst),
		breaker:        newBreaker(cfg.Source + "-api"),
		maxRetries:     2,
		retryBaseDelay: 500 * time.Millisecond,
	}
}

// request describes one call.
type request struct {
	method string
	path   string
	query  url.Values
	form   url.Values
}

// getJSON performs a GET and decodes the JSON body into out.
func (c *httpClient) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, request{method: http.MethodGet, path: path, query: query}, out)
}

// postForm performs a form-encoded POST and decodes the JSON body into out.
func (c *httpClient) postForm(ctx context.Context, path string, form url.Values, out any) error {
	return c.do(ctx, request{method: http.MethodPost, path: path, form: form}, out)
}

// do runs a request through the breaker. Every failure it returns is an
// *UpstreamError except context cancellation while waiting for the limiter.
func (c *httpClient) do(ctx context.Context, r request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limiter: %w", c.source, err)
	}

	_, err := c.breaker.execute(func() (any, error) {
		return nil, c.doOnce(ctx, r, out)
	})
	if errors.Is(err, ErrCircuitOpen) {
		metrics.UpstreamRequests.WithLabelValues(c.source, "circuit_open").Inc()
		return &UpstreamError{Source: c.source, Err: err}
	}
	return err
}

func (c *httpClient) doOnce(ctx context.Context, r request, out any) error {
	start := time.Now()
	resp, err := c.doWithRetry(ctx, r)
	if err != nil {
		metrics.RecordUpstream(c.source, 0, time.Since(start), err)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &UpstreamError{Source: c.source, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := readBodyForError(resp.Body)
		metrics.RecordUpstream(c.source, resp.StatusCode, time.Since(start), nil)
		return &UpstreamError{
			Source:     c.source,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s %s: %s", r.method, r.path, strings.TrimSpace(string(body))),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			metrics.RecordUpstream(c.source, resp.StatusCode, time.Since(start), err)
			return &UpstreamError{Source: c.source, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode %s: %w", r.path, err)}
		}
	}
	metrics.RecordUpstream(c.source, resp.StatusCode, time.Since(start), nil)
	return nil
}

// doWithRetry sends the request, retrying HTTP 429 with backoff. The delay
// comes from Retry-After when present, else base * 2^attempt.
func (c *httpClient) doWithRetry(ctx context.Context, r request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		req, err := c.newRequest(ctx, r)
		if err != nil {
			return nil, err
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt >= c.maxRetries {
			return resp, nil
		}

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if d, ok := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()); ok {
			delay = d
		}
		_ = resp.Body.Close()
		if delay > maxRetryDelay {
			return nil, fmt.Errorf("rate limited, retry after %s", delay)
		}

		logging.Ctx(ctx).Debug().Str("source", c.source).Int("attempt", attempt+1).
			Dur("backoff", delay).Msg("Upstream rate limited, backing off")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (c *httpClient) newRequest(ctx context.Context, r request) (*http.Request, error) {
	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var body io.Reader = http.NoBody
	if r.form != nil {
		body = strings.NewReader(r.form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if r.form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.authorize != nil {
		if err := c.authorize(ctx, req); err != nil {
			return nil, err
		}
	}
	return req, nil
}

// parseRetryAfter reads a Retry-After header given in seconds or as an
// HTTP date.
func parseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}

// readBodyForError reads at most maxErrorBodySize bytes of an error body.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}
