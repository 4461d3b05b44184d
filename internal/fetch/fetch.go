// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fetch retrieves schedule pages politely: rate limited, retried with
// backoff, cached, traced and decoded to UTF-8.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ManuGH/tvsched/internal/cache"
	xglog "github.com/ManuGH/tvsched/internal/log"
	"github.com/ManuGH/tvsched/internal/metrics"
	"github.com/ManuGH/tvsched/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html/charset"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultBackoff     = 500 * time.Millisecond
	defaultMaxBackoff  = 5 * time.Second
	defaultConcurrency = 2
	defaultUserAgent   = "tvsched"

	// maxBodySize bounds a single schedule page.
	maxBodySize = 10 * 1024 * 1024
)

// StatusError reports a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Code)
}

// Options configures a Fetcher.
type Options struct {
	Timeout     time.Duration
	Retries     int
	Backoff     time.Duration
	MaxBackoff  time.Duration
	UserAgent   string
	Concurrency int
	// RatePerSecond limits request starts. Zero disables the limiter.
	RatePerSecond float64
	CacheTTL      time.Duration
}

func normalizeOptions(opts Options) Options {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = defaultUserAgent
	}
	return opts
}

// Fetcher downloads schedule pages.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	cache   cache.Cache
	opts    Options
	logger  zerolog.Logger
}

// New creates a Fetcher. A nil cache disables caching.
func New(opts Options, c cache.Cache) *Fetcher {
	opts = normalizeOptions(opts)
	if c == nil {
		c = cache.NewNoOpCache()
	}

	dialTimeout := min(opts.Timeout, 10*time.Second)
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   dialTimeout,
		ResponseHeaderTimeout: opts.Timeout,
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}

	return &Fetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(base),
		},
		limiter: limiter,
		cache:   c,
		opts:    opts,
		logger:  xglog.WithComponent("fetch"),
	}
}

// Fetch returns the page at url decoded to UTF-8, from cache when fresh.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if body, ok := f.cache.Get(ctx, url); ok {
		metrics.IncFetchCache(true)
		f.logger.Debug().Str("event", "fetch.cache_hit").Str(xglog.FieldURL, url).Msg("page served from cache")
		return body, nil
	}
	metrics.IncFetchCache(false)

	body, err := f.fetchWithRetry(ctx, url)
	if err != nil {
		return nil, err
	}
	f.cache.Set(ctx, url, body, f.opts.CacheTTL)
	return body, nil
}

// Result is the outcome of one page fetch.
type Result struct {
	URL  string
	Body []byte
	Err  error
}

// FetchAll fetches urls with bounded parallelism. A failing page does not
// cancel its siblings; results keep the order of urls.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) []Result {
	results := make([]Result, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.Concurrency)

	for i, u := range urls {
		g.Go(func() error {
			body, err := f.Fetch(gctx, u)
			results[i] = Result{URL: u, Body: body, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (f *Fetcher) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	ctx, span := telemetry.Tracer("tvsched.fetch").Start(ctx, "fetch.page", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.HTTPURLKey, url))

	maxAttempts := f.opts.Retries + 1
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		start := time.Now()
		body, status, err := f.do(ctx, url)
		retry := err != nil && attempt < maxAttempts && shouldRetry(status, err)
		metrics.RecordFetchAttempt(status, time.Since(start), retry)

		if err == nil {
			span.SetAttributes(attribute.Int(telemetry.HTTPStatusCodeKey, status), attribute.Int("attempts", attempt))
			span.SetStatus(codes.Ok, "")
			return body, nil
		}
		lastErr = err
		f.logger.Warn().
			Err(err).
			Str("event", "fetch.attempt_failed").
			Str(xglog.FieldURL, url).
			Int("attempt", attempt).
			Bool("retry", retry).
			Msg("page fetch failed")
		if !retry {
			break
		}
		if err := sleepWithContext(ctx, f.backoffFor(attempt-1)); err != nil {
			lastErr = err
			break
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	return nil, lastErr
}

func (f *Fetcher) do(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %s: %w", url, err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "es-EC,es;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, resp.StatusCode, &StatusError{URL: url, Code: resp.StatusCode}
	}

	r, err := charset.NewReader(io.LimitReader(resp.Body, maxBodySize), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("fetch %s: decode charset: %w", url, err)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("fetch %s: read body: %w", url, err)
	}
	return body, resp.StatusCode, nil
}

// shouldRetry retries transport errors, 429 and 5xx. Context cancellation is final.
func shouldRetry(status int, err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if status == 0 {
		return true
	}
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func (f *Fetcher) backoffFor(attempt int) time.Duration {
	wait := f.opts.Backoff * time.Duration(1<<attempt)
	if wait > f.opts.MaxBackoff {
		wait = f.opts.MaxBackoff
	}
	// #nosec G404 -- jitter only
	return wait + time.Duration(rand.Int64N(int64(wait/5+1)))
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
