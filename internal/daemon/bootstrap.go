// SPDX-License-Identifier: MIT

// Package daemon wires configuration, refresh scheduling and the HTTP server
// into a long-running process.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ManuGH/tvsched/internal/api"
	"github.com/ManuGH/tvsched/internal/cache"
	"github.com/ManuGH/tvsched/internal/config"
	"github.com/ManuGH/tvsched/internal/fetch"
	"github.com/ManuGH/tvsched/internal/health"
	"github.com/ManuGH/tvsched/internal/history"
	"github.com/ManuGH/tvsched/internal/jobs"
	"github.com/ManuGH/tvsched/internal/log"
	"github.com/ManuGH/tvsched/internal/telemetry"
	"github.com/rs/zerolog"
)

// Options controls Build.
type Options struct {
	Version    string
	ConfigPath string
	EnvFile    string
	// ListenAddr overrides api.listen_addr when set.
	ListenAddr string
	// DryRun refreshes without publishing the guide.
	DryRun bool
}

// Runtime is the set of long-lived components shared by the daemon and the
// one-shot commands.
type Runtime struct {
	Holder  *config.ConfigHolder
	Runner  *jobs.Runner
	History *history.Store

	logger    zerolog.Logger
	cache     cache.Cache
	telemetry *telemetry.Provider
	fetchers  *fetcherPool
	opts      Options
}

// Build loads configuration and constructs the runtime. Callers must Close it.
func Build(ctx context.Context, opts Options) (*Runtime, error) {
	loaderOpts := []config.LoaderOption{}
	if opts.EnvFile != "" {
		loaderOpts = append(loaderOpts, config.WithEnvFile(opts.EnvFile))
	}
	loader := config.NewLoader(opts.ConfigPath, opts.Version, loaderOpts...)
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if opts.ListenAddr != "" {
		cfg.API.ListenAddr = opts.ListenAddr
		if err := config.Validate(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: opts.Version,
	})
	logger := log.WithComponent("daemon")

	rt := &Runtime{
		Holder:   config.NewConfigHolder(cfg, loader),
		logger:   logger,
		fetchers: &fetcherPool{},
		opts:     opts,
	}

	rt.telemetry, err = telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: opts.Version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		logger.Warn().Err(err).Str("event", "telemetry.init_failed").Msg("telemetry initialization failed, continuing without tracing")
	}

	rt.cache = newPageCache(ctx, cfg, logger)
	rt.fetchers.cache = rt.cache

	if path := cfg.HistoryPath(); path != "" && !opts.DryRun {
		if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
			_ = rt.Close(ctx)
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		store, err := history.Open(ctx, path, cfg.History.Keep)
		if err != nil {
			_ = rt.Close(ctx)
			return nil, err
		}
		rt.History = store
	}

	rt.Runner = jobs.NewRunner(rt.deps)
	return rt, nil
}

func (rt *Runtime) deps() jobs.Deps {
	cfg := rt.Holder.Get()
	d := jobs.Deps{
		Config:  cfg,
		Fetcher: rt.fetchers.get(jobs.FetchOptions(cfg)),
		Metrics: jobs.PrometheusMetrics(),
		Clock:   time.Now,
		Options: jobs.Options{DryRun: rt.opts.DryRun},
	}
	if rt.History != nil {
		d.History = rt.History
	}
	return d
}

// Close releases the cache, history store and tracer provider.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	if rt.History != nil {
		errs = append(errs, rt.History.Close())
	}
	if rt.cache != nil {
		errs = append(errs, rt.cache.Close())
	}
	if rt.telemetry != nil {
		errs = append(errs, rt.telemetry.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// NewApp builds the HTTP server, manager and scheduler around rt. The
// runtime is closed by the manager's shutdown hooks.
func (rt *Runtime) NewApp() (*App, error) {
	cfg := rt.Holder.Get()

	apiOpts := api.Options{
		Version:   rt.opts.Version,
		Config:    rt.Holder.Get,
		Refresher: rt.Runner,
	}
	if rt.History != nil {
		apiOpts.History = rt.History
	}
	apiOpts.Health = rt.healthManager()
	srv := api.New(apiOpts)

	mgr, err := NewManager(DefaultServerConfig(cfg.API.ListenAddr), Deps{
		Logger:     rt.logger,
		APIHandler: srv.Handler(),
	})
	if err != nil {
		return nil, err
	}
	mgr.RegisterShutdownHook("runtime", rt.Close)

	sched := NewScheduler(rt.Runner, cfg.Refresh.Interval, rt.logger)
	return NewApp(rt.logger, mgr, rt.Holder, sched), nil
}

// healthManager registers readiness on the published guide and
// informational checks for refresh freshness and the backing stores.
func (rt *Runtime) healthManager() *health.Manager {
	hm := health.NewManager(rt.opts.Version)
	hm.RegisterChecker(health.NewFileChecker("guide", func() string {
		return rt.Holder.Get().GuidePath()
	}))
	hm.RegisterChecker(health.NewFreshnessChecker(rt.Runner.LastSuccessAt, func() time.Duration {
		// three missed refreshes before the guide counts as stale
		return 3 * rt.Holder.Get().Refresh.Interval
	}))
	if rt.History != nil {
		hm.RegisterChecker(health.Informational(health.NewPingChecker("history", rt.History.Ping)))
	}
	if rc, ok := rt.cache.(*cache.RedisCache); ok {
		hm.RegisterChecker(health.Informational(health.NewPingChecker("page_cache", rc.HealthCheck)))
	}
	return hm
}

// newPageCache prefers Redis when configured and falls back to memory.
func newPageCache(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) cache.Cache {
	if cfg.Fetch.CacheTTL <= 0 {
		return cache.NewNoOpCache()
	}
	if cfg.Fetch.RedisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: cfg.Fetch.RedisAddr}, log.WithComponent("cache"))
		if err == nil {
			return rc
		}
		logger.Warn().Err(err).Str("event", "cache.redis_unavailable").Msg("falling back to in-memory page cache")
	}
	return cache.NewMemoryCache(time.Minute)
}

// fetcherPool rebuilds the fetcher only when the fetch options change, so a
// config reload takes effect without dropping pooled connections otherwise.
type fetcherPool struct {
	mu    sync.Mutex
	cache cache.Cache
	opts  fetch.Options
	cur   *fetch.Fetcher
}

func (p *fetcherPool) get(opts fetch.Options) *fetch.Fetcher {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cur == nil || p.opts != opts {
		p.cur = fetch.New(opts, p.cache)
		p.opts = opts
	}
	return p.cur
}

// WaitForShutdown returns a context cancelled on SIGINT or SIGTERM.
func WaitForShutdown() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
