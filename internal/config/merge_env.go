// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

// mergeEnvConfig merges environment variables into cfg.
// ENV variables have the highest precedence.
func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	l.mergeEnvCore(cfg)
	l.mergeEnvSource(cfg)
	l.mergeEnvTimeline(cfg)
	l.mergeEnvFetch(cfg)
	l.mergeEnvServer(cfg)
	l.mergeEnvTelemetry(cfg)
}

func (l *Loader) mergeEnvCore(cfg *AppConfig) {
	cfg.DataDir = l.envString("DATA_DIR", cfg.DataDir)
	cfg.XMLTVPath = l.envString("XMLTV_PATH", cfg.XMLTVPath)
	cfg.LogLevel = l.envString("LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = l.envString("LOG_SERVICE", cfg.LogService)
}

func (l *Loader) mergeEnvSource(cfg *AppConfig) {
	cfg.Source.URL = l.envString("SOURCE_URL", cfg.Source.URL)
	cfg.Source.Strategies = l.envList("SOURCE_STRATEGIES", cfg.Source.Strategies)
	cfg.Source.UserAgent = l.envString("SOURCE_USER_AGENT", cfg.Source.UserAgent)
	cfg.Source.TimeMode = l.envString("SOURCE_TIME_MODE", cfg.Source.TimeMode)
}

func (l *Loader) mergeEnvTimeline(cfg *AppConfig) {
	cfg.Timeline.RolloverThreshold = l.envDuration("ROLLOVER_THRESHOLD", cfg.Timeline.RolloverThreshold)
	cfg.Timeline.DefaultDuration = l.envDuration("DEFAULT_DURATION", cfg.Timeline.DefaultDuration)
	cfg.Timeline.Days = l.envInt("DAYS", cfg.Timeline.Days)
	cfg.Timeline.UTCOffset = l.envString("UTC_OFFSET", cfg.Timeline.UTCOffset)
	cfg.Timeline.SortByClock = l.envBool("SORT_BY_CLOCK", cfg.Timeline.SortByClock)
}

func (l *Loader) mergeEnvFetch(cfg *AppConfig) {
	cfg.Fetch.Timeout = l.envDuration("FETCH_TIMEOUT", cfg.Fetch.Timeout)
	cfg.Fetch.Retries = l.envInt("FETCH_RETRIES", cfg.Fetch.Retries)
	cfg.Fetch.Concurrency = l.envInt("FETCH_CONCURRENCY", cfg.Fetch.Concurrency)
	cfg.Fetch.RatePerSecond = l.envFloat("FETCH_RATE", cfg.Fetch.RatePerSecond)
	cfg.Fetch.CacheTTL = l.envDuration("CACHE_TTL", cfg.Fetch.CacheTTL)
	cfg.Fetch.RedisAddr = l.envString("REDIS_ADDR", cfg.Fetch.RedisAddr)
}

func (l *Loader) mergeEnvServer(cfg *AppConfig) {
	cfg.Refresh.Interval = l.envDuration("REFRESH_INTERVAL", cfg.Refresh.Interval)
	cfg.Refresh.RequireProgrammes = l.envBool("REQUIRE_PROGRAMMES", cfg.Refresh.RequireProgrammes)
	cfg.API.ListenAddr = l.envString("LISTEN_ADDR", cfg.API.ListenAddr)
	cfg.API.RefreshRateLimit = l.envInt("REFRESH_RATE_LIMIT", cfg.API.RefreshRateLimit)
	cfg.History.Path = l.envString("HISTORY_PATH", cfg.History.Path)
	cfg.History.Keep = l.envInt("HISTORY_KEEP", cfg.History.Keep)
}

func (l *Loader) mergeEnvTelemetry(cfg *AppConfig) {
	cfg.Telemetry.Enabled = l.envBool("TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString("TELEMETRY_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString("TELEMETRY_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat("TELEMETRY_SAMPLING_RATE", cfg.Telemetry.SamplingRate)
}
