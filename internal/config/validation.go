// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ManuGH/tvsched/internal/validate"
)

// knownStrategies lists the page layouts the source package understands.
var knownStrategies = []string{"tabs", "table", "text"}

// Validate checks cfg and returns a validate.ValidationError listing every problem.
func Validate(cfg AppConfig) error {
	v := validate.New()
	validateRefreshInputs(v, cfg)

	if cfg.Refresh.Interval < 0 {
		v.AddError("refresh.interval", "interval cannot be negative", cfg.Refresh.Interval)
	}
	if cfg.API.ListenAddr != "" {
		v.ListenAddr("api.listen_addr", cfg.API.ListenAddr)
	}
	v.NonNegative("api.refresh_rate_limit", cfg.API.RefreshRateLimit)
	v.NonNegative("history.keep", cfg.History.Keep)

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
			v.AddError("telemetry.sampling_rate", "sampling rate must be between 0 and 1", cfg.Telemetry.SamplingRate)
		}
	}

	return v.Err()
}

// ValidateRefresh checks only the settings a refresh reads: paths, source,
// channels, routing, timeline and fetch. Server and telemetry settings are
// checked once at startup by Validate.
func ValidateRefresh(cfg AppConfig) error {
	v := validate.New()
	validateRefreshInputs(v, cfg)
	return v.Err()
}

func validateRefreshInputs(v *validate.Validator, cfg AppConfig) {
	v.NotEmpty("data_dir", cfg.DataDir)
	v.NotEmpty("xmltv_path", cfg.XMLTVPath)
	if !filepath.IsAbs(cfg.XMLTVPath) {
		v.Path("xmltv_path", cfg.XMLTVPath)
	}
	if !filepath.IsAbs(cfg.History.Path) {
		v.Path("history.path", cfg.History.Path)
	}
	if cfg.LogLevel != "" {
		if _, err := validate.ParseLogLevel(cfg.LogLevel); err != nil {
			v.AddError("log_level", err.Error(), cfg.LogLevel)
		}
	}

	validateSource(v, cfg)
	validateChannels(v, cfg)
	validateTimeline(v, cfg.Timeline)

	v.NonNegative("fetch.retries", cfg.Fetch.Retries)
	v.Range("fetch.concurrency", cfg.Fetch.Concurrency, 1, 16)
	if cfg.Fetch.Timeout <= 0 {
		v.AddError("fetch.timeout", "timeout must be positive", cfg.Fetch.Timeout)
	}
	if cfg.Fetch.RatePerSecond < 0 {
		v.AddError("fetch.rate_per_second", "rate cannot be negative", cfg.Fetch.RatePerSecond)
	}
	if cfg.Fetch.CacheTTL < 0 {
		v.AddError("fetch.cache_ttl", "ttl cannot be negative", cfg.Fetch.CacheTTL)
	}
}

func validateSource(v *validate.Validator, cfg AppConfig) {
	src := cfg.Source
	v.URL("source.url", src.URL, []string{"http", "https"})
	if strings.Contains(src.URL, "{city}") && len(src.Cities) == 0 {
		v.AddError("source.cities", "url uses {city} but no cities are configured", src.URL)
	}
	if len(src.Strategies) == 0 {
		v.AddError("source.strategies", "at least one strategy is required", src.Strategies)
	}
	for i, s := range src.Strategies {
		v.OneOf(fmt.Sprintf("source.strategies[%d]", i), s, knownStrategies)
	}
	v.OneOf("source.time_mode", src.TimeMode, []string{"single", "range"})

	known := make(map[string]bool, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		known[ch.ID] = true
	}
	for city, ch := range src.Cities {
		if !known[ch] {
			v.AddError("source.cities."+city, fmt.Sprintf("unknown channel %q", ch), ch)
		}
	}
	for marker, ch := range src.Markers {
		if !known[ch] {
			v.AddError("source.markers."+marker, fmt.Sprintf("unknown channel %q", ch), ch)
		}
	}
}

func validateChannels(v *validate.Validator, cfg AppConfig) {
	if len(cfg.Channels) == 0 {
		v.AddError("channels", "at least one channel is required", nil)
		return
	}
	seen := make(map[string]bool, len(cfg.Channels))
	for i, ch := range cfg.Channels {
		field := fmt.Sprintf("channels[%d]", i)
		v.NotEmpty(field+".id", ch.ID)
		v.NotEmpty(field+".display_name", ch.DisplayName)
		if seen[ch.ID] {
			v.AddError(field+".id", "duplicate channel id", ch.ID)
		}
		seen[ch.ID] = true
	}
	for i, r := range cfg.Routing.Rules {
		field := fmt.Sprintf("routing.rules[%d]", i)
		v.NotEmpty(field+".keyword", r.Keyword)
		if !seen[r.Channel] {
			v.AddError(field+".channel", fmt.Sprintf("unknown channel %q", r.Channel), r.Channel)
		}
	}
}

func validateTimeline(v *validate.Validator, t TimelineConfig) {
	v.DurationRange("timeline.rollover_threshold", t.RolloverThreshold, 0, 24*time.Hour)
	v.DurationRange("timeline.default_duration", t.DefaultDuration, time.Minute, 24*time.Hour)
	v.Range("timeline.days", t.Days, 1, 14)
	v.Custom("timeline.utc_offset", t.UTCOffset, func(any) error {
		_, err := ParseUTCOffset(t.UTCOffset)
		return err
	})
}
