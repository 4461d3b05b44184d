// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	"github.com/ManuGH/tvsched/internal/schedule"
)

// Default channel ids. The main id is what existing tuner mappings point at.
const (
	DefaultChannelMain = "teleamazonas.ec"
	DefaultChannelGYE  = "teleamazonas.ec.guayaquil"
)

// DefaultSourceURL is the broadcaster's schedule page.
const DefaultSourceURL = "https://www.teleamazonas.com/programacion/"

// DefaultStrategies is the fixed fallback order of page layouts.
var DefaultStrategies = []string{"tabs", "table", "text"}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		DataDir:    "/tmp/tvsched",
		XMLTVPath:  "xmltv.xml",
		LogLevel:   "info",
		LogService: "tvsched",
		Source: SourceConfig{
			URL:        DefaultSourceURL,
			Strategies: append([]string(nil), DefaultStrategies...),
			UserAgent:  "Mozilla/5.0 (tvsched; +https://github.com/ManuGH/tvsched)",
			TimeMode:   "single",
			Selectors: SelectorsConfig{
				Tabs:     "li.c-list-tv__tabs-item",
				Sections: ".c-list-tv__tabs__sections",
				Day:      "article",
				Card:     "div.c-list-tv-simple__txt",
				Time:     "span",
				Title:    "p",
			},
		},
		Channels: []ChannelConfig{
			{ID: DefaultChannelMain, DisplayName: "Teleamazonas (Quito / Main)"},
			{ID: DefaultChannelGYE, DisplayName: "Teleamazonas (Guayaquil)"},
		},
		Routing: RoutingConfig{Rules: []RuleConfig{
			{Keyword: "guayaquil", Channel: DefaultChannelGYE},
			{Keyword: "quito", Channel: DefaultChannelMain},
		}},
		Timeline: TimelineConfig{
			RolloverThreshold: schedule.DefaultRolloverThreshold,
			DefaultDuration:   schedule.DefaultDuration,
			Days:              7,
			UTCOffset:         "-05:00",
		},
		Fetch: FetchConfig{
			Timeout:       30 * time.Second,
			Retries:       2,
			Concurrency:   2,
			RatePerSecond: 1,
			CacheTTL:      10 * time.Minute,
		},
		Refresh: RefreshConfig{
			Interval:          6 * time.Hour,
			RequireProgrammes: true,
		},
		API: APIConfig{
			ListenAddr:       ":8080",
			RefreshRateLimit: 6,
		},
		History: HistoryConfig{
			Path: "history.db",
			Keep: 200,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}
