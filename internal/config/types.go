// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/tvsched/internal/routing"
	"github.com/ManuGH/tvsched/internal/schedule"
)

// AppConfig is the single configuration value handed to a refresh.
type AppConfig struct {
	Version    string `yaml:"-"`
	DataDir    string `yaml:"data_dir"`
	XMLTVPath  string `yaml:"xmltv_path"`
	LogLevel   string `yaml:"log_level"`
	LogService string `yaml:"log_service"`

	Source    SourceConfig    `yaml:"source"`
	Channels  []ChannelConfig `yaml:"channels"`
	Routing   RoutingConfig   `yaml:"routing"`
	Timeline  TimelineConfig  `yaml:"timeline"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	API       APIConfig       `yaml:"api"`
	History   HistoryConfig   `yaml:"history"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// SourceConfig describes where the schedule page lives and how to read it.
type SourceConfig struct {
	// URL may contain {date} (YYYY-MM-DD) and {city} placeholders; each
	// combination is fetched separately.
	URL string `yaml:"url"`
	// Cities maps a {city} value to the channel its page is published on.
	Cities map[string]string `yaml:"cities"`
	// Markers maps city header lines of a flat text page to channels.
	Markers    map[string]string `yaml:"markers"`
	Strategies []string          `yaml:"strategies"`
	UserAgent  string            `yaml:"user_agent"`
	// TimeMode is "single" or "range" and applies to the text strategy.
	TimeMode  string          `yaml:"time_mode"`
	Selectors SelectorsConfig `yaml:"selectors"`
}

// SelectorsConfig holds CSS selectors for the tabbed layout.
type SelectorsConfig struct {
	Tabs     string `yaml:"tabs"`
	Sections string `yaml:"sections"`
	Day      string `yaml:"day"`
	Card     string `yaml:"card"`
	Time     string `yaml:"time"`
	Title    string `yaml:"title"`
}

// ChannelConfig is one output channel.
type ChannelConfig struct {
	ID          string `yaml:"id"`
	DisplayName string `yaml:"display_name"`
}

// RoutingConfig holds keyword rules; titles matching none go to every channel.
type RoutingConfig struct {
	Rules []RuleConfig `yaml:"rules"`
}

// RuleConfig publishes titles containing Keyword on Channel only.
type RuleConfig struct {
	Keyword string `yaml:"keyword"`
	Channel string `yaml:"channel"`
}

// TimelineConfig controls normalization and programme building.
type TimelineConfig struct {
	// RolloverThreshold is the minimum backward gap treated as a midnight
	// crossing. Zero rolls on any backward jump.
	RolloverThreshold time.Duration `yaml:"rollover_threshold"`
	DefaultDuration   time.Duration `yaml:"default_duration"`
	Days              int           `yaml:"days"`
	UTCOffset         string        `yaml:"utc_offset"`
	SortByClock       bool          `yaml:"sort_by_clock"`
}

// FetchConfig controls page retrieval.
type FetchConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	Retries       int           `yaml:"retries"`
	Concurrency   int           `yaml:"concurrency"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
	RedisAddr     string        `yaml:"redis_addr"`
}

// RefreshConfig controls the daemon's refresh loop.
type RefreshConfig struct {
	Interval          time.Duration `yaml:"interval"`
	RequireProgrammes bool          `yaml:"require_programmes"`
}

// APIConfig controls the HTTP server.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	// RefreshRateLimit is the number of manual refreshes allowed per minute per client.
	RefreshRateLimit int `yaml:"refresh_rate_limit"`
}

// HistoryConfig controls the refresh-run history store.
type HistoryConfig struct {
	// Path is relative to DataDir. Empty disables history.
	Path string `yaml:"path"`
	Keep int    `yaml:"keep"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// GuidePath returns the absolute path of the published XMLTV file.
func (c AppConfig) GuidePath() string {
	if filepath.IsAbs(c.XMLTVPath) {
		return c.XMLTVPath
	}
	return filepath.Join(c.DataDir, c.XMLTVPath)
}

// HistoryPath returns the history database path, or "" when history is disabled.
func (c AppConfig) HistoryPath() string {
	if c.History.Path == "" || filepath.IsAbs(c.History.Path) {
		return c.History.Path
	}
	return filepath.Join(c.DataDir, c.History.Path)
}

// ScheduleChannels converts the configured channels.
func (c AppConfig) ScheduleChannels() []schedule.Channel {
	out := make([]schedule.Channel, 0, len(c.Channels))
	for _, ch := range c.Channels {
		out = append(out, schedule.Channel{ID: ch.ID, DisplayName: ch.DisplayName})
	}
	return out
}

// ChannelIDs lists configured channel ids in order.
func (c AppConfig) ChannelIDs() []string {
	out := make([]string, 0, len(c.Channels))
	for _, ch := range c.Channels {
		out = append(out, ch.ID)
	}
	return out
}

// Router builds the title router from the routing rules. Every configured
// channel is a default target.
func (c AppConfig) Router() (*routing.Router, error) {
	rules := make([]routing.Rule, 0, len(c.Routing.Rules))
	for _, r := range c.Routing.Rules {
		rules = append(rules, routing.Rule{Keyword: r.Keyword, Channel: r.Channel})
	}
	return routing.New(rules, c.ChannelIDs())
}

// Location returns the fixed guide zone for UTCOffset.
func (t TimelineConfig) Location() (*time.Location, error) {
	off, err := ParseUTCOffset(t.UTCOffset)
	if err != nil {
		return nil, err
	}
	return schedule.Zone(off), nil
}

// ParseUTCOffset parses "±HH:MM" (or "±HHMM", "±HH") into a duration.
func ParseUTCOffset(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "Z" || strings.EqualFold(s, "UTC") {
		return 0, nil
	}
	sign := time.Duration(1)
	switch s[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return 0, fmt.Errorf("utc offset %q must start with + or -", s)
	}
	body := strings.ReplaceAll(s[1:], ":", "")
	if len(body) != 2 && len(body) != 4 {
		return 0, fmt.Errorf("invalid utc offset %q", s)
	}
	h, err := strconv.Atoi(body[:2])
	if err != nil {
		return 0, fmt.Errorf("invalid utc offset %q: %w", s, err)
	}
	m := 0
	if len(body) == 4 {
		if m, err = strconv.Atoi(body[2:]); err != nil {
			return 0, fmt.Errorf("invalid utc offset %q: %w", s, err)
		}
	}
	if h > 14 || m > 59 {
		return 0, fmt.Errorf("utc offset %q out of range", s)
	}
	return sign * (time.Duration(h)*time.Hour + time.Duration(m)*time.Minute), nil
}
