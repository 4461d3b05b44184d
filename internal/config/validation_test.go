// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"testing"
	"time"

	"github.com/ManuGH/tvsched/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Defaults(t *testing.T) {
	require.NoError(t, Validate(Defaults()))
}

func TestValidateRefresh_SkipsServerSettings(t *testing.T) {
	cfg := Defaults()
	cfg.API.ListenAddr = "127.0.0.1:0"
	cfg.History.Keep = -1
	require.Error(t, Validate(cfg))
	require.NoError(t, ValidateRefresh(cfg))

	cfg.Timeline.Days = 0
	require.Error(t, ValidateRefresh(cfg))
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		field  string
	}{
		{"bad url", func(c *AppConfig) { c.Source.URL = "ftp://x" }, "source.url"},
		{"city placeholder without cities", func(c *AppConfig) { c.Source.URL = "https://x/{city}" }, "source.cities"},
		{"unknown strategy", func(c *AppConfig) { c.Source.Strategies = []string{"json"} }, "source.strategies[0]"},
		{"no strategies", func(c *AppConfig) { c.Source.Strategies = nil }, "source.strategies"},
		{"bad time mode", func(c *AppConfig) { c.Source.TimeMode = "ampm" }, "source.time_mode"},
		{"city to unknown channel", func(c *AppConfig) { c.Source.Cities = map[string]string{"cuenca": "nope"} }, "source.cities.cuenca"},
		{"marker to unknown channel", func(c *AppConfig) { c.Source.Markers = map[string]string{"cuenca": "nope"} }, "source.markers.cuenca"},
		{"no channels", func(c *AppConfig) { c.Channels = nil }, "channels"},
		{"duplicate channel", func(c *AppConfig) { c.Channels = append(c.Channels, c.Channels[0]) }, "channels[2].id"},
		{"rule to unknown channel", func(c *AppConfig) { c.Routing.Rules[0].Channel = "x" }, "routing.rules[0].channel"},
		{"negative threshold", func(c *AppConfig) { c.Timeline.RolloverThreshold = -time.Hour }, "timeline.rollover_threshold"},
		{"tiny default duration", func(c *AppConfig) { c.Timeline.DefaultDuration = time.Second }, "timeline.default_duration"},
		{"days out of range", func(c *AppConfig) { c.Timeline.Days = 30 }, "timeline.days"},
		{"bad offset", func(c *AppConfig) { c.Timeline.UTCOffset = "EST" }, "timeline.utc_offset"},
		{"zero concurrency", func(c *AppConfig) { c.Fetch.Concurrency = 0 }, "fetch.concurrency"},
		{"zero timeout", func(c *AppConfig) { c.Fetch.Timeout = 0 }, "fetch.timeout"},
		{"bad listen addr", func(c *AppConfig) { c.API.ListenAddr = "8080" }, "api.listen_addr"},
		{"bad log level", func(c *AppConfig) { c.LogLevel = "loud" }, "log_level"},
		{"bad exporter", func(c *AppConfig) { c.Telemetry.Enabled = true; c.Telemetry.Exporter = "zipkin" }, "telemetry.exporter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Routing.Rules = append([]RuleConfig(nil), cfg.Routing.Rules...)
			tt.mutate(&cfg)

			err := Validate(cfg)
			require.Error(t, err)

			var ve validate.ValidationError
			require.True(t, errors.As(err, &ve))
			fields := make([]string, 0, len(ve.Errors()))
			for _, e := range ve.Errors() {
				fields = append(fields, e.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestParseUTCOffset(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"-05:00", -5 * time.Hour, false},
		{"+0530", 5*time.Hour + 30*time.Minute, false},
		{"-03", -3 * time.Hour, false},
		{"UTC", 0, false},
		{"", 0, false},
		{"05:00", 0, true},
		{"-5:00", 0, true},
		{"+15:00", 0, true},
		{"-05:75", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseUTCOffset(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAppConfig_Derived(t *testing.T) {
	cfg := Defaults()
	cfg.DataDir = "/srv/tvsched"

	assert.Equal(t, "/srv/tvsched/xmltv.xml", cfg.GuidePath())
	assert.Equal(t, "/srv/tvsched/history.db", cfg.HistoryPath())

	cfg.XMLTVPath = "/var/www/guide.xml"
	assert.Equal(t, "/var/www/guide.xml", cfg.GuidePath())

	cfg.History.Path = ""
	assert.Empty(t, cfg.HistoryPath())

	loc, err := cfg.Timeline.Location()
	require.NoError(t, err)
	_, off := time.Date(2025, 1, 6, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, -5*3600, off)

	r, err := cfg.Router()
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultChannelGYE}, r.Route("Noticias Guayaquil"))
	assert.Equal(t, []string{DefaultChannelMain, DefaultChannelGYE}, r.Route("Teleserie"))
}
