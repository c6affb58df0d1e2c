package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.Server.Listen.Port = 0 }},
		{"zero shards", func(c *Config) { c.Server.Store.Shards = 0 }},
		{"bad store ttl", func(c *Config) { c.Server.Store.DefaultTTL = "never" }},
		{"negative activity timeout", func(c *Config) { c.Server.Session.ActivityTimeout = "-5m" }},
		{"zero history", func(c *Config) { c.Server.Session.MaxHistory = 0 }},
		{"negative admission floor", func(c *Config) { c.Server.FAQ.Admission.MinAnswerLength = -1 }},
		{"no languages", func(c *Config) { c.Server.FAQ.Languages = nil }},
		{"blank service", func(c *Config) { c.Server.FAQ.Services = []string{"nira", "  "} }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestDurationAccessors(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, 24*time.Hour, cfg.Server.Store.TTL())
	require.Equal(t, time.Hour, cfg.Server.Store.Interval())
	require.Equal(t, 30*time.Minute, cfg.Server.Session.Timeout())
	require.Equal(t, 10*time.Minute, cfg.Server.Session.Grace())
	require.Equal(t, 15*time.Minute, cfg.Server.Session.Interval())
	require.Equal(t, 24*time.Hour, cfg.Server.FAQ.RecordTTL())
	require.Equal(t, 720*time.Hour, cfg.Server.FAQ.StatTTL())
}
