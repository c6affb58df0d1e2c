package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds every server-level option consumed at bootstrap.
type Config struct {
	Server ServerConfig `koanf:"server"`
}

// ServerConfig collects the knobs owned by the process bootstrap.
type ServerConfig struct {
	Listen  ListenConfig  `koanf:"listen"`
	Logging LoggingConfig `koanf:"logging"`
	Store   StoreConfig   `koanf:"store"`
	Session SessionConfig `koanf:"session"`
	FAQ     FAQConfig     `koanf:"faq"`
}

// ListenConfig instructs the admin HTTP listener about bind address and port.
type ListenConfig struct {
	Address string `koanf:"address"`
	Port    int    `koanf:"port"`
}

// LoggingConfig expresses log level and format.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// StoreConfig shapes the entry store and its background sweep. Durations are
// strings in time.ParseDuration syntax so operators can write "24h" or "90m".
type StoreConfig struct {
	DefaultTTL    string `koanf:"defaultTTL"`
	Shards        int    `koanf:"shards"`
	SweepInterval string `koanf:"sweepInterval"`
}

// SessionConfig owns the logical session layer: the activity timeout that is
// independent from the physical store TTL, the conversation window, and the
// grace period before ended sessions are compacted away.
type SessionConfig struct {
	ActivityTimeout  string `koanf:"activityTimeout"`
	MaxHistory       int    `koanf:"maxHistory"`
	EndedGracePeriod string `koanf:"endedGracePeriod"`
	CleanupInterval  string `koanf:"cleanupInterval"`
}

// FAQConfig shapes the response cache: record and stat lifetimes, the language
// and service enumerations used for validation, and the admission phrase lists.
type FAQConfig struct {
	TTL       string          `koanf:"ttl"`
	StatsTTL  string          `koanf:"statsTTL"`
	Languages []string        `koanf:"languages"`
	Services  []string        `koanf:"services"`
	Admission AdmissionConfig `koanf:"admission"`
}

// AdmissionConfig lists the cache-worthiness rules applied before a response
// is admitted into the FAQ cache.
type AdmissionConfig struct {
	MinAnswerLength    int      `koanf:"minAnswerLength"`
	ErrorIndicators    []string `koanf:"errorIndicators"`
	PersonalIndicators []string `koanf:"personalIndicators"`
}

// DefaultConfig returns the baseline values the loader starts from before
// file and environment overrides are applied.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Listen: ListenConfig{
				Address: "0.0.0.0",
				Port:    8080,
			},
			Logging: LoggingConfig{
				Level:  "info",
				Format: "json",
			},
			Store: StoreConfig{
				DefaultTTL:    "24h",
				Shards:        16,
				SweepInterval: "1h",
			},
			Session: SessionConfig{
				ActivityTimeout:  "30m",
				MaxHistory:       50,
				EndedGracePeriod: "10m",
				CleanupInterval:  "15m",
			},
			FAQ: FAQConfig{
				TTL:       "24h",
				StatsTTL:  "720h",
				Languages: []string{"en", "lg", "luo", "nyn"},
				Services:  []string{"nira", "ura", "nssf", "nlis", "general"},
				Admission: AdmissionConfig{
					MinAnswerLength: 20,
					ErrorIndicators: []string{
						"error", "failed", "sorry", "try again",
						"unavailable", "something went wrong",
					},
					PersonalIndicators: []string{
						"your account", "your balance", "your application",
						"your reference number",
					},
				},
			},
		},
	}
}

// Validate rejects configurations the runtime cannot honor. Duration fields
// are parsed here once so later accessors cannot fail.
func (c Config) Validate() error {
	if c.Server.Listen.Port <= 0 || c.Server.Listen.Port > 65535 {
		return fmt.Errorf("config: listen port %d out of range", c.Server.Listen.Port)
	}
	if c.Server.Store.Shards <= 0 {
		return fmt.Errorf("config: store shards must be positive, got %d", c.Server.Store.Shards)
	}
	durations := map[string]string{
		"server.store.defaultTTL":         c.Server.Store.DefaultTTL,
		"server.store.sweepInterval":      c.Server.Store.SweepInterval,
		"server.session.activityTimeout":  c.Server.Session.ActivityTimeout,
		"server.session.endedGracePeriod": c.Server.Session.EndedGracePeriod,
		"server.session.cleanupInterval":  c.Server.Session.CleanupInterval,
		"server.faq.ttl":                  c.Server.FAQ.TTL,
		"server.faq.statsTTL":             c.Server.FAQ.StatsTTL,
	}
	for field, raw := range durations {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("config: %s: %w", field, err)
		}
		if d <= 0 {
			return fmt.Errorf("config: %s must be positive, got %s", field, raw)
		}
	}
	if c.Server.Session.MaxHistory <= 0 {
		return fmt.Errorf("config: session maxHistory must be positive, got %d", c.Server.Session.MaxHistory)
	}
	if c.Server.FAQ.Admission.MinAnswerLength < 0 {
		return fmt.Errorf("config: faq admission minAnswerLength must not be negative")
	}
	if len(c.Server.FAQ.Languages) == 0 {
		return fmt.Errorf("config: faq languages must not be empty")
	}
	if len(c.Server.FAQ.Services) == 0 {
		return fmt.Errorf("config: faq services must not be empty")
	}
	for i, lang := range c.Server.FAQ.Languages {
		if strings.TrimSpace(lang) == "" {
			return fmt.Errorf("config: faq languages[%d] empty", i)
		}
	}
	for i, svc := range c.Server.FAQ.Services {
		if strings.TrimSpace(svc) == "" {
			return fmt.Errorf("config: faq services[%d] empty", i)
		}
	}
	return nil
}

// mustDuration assumes Validate has run; accessors stay terse because of it.
func mustDuration(raw string) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0
	}
	return d
}

// TTL returns the parsed store-wide physical TTL.
func (c StoreConfig) TTL() time.Duration { return mustDuration(c.DefaultTTL) }

// Interval returns the parsed sweep interval.
func (c StoreConfig) Interval() time.Duration { return mustDuration(c.SweepInterval) }

// Timeout returns the parsed session activity timeout.
func (c SessionConfig) Timeout() time.Duration { return mustDuration(c.ActivityTimeout) }

// Grace returns the parsed compaction grace period for ended sessions.
func (c SessionConfig) Grace() time.Duration { return mustDuration(c.EndedGracePeriod) }

// Interval returns the parsed session cleanup interval.
func (c SessionConfig) Interval() time.Duration { return mustDuration(c.CleanupInterval) }

// RecordTTL returns the parsed lifetime for FAQ records.
func (c FAQConfig) RecordTTL() time.Duration { return mustDuration(c.TTL) }

// StatTTL returns the parsed lifetime for FAQ stat records, deliberately much
// longer than the records they aggregate.
func (c FAQConfig) StatTTL() time.Duration { return mustDuration(c.StatsTTL) }
