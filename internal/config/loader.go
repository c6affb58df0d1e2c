package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Loader hydrates the runtime configuration while respecting env > file > default precedence.
type Loader struct {
	envPrefix string
	files     []string
}

// NewLoader prepares a config hydrator that honors the env-first contract before touching files or defaults.
func NewLoader(envPrefix string, files ...string) *Loader {
	return &Loader{
		envPrefix: envPrefix,
		files:     files,
	}
}

// Load assembles the effective snapshot using the documented precedence rules.
func (l *Loader) Load(ctx context.Context) (Config, error) {
	defaultCfg := DefaultConfig()
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(structToMap(defaultCfg), "."), nil); err != nil {
		return Config{}, fmt.Errorf("config: load defaults: %w", err)
	}

	for _, path := range l.files {
		if path == "" {
			continue
		}
		select {
		case <-ctx.Done():
			return Config{}, ctx.Err()
		default:
		}
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("config: file %s not found", path)
			}
			return Config{}, fmt.Errorf("config: stat %s: %w", path, err)
		}
		parser, err := parserFor(path)
		if err != nil {
			return Config{}, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return Config{}, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}

	if l.envPrefix != "" {
		canonical := map[string]string{
			"server.store.defaultttl":              "server.store.defaultTTL",
			"server.store.sweepinterval":           "server.store.sweepInterval",
			"server.session.activitytimeout":       "server.session.activityTimeout",
			"server.session.maxhistory":            "server.session.maxHistory",
			"server.session.endedgraceperiod":      "server.session.endedGracePeriod",
			"server.session.cleanupinterval":       "server.session.cleanupInterval",
			"server.faq.statsttl":                  "server.faq.statsTTL",
			"server.faq.admission.minanswerlength": "server.faq.admission.minAnswerLength",
		}
		transform := func(s string) string {
			// Double underscores signal a nested path (SERVER__LISTEN__PORT -> server.listen.port).
			key := strings.TrimPrefix(s, l.envPrefix+"_")
			key = strings.ReplaceAll(key, "__", ".")
			lower := strings.ToLower(key)
			if mapped, ok := canonical[lower]; ok {
				return mapped
			}
			key = strings.ReplaceAll(key, "_", "")
			return strings.ToLower(key)
		}
		if err := k.Load(env.Provider(l.envPrefix, ".", transform), nil); err != nil {
			return Config{}, fmt.Errorf("config: load env: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// parserFor picks the koanf parser matching the file extension.
func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", "":
		return yaml.Parser(), nil
	case ".json":
		return kjson.Parser(), nil
	case ".toml":
		return toml.Parser(), nil
	default:
		return nil, fmt.Errorf("config: unsupported file format %s", filepath.Ext(path))
	}
}

// structToMap converts DefaultConfig into a map for the koanf confmap provider.
func structToMap(cfg Config) map[string]any {
	return map[string]any{
		"server": map[string]any{
			"listen": map[string]any{
				"address": cfg.Server.Listen.Address,
				"port":    cfg.Server.Listen.Port,
			},
			"logging": map[string]any{
				"level":  cfg.Server.Logging.Level,
				"format": cfg.Server.Logging.Format,
			},
			"store": map[string]any{
				"defaultTTL":    cfg.Server.Store.DefaultTTL,
				"shards":        cfg.Server.Store.Shards,
				"sweepInterval": cfg.Server.Store.SweepInterval,
			},
			"session": map[string]any{
				"activityTimeout":  cfg.Server.Session.ActivityTimeout,
				"maxHistory":       cfg.Server.Session.MaxHistory,
				"endedGracePeriod": cfg.Server.Session.EndedGracePeriod,
				"cleanupInterval":  cfg.Server.Session.CleanupInterval,
			},
			"faq": map[string]any{
				"ttl":       cfg.Server.FAQ.TTL,
				"statsTTL":  cfg.Server.FAQ.StatsTTL,
				"languages": cfg.Server.FAQ.Languages,
				"services":  cfg.Server.FAQ.Services,
				"admission": map[string]any{
					"minAnswerLength":    cfg.Server.FAQ.Admission.MinAnswerLength,
					"errorIndicators":    cfg.Server.FAQ.Admission.ErrorIndicators,
					"personalIndicators": cfg.Server.FAQ.Admission.PersonalIndicators,
				},
			},
		},
	}
}
