package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoader(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) []string
		wantErr bool
		assert  func(t *testing.T, cfg Config)
	}{
		{
			name:  "returns defaults when no overrides",
			setup: func(t *testing.T) []string { return nil },
			assert: func(t *testing.T, cfg Config) {
				require.Equal(t, 8080, cfg.Server.Listen.Port)
				require.Equal(t, "24h", cfg.Server.Store.DefaultTTL)
				require.Equal(t, 50, cfg.Server.Session.MaxHistory)
				require.Contains(t, cfg.Server.FAQ.Languages, "luo")
			},
		},
		{
			name: "merges yaml file overrides",
			setup: func(t *testing.T) []string {
				path := filepath.Join(t.TempDir(), "server.yaml")
				body := "server:\n  listen:\n    port: 9090\n  store:\n    defaultTTL: 12h\n"
				require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
				return []string{path}
			},
			assert: func(t *testing.T, cfg Config) {
				require.Equal(t, 9090, cfg.Server.Listen.Port)
				require.Equal(t, "12h", cfg.Server.Store.DefaultTTL)
				require.Equal(t, "30m", cfg.Server.Session.ActivityTimeout, "untouched defaults survive the merge")
			},
		},
		{
			name: "merges json file overrides",
			setup: func(t *testing.T) []string {
				path := filepath.Join(t.TempDir(), "server.json")
				body := `{"server": {"session": {"maxHistory": 25}}}`
				require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
				return []string{path}
			},
			assert: func(t *testing.T, cfg Config) {
				require.Equal(t, 25, cfg.Server.Session.MaxHistory)
			},
		},
		{
			name: "merges toml file overrides",
			setup: func(t *testing.T) []string {
				path := filepath.Join(t.TempDir(), "server.toml")
				body := "[server.listen]\nport = 7070\n"
				require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
				return []string{path}
			},
			assert: func(t *testing.T, cfg Config) {
				require.Equal(t, 7070, cfg.Server.Listen.Port)
			},
		},
		{
			name: "prefers env overrides",
			setup: func(t *testing.T) []string {
				path := filepath.Join(t.TempDir(), "server.yaml")
				require.NoError(t, os.WriteFile(path, []byte("server:\n  listen:\n    port: 9090\n"), 0o600))
				t.Setenv("CHATSTORE_SERVER__LISTEN__PORT", "6060")
				return []string{path}
			},
			assert: func(t *testing.T, cfg Config) {
				require.Equal(t, 6060, cfg.Server.Listen.Port)
			},
		},
		{
			name: "env override maps camel-cased keys",
			setup: func(t *testing.T) []string {
				t.Setenv("CHATSTORE_SERVER__STORE__DEFAULTTTL", "6h")
				t.Setenv("CHATSTORE_SERVER__SESSION__ACTIVITYTIMEOUT", "5m")
				return nil
			},
			assert: func(t *testing.T, cfg Config) {
				require.Equal(t, "6h", cfg.Server.Store.DefaultTTL)
				require.Equal(t, "5m", cfg.Server.Session.ActivityTimeout)
			},
		},
		{
			name: "missing file fails",
			setup: func(t *testing.T) []string {
				return []string{filepath.Join(t.TempDir(), "absent.yaml")}
			},
			wantErr: true,
		},
		{
			name: "unsupported extension fails",
			setup: func(t *testing.T) []string {
				path := filepath.Join(t.TempDir(), "server.ini")
				require.NoError(t, os.WriteFile(path, []byte("port=1"), 0o600))
				return []string{path}
			},
			wantErr: true,
		},
		{
			name: "invalid duration fails validation",
			setup: func(t *testing.T) []string {
				t.Setenv("CHATSTORE_SERVER__STORE__DEFAULTTTL", "soon")
				return nil
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			files := tc.setup(t)
			cfg, err := NewLoader("CHATSTORE", files...).Load(context.Background())
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tc.assert(t, cfg)
		})
	}
}

func TestLoaderHonorsContextCancellation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: {}"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLoader("CHATSTORE", path).Load(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
