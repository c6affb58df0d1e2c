package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  listen:\n    port: 8081\n"), 0o600))

	loader := NewLoader("CHATSTORE", path)
	changes := make(chan Config, 4)

	watcher, err := loader.Watch(context.Background(), path, func(cfg Config) {
		changes <- cfg
	}, func(err error) {
		t.Logf("watch error: %v", err)
	})
	require.NoError(t, err)
	defer watcher.Stop()

	require.NoError(t, os.WriteFile(path, []byte("server:\n  listen:\n    port: 8082\n"), 0o600))

	select {
	case cfg := <-changes:
		require.Equal(t, 8082, cfg.Server.Listen.Port)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a reload after the file changed")
	}
}

func TestWatchIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: {}\n"), 0o600))

	loader := NewLoader("CHATSTORE", path)
	changes := make(chan Config, 4)

	watcher, err := loader.Watch(context.Background(), path, func(cfg Config) {
		changes <- cfg
	}, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("noise: true\n"), 0o600))

	select {
	case <-changes:
		t.Fatal("sibling file writes must not trigger a reload")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatchRequiresCallback(t *testing.T) {
	loader := NewLoader("CHATSTORE")
	_, err := loader.Watch(context.Background(), "server.yaml", nil, nil)
	require.Error(t, err)

	_, err = loader.Watch(context.Background(), "", func(Config) {}, nil)
	require.Error(t, err)
}

func TestWatchStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: {}\n"), 0o600))

	watcher, err := NewLoader("CHATSTORE", path).Watch(context.Background(), path, func(Config) {}, nil)
	require.NoError(t, err)
	watcher.Stop()
	watcher.Stop()
}
