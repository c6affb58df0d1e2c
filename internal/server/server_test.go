package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sente-labs/chatstore/internal/config"
)

func TestNewRequiresHandler(t *testing.T) {
	_, err := New(config.ListenConfig{Address: "127.0.0.1", Port: 8080}, slog.New(slog.DiscardHandler), nil)
	require.Error(t, err)
}

func TestRunShutsDownOnCancel(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv, err := New(config.ListenConfig{Address: "127.0.0.1", Port: 0}, slog.New(slog.DiscardHandler), handler)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down after cancellation")
	}
}
