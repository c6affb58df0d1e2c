package logging

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sente-labs/chatstore/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LoggingConfig
		wantErr bool
	}{
		{"defaults", config.LoggingConfig{}, false},
		{"json debug", config.LoggingConfig{Level: "debug", Format: "json"}, false},
		{"text warn", config.LoggingConfig{Level: "warn", Format: "text"}, false},
		{"error level", config.LoggingConfig{Level: "error"}, false},
		{"unknown level", config.LoggingConfig{Level: "verbose"}, true},
		{"unknown format", config.LoggingConfig{Format: "logfmt"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			logger, err := New(tc.cfg)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
		})
	}
}
