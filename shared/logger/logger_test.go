package logger

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{
			name: "json format with debug level",
			config: &Config{
				Level:  "debug",
				Format: "json",
				Output: "stdout",
			},
		},
		{
			name: "console format with info level",
			config: &Config{
				Level:  "info",
				Format: "console",
				Output: "stdout",
			},
		},
		{
			name: "stderr output",
			config: &Config{
				Level:  "warn",
				Format: "json",
				Output: "stderr",
			},
		},
		{
			name: "unknown format falls back to json",
			config: &Config{
				Level:  "error",
				Format: "something-else",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.config)
			require.NoError(t, err)
			require.NotNil(t, logger)
			require.NotNil(t, logger.Logger)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"garbage", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestNewDefault(t *testing.T) {
	logger := NewDefault()
	require.NotNil(t, logger)
	require.NotNil(t, logger.Logger)
}

func TestWith(t *testing.T) {
	logger := NewDefault()

	child := logger.With("merchant_id", "M-001")
	require.NotNil(t, child)
	assert.NotSame(t, logger, child)

	grouped := logger.WithGroup("worker")
	require.NotNil(t, grouped)
	assert.NotSame(t, logger, grouped)
}
