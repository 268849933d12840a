package app

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerFormats(t *testing.T) {
	logger := NewLogger(&Config{LogFormat: "json"})
	require.IsType(t, &slog.JSONHandler{}, logger.Handler())

	logger = NewLogger(&Config{LogFormat: "pretty"})
	require.IsType(t, &slog.TextHandler{}, logger.Handler())
	require.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))

	logger = NewLogger(&Config{LogFormat: "text"})
	require.IsType(t, &slog.TextHandler{}, logger.Handler())
	require.False(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))

	require.NotNil(t, NewLogger(nil))
}
