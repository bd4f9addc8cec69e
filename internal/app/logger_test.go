package app

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	testCases := []struct {
		in   string
		want slog.Level
	}{
		{in: "", want: slog.LevelInfo},
		{in: "debug", want: slog.LevelDebug},
		{in: "info", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := parseLogLevel(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := parseLogLevel("verbose")
	assert.ErrorContains(t, err, `invalid log-level "verbose"`)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&Config{LogLevel: "warn", LogFormat: "json"}, &buf)
	require.NoError(t, err)

	logger.Info("Hidden.")
	logger.Warn("Shown.", "task", "app:compile")

	assert.NotContains(t, buf.String(), "Hidden.")
	assert.Contains(t, buf.String(), `"msg":"Shown."`)
	assert.Contains(t, buf.String(), `"task":"app:compile"`)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelError))

	_, err = newLogger(&Config{LogFormat: "xml"}, &buf)
	assert.ErrorContains(t, err, "invalid log-format")
}
