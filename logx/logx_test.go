package logx

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("gibberish"))
}

func TestWithScopesAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	scoped := logger.With("request_id", "r-1")
	scoped.Info("request completed", "server_id", "s-1")

	out := buf.String()
	assert.Contains(t, out, "request_id=r-1")
	assert.Contains(t, out, "server_id=s-1")

	// The parent logger is untouched by the scoped attributes.
	buf.Reset()
	logger.Info("plain")
	assert.NotContains(t, buf.String(), "request_id")
}

func TestNilLogger(t *testing.T) {
	logger := NewNilLogger()
	logger.Debug("a")
	logger.Info("b")
	logger.Warn("c")
	logger.Error("d")
	assert.Same(t, logger, logger.With("k", "v"))
}
