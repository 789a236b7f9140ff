// Package logx provides the logging facade used across the mcpgate project.
// It wraps log/slog so applications can inject their own handler while the
// library code stays decoupled from any concrete logging backend.
package logx

import (
	"log/slog"
	"os"
	"strings"
)

// Logger defines the interface for structured logging.
// Arguments follow the slog convention of alternating keys and values.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// With returns a logger that includes the given attributes on every
	// record, e.g. With("request_id", id) for per-request scoping.
	With(args ...any) Logger
}

// slogAdapter adapts a *slog.Logger to the Logger interface.
type slogAdapter struct {
	logger *slog.Logger
}

// NewDefaultLogger creates a logger writing text records to stderr at Info level.
func NewDefaultLogger() Logger {
	return NewLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))
}

// NewLogger wraps an existing slog.Logger.
func NewLogger(logger *slog.Logger) Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &slogAdapter{logger: logger}
}

// NewLeveledLogger creates a stderr logger at the named level
// ("debug", "info", "warn", "error"). Unknown names fall back to info.
func NewLeveledLogger(level string) Logger {
	return NewLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})))
}

// ParseLevel maps a level name to its slog.Level. Unknown names map to Info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.logger.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }

func (a *slogAdapter) With(args ...any) Logger {
	return &slogAdapter{logger: a.logger.With(args...)}
}

// NilLogger discards everything. Useful in tests.
type NilLogger struct{}

// NewNilLogger creates a logger that discards all records.
func NewNilLogger() Logger { return &NilLogger{} }

func (*NilLogger) Debug(string, ...any) {}
func (*NilLogger) Info(string, ...any)  {}
func (*NilLogger) Warn(string, ...any)  {}
func (*NilLogger) Error(string, ...any) {}
func (n *NilLogger) With(...any) Logger { return n }

var _ Logger = (*slogAdapter)(nil)
var _ Logger = (*NilLogger)(nil)
