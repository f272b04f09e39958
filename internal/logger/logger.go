// Package logger builds the process logger and carries it through contexts.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type logger struct{}

// NewLogger creates a new slog.Logger.
//
// The first handler wins when handlers are given. Otherwise a handler
// writing to stderr is built from the LOG_LEVEL and LOG_FORMAT environment
// variables.
func NewLogger(handlers ...slog.Handler) *slog.Logger {
	if len(handlers) > 0 && handlers[0] != nil {
		return slog.New(handlers[0])
	}
	return slog.New(newHandler())
}

// New creates a logger writing to w with an explicit level and format. An
// empty level or format falls back to the environment.
func New(w io.Writer, level, format string) *slog.Logger {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if format == "" {
		format = os.Getenv("LOG_FORMAT")
	}
	return slog.New(handlerFor(w, getLevel(level), format))
}

// IntoContext stores log in ctx.
func IntoContext(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, logger{}, log)
}

// FromContext returns the logger stored in ctx, or a new environment
// configured logger when there is none.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if log, ok := ctx.Value(logger{}).(*slog.Logger); ok {
			return log
		}
	}
	return NewLogger()
}

func newHandler() slog.Handler {
	return handlerFor(os.Stderr, getLevel(os.Getenv("LOG_LEVEL")), os.Getenv("LOG_FORMAT"))
}

func handlerFor(w io.Writer, level slog.Level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// ParseLevel reports whether level names a known log level.
func ParseLevel(level string) (slog.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO", "":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// getLevel maps a level name to its slog level. Unknown names are INFO.
func getLevel(level string) slog.Level {
	l, _ := ParseLevel(level)
	return l
}
