// Package logging builds the daemon's slog loggers and carries them through
// contexts.
//
// Coroutines and admin requests each get a child logger stored in their
// context; the core tags them with stable keys so one coroutine, domain or
// pool can be followed through the log:
//
//	log := logging.WithCoroutine(logging.FromContext(ctx), "admin-http")
//
// Errors are logged with the failing operation and the whole chain:
//
//	logger.ErrorContext(ctx, "closing root pool",
//	    slog.String("operation", "resource.Close"),
//	    slog.Any("error", err),
//	)
package logging

import (
	"context"
	"io"
	"log/slog"
)

// Attribute keys shared by the core packages.
const (
	KeyCoroutine = "coroutine"
	KeyDomain    = "domain"
	KeyKind      = "kind"
	KeyPool      = "pool"
)

type contextKey struct{}

// New returns a logger writing to w. Format "text" selects slog's text
// handler, anything else JSON. Level is one of debug, info, warn or error
// in any case; other values mean info. At debug level records carry their
// source location. Every handler redacts credentials.
func New(level, format string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   lvl <= slog.LevelDebug,
		ReplaceAttr: newRedactAttr(),
	}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the logger stored by WithLogger, or slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

func WithCoroutine(logger *slog.Logger, name string) *slog.Logger {
	return logger.With(slog.String(KeyCoroutine, name))
}

func WithDomain(logger *slog.Logger, name, kind string) *slog.Logger {
	return logger.With(slog.String(KeyDomain, name), slog.String(KeyKind, kind))
}

func WithPool(logger *slog.Logger, name string) *slog.Logger {
	return logger.With(slog.String(KeyPool, name))
}
