// Package log carries a *slog.Logger through contexts and builds the
// process logger from configuration.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-logr/logr"
)

func Context(ctx context.Context, logger *slog.Logger) context.Context {
	return logr.NewContextWithSlogLogger(ctx, logger)
}

// FromContext returns the context's logger, or slog.Default() if there is
// none.
func FromContext(ctx context.Context) *slog.Logger {
	if logger := logr.FromContextAsSlogLogger(ctx); logger != nil {
		return logger
	}
	return slog.Default()
}

const (
	FormatJSON = "json"
	FormatText = "text"
)

// New builds a logger writing to `w`. `level` is any level slog understands
// (`debug`, `info`, `warn`, `error`, optionally with an offset like
// `info+2`); empty means info.
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("parsing log level `%s`: %w", level, err)
		}
	}
	options := slog.HandlerOptions{Level: lvl}
	switch format {
	case FormatJSON, "":
		return slog.New(slog.NewJSONHandler(w, &options)), nil
	case FormatText:
		return slog.New(slog.NewTextHandler(w, &options)), nil
	default:
		return nil, fmt.Errorf("unsupported log format `%s`", format)
	}
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError + 1,
	}))
}
