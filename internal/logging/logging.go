// Package logging builds the process slog.Logger from config.
package logging

import (
	"fmt"
	"io"
	"log/slog"

	"streamcorpus/internal/config"
)

// New returns a logger writing to out in the configured format and level.
// The returned LevelVar can raise or lower the level after construction.
func New(cfg config.LogConfig, out io.Writer) (*slog.Logger, *slog.LevelVar, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, nil, err
	}
	lvl := new(slog.LevelVar)
	lvl.Set(level)
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch cfg.Format {
	case config.LogFormatJSON:
		handler = slog.NewJSONHandler(out, opts)
	case config.LogFormatText, "":
		handler = slog.NewTextHandler(out, opts)
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return slog.New(handler), lvl, nil
}

// OrDefault returns l, or slog.Default() when l is nil.
func OrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

// Component tags every record from l with the subsystem name.
func Component(l *slog.Logger, name string) *slog.Logger {
	return OrDefault(l).With(slog.String("component", name))
}
