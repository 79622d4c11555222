// Package logger builds the slog loggers used by docqa commands and the API
// server.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	level   slog.Level
	format  Format
	source  bool
	writers []io.Writer
}

// New builds a *slog.Logger. Without options it writes text records at Info
// level to os.Stdout.
func New(opts ...Option) *slog.Logger {
	c := &config{level: slog.LevelInfo}
	for _, opt := range opts {
		opt(c)
	}
	return slog.New(c.handler())
}

func (c *config) writer() io.Writer {
	switch len(c.writers) {
	case 0:
		return os.Stdout
	case 1:
		return c.writers[0]
	default:
		return io.MultiWriter(c.writers...)
	}
}

func (c *config) handler() slog.Handler {
	w := c.writer()

	switch c.format {
	case FormatPretty:
		level := charmlog.InfoLevel
		if c.level <= slog.LevelDebug {
			level = charmlog.DebugLevel
		}
		return charmlog.NewWithOptions(w, charmlog.Options{
			Level:           level,
			ReportTimestamp: true,
			ReportCaller:    c.source,
			TimeFormat:      time.Kitchen,
		})
	case FormatJSON:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: c.level, AddSource: c.source})
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.level, AddSource: c.source})
	}
}

// File opens path for appending, creating it and its parent directories, and
// returns a JSON logger writing to it with the file's close func. Options
// other than the format apply as in New.
func File(path string, opts ...Option) (*slog.Logger, func() error, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	opts = append(opts, WithWriter(f), WithFormat(FormatJSON))
	return New(opts...), f.Close, nil
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
