package logger

import (
	"context"
	"errors"
	"log/slog"
)

// fanout hands every record to each sink whose level admits it.
type fanout []slog.Handler

// Multi returns a logger that writes every record to each of loggers, each
// with its own format and level. Nil loggers are skipped. The serve command
// uses it to mirror console output into a JSON log file.
func Multi(loggers ...*slog.Logger) *slog.Logger {
	var sinks fanout
	for _, l := range loggers {
		if l != nil {
			sinks = append(sinks, l.Handler())
		}
	}
	if len(sinks) == 1 {
		return slog.New(sinks[0])
	}
	return slog.New(sinks)
}

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle writes to every enabled sink even when an earlier one fails, and
// returns the joined errors.
func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f fanout) each(fn func(slog.Handler) slog.Handler) fanout {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = fn(h)
	}
	return out
}
