package logger

import (
	"io"
	"log/slog"
)

// Format selects the handler New builds.
type Format int

const (
	// FormatText writes slog key=value records.
	FormatText Format = iota

	// FormatPretty writes colorized records through charmbracelet/log.
	FormatPretty

	// FormatJSON writes one JSON object per record.
	FormatJSON
)

// Option configures a logger built by New.
type Option func(*config)

// WithLevel sets the minimum level that is written.
func WithLevel(level slog.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithDebug lowers the minimum level to Debug when debug is set.
func WithDebug(debug bool) Option {
	return func(c *config) {
		if debug {
			c.level = slog.LevelDebug
		}
	}
}

// WithFormat selects the output format.
func WithFormat(f Format) Option {
	return func(c *config) {
		c.format = f
	}
}

// WithPretty selects colorized output when pretty is set. JSON output, once
// selected, is kept.
func WithPretty(pretty bool) Option {
	return func(c *config) {
		if pretty && c.format != FormatJSON {
			c.format = FormatPretty
		}
	}
}

// WithJSON selects JSON output when json is set.
func WithJSON(json bool) Option {
	return func(c *config) {
		if json {
			c.format = FormatJSON
		}
	}
}

// WithWriter sets the destinations. Several writers receive identical
// bytes; use Multi to give each destination its own format.
func WithWriter(w ...io.Writer) Option {
	return func(c *config) {
		c.writers = w
	}
}

// WithSource adds the caller's file:line to every record.
func WithSource(source bool) Option {
	return func(c *config) {
		c.source = source
	}
}
