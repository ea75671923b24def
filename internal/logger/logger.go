// Package logger builds the process-wide *slog.Logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// Option configures a Logger created with New.
type Option func(*options)

type options struct {
	writer io.Writer
	level  slog.Level
	json   bool
	prefix string
}

// WithWriter overrides the output writer. Defaults to os.Stderr so that
// stdout stays reserved for command output.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.writer = w
		}
	}
}

func WithLevel(level slog.Level) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithJSON switches from the charmbracelet/log text handler to slog's JSON
// handler, for log shipping.
func WithJSON(json bool) Option {
	return func(o *options) {
		o.json = json
	}
}

// WithPrefix sets the text handler's prefix. Ignored for JSON output.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

func New(opts ...Option) *slog.Logger {
	o := &options{
		writer: os.Stderr,
		level:  slog.LevelInfo,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.json {
		return slog.New(slog.NewJSONHandler(o.writer, &slog.HandlerOptions{Level: o.level}))
	}

	// charmbracelet/log levels share slog's numeric values.
	h := charmlog.NewWithOptions(o.writer, charmlog.Options{
		Level:           charmlog.Level(o.level),
		Prefix:          o.prefix,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
	return slog.New(h)
}

// ParseLevel accepts debug, info, warn/warning and error, case-insensitively.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("logger: unknown level %q", s)
}
