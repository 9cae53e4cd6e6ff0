// Package logging wires slog to a size-rotated log file. The interactive
// chat surface owns stdout and stderr, so by default log records go to
// the file only; stderr mirroring is opt-in for batch commands.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options configures the logging sink.
type Options struct {
	// Level is the minimum level (debug, info, warn, error).
	Level string

	// FilePath is the log file. Empty disables file logging.
	FilePath string

	// MaxSizeMB rotates the file once it grows past this size.
	MaxSizeMB int

	// MaxBackups is how many rotated files to keep.
	MaxBackups int

	// MirrorStderr additionally writes records to stderr.
	MirrorStderr bool
}

// Setup installs the configured logger as the slog default and returns
// a cleanup function that flushes and closes the file sink.
func Setup(opts Options) (func(), error) {
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 10
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = 5
	}

	var sink io.Writer
	cleanup := func() {}

	switch {
	case opts.FilePath != "":
		w, err := NewRotatingWriter(opts.FilePath, opts.MaxSizeMB, opts.MaxBackups)
		if err != nil {
			return nil, err
		}
		sink = w
		cleanup = func() { _ = w.Close() }
		if opts.MirrorStderr {
			sink = io.MultiWriter(w, os.Stderr)
		}
	case opts.MirrorStderr:
		sink = os.Stderr
	default:
		sink = io.Discard
	}

	handler := slog.NewJSONHandler(sink, &slog.HandlerOptions{
		Level: ParseLevel(opts.Level),
	})
	slog.SetDefault(slog.New(handler))

	return cleanup, nil
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
