// Package logging builds the structured logger of the harness: a human
// readable console handler, plus JSON records in a file when requested.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	slogmulti "github.com/samber/slog-multi"
)

// Prefix tags every console log line
const Prefix = "disfuzz"

// Options configures New
type Options struct {
	// Level is one of debug, info, warn or error
	Level string

	// File, if set, receives every record as JSON regardless of Level
	File string

	// Writer is the console output, stderr when nil
	Writer io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ParseLevel converts a level name into a slog level
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level '%s'", level)
	}
}

// New returns the logger and a closer releasing the log file
func New(options Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(options.Level)
	if err != nil {
		return nil, nil, err
	}

	writer := options.Writer
	if writer == nil {
		writer = os.Stderr
	}

	console := log.NewWithOptions(writer, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          Prefix,
		Level:           log.Level(level),
	})

	handlers := []slog.Handler{console}
	var closer io.Closer = nopCloser{}

	if options.File != "" {
		file, err := os.OpenFile(options.File, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		closer = file
		handlers = append(handlers, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}
