// Package logging builds the JSON slog logger shared by all commands.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options mirror the global CLI flags.
type Options struct {
	Quiet   bool
	Verbose bool
	// LogFile, when set, receives a copy of every entry with size-based rotation.
	LogFile string
}

// Rotation limits for LogFile.
const (
	maxSizeMB  = 10
	maxBackups = 3
	maxAgeDays = 28
)

// Level picks the handler level. Quiet wins over Verbose.
func Level(opts Options) slog.Level {
	switch {
	case opts.Quiet:
		return slog.LevelError
	case opts.Verbose:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// New returns the logger and a close func for the rotating file, if any.
func New(stderr io.Writer, opts Options) (*slog.Logger, func() error, error) {
	w := stderr
	closer := func() error { return nil }

	if opts.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(opts.LogFile), 0o750); err != nil {
			return nil, nil, err
		}
		rotating := &lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			LocalTime:  false,
			Compress:   false,
		}
		w = io.MultiWriter(stderr, rotating)
		closer = rotating.Close
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: Level(opts)}))
	return logger, closer, nil
}
