// Package logging builds the zerolog logger shared by all commands.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const permission = 0o664

// Options selects where and how logs are written.
type Options struct {
	Level   string    // trace, debug, info, warn, error
	Writer  io.Writer // defaults to stderr
	Path    string    // append JSON lines to this file instead
	Console bool      // human-readable output (ignored with Path)
}

// Logger is a configured logger and the file it may own.
type Logger struct {
	zerolog.Logger
	file *os.File
}

// ParseLevel maps a level name to a zerolog level. Empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return lvl, nil
}

// New builds a logger from opts.
func New(opts Options) (*Logger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	l := &Logger{}
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	switch {
	case opts.Path != "":
		l.file, err = os.OpenFile(opts.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		w = zerolog.SyncWriter(l.file)
	case opts.Console:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	l.Logger = zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return l, nil
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
