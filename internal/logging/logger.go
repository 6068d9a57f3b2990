package logging

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var ErrUnsupportedFormat = errors.New("unsupported log format")

// New builds a logger writing to w in "json" or "console" format.
// Unlike the global zerolog level, the level applies only to the returned logger.
func New(level, format string, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Nop(), err
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		logger = zerolog.New(w)
	case "console", "":
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
	default:
		return zerolog.Nop(), ErrUnsupportedFormat
	}

	return logger.With().Timestamp().Logger().Level(lvl), nil
}

// Component tags a logger with the subsystem emitting the record.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
