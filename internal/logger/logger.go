// Package logger provides a configured zerolog logger.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New returns a logger writing to stderr so that stdout stays free for
// command output.
func New(serviceName, format, level string) (zerolog.Logger, error) {
	return NewWithWriter(os.Stderr, serviceName, format, level)
}

// NewWithWriter returns a logger in the given format ("console" or "json")
// writing to out.
func NewWithWriter(out io.Writer, serviceName, format, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parse log level: %w", err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	w := out
	if format == "console" {
		w = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "2006-01-02 15:04:05",
			NoColor:    true,
		}
	}

	return zerolog.New(w).Level(lvl).With().
		Str("service", serviceName).
		Timestamp().
		Logger(), nil
}
