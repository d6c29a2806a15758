package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level represents log level
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// New builds a logger from cfg. Output defaults to stderr so that stdout
// only carries the identifiers printed for the operator.
func New(cfg Config) zerolog.Logger {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	if cfg.JSONOutput {
		return zerolog.New(output).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        output,
		TimeFormat: time.RFC3339,
	}).Level(level).With().Timestamp().Logger()
}

// WithComponent creates a child logger with component field
func WithComponent(l zerolog.Logger, component string) zerolog.Logger {
	return l.With().Str("component", component).Logger()
}

// WithContainer creates a child logger with container field
func WithContainer(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("container", name).Logger()
}
