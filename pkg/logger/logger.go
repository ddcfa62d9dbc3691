package logger

import (
	"os"
	"time"

	"github.com/blog-engagement-api/internal/config"
	"github.com/rs/zerolog"
)

// ServiceName is attached to every log line
const ServiceName = "blog-engagement-api"

// New creates a new zerolog logger with structured output
func New(cfg config.LogConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	// Use pretty console output in development
	if cfg.Format == "pretty" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			Level(level).
			With().
			Timestamp().
			Caller().
			Str("service", ServiceName).
			Logger()
	}

	// JSON output for production
	return zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", ServiceName).
		Logger()
}
