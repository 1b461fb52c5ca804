// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logger provides structured logging for paper-reader.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pdiddy/paper-reader/pkg/types"
)

// Logger wraps zerolog with component-scoped helpers.
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration.
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // console output for development
	Output     io.Writer
	WithCaller bool
}

// FromTypes converts the viper-decoded log settings.
func FromTypes(cfg types.LogConfig) Config {
	return Config{Level: cfg.Level, Pretty: cfg.Pretty, Output: os.Stderr}
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// New creates a structured logger.
func New(cfg Config) *Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	zlog := zerolog.New(output).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", "paper-reader").
		Logger()
	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}
	return &Logger{zlog: zlog}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// Zerolog returns the underlying zerolog logger.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zlog
}

// Component returns a logger tagged with a component name.
func (l *Logger) Component(name string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("component", name).Logger()}
}

// With returns a logger carrying an extra string field.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{zlog: l.zlog.With().Str(key, value).Logger()}
}

func (l *Logger) Debug() *zerolog.Event { return l.zlog.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zlog.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zlog.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zlog.Error() }

// LogMutation records the outcome of an entity create, update, or delete.
func (l *Logger) LogMutation(operation, entityID string, duration time.Duration, err error) {
	if err != nil {
		l.zlog.Warn().
			Str("operation", operation).
			Str("entity_id", entityID).
			Dur("duration_ms", duration).
			Err(err).
			Msg("entity mutation failed")
		return
	}
	l.zlog.Debug().
		Str("operation", operation).
		Str("entity_id", entityID).
		Dur("duration_ms", duration).
		Msg("entity mutation completed")
}

// LogRequest records an HTTP request handled or issued by the service.
func (l *Logger) LogRequest(method, path string, status int, duration time.Duration) {
	event := l.zlog.Debug()
	if status >= 500 {
		event = l.zlog.Error()
	}
	event.
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Dur("duration_ms", duration).
		Msg("request completed")
}

var global *Logger

// InitGlobal initializes the process-wide logger and zerolog's global logger.
func InitGlobal(cfg Config) *Logger {
	global = New(cfg)
	log.Logger = global.zlog
	return global
}

// Global returns the process-wide logger, initializing it with defaults.
func Global() *Logger {
	if global == nil {
		return InitGlobal(Config{Level: "info", Pretty: true})
	}
	return global
}

// OrNop returns l, or a discarding logger when l is nil.
func OrNop(l *Logger) *Logger {
	if l == nil {
		return Nop()
	}
	return l
}
