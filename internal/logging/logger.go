// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level: trace, debug, info, warn, error, fatal, panic, disabled.
	Level string

	// Format is "json" (default) or "console".
	Format string

	// Caller adds file:line to every entry.
	Caller bool

	// Timestamp adds the "time" field. Defaults to true via DefaultConfig.
	Timestamp bool

	// Output defaults to os.Stderr.
	Output io.Writer

	// Service, when set, is attached to every entry as "service".
	Service string
}

// DefaultConfig returns the configuration used before Init is called.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Format:    "json",
		Timestamp: true,
		Output:    os.Stderr,
	}
}

var (
	log zerolog.Logger
	mu  sync.RWMutex
)

func init() {
	initLogger(DefaultConfig())
}

// Init replaces the global logger. Safe to call more than once.
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	initLogger(cfg)
}

func initLogger(cfg Config) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFieldName = "time"
	zerolog.LevelFieldName = "level"
	zerolog.MessageFieldName = "message"
	zerolog.ErrorFieldName = "error"
	zerolog.CallerFieldName = "caller"

	out := cfg.Output
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}

	zctx := zerolog.New(out).With()
	if cfg.Timestamp {
		zctx = zctx.Timestamp()
	}
	if cfg.Caller {
		zctx = zctx.Caller()
	}
	if cfg.Service != "" {
		zctx = zctx.Str("service", cfg.Service)
	}
	log = zctx.Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// ValidLevel reports whether level names a known level.
func ValidLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled", "off":
		return true
	}
	return false
}

// Logger returns a copy of the global logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// SetLogger replaces the global logger, mainly for tests.
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	log = l
}

// With starts a child logger context.
func With() zerolog.Context {
	mu.RLock()
	defer mu.RUnlock()
	return log.With()
}

func Trace() *zerolog.Event { return event(zerolog.TraceLevel) }
func Debug() *zerolog.Event { return event(zerolog.DebugLevel) }
func Info() *zerolog.Event  { return event(zerolog.InfoLevel) }
func Warn() *zerolog.Event  { return event(zerolog.WarnLevel) }
func Error() *zerolog.Event { return event(zerolog.ErrorLevel) }

// Fatal logs and exits the process once the event is sent.
func Fatal() *zerolog.Event { return event(zerolog.FatalLevel) }

// Err starts an error-level event (info when err is nil).
func Err(err error) *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Err(err)
}

func event(level zerolog.Level) *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	switch level {
	case zerolog.TraceLevel:
		return log.Trace()
	case zerolog.DebugLevel:
		return log.Debug()
	case zerolog.WarnLevel:
		return log.Warn()
	case zerolog.ErrorLevel:
		return log.Error()
	case zerolog.FatalLevel:
		return log.Fatal()
	default:
		return log.Info()
	}
}

// SetLevelString changes the global level at runtime.
func SetLevelString(level string) {
	zerolog.SetGlobalLevel(parseLevel(level))
}

// WithComponent returns a child logger tagged with a component name.
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}

// NewTestLogger returns a JSON logger writing to w.
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
