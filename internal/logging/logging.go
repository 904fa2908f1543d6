// Package logging configures the process-wide structured logger and exposes
// the narrow Logger interface business packages depend on, so zerolog never
// leaks into core logic signatures.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Base is the process-wide zerolog logger, JSON by default.
var Base = newBase()

func newBase() zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	lvl := zerolog.InfoLevel
	if s := os.Getenv("LOG_LEVEL"); s != "" {
		if parsed, err := zerolog.ParseLevel(s); err == nil {
			lvl = parsed
		}
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}

// Logger is the minimal structured-logging interface used by the core
// packages, satisfied for a zerolog.Logger by the ZerologAdapter below.
type Logger interface {
	Info(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
	Debug(msg string, fields map[string]any)
}

// ZerologAdapter wraps a zerolog.Logger to satisfy Logger.
type ZerologAdapter struct {
	L zerolog.Logger
}

// Named returns a ZerologAdapter scoped to a component name.
func Named(component string) ZerologAdapter {
	return ZerologAdapter{L: Base.With().Str("component", component).Logger()}
}

func (a ZerologAdapter) Info(msg string, fields map[string]any)  { a.emit(a.L.Info(), msg, fields) }
func (a ZerologAdapter) Error(msg string, fields map[string]any) { a.emit(a.L.Error(), msg, fields) }
func (a ZerologAdapter) Debug(msg string, fields map[string]any) { a.emit(a.L.Debug(), msg, fields) }

func (a ZerologAdapter) emit(ev *zerolog.Event, msg string, fields map[string]any) {
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

// Noop discards everything; useful as a default in tests.
type Noop struct{}

func (Noop) Info(string, map[string]any)  {}
func (Noop) Error(string, map[string]any) {}
func (Noop) Debug(string, map[string]any) {}
