// Package logger builds component loggers on zerolog.
package logger

import corelogger "github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any)         {}
func (NopLogger) Debugw(string, map[string]any) {}
func (NopLogger) Infof(string, ...any)          {}
func (NopLogger) Warnf(string, ...any)          {}
func (NopLogger) Errorf(string, ...any)         {}

// New returns a Logger for the given component. The output format follows
// Setup, or the APP_ENV variable when Setup was not called.
func New(component string) Logger {
	return NewZerologLogger(component)
}
