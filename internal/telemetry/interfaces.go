// Package telemetry exposes the minimal logging and publishing surface the
// rollback session core requires, decoupled from any concrete implementation
// so tests and alternative hosts can substitute their own.
package telemetry

import (
	"context"
	"log"

	"rollbacknet/logging"
)

// Logger exposes the logging capabilities required by session components.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc adapts functions into the Logger interface.
type LoggerFunc func(format string, args ...any)

// Printf implements Logger for LoggerFunc.
func (f LoggerFunc) Printf(format string, args ...any) {
	if f == nil {
		return
	}
	f(format, args...)
}

// WrapLogger adapts a standard library logger to the Logger interface.
func WrapLogger(logger *log.Logger) Logger {
	return &loggerAdapter{logger: logger}
}

type loggerAdapter struct {
	logger *log.Logger
}

func (l *loggerAdapter) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Printf(format, args...)
}

// Publisher exposes the event-publishing surface required by session
// components. It mirrors logging.Publisher so callers depending on
// telemetry never need to import the logging package directly.
type Publisher interface {
	Publish(ctx context.Context, event logging.Event)
}

// WrapPublisher adapts a logging.Publisher into the telemetry Publisher
// interface, tolerating a nil router by falling back to a no-op.
func WrapPublisher(p logging.Publisher) Publisher {
	if p == nil {
		return logging.NopPublisher()
	}
	return p
}
