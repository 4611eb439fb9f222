// Package sinks provides Router sink implementations.
package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"rollbacknet/logging"
)

// Console writes one line per event to the given writer.
type Console struct {
	logger *log.Logger
}

// NewConsole constructs a Console sink writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{logger: log.New(w, "", log.LstdFlags)}
}

// Write implements logging.Sink.
func (s *Console) Write(event logging.Event) error {
	if s.logger == nil {
		return nil
	}
	s.logger.Printf(
		"[%s] step=%d actor=%s severity=%s%s",
		event.Type,
		event.Step,
		formatEntity(event.Actor),
		formatSeverity(event.Severity),
		formatPayload(event.Payload),
	)
	return nil
}

// Close implements logging.Sink.
func (s *Console) Close(context.Context) error {
	return nil
}

func formatSeverity(sev logging.Severity) string {
	switch sev {
	case logging.SeverityDebug:
		return "debug"
	case logging.SeverityInfo:
		return "info"
	case logging.SeverityWarn:
		return "warn"
	case logging.SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

func formatEntity(ref logging.EntityRef) string {
	if ref.ID == "" {
		return string(ref.Kind)
	}
	if ref.Kind == "" {
		return ref.ID
	}
	return fmt.Sprintf("%s:%s", ref.Kind, ref.ID)
}

func formatPayload(payload any) string {
	if payload == nil {
		return ""
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(" payload=%v", payload)
	}
	return fmt.Sprintf(" payload=%s", data)
}
