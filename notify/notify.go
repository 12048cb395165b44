// Package notify defines the optional notification collaborator. Both the
// watchdog and the orchestrator emit progress and warning events through a
// Notifier; the absence of a real sink is expressed as Nop, never as a nil
// check at the call site.
package notify

import (
	"context"
	"log/slog"
)

// Severity classifies a notification.
type Severity string

const (
	Info    Severity = "info"
	Success Severity = "success"
	Warning Severity = "warning"
	Error   Severity = "error"
)

// Notifier receives (severity, title, message) events. Implementations must
// never block control flow on delivery failure.
type Notifier interface {
	Notify(ctx context.Context, sev Severity, title, message string)
}

// Nop discards all notifications. The default collaborator.
type Nop struct{}

func (Nop) Notify(context.Context, Severity, string, string) {}

// Slog adapts a structured logger into a Notifier.
type Slog struct {
	Logger *slog.Logger
}

// NewSlog creates a Notifier writing to the given logger. A nil logger falls
// back to slog.Default.
func NewSlog(l *slog.Logger) *Slog {
	if l == nil {
		l = slog.Default()
	}
	return &Slog{Logger: l}
}

func (s *Slog) Notify(ctx context.Context, sev Severity, title, message string) {
	switch sev {
	case Error:
		s.Logger.ErrorContext(ctx, title, "detail", message)
	case Warning:
		s.Logger.WarnContext(ctx, title, "detail", message)
	default:
		s.Logger.InfoContext(ctx, title, "detail", message, "severity", string(sev))
	}
}

// Multi fans one notification out to several sinks.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, sev Severity, title, message string) {
	for _, n := range m {
		n.Notify(ctx, sev, title, message)
	}
}
