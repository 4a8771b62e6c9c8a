package service

import (
	"context"
	"log/slog"
)

// Notifier is the outbound notification boundary. Delivery and failure
// handling belong to the collaborator; the core fires and forgets after its
// own transaction commits.
type Notifier interface {
	Notify(ctx context.Context, event string, recipients []string, payload map[string]any) error
}

// LogNotifier is the default Notifier; it records the event and delivers
// nothing.
type LogNotifier struct{}

// Notify logs the notification event.
func (LogNotifier) Notify(ctx context.Context, event string, recipients []string, payload map[string]any) error {
	slog.Info("notification dispatched",
		"event", event,
		"recipients", recipients,
	)
	return nil
}

// notify dispatches after a committed mutation. Failures are warnings, never
// errors: the core's job is done once its transaction committed.
func notify(ctx context.Context, n Notifier, event string, recipients []string, payload map[string]any) {
	if n == nil || len(recipients) == 0 {
		return
	}
	if err := n.Notify(ctx, event, recipients, payload); err != nil {
		slog.Warn("notification delivery failed",
			"event", event,
			"error", err,
		)
	}
}
