package notify

import (
	"context"
	"log/slog"
)

// NoOpNotifier implements Notifier by logging discarded notifications. It
// is used when Discord is not configured.
type NoOpNotifier struct {
	log *slog.Logger
}

// NewNoOpNotifier creates a notifier that discards with a log message.
func NewNoOpNotifier(log *slog.Logger) *NoOpNotifier {
	return &NoOpNotifier{log: log}
}

// SendSellerEvents logs and discards a poll result.
func (n *NoOpNotifier) SendSellerEvents(_ context.Context, p *EventsPayload) error {
	n.log.Info("seller events (no notification backend configured)",
		"count", len(p.Events),
		"since", p.Since,
		"until", p.Until,
	)
	return nil
}

// SendSessionAlert logs and discards a session alert.
func (n *NoOpNotifier) SendSessionAlert(_ context.Context, message string) error {
	n.log.Warn("session alert (no notification backend configured)", "message", message)
	return nil
}
