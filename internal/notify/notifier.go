// Package notify defines the notification interface and implementations
// for seller-event and session alerts.
package notify

import (
	"context"
	"time"
)

// SellerEvent is one entry of an Easy-Template seller-events response. The
// remote schema is not fixed, so fields are kept as decoded.
type SellerEvent map[string]any

// EventsPayload carries the events found by one watcher poll.
type EventsPayload struct {
	Since  time.Time
	Until  time.Time
	Events []SellerEvent
}

// Notifier defines the interface for sending watcher notifications.
type Notifier interface {
	SendSellerEvents(ctx context.Context, p *EventsPayload) error
	SendSessionAlert(ctx context.Context, message string) error
}
