// Package watch polls Easy-Template seller events on a schedule and
// forwards new ones to a notifier.
package watch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/GV888/easy-template-mcp/internal/easytemplate"
	"github.com/GV888/easy-template-mcp/internal/metrics"
	"github.com/GV888/easy-template-mcp/internal/notify"
	"github.com/GV888/easy-template-mcp/internal/store"
)

// DefaultCursorName keys the poll position in the cursor store.
const DefaultCursorName = "seller-events"

// EventSource is the part of the Easy-Template client the watcher uses.
type EventSource interface {
	GetSellerEvents(ctx context.Context, since time.Time) (json.RawMessage, error)
}

// CursorStore persists the poll position between runs.
type CursorStore interface {
	GetCursor(ctx context.Context, name string) (time.Time, bool, error)
	SetCursor(ctx context.Context, name string, at time.Time) error
}

// EventLog records poll results. It is optional.
type EventLog interface {
	InsertSellerEvents(ctx context.Context, b *store.SellerEventBatch) error
	MarkSellerEventsNotified(ctx context.Context, id int64) error
}

// MemoryCursor keeps positions in process memory.
type MemoryCursor struct {
	mu sync.Mutex
	at map[string]time.Time
}

// NewMemoryCursor returns an empty in-memory cursor store.
func NewMemoryCursor() *MemoryCursor {
	return &MemoryCursor{at: make(map[string]time.Time)}
}

// GetCursor returns the stored position.
func (m *MemoryCursor) GetCursor(_ context.Context, name string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.at[name]
	return at, ok, nil
}

// SetCursor stores the position.
func (m *MemoryCursor) SetCursor(_ context.Context, name string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.at[name] = at
	return nil
}

// Watcher runs single polls. Scheduler drives it periodically.
type Watcher struct {
	source   EventSource
	notifier notify.Notifier
	cursors  CursorStore
	events   EventLog
	log      *slog.Logger
	name     string
	lookback time.Duration
	nowFunc  func() time.Time

	mu      sync.Mutex
	alerted bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithCursorStore sets where the poll position is kept.
func WithCursorStore(c CursorStore) Option {
	return func(w *Watcher) { w.cursors = c }
}

// WithEventLog records every non-empty poll.
func WithEventLog(l EventLog) Option {
	return func(w *Watcher) { w.events = l }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.log = l }
}

// WithLookback sets how far back the first poll reaches.
func WithLookback(d time.Duration) Option {
	return func(w *Watcher) { w.lookback = d }
}

// WithCursorName keys the position, for running several watchers on one
// store.
func WithCursorName(name string) Option {
	return func(w *Watcher) { w.name = name }
}

// WithNowFunc overrides the clock.
func WithNowFunc(f func() time.Time) Option {
	return func(w *Watcher) { w.nowFunc = f }
}

// New creates a Watcher.
func New(source EventSource, notifier notify.Notifier, opts ...Option) *Watcher {
	w := &Watcher{
		source:   source,
		notifier: notifier,
		cursors:  NewMemoryCursor(),
		log:      slog.New(slog.DiscardHandler),
		name:     DefaultCursorName,
		lookback: time.Hour,
		nowFunc:  time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Poll fetches events since the stored position, notifies, and advances
// the position to the poll start. The position is left unchanged when the
// fetch or the notification fails, so the next poll covers the same window.
func (w *Watcher) Poll(ctx context.Context) (int, error) {
	now := w.nowFunc()

	since, ok, err := w.cursors.GetCursor(ctx, w.name)
	if err != nil {
		metrics.WatchPollsTotal.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("reading cursor: %w", err)
	}
	if !ok {
		since = now.Add(-w.lookback)
	}

	raw, err := w.source.GetSellerEvents(ctx, since)
	if err != nil {
		metrics.WatchPollsTotal.WithLabelValues("error").Inc()
		if easytemplate.IsKind(err, easytemplate.KindAuth) {
			w.alertSession(ctx, err)
		}
		return 0, err
	}
	w.clearAlert()

	events, err := DecodeEvents(raw)
	if err != nil {
		metrics.WatchPollsTotal.WithLabelValues("error").Inc()
		return 0, err
	}

	if len(events) > 0 {
		if err := w.deliver(ctx, since, now, raw, events); err != nil {
			metrics.WatchPollsTotal.WithLabelValues("error").Inc()
			return 0, err
		}
	}

	if err := w.cursors.SetCursor(ctx, w.name, now); err != nil {
		metrics.WatchPollsTotal.WithLabelValues("error").Inc()
		return len(events), fmt.Errorf("advancing cursor: %w", err)
	}

	metrics.WatchPollsTotal.WithLabelValues("success").Inc()
	metrics.WatchLastPollTimestamp.Set(float64(now.Unix()))
	w.log.Debug("seller events polled", "since", since, "count", len(events))
	return len(events), nil
}

func (w *Watcher) deliver(
	ctx context.Context,
	since, now time.Time,
	raw json.RawMessage,
	events []notify.SellerEvent,
) error {
	var batch *store.SellerEventBatch
	if w.events != nil {
		batch = &store.SellerEventBatch{Since: since, PolledAt: now, Payload: raw}
		if err := w.events.InsertSellerEvents(ctx, batch); err != nil {
			w.log.Warn("recording seller events failed", "error", err)
			batch = nil
		}
	}

	if err := w.notifier.SendSellerEvents(ctx, &notify.EventsPayload{
		Since:  since,
		Until:  now,
		Events: events,
	}); err != nil {
		return fmt.Errorf("notifying seller events: %w", err)
	}

	if batch != nil {
		if err := w.events.MarkSellerEventsNotified(ctx, batch.ID); err != nil {
			w.log.Warn("marking seller events notified failed", "id", batch.ID, "error", err)
		}
	}
	return nil
}

// alertSession sends one alert per run of auth failures.
func (w *Watcher) alertSession(ctx context.Context, cause error) {
	w.mu.Lock()
	if w.alerted {
		w.mu.Unlock()
		return
	}
	w.alerted = true
	w.mu.Unlock()

	msg := "Seller-event polling stopped: " + cause.Error() + ". Run `easy-template login` to sign in again."
	if err := w.notifier.SendSessionAlert(ctx, msg); err != nil {
		w.log.Warn("session alert failed", "error", err)
	}
}

func (w *Watcher) clearAlert() {
	w.mu.Lock()
	w.alerted = false
	w.mu.Unlock()
}

// DecodeEvents accepts the shapes the seller-events endpoint returns: an
// array, an object wrapping an array under events, list, items or data, or
// a single event object. Empty bodies and null yield no events.
func DecodeEvents(raw json.RawMessage) ([]notify.SellerEvent, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding seller events: %w", err)
	}

	switch t := v.(type) {
	case []any:
		return toEvents(t), nil
	case map[string]any:
		for _, key := range []string{"events", "list", "items", "data"} {
			if arr, ok := t[key].([]any); ok {
				return toEvents(arr), nil
			}
		}
		if len(t) == 0 {
			return nil, nil
		}
		return []notify.SellerEvent{t}, nil
	default:
		return nil, fmt.Errorf("decoding seller events: unexpected %T", v)
	}
}

func toEvents(arr []any) []notify.SellerEvent {
	out := make([]notify.SellerEvent, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
			continue
		}
		out = append(out, notify.SellerEvent{"value": item})
	}
	return out
}
