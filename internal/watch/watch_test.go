package watch_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GV888/easy-template-mcp/internal/easytemplate"
	"github.com/GV888/easy-template-mcp/internal/notify"
	"github.com/GV888/easy-template-mcp/internal/store"
	"github.com/GV888/easy-template-mcp/internal/watch"
)

var pollTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) GetSellerEvents(ctx context.Context, since time.Time) (json.RawMessage, error) {
	args := m.Called(ctx, since)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

type recordingNotifier struct {
	mu       sync.Mutex
	payloads []*notify.EventsPayload
	alerts   []string
	err      error
}

func (n *recordingNotifier) SendSellerEvents(_ context.Context, p *notify.EventsPayload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.payloads = append(n.payloads, p)
	return nil
}

func (n *recordingNotifier) SendSessionAlert(_ context.Context, msg string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, msg)
	return nil
}

type fakeEventLog struct {
	batches  []*store.SellerEventBatch
	notified []int64
}

func (f *fakeEventLog) InsertSellerEvents(_ context.Context, b *store.SellerEventBatch) error {
	b.ID = int64(len(f.batches) + 1)
	f.batches = append(f.batches, b)
	return nil
}

func (f *fakeEventLog) MarkSellerEventsNotified(_ context.Context, id int64) error {
	f.notified = append(f.notified, id)
	return nil
}

func fixedNow() time.Time { return pollTime }

func TestWatcher_FirstPollUsesLookback(t *testing.T) {
	t.Parallel()

	src := &mockSource{}
	src.On("GetSellerEvents", mock.Anything, pollTime.Add(-2*time.Hour)).
		Return(json.RawMessage(`[{"type":"ItemSold","itemId":"123"}]`), nil).Once()
	n := &recordingNotifier{}
	cursors := watch.NewMemoryCursor()

	w := watch.New(src, n,
		watch.WithCursorStore(cursors),
		watch.WithLookback(2*time.Hour),
		watch.WithNowFunc(fixedNow),
	)

	count, err := w.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.Len(t, n.payloads, 1)
	assert.Equal(t, pollTime.Add(-2*time.Hour), n.payloads[0].Since)
	assert.Equal(t, pollTime, n.payloads[0].Until)
	assert.Equal(t, "ItemSold", n.payloads[0].Events[0]["type"])

	at, ok, err := cursors.GetCursor(context.Background(), watch.DefaultCursorName)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, pollTime, at)
	src.AssertExpectations(t)
}

func TestWatcher_ResumesFromCursor(t *testing.T) {
	t.Parallel()

	last := pollTime.Add(-5 * time.Minute)
	cursors := watch.NewMemoryCursor()
	require.NoError(t, cursors.SetCursor(context.Background(), "shop", last))

	src := &mockSource{}
	src.On("GetSellerEvents", mock.Anything, last).Return(json.RawMessage(`[]`), nil).Once()
	n := &recordingNotifier{}

	w := watch.New(src, n,
		watch.WithCursorStore(cursors),
		watch.WithCursorName("shop"),
		watch.WithNowFunc(fixedNow),
	)

	count, err := w.Poll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, n.payloads, "empty polls are not notified")

	at, _, _ := cursors.GetCursor(context.Background(), "shop")
	assert.Equal(t, pollTime, at)
	src.AssertExpectations(t)
}

func TestWatcher_NotifyFailureKeepsCursor(t *testing.T) {
	t.Parallel()

	last := pollTime.Add(-5 * time.Minute)
	cursors := watch.NewMemoryCursor()
	require.NoError(t, cursors.SetCursor(context.Background(), watch.DefaultCursorName, last))

	src := &mockSource{}
	src.On("GetSellerEvents", mock.Anything, last).Return(json.RawMessage(`{"events":[{"type":"x"}]}`), nil)
	n := &recordingNotifier{err: errors.New("webhook down")}

	w := watch.New(src, n, watch.WithCursorStore(cursors), watch.WithNowFunc(fixedNow))

	_, err := w.Poll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook down")

	at, _, _ := cursors.GetCursor(context.Background(), watch.DefaultCursorName)
	assert.Equal(t, last, at)
}

func TestWatcher_RecordsBatches(t *testing.T) {
	t.Parallel()

	src := &mockSource{}
	src.On("GetSellerEvents", mock.Anything, mock.Anything).
		Return(json.RawMessage(`{"items":[{"a":1},{"b":2}]}`), nil)
	n := &recordingNotifier{}
	log := &fakeEventLog{}

	w := watch.New(src, n, watch.WithEventLog(log), watch.WithNowFunc(fixedNow))

	count, err := w.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.Len(t, log.batches, 1)
	assert.Equal(t, pollTime, log.batches[0].PolledAt)
	assert.JSONEq(t, `{"items":[{"a":1},{"b":2}]}`, string(log.batches[0].Payload))
	assert.Equal(t, []int64{1}, log.notified)
}

func TestWatcher_SessionAlertOncePerOutage(t *testing.T) {
	t.Parallel()

	authErr := &easytemplate.Error{Kind: easytemplate.KindAuth, Err: easytemplate.ErrSessionExpired}

	src := &mockSource{}
	src.On("GetSellerEvents", mock.Anything, mock.Anything).Return(nil, authErr).Twice()
	src.On("GetSellerEvents", mock.Anything, mock.Anything).Return(json.RawMessage(`[]`), nil).Once()
	src.On("GetSellerEvents", mock.Anything, mock.Anything).Return(nil, authErr).Once()
	n := &recordingNotifier{}

	w := watch.New(src, n, watch.WithNowFunc(fixedNow))
	ctx := context.Background()

	_, err := w.Poll(ctx)
	require.ErrorIs(t, err, easytemplate.ErrSessionExpired)
	_, err = w.Poll(ctx)
	require.Error(t, err)
	assert.Len(t, n.alerts, 1)

	_, err = w.Poll(ctx)
	require.NoError(t, err)

	_, err = w.Poll(ctx)
	require.Error(t, err)
	assert.Len(t, n.alerts, 2, "a new outage alerts again")
	assert.Contains(t, n.alerts[0], "session expired")
}

func TestWatcher_RemoteErrorDoesNotAlert(t *testing.T) {
	t.Parallel()

	src := &mockSource{}
	src.On("GetSellerEvents", mock.Anything, mock.Anything).
		Return(nil, &easytemplate.Error{Kind: easytemplate.KindRemote, StatusCode: 502, Err: easytemplate.ErrRemote})
	n := &recordingNotifier{}

	_, err := watch.New(src, n).Poll(context.Background())
	require.Error(t, err)
	assert.Empty(t, n.alerts)
}

func TestDecodeEvents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{name: "empty body", raw: "", want: 0},
		{name: "null", raw: "null", want: 0},
		{name: "array", raw: `[{"a":1},{"b":2}]`, want: 2},
		{name: "events wrapper", raw: `{"events":[{"a":1}]}`, want: 1},
		{name: "list wrapper", raw: `{"list":[{"a":1},{"a":2},{"a":3}]}`, want: 3},
		{name: "data wrapper", raw: `{"data":[]}`, want: 0},
		{name: "single object", raw: `{"type":"ItemSold"}`, want: 1},
		{name: "empty object", raw: `{}`, want: 0},
		{name: "scalar entries", raw: `["x", 2]`, want: 2},
		{name: "bare string", raw: `"nope"`, wantErr: true},
		{name: "malformed", raw: `{"events":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := watch.DecodeEvents(json.RawMessage(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestDecodeEvents_KeepsNumbers(t *testing.T) {
	t.Parallel()

	got, err := watch.DecodeEvents(json.RawMessage(`[{"itemId":110555123456789}]`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, json.Number("110555123456789"), got[0]["itemId"])
}

func TestScheduler_Entries(t *testing.T) {
	t.Parallel()

	w := watch.New(&mockSource{}, &recordingNotifier{})
	s, err := watch.NewScheduler(w, 5*time.Minute, slogDiscard())
	require.NoError(t, err)
	assert.Len(t, s.Entries(), 1)

	s.Start()
	<-s.Stop().Done()
}

func slogDiscard() *slog.Logger { return slog.New(slog.DiscardHandler) }
