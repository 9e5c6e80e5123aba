package easytemplate_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GV888/easy-template-mcp/internal/easytemplate"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: epoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// sleepRecorder records backoff waits instead of sleeping.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// memStore is an in-memory TokenStore with injectable failures.
type memStore struct {
	mu      sync.Mutex
	session *easytemplate.Session
	saves   int
	loadErr error
	saveErr error
}

func (m *memStore) Load(context.Context) (*easytemplate.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.session == nil {
		return nil, nil
	}
	s := *m.session
	return &s, nil
}

func (m *memStore) Save(_ context.Context, s easytemplate.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.session = &s
	return nil
}

func (m *memStore) Saved() (*easytemplate.Session, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, m.saves
}

var errDiskFull = errors.New("disk full")

// fakeAPI is an Easy-Template server that issues numbered token pairs.
// Access tokens live one hour and refresh tokens one day from clock.Now().
type fakeAPI struct {
	srv   *httptest.Server
	mux   *http.ServeMux
	clock *fakeClock

	logins    atomic.Int32
	refreshes atomic.Int32
	seq       atomic.Int32

	mu        sync.Mutex
	lastAuth  string
	lastQuery string
	lastBody  map[string]any
}

func newFakeAPI(t *testing.T, clock *fakeClock) *fakeAPI {
	t.Helper()

	f := &fakeAPI{mux: http.NewServeMux(), clock: clock}
	f.mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		f.logins.Add(1)
		f.record(r)
		f.writeToken(w)
	})
	f.mux.HandleFunc("POST /refreshToken", func(w http.ResponseWriter, r *http.Request) {
		f.refreshes.Add(1)
		f.record(r)
		f.writeToken(w)
	})

	f.srv = httptest.NewServer(f.mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) writeToken(w http.ResponseWriter) {
	n := f.seq.Add(1)
	now := f.clock.Now()
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w,
		`{"accessToken":"access-%d","refreshToken":"refresh-%d","tokenExpires":%d,"refreshTokenExpires":%d}`,
		n, n, now.Add(time.Hour).Unix(), now.Add(24*time.Hour).Unix(),
	)
}

// handle registers a business endpoint that records the request.
func (f *fakeAPI) handle(pattern string, h http.HandlerFunc) {
	f.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		h(w, r)
	})
}

func (f *fakeAPI) record(r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAuth = r.Header.Get("Authorization")
	f.lastQuery = r.URL.RawQuery
	f.lastBody = body
}

func (f *fakeAPI) last() (auth, query string, body map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuth, f.lastQuery, f.lastBody
}

func (f *fakeAPI) client(
	clock *fakeClock,
	sleeps *sleepRecorder,
	opts ...easytemplate.Option,
) *easytemplate.Client {
	base := []easytemplate.Option{
		easytemplate.WithBaseURL(f.srv.URL),
		easytemplate.WithNowFunc(clock.Now),
		easytemplate.WithSleepFunc(sleeps.Sleep),
	}
	return easytemplate.New(append(base, opts...)...)
}

// loggedIn returns a client that has completed a login against f.
func loggedIn(
	t *testing.T,
	f *fakeAPI,
	clock *fakeClock,
	sleeps *sleepRecorder,
	opts ...easytemplate.Option,
) *easytemplate.Client {
	t.Helper()

	c := f.client(clock, sleeps, opts...)
	if err := c.Login(context.Background(), "client-id", "client-secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// newServer starts h and returns its URL.
func newServer(t *testing.T, h http.Handler) string {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv.URL
}
