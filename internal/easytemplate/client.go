// Package easytemplate provides an authenticated client for the
// Easy-Template listing API. A Client owns one session, keeps it fresh,
// persists it through a TokenStore and retries rate-limited calls.
package easytemplate

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultBaseURL is the production API root.
	DefaultBaseURL = "https://www.easy-template.com/api/v3"

	defaultTimeout = 30 * time.Second
	tracerName     = "github.com/GV888/easy-template-mcp/internal/easytemplate"
)

// API is the set of operations front-ends consume. *Client implements it.
type API interface {
	Login(ctx context.Context, clientID, clientSecret string) error
	EnsureValid(ctx context.Context) error
	State() State
	Expiries() (access, refresh time.Time)

	ListItems(ctx context.Context, req ListItemsRequest) (*ItemList, error)
	GetItem(ctx context.Context, articleID int64) (Article, error)
	CreateItem(ctx context.Context, article Article) (*CreateItemResult, error)
	UpdateItem(ctx context.Context, articleID int64, article Article) (json.RawMessage, error)
	SendToEbay(ctx context.Context, articleID int64, opts SendOptions) (*SendResult, error)
	GetEbayItem(ctx context.Context, itemID string) (json.RawMessage, error)
	GetSellerEvents(ctx context.Context, since time.Time) (json.RawMessage, error)
	SendTemplateByItemIDs(ctx context.Context, itemIDs []int64) (*TemplateSendResult, error)
	GetTemplate(ctx context.Context, req TemplateRequest) (json.RawMessage, error)
}

// TokenStore persists a Session between process restarts. Load returns
// (nil, nil) when nothing has been stored yet.
type TokenStore interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s Session) error
}

// Observer receives call outcomes. internal/metrics provides the
// Prometheus-backed implementation.
type Observer interface {
	APICall(op string, status int, d time.Duration)
	Retry(op string)
	RateLimited(op string)
	TokenRefresh(result string)
	Login(result string)
	TokenCacheError(op string)
}

var _ API = (*Client)(nil)

type nopObserver struct{}

func (nopObserver) APICall(string, int, time.Duration) {}
func (nopObserver) Retry(string)                       {}
func (nopObserver) RateLimited(string)                 {}
func (nopObserver) TokenRefresh(string)                {}
func (nopObserver) Login(string)                       {}
func (nopObserver) TokenCacheError(string)             {}

// Client talks to the Easy-Template API on behalf of a single account.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      TokenStore
	limiter    *RateLimiter
	logger     *slog.Logger
	observer   Observer
	tracer     trace.Tracer
	policy     RetryPolicy

	mu      sync.Mutex
	session Session
	expired bool

	nowFunc   func() time.Time
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTokenStore sets where sessions are persisted. Without it sessions
// live only in memory.
func WithTokenStore(s TokenStore) Option {
	return func(c *Client) {
		c.store = s
	}
}

// WithRateLimiter paces outbound calls client-side.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(c *Client) {
		c.limiter = rl
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithObserver sets the metrics sink.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithRetryPolicy overrides the 429 retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

// WithNowFunc overrides the time function for testing.
func WithNowFunc(f func() time.Time) Option {
	return func(c *Client) {
		c.nowFunc = f
	}
}

// WithSleepFunc overrides the backoff wait for testing.
func WithSleepFunc(f func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		c.sleepFunc = f
	}
}

// New creates a Client. The session starts empty; call Restore to pick up
// a persisted one or Login to create a new one.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer:   nopObserver{},
		policy:     DefaultRetryPolicy(),
		nowFunc:    time.Now,
		sleepFunc:  timeSleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.tracer = otel.Tracer(tracerName)
	return c
}

// timeSleep waits for d or until ctx is canceled.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
