package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/GV888/easy-template-mcp/internal/config"
	"github.com/GV888/easy-template-mcp/internal/easytemplate"
	"github.com/GV888/easy-template-mcp/internal/metrics"
	"github.com/GV888/easy-template-mcp/internal/notify"
	"github.com/GV888/easy-template-mcp/internal/store"
	"github.com/GV888/easy-template-mcp/internal/telemetry"
	"github.com/GV888/easy-template-mcp/internal/tokenstore"
	"github.com/GV888/easy-template-mcp/internal/watch"
)

// app holds what every long-running command shares.
type app struct {
	client  *easytemplate.Client
	limiter *easytemplate.RateLimiter
	store   store.Store // nil without a database

	shutdownTracing telemetry.ShutdownFunc
}

// newApp wires tracing, the optional database and a client with its
// persisted session restored. useDB connects even when the token cache
// does not live in Postgres.
func newApp(ctx context.Context, useDB bool) (*app, error) {
	shutdown, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:        cfg.Tracing.Enabled,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRatio:    cfg.Tracing.SampleRatio,
		ServiceName:    "easy-template",
		ServiceVersion: Version,
	})
	if err != nil {
		return nil, err
	}
	a := &app{shutdownTracing: shutdown}

	if cfg.Database.Enabled() && (useDB || cfg.TokenCache.Backend == config.CachePostgres) {
		pg, err := store.NewPostgresStore(ctx, cfg.Database.DSN())
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		a.store = pg
	}

	tokens, err := newTokenStore(cfg.TokenCache, a.store)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.client, a.limiter = newClient(&cfg.EasyTemplate, tokens)
	if a.client.Restore(ctx) {
		log.Info("restored session", "state", a.client.State().String())
	}
	return a, nil
}

// Close releases the database and flushes traces.
func (a *app) Close(ctx context.Context) {
	if a.store != nil {
		a.store.Close()
	}
	if err := a.shutdownTracing(ctx); err != nil {
		log.Warn("flushing traces failed", "error", err)
	}
}

// autoLogin logs in with configured credentials when there is no usable
// session. Failures are logged; callers can still log in later.
func (a *app) autoLogin(ctx context.Context) {
	if !cfg.EasyTemplate.HasCredentials() {
		return
	}
	switch a.client.State() {
	case easytemplate.StateValid, easytemplate.StateExpiring:
		return
	}
	if err := a.client.Login(ctx, cfg.EasyTemplate.ClientID, cfg.EasyTemplate.ClientSecret); err != nil {
		log.Warn("automatic login failed", "error", err)
		return
	}
	log.Info("logged in with configured credentials")
}

// notifier returns the configured seller-event notifier.
func (a *app) notifier() notify.Notifier {
	d := cfg.Notifications.Discord
	if d.Enabled && d.WebhookURL != "" {
		return notify.NewDiscordNotifier(d.WebhookURL)
	}
	return notify.NewNoOpNotifier(log)
}

// newWatcher builds a watcher that keeps its cursor and history in the
// database when one is connected.
func (a *app) newWatcher() *watch.Watcher {
	opts := []watch.Option{
		watch.WithLogger(log),
		watch.WithLookback(cfg.Watch.Lookback),
	}
	if a.store != nil {
		opts = append(opts, watch.WithCursorStore(a.store), watch.WithEventLog(a.store))
	}
	return watch.New(a.client, a.notifier(), opts...)
}

func newTokenStore(tc config.TokenCacheConfig, db store.Store) (easytemplate.TokenStore, error) {
	path := tc.Path

	switch tc.Backend {
	case config.CacheMemory:
		return tokenstore.NewMemory(), nil

	case config.CacheEncrypted:
		if path == "" {
			path = filepath.Join(filepath.Dir(tokenstore.DefaultPath()), "token.age")
		}
		return tokenstore.NewEncryptedFile(path, tc.Passphrase)

	case config.CachePostgres:
		if db == nil {
			return nil, errors.New("token cache backend postgres needs a database")
		}
		return store.NewSessionStore(db, tc.Account), nil

	default:
		if path == "" {
			path = tokenstore.DefaultPath()
		}
		return tokenstore.NewFile(path), nil
	}
}

func newClient(
	et *config.EasyTemplateConfig,
	tokens easytemplate.TokenStore,
) (*easytemplate.Client, *easytemplate.RateLimiter) {
	opts := []easytemplate.Option{
		easytemplate.WithBaseURL(et.BaseURL),
		easytemplate.WithHTTPClient(&http.Client{Timeout: et.Timeout}),
		easytemplate.WithTokenStore(tokens),
		easytemplate.WithLogger(log),
		easytemplate.WithObserver(metrics.Observer{}),
		easytemplate.WithRetryPolicy(easytemplate.RetryPolicy{
			MaxRetries: et.Retry.Retries(),
			BaseDelay:  et.Retry.BaseDelay,
			MaxDelay:   et.Retry.MaxDelay,
		}),
	}

	var rl *easytemplate.RateLimiter
	if et.RateLimit.PerSecond > 0 {
		rl = easytemplate.NewRateLimiter(et.RateLimit.PerSecond, et.RateLimit.Burst, et.RateLimit.DailyLimit)
		opts = append(opts, easytemplate.WithRateLimiter(rl))
	}

	return easytemplate.New(opts...), rl
}
