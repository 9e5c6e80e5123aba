package easytemplate

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// refreshMargin is how close to access token expiry a call may get before
// the session is refreshed first.
const refreshMargin = 60 * time.Second

// State is the lifecycle position of a session.
type State int

// Session states.
const (
	StateUnauthenticated State = iota
	StateValid
	StateExpiring
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateValid:
		return "valid"
	case StateExpiring:
		return "expiring"
	case StateExpired:
		return "expired"
	default:
		return "unauthenticated"
	}
}

// Session is the token pair issued by the API. Expiries are epoch
// milliseconds. The JSON form is the persisted token cache record.
type Session struct {
	AccessToken        string `json:"accessToken"`
	RefreshToken       string `json:"refreshToken"`
	AccessTokenExpiry  int64  `json:"accessTokenExpiry"`
	RefreshTokenExpiry int64  `json:"refreshTokenExpiry"`
}

// AccessExpiresAt returns the access token expiry.
func (s Session) AccessExpiresAt() time.Time {
	return time.UnixMilli(s.AccessTokenExpiry)
}

// RefreshExpiresAt returns the refresh token expiry.
func (s Session) RefreshExpiresAt() time.Time {
	return time.UnixMilli(s.RefreshTokenExpiry)
}

// Renewable reports whether the refresh token is still usable at now.
func (s Session) Renewable(now time.Time) bool {
	return s.RefreshToken != "" && now.Before(s.RefreshExpiresAt())
}

// StateAt derives the session state at now.
func (s Session) StateAt(now time.Time) State {
	switch {
	case s.AccessToken == "":
		return StateUnauthenticated
	case s.AccessExpiresAt().Sub(now) >= refreshMargin:
		return StateValid
	case s.Renewable(now):
		return StateExpiring
	default:
		return StateExpired
	}
}

type tokenResponse struct {
	AccessToken         string `json:"accessToken"`
	RefreshToken        string `json:"refreshToken"`
	TokenExpires        int64  `json:"tokenExpires"`
	RefreshTokenExpires int64  `json:"refreshTokenExpires"`
}

// Login exchanges client credentials for a new session, replacing the
// current one and persisting it. On failure the current session is kept.
func (c *Client) Login(ctx context.Context, clientID, clientSecret string) error {
	const op = "login"

	if clientID == "" || clientSecret == "" {
		c.observer.Login("error")
		return &Error{
			Kind:   KindAuth,
			Op:     op,
			Detail: "client id and client secret are required",
			Err:    ErrInvalidRequest,
		}
	}

	creds := base64.StdEncoding.EncodeToString(
		[]byte(clientID + ":" + clientSecret),
	)

	s, err := c.requestToken(ctx, op, "/token", "Basic "+creds)
	if err != nil {
		c.observer.Login("error")
		return withOp(op, err)
	}

	c.mu.Lock()
	c.replaceLocked(ctx, s)
	c.mu.Unlock()

	c.observer.Login("success")
	c.logger.Info("logged in",
		slog.Time("access_expires", s.AccessExpiresAt()),
		slog.Time("refresh_expires", s.RefreshExpiresAt()),
	)
	return nil
}

// Refresh rotates both tokens using the current refresh token.
func (c *Client) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshLocked(ctx)
}

// EnsureValid makes sure the access token is good for at least the refresh
// margin, refreshing first if it is not. Concurrent callers share a single
// refresh.
func (c *Client) EnsureValid(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.AccessToken == "" {
		return &Error{Kind: KindAuth, Err: ErrNotAuthenticated}
	}
	if c.expired {
		return &Error{Kind: KindAuth, Err: ErrSessionExpired}
	}

	if c.session.AccessExpiresAt().Sub(c.nowFunc()) < refreshMargin {
		return c.refreshLocked(ctx)
	}
	return nil
}

// Restore loads a persisted session. It reports whether one was restored;
// a missing, unreadable or no longer renewable record leaves the client
// unauthenticated.
func (c *Client) Restore(ctx context.Context) bool {
	if c.store == nil {
		return false
	}

	s, err := c.store.Load(ctx)
	if err != nil {
		c.observer.TokenCacheError("load")
		c.logger.Warn("reading token cache", slog.String("error", err.Error()))
		return false
	}
	if s == nil || s.AccessToken == "" {
		return false
	}
	if !s.Renewable(c.nowFunc()) {
		c.logger.Info("cached session expired, login required",
			slog.Time("refresh_expires", s.RefreshExpiresAt()),
		)
		return false
	}

	c.mu.Lock()
	c.session = *s
	c.expired = false
	c.mu.Unlock()

	c.logger.Debug("restored cached session",
		slog.Time("access_expires", s.AccessExpiresAt()),
	)
	return true
}

// Session returns a copy of the current session.
func (c *Client) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Expiries returns when the access and refresh tokens expire. Both are
// zero before the first login.
func (c *Client) Expiries() (access, refresh time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.AccessTokenExpiry > 0 {
		access = c.session.AccessExpiresAt()
	}
	if c.session.RefreshTokenExpiry > 0 {
		refresh = c.session.RefreshExpiresAt()
	}
	return access, refresh
}

// State returns the current session state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.expired {
		return StateExpired
	}
	return c.session.StateAt(c.nowFunc())
}

func (c *Client) refreshLocked(ctx context.Context) error {
	const op = "token refresh"

	if c.session.RefreshToken == "" {
		return &Error{Kind: KindAuth, Op: op, Err: ErrNotAuthenticated}
	}
	if !c.session.Renewable(c.nowFunc()) {
		c.expired = true
		c.observer.TokenRefresh("expired")
		return &Error{Kind: KindAuth, Op: op, Err: ErrSessionExpired}
	}

	s, err := c.requestToken(ctx, op, "/refreshToken", "Bearer "+c.session.RefreshToken)
	if err != nil {
		// A failed refresh ends the session; only Login recovers it.
		c.expired = true
		c.observer.TokenRefresh("error")
		c.logger.Warn("token refresh failed", slog.String("error", err.Error()))
		return withOp(op, err)
	}

	c.replaceLocked(ctx, s)
	c.observer.TokenRefresh("success")
	c.logger.Debug("refreshed session",
		slog.Time("access_expires", s.AccessExpiresAt()),
	)
	return nil
}

// replaceLocked swaps in a new session and persists it. Cache failures are
// logged and otherwise ignored.
func (c *Client) replaceLocked(ctx context.Context, s Session) {
	c.session = s
	c.expired = false

	if c.store == nil {
		return
	}
	if err := c.store.Save(ctx, s); err != nil {
		c.observer.TokenCacheError("save")
		c.logger.Warn("writing token cache", slog.String("error", err.Error()))
	}
}

// requestToken calls one of the two token endpoints. Client errors from
// these endpoints are authentication failures.
func (c *Client) requestToken(
	ctx context.Context,
	op, path, authorization string,
) (Session, error) {
	raw, err := withRetry(ctx, c, op, func(ctx context.Context) (json.RawMessage, error) {
		return c.send(ctx, request{
			op:            op,
			method:        http.MethodPost,
			path:          path,
			body:          struct{}{},
			authorization: authorization,
		})
	})
	if err != nil {
		var etErr *Error
		if errors.As(err, &etErr) && etErr.StatusCode >= 400 && etErr.StatusCode < 500 &&
			etErr.StatusCode != http.StatusTooManyRequests {
			etErr.Kind = KindAuth
		}
		return Session{}, err
	}

	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return Session{}, &Error{Kind: KindRemote, Detail: "parsing token response: " + err.Error(), Err: ErrRemote}
	}
	if tr.AccessToken == "" || tr.RefreshToken == "" {
		return Session{}, &Error{Kind: KindAuth, Detail: "token response is missing tokens", Err: ErrUnauthorized}
	}

	return Session{
		AccessToken:        tr.AccessToken,
		RefreshToken:       tr.RefreshToken,
		AccessTokenExpiry:  tr.TokenExpires * 1000,
		RefreshTokenExpiry: tr.RefreshTokenExpires * 1000,
	}, nil
}
