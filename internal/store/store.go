// Package store defines the datastore abstraction for easy-template.
// The database is optional: it backs the shared token cache and the
// seller-event watcher when a connection string is configured.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/GV888/easy-template-mcp/internal/easytemplate"
)

// SellerEventBatch is one non-empty result of a seller-events poll.
type SellerEventBatch struct {
	ID         int64
	Since      time.Time
	PolledAt   time.Time
	Payload    json.RawMessage
	Notified   bool
	ReceivedAt time.Time
}

// Store defines all data access operations for easy-template.
type Store interface {
	// Sessions
	LoadSession(ctx context.Context, account string) (*easytemplate.Session, error)
	SaveSession(ctx context.Context, account string, s easytemplate.Session) error
	DeleteSession(ctx context.Context, account string) error

	// Watcher
	GetCursor(ctx context.Context, name string) (time.Time, bool, error)
	SetCursor(ctx context.Context, name string, at time.Time) error
	InsertSellerEvents(ctx context.Context, b *SellerEventBatch) error
	MarkSellerEventsNotified(ctx context.Context, id int64) error
	ListSellerEvents(ctx context.Context, limit int) ([]SellerEventBatch, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close()
}

// SessionStore adapts a Store to easytemplate.TokenStore for one account.
type SessionStore struct {
	store   Store
	account string
}

var _ easytemplate.TokenStore = (*SessionStore)(nil)

// NewSessionStore returns a token store keyed by account.
func NewSessionStore(s Store, account string) *SessionStore {
	return &SessionStore{store: s, account: account}
}

// Load returns the account's session, or nil when none is stored.
func (s *SessionStore) Load(ctx context.Context) (*easytemplate.Session, error) {
	return s.store.LoadSession(ctx, s.account)
}

// Save upserts the account's session.
func (s *SessionStore) Save(ctx context.Context, session easytemplate.Session) error {
	return s.store.SaveSession(ctx, s.account, session)
}
