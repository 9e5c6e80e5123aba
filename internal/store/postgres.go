package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GV888/easy-template-mcp/internal/easytemplate"
)

const defaultPoolSize = 10

// PostgresStore implements Store using pgxpool (connection-pooled PostgreSQL).
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new PostgresStore with connection pooling.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	cfg.MaxConns = defaultPoolSize

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close gracefully shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// LoadSession returns the stored session for account, or nil if none.
func (s *PostgresStore) LoadSession(ctx context.Context, account string) (*easytemplate.Session, error) {
	var sess easytemplate.Session
	err := s.pool.QueryRow(ctx, queryGetSession, account).Scan(
		&sess.AccessToken,
		&sess.RefreshToken,
		&sess.AccessTokenExpiry,
		&sess.RefreshTokenExpiry,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil //nolint:nilnil // nothing stored for this account
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", account, err)
	}
	return &sess, nil
}

// SaveSession upserts the whole session record for account.
func (s *PostgresStore) SaveSession(ctx context.Context, account string, sess easytemplate.Session) error {
	args := pgx.NamedArgs{
		"account":            account,
		"access_token":       sess.AccessToken,
		"refresh_token":      sess.RefreshToken,
		"access_expires_ms":  sess.AccessTokenExpiry,
		"refresh_expires_ms": sess.RefreshTokenExpiry,
	}
	if _, err := s.pool.Exec(ctx, queryUpsertSession, args); err != nil {
		return fmt.Errorf("saving session %s: %w", account, err)
	}
	return nil
}

// DeleteSession removes the stored session for account.
func (s *PostgresStore) DeleteSession(ctx context.Context, account string) error {
	if _, err := s.pool.Exec(ctx, queryDeleteSession, account); err != nil {
		return fmt.Errorf("deleting session %s: %w", account, err)
	}
	return nil
}

// GetCursor returns the named watcher position. The bool is false when no
// position has been recorded yet.
func (s *PostgresStore) GetCursor(ctx context.Context, name string) (time.Time, bool, error) {
	var at time.Time
	err := s.pool.QueryRow(ctx, queryGetCursor, name).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("getting cursor %s: %w", name, err)
	}
	return at, true, nil
}

// SetCursor records the named watcher position.
func (s *PostgresStore) SetCursor(ctx context.Context, name string, at time.Time) error {
	args := pgx.NamedArgs{"name": name, "position": at}
	if _, err := s.pool.Exec(ctx, queryUpsertCursor, args); err != nil {
		return fmt.Errorf("setting cursor %s: %w", name, err)
	}
	return nil
}

// InsertSellerEvents stores a poll result and fills in ID and ReceivedAt.
func (s *PostgresStore) InsertSellerEvents(ctx context.Context, b *SellerEventBatch) error {
	args := pgx.NamedArgs{
		"since":     b.Since,
		"polled_at": b.PolledAt,
		"payload":   b.Payload,
	}
	if err := s.pool.QueryRow(ctx, queryInsertSellerEvents, args).Scan(&b.ID, &b.ReceivedAt); err != nil {
		return fmt.Errorf("inserting seller events: %w", err)
	}
	return nil
}

// MarkSellerEventsNotified flags a batch as delivered.
func (s *PostgresStore) MarkSellerEventsNotified(ctx context.Context, id int64) error {
	if _, err := s.pool.Exec(ctx, queryMarkSellerEventsNotified, id); err != nil {
		return fmt.Errorf("marking seller events %d notified: %w", id, err)
	}
	return nil
}

// ListSellerEvents returns the most recent batches, newest first.
func (s *PostgresStore) ListSellerEvents(ctx context.Context, limit int) ([]SellerEventBatch, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, queryListSellerEvents, limit)
	if err != nil {
		return nil, fmt.Errorf("listing seller events: %w", err)
	}
	defer rows.Close()

	var out []SellerEventBatch
	for rows.Next() {
		var b SellerEventBatch
		if err := rows.Scan(&b.ID, &b.Since, &b.PolledAt, &b.Payload, &b.Notified, &b.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scanning seller events: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
