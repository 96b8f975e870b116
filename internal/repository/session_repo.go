package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"seller-center/internal/session"
)

// dbtx is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type dbtx interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SessionRepository is a session.Backend over the sessions table.
type SessionRepository struct {
	db  dbtx
	now func() time.Time
}

func NewSessionRepository(db dbtx) *SessionRepository {
	return &SessionRepository{db: db, now: time.Now}
}

func (r *SessionRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRow(ctx,
		`SELECT value FROM sessions WHERE key = $1`, key).Scan(&value)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return value, nil
}

func (r *SessionRepository) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO sessions (key, value, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE
		 SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, string(value), r.now().UTC())
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CleanStale removes sessions that have not been written since cutoff.
func (r *SessionRepository) CleanStale(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE updated_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("clean stale sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
