package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultAppName = "seller-center"

// Options configures the session database pool.
type Options struct {
	URL      string
	MaxConns int32
	MinConns int32
	// AppName is reported to the server as application_name.
	AppName string
	Logger  *slog.Logger
}

// Conn is the part of *pgxpool.Pool the session database uses. pgxmock pools
// satisfy it too.
type Conn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// DB is a session database whose sessions table is known to exist.
type DB struct {
	conn   Conn
	logger *slog.Logger
}

// Open connects, then creates the sessions table when it is missing.
func Open(ctx context.Context, opts Options) (*DB, error) {
	cfg, err := poolConfig(opts)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping session database: %w", err)
	}

	db := newDB(pool, opts.Logger)
	if err := db.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	db.logger.Info("session database ready",
		"max_conns", cfg.MaxConns,
		"min_conns", cfg.MinConns,
		"host", cfg.ConnConfig.Host,
	)
	return db, nil
}

func newDB(conn Conn, logger *slog.Logger) *DB {
	if logger == nil {
		logger = slog.Default()
	}
	return &DB{conn: conn, logger: logger.With("component", "session-db")}
}

func poolConfig(opts Options) (*pgxpool.Config, error) {
	if opts.URL == "" {
		return nil, errors.New("session database URL is empty")
	}
	cfg, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 && opts.MinConns <= cfg.MaxConns {
		cfg.MinConns = opts.MinConns
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	appName := opts.AppName
	if appName == "" {
		appName = defaultAppName
	}
	if _, set := cfg.ConnConfig.RuntimeParams["application_name"]; !set {
		cfg.ConnConfig.RuntimeParams["application_name"] = appName
	}

	return cfg, nil
}

// Conn returns the connection the session repository runs its queries on.
func (db *DB) Conn() Conn {
	return db.conn
}

func (db *DB) Close() {
	if db.conn != nil {
		db.conn.Close()
	}
}

// Health reports whether the server answers and the sessions table is still
// readable.
func (db *DB) Health(ctx context.Context) error {
	if err := db.conn.Ping(ctx); err != nil {
		return fmt.Errorf("ping session database: %w", err)
	}
	if _, err := db.conn.Exec(ctx, `SELECT 1 FROM sessions LIMIT 0`); err != nil {
		return fmt.Errorf("read sessions table: %w", err)
	}
	return nil
}
