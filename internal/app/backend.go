package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"seller-center/internal/config"
	"seller-center/internal/database"
	"seller-center/internal/handler"
	"seller-center/internal/repository"
	"seller-center/internal/session"
)

const (
	redisKeyPrefix  = "seller-center:"
	staleSessionAge = 30 * 24 * time.Hour
	staleSweepEvery = time.Hour
)

// sessionBackend is the configured persistent session backend and the
// resources it holds.
type sessionBackend struct {
	backend  session.Backend
	checkers map[string]handler.Checker
	closers  []func()
	// sweep removes abandoned sessions; nil when the backend expires them
	// itself.
	sweep func(ctx context.Context)
}

func (b *sessionBackend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openSessionBackend(ctx context.Context, cfg *config.Config) (*sessionBackend, error) {
	out := &sessionBackend{checkers: map[string]handler.Checker{}}

	switch cfg.SessionBackend {
	case config.SessionBackendMemory, "":
		out.backend = session.NewMemoryBackend()

	case config.SessionBackendFile:
		backend, err := session.NewFileBackend(cfg.SessionFile)
		if err != nil {
			return nil, fmt.Errorf("open session file: %w", err)
		}
		out.backend = backend

	case config.SessionBackendPostgres:
		slog.Info("connecting to PostgreSQL")
		db, err := database.Open(ctx, database.Options{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open session database: %w", err)
		}

		repo := repository.NewSessionRepository(db.Conn())
		out.backend = repo
		out.checkers["database"] = handler.CheckerFunc(db.Health)
		out.closers = append(out.closers, db.Close)
		out.sweep = func(ctx context.Context) {
			sweepStaleSessions(ctx, repo)
		}

	case config.SessionBackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		slog.Info("session redis connected", "addr", cfg.RedisAddr, "db", cfg.RedisDB)

		out.backend = session.NewRedisBackend(rdb, redisKeyPrefix, cfg.RedisSessionTTL)
		out.checkers["redis"] = handler.CheckerFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		out.closers = append(out.closers, func() { _ = rdb.Close() })

	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}

	return out, nil
}

type staleSweeper interface {
	CleanStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// sweepStaleSessions deletes sessions untouched for staleSessionAge until ctx
// is done.
func sweepStaleSessions(ctx context.Context, repo staleSweeper) {
	ticker := time.NewTicker(staleSweepEvery)
	defer ticker.Stop()

	for {
		removed, err := repo.CleanStale(ctx, time.Now().Add(-staleSessionAge))
		if err != nil {
			slog.Warn("stale session sweep failed", "error", err)
		} else if removed > 0 {
			slog.Info("stale sessions removed", "count", removed)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
