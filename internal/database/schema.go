package database

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed migrations/001_initial.up.sql
var sessionsSchemaSQL string

// EnsureSchema creates the sessions table and its index when the table is
// missing. An existing table is left untouched.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if db == nil || db.conn == nil {
		return errors.New("session database is not open")
	}

	present, err := db.sessionsTablePresent(ctx)
	if err != nil {
		return fmt.Errorf("look up sessions table: %w", err)
	}
	if present {
		return nil
	}

	db.logger.Info("sessions table missing, creating it")
	if _, err := db.conn.Exec(ctx, sessionsSchemaSQL); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}

	present, err = db.sessionsTablePresent(ctx)
	if err != nil {
		return fmt.Errorf("look up sessions table: %w", err)
	}
	if !present {
		return errors.New("sessions table still missing after creation")
	}
	return nil
}

func (db *DB) sessionsTablePresent(ctx context.Context) (bool, error) {
	var present bool
	err := db.conn.QueryRow(ctx,
		`SELECT to_regclass('public.sessions') IS NOT NULL`).Scan(&present)
	return present, err
}
