package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gitlab.com/yelinaung/finova-bot/internal/models"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS session_tokens (
		owner_id      TEXT PRIMARY KEY,
		access_token  TEXT NOT NULL,
		refresh_token TEXT NOT NULL DEFAULT '',
		updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)
`

// SQLite keeps slots in a local database file, for single-instance
// deployments without PostgreSQL.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// session_tokens table exists. Use ":memory:" for a throwaway store.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One connection: every connection to ":memory:" is a separate database,
	// and SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create session_tokens table: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// For returns the slot of owner.
func (s *SQLite) For(owner string) Slot {
	return Slot{owner: owner, backend: s}
}

func (s *SQLite) load(ctx context.Context, owner string) (models.TokenPair, bool, error) {
	var pair models.TokenPair
	err := s.db.QueryRowContext(ctx,
		`SELECT access_token, refresh_token FROM session_tokens WHERE owner_id = ?`,
		owner,
	).Scan(&pair.Access, &pair.Refresh)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.TokenPair{}, false, nil
		}
		return models.TokenPair{}, false, fmt.Errorf("failed to load session tokens: %w", err)
	}
	if pair.IsZero() {
		return models.TokenPair{}, false, nil
	}
	return pair, true, nil
}

func (s *SQLite) save(ctx context.Context, owner string, pair models.TokenPair) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_tokens (owner_id, access_token, refresh_token, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (owner_id)
		DO UPDATE SET access_token = excluded.access_token,
		              refresh_token = excluded.refresh_token,
		              updated_at = CURRENT_TIMESTAMP
	`, owner, pair.Access, pair.Refresh)
	if err != nil {
		return fmt.Errorf("failed to save session tokens: %w", err)
	}
	return nil
}

func (s *SQLite) clear(ctx context.Context, owner string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session_tokens WHERE owner_id = ?`, owner)
	if err != nil {
		return fmt.Errorf("failed to clear session tokens: %w", err)
	}
	return nil
}
