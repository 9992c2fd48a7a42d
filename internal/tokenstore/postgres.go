package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"gitlab.com/yelinaung/finova-bot/internal/database"
	"gitlab.com/yelinaung/finova-bot/internal/models"
)

// Postgres keeps slots in the session_tokens table so sessions survive
// restarts.
type Postgres struct {
	db database.PGXDB
}

// NewPostgres creates a store on a pool or transaction.
func NewPostgres(db database.PGXDB) *Postgres {
	return &Postgres{db: db}
}

// For returns the slot of owner.
func (p *Postgres) For(owner string) Slot {
	return Slot{owner: owner, backend: p}
}

func (p *Postgres) load(ctx context.Context, owner string) (models.TokenPair, bool, error) {
	var pair models.TokenPair
	err := p.db.QueryRow(ctx, `
		SELECT access_token, refresh_token FROM session_tokens
		WHERE owner_id = $1
	`, owner).Scan(&pair.Access, &pair.Refresh)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.TokenPair{}, false, nil
		}
		return models.TokenPair{}, false, fmt.Errorf("failed to load session tokens: %w", err)
	}
	if pair.IsZero() {
		return models.TokenPair{}, false, nil
	}
	return pair, true, nil
}

func (p *Postgres) save(ctx context.Context, owner string, pair models.TokenPair) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO session_tokens (owner_id, access_token, refresh_token)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id)
		DO UPDATE SET access_token = EXCLUDED.access_token,
		              refresh_token = EXCLUDED.refresh_token,
		              updated_at = NOW()
	`, owner, pair.Access, pair.Refresh)
	if err != nil {
		return fmt.Errorf("failed to save session tokens: %w", err)
	}
	return nil
}

func (p *Postgres) clear(ctx context.Context, owner string) error {
	_, err := p.db.Exec(ctx, `
		DELETE FROM session_tokens WHERE owner_id = $1
	`, owner)
	if err != nil {
		return fmt.Errorf("failed to clear session tokens: %w", err)
	}
	return nil
}
