// Package tokenstore implements the durable two-slot token storage used by
// session stores, one slot pair per owner (chat).
package tokenstore

import (
	"context"

	"gitlab.com/yelinaung/finova-bot/internal/models"
)

type backend interface {
	load(ctx context.Context, owner string) (models.TokenPair, bool, error)
	save(ctx context.Context, owner string, pair models.TokenPair) error
	clear(ctx context.Context, owner string) error
}

// Slot is the access/refresh slot pair of a single owner.
type Slot struct {
	owner   string
	backend backend
}

// Owner returns the slot owner id.
func (s Slot) Owner() string {
	return s.owner
}

// Load returns the stored pair. ok is false when no access token is stored.
func (s Slot) Load(ctx context.Context) (pair models.TokenPair, ok bool, err error) {
	return s.backend.load(ctx, s.owner)
}

// Save writes both tokens.
func (s Slot) Save(ctx context.Context, pair models.TokenPair) error {
	return s.backend.save(ctx, s.owner, pair)
}

// Clear removes both tokens. Clearing an empty slot is not an error.
func (s Slot) Clear(ctx context.Context) error {
	return s.backend.clear(ctx, s.owner)
}
