package tokenstore

import (
	"context"
	"sync"

	"gitlab.com/yelinaung/finova-bot/internal/models"
)

// Memory keeps slots in process memory. Tokens are lost on restart.
type Memory struct {
	mu    sync.RWMutex
	slots map[string]models.TokenPair
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{slots: make(map[string]models.TokenPair)}
}

// For returns the slot of owner.
func (m *Memory) For(owner string) Slot {
	return Slot{owner: owner, backend: m}
}

// Len returns the number of owners holding tokens.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.slots)
}

func (m *Memory) load(_ context.Context, owner string) (models.TokenPair, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pair, ok := m.slots[owner]
	if !ok || pair.IsZero() {
		return models.TokenPair{}, false, nil
	}
	return pair, true, nil
}

func (m *Memory) save(_ context.Context, owner string, pair models.TokenPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[owner] = pair
	return nil
}

func (m *Memory) clear(_ context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, owner)
	return nil
}
