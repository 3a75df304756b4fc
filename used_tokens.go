package actions

import (
	"context"
	"sync"
	"time"
)

// UsedTokenStore remembers action tokens that completed their flow. Entries
// only need to outlive the token expiry.
type UsedTokenStore interface {
	// Consume records the token id and reports false if it was already recorded
	Consume(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error)
	// Consumed reports whether the token id is recorded
	Consumed(ctx context.Context, tokenID string) (bool, error)
	// Release forgets a token id recorded by a flow that did not complete
	Release(ctx context.Context, tokenID string) error
}

// MemoryUsedTokenStore keeps used token ids in process memory
type MemoryUsedTokenStore struct {
	mu   sync.Mutex
	used map[string]time.Time
	now  func() time.Time
}

func NewMemoryUsedTokenStore() *MemoryUsedTokenStore {
	return &MemoryUsedTokenStore{
		used: make(map[string]time.Time),
		now:  time.Now,
	}
}

// WithClock overrides the store clock
func (m *MemoryUsedTokenStore) WithClock(now func() time.Time) *MemoryUsedTokenStore {
	if now != nil {
		m.now = now
	}
	return m
}

func (m *MemoryUsedTokenStore) Consume(_ context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, until := range m.used {
		if !now.Before(until) {
			delete(m.used, id)
		}
	}

	if _, ok := m.used[tokenID]; ok {
		return false, nil
	}
	m.used[tokenID] = expiresAt
	return true, nil
}

func (m *MemoryUsedTokenStore) Consumed(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	until, ok := m.used[tokenID]
	return ok && m.now().Before(until), nil
}

func (m *MemoryUsedTokenStore) Release(_ context.Context, tokenID string) error {
	m.mu.Lock()
	delete(m.used, tokenID)
	m.mu.Unlock()
	return nil
}
