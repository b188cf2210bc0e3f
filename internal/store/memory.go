package store

import (
	"context"
	"sync"
	"time"

	"svario/internal/shopify"
)

// MemoryTokenStore is a process-lifetime token table.
type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]shopify.AccessToken
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]shopify.AccessToken)}
}

func (m *MemoryTokenStore) Put(_ context.Context, shop string, token shopify.AccessToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[shop] = token
	return nil
}

func (m *MemoryTokenStore) Get(_ context.Context, shop string) (shopify.AccessToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tok, ok := m.tokens[shop]
	if !ok {
		return "", ErrNotFound
	}
	return tok, nil
}

func (m *MemoryTokenStore) Has(_ context.Context, shop string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.tokens[shop]
	return ok, nil
}

type memState struct {
	shop      string
	expiresAt time.Time
}

// MemoryStateStore expires entries lazily; expired entries are swept on Save.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]memState
	now    func() time.Time
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]memState), now: time.Now}
}

func (m *MemoryStateStore) Save(_ context.Context, state, shop string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, v := range m.states {
		if now.After(v.expiresAt) {
			delete(m.states, k)
		}
	}
	m.states[state] = memState{shop: shop, expiresAt: now.Add(ttl)}
	return nil
}

func (m *MemoryStateStore) Consume(_ context.Context, state string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.states[state]
	if !ok {
		return "", ErrNotFound
	}
	delete(m.states, state)
	if m.now().After(s.expiresAt) {
		return "", ErrNotFound
	}
	return s.shop, nil
}
