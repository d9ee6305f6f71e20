package tokens

import (
	"context"
	"sync"
)

// MemoryStore keeps pairs in process memory. Suitable for a single gateway instance.
type MemoryStore struct {
	mu    sync.RWMutex
	pairs map[string]Pair
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pairs: make(map[string]Pair)}
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) (Pair, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pair, ok := m.pairs[sessionID]
	return pair, ok, nil
}

// Save merges the pair: an empty refresh token keeps the previously stored one,
// matching the backend's refresh endpoint which may omit it.
func (m *MemoryStore) Save(_ context.Context, sessionID string, pair Pair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !pair.HasRefresh() {
		pair.Refresh = m.pairs[sessionID].Refresh
	}
	m.pairs[sessionID] = pair
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pairs, sessionID)
	return nil
}
