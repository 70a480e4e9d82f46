package filterstore

import (
	"context"
	"sync"

	"github.com/vecindario/discovery/internal/models"
)

// MemoryStore is an in-process store, used in tests and when the gateway
// runs without durable persistence.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]string),
	}
}

func (s *MemoryStore) Load(ctx context.Context) models.FilterState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string]string, len(s.entries))
	for k, v := range s.entries {
		snapshot[k] = v
	}
	return Decode(snapshot)
}

func (s *MemoryStore) Save(ctx context.Context, state models.FilterState) {
	entries := Encode(state)

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range entries {
		s.entries[k] = v
	}
}

// SetEntry overwrites a single raw entry. Tests use it to simulate
// corrupt or partial on-disk state.
func (s *MemoryStore) SetEntry(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
}

var _ Store = (*MemoryStore)(nil)
