package session

import (
	"sync"

	"github.com/naveenspark/carpolicy/pkg/domain"
)

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu  sync.RWMutex
	rec map[string]string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get() (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.rec == nil {
		return nil, nil
	}
	return fromRecord(m.rec)
}

func (m *MemoryStore) Set(s *domain.Session) error {
	rec, err := toRecord(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.rec = rec
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	m.rec = nil
	m.mu.Unlock()
	return nil
}

// Keys returns the keys currently held, for inspection in tests.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.rec))
	for k := range m.rec {
		keys = append(keys, k)
	}
	return keys
}
