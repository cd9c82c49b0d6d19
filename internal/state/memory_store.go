package state

import "sync"

// MemoryStore is an in-process position store used in tests
type MemoryStore struct {
	mu       sync.Mutex
	position *ActivePosition
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (*ActivePosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.position == nil {
		return nil, nil
	}
	copied := *s.position
	return &copied, nil
}

func (s *MemoryStore) Save(position *ActivePosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *position
	s.position = &copied
	return nil
}

func (s *MemoryStore) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = nil
	return nil
}
