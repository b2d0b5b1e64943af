package cache

import (
	"context"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps entries for the life of the process.
type MemoryStore struct {
	m sync.Map // key → []byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.m.Load(key)
	if !ok {
		return nil, ErrMiss
	}
	return v.([]byte), nil
}

func (s *MemoryStore) Put(_ context.Context, key string, blob []byte) error {
	s.m.Store(key, append([]byte(nil), blob...))
	return nil
}

func (s *MemoryStore) Close() error { return nil }
