package memory

import (
	"context"
	"sync"

	"cyber-sensei-progress/internal/domain"
)

// KVStore is an in-memory implementation of app.KVStore. Nothing survives a
// restart; it backs tests and single-process demos.
type KVStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewKVStore() *KVStore {
	return &KVStore{records: make(map[string][]byte)}
}

func (s *KVStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.records[key]
	if !ok {
		return nil, domain.ErrKeyNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *KVStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = append([]byte(nil), value...)
	return nil
}

func (s *KVStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}
