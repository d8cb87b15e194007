package memory

import (
	"context"
	"sync"

	"github.com/vietddude/retryfetch/internal/infra/storage"
)

// MemoryStorage is a process-local Store. Values are copied on the way in
// and out.
type MemoryStorage struct {
	slots map[string][]byte
	mu    sync.RWMutex
}

var _ storage.Store = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		slots: make(map[string][]byte),
	}
}

func (s *MemoryStorage) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.slots[key]
	if !ok {
		return nil, storage.ErrSlotNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *MemoryStorage) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, key)
	return nil
}
