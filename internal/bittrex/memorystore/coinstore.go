package memorystore

import "sync"

// MemoryCoinStore caches symbol -> coin_id assignments read from storage.
type MemoryCoinStore struct {
	mu  sync.RWMutex
	ids map[string]int64
}

func NewCoinStore() *MemoryCoinStore {
	return &MemoryCoinStore{
		ids: make(map[string]int64),
	}
}

func (s *MemoryCoinStore) Get(symbol string) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.ids[symbol]
	return id, ok
}

func (s *MemoryCoinStore) Set(symbol string, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[symbol] = id
}

// Replace swaps the whole cache for ids.
func (s *MemoryCoinStore) Replace(ids map[string]int64) {
	fresh := make(map[string]int64, len(ids))
	for k, v := range ids {
		fresh[k] = v
	}
	s.mu.Lock()
	s.ids = fresh
	s.mu.Unlock()
}

func (s *MemoryCoinStore) Reset() {
	s.Replace(nil)
}

// Snapshot returns a copy of the cache.
func (s *MemoryCoinStore) Snapshot() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int64, len(s.ids))
	for k, v := range s.ids {
		out[k] = v
	}
	return out
}

func (s *MemoryCoinStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}
