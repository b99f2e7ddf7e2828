package memorystore

import "sync"

// MemorySymbolStore is the ordered list of tracked symbols. Insertion order is
// preserved and duplicates are ignored.
type MemorySymbolStore struct {
	mu      sync.Mutex
	symbols []string
	seen    map[string]struct{}
}

func NewSymbolStore(initial ...string) *MemorySymbolStore {
	s := &MemorySymbolStore{
		symbols: make([]string, 0, len(initial)),
		seen:    make(map[string]struct{}, len(initial)),
	}
	for _, symbol := range initial {
		s.Add(symbol)
	}
	return s
}

// Add appends symbol and reports whether it was new.
func (s *MemorySymbolStore) Add(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[symbol]; ok {
		return false
	}
	s.seen[symbol] = struct{}{}
	s.symbols = append(s.symbols, symbol)
	return true
}

// Remove drops symbol and reports whether it was tracked. Order of the rest is kept.
func (s *MemorySymbolStore) Remove(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[symbol]; !ok {
		return false
	}
	delete(s.seen, symbol)
	for i, v := range s.symbols {
		if v == symbol {
			s.symbols = append(s.symbols[:i], s.symbols[i+1:]...)
			break
		}
	}
	return true
}

func (s *MemorySymbolStore) Contains(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[symbol]
	return ok
}

func (s *MemorySymbolStore) GetAll() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out
}
