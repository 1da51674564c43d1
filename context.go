package pumpchart

import (
	"maps"
	"sort"
	"sync"
)

// Signals is a thread-safe board of the latest named signal values. A cycle
// driver publishes chart outputs here so that readers on other goroutines
// never touch chart memory directly.
type Signals struct {
	mu   sync.RWMutex
	data map[string]int64
}

// NewSignals creates an empty board.
func NewSignals() *Signals {
	return &Signals{
		data: make(map[string]int64),
	}
}

// Get returns the value for key and whether it has been published.
func (s *Signals) Get(key string) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Set publishes one value.
func (s *Signals) Set(key string, value int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Publish stores every value in one critical section.
func (s *Signals) Publish(values map[string]int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	maps.Copy(s.data, values)
}

// Delete removes a key.
func (s *Signals) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// Snapshot returns a copy of every value.
func (s *Signals) Snapshot() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.data)
}

// Keys returns the published keys in sorted order.
func (s *Signals) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadAll replaces every value.
func (s *Signals) LoadAll(values map[string]int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = maps.Clone(values)
	if s.data == nil {
		s.data = make(map[string]int64)
	}
}
