// Package memstore is a reference store.Backend: an in-process,
// mutex-guarded string map with a configurable byte quota. It stands in
// for the canonical browser persistence store in tests and in cmd/bench.
package memstore

import (
	"sync"

	"github.com/dmitrich-go/vkvcache/store"
)

// Store is an in-memory store.Backend. The zero value is not usable; use
// New. Safe for concurrent use by multiple goroutines.
type Store struct {
	mu       sync.Mutex
	m        map[string]string
	size     int64 // current total of len(key)+len(value) across all entries
	maxBytes int64 // 0 disables the quota
	disabled bool
}

// New returns a Store with the given byte quota. maxBytes <= 0 disables
// the quota entirely (every Set succeeds, matching a host with no per
// origin limit).
func New(maxBytes int64) *Store {
	return &Store{
		m:        make(map[string]string),
		maxBytes: maxBytes,
	}
}

// SetDisabled flips the store between available and disabled, simulating
// a host that revokes storage access mid-session.
func (s *Store) SetDisabled(disabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled = disabled
}

// Get implements store.Backend.
func (s *Store) Get(rawKey string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled {
		return "", false, store.ErrDisabled
	}
	v, ok := s.m[rawKey]
	return v, ok, nil
}

// Set implements store.Backend. It fails with store.ErrQuotaExceeded if
// the write would push the store's total size over maxBytes.
func (s *Store) Set(rawKey, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled {
		return store.ErrDisabled
	}

	delta := int64(len(rawKey) + len(value))
	if old, ok := s.m[rawKey]; ok {
		delta -= int64(len(rawKey) + len(old))
	}
	if s.maxBytes > 0 && s.size+delta > s.maxBytes {
		return store.ErrQuotaExceeded
	}
	s.m[rawKey] = value
	s.size += delta
	return nil
}

// Remove implements store.Backend.
func (s *Store) Remove(rawKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled {
		return store.ErrDisabled
	}
	if old, ok := s.m[rawKey]; ok {
		s.size -= int64(len(rawKey) + len(old))
		delete(s.m, rawKey)
	}
	return nil
}

// Clear implements store.Backend.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled {
		return store.ErrDisabled
	}
	s.m = make(map[string]string)
	s.size = 0
	return nil
}

// Keys implements store.Backend.
func (s *Store) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled {
		return nil, store.ErrDisabled
	}
	ks := make([]string, 0, len(s.m))
	for k := range s.m {
		ks = append(ks, k)
	}
	return ks, nil
}

// Len reports the number of resident keys. Test/diagnostic helper, not
// part of store.Backend.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}
