package memory

import (
	"context"
	"fmt"
	"sync"

	"ledger/internal/kv"
)

// Store is an in-process kv.Storage. With a positive quota it refuses writes
// that would push the total size of keys plus values past it, the way browser
// storage does.
type Store struct {
	mu    sync.Mutex
	quota int
	items map[string][]byte
}

func New(quota int) *Store {
	return &Store{quota: quota, items: map[string][]byte{}}
}

// Get returns a copy of the stored value.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	if !ok {
		return nil, kv.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set replaces the value stored under key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quota > 0 {
		used := s.usedLocked() - s.sizeLocked(key) + len(key) + len(value)
		if used > s.quota {
			return fmt.Errorf("set %q (%d bytes, quota %d): %w", key, len(value), s.quota, kv.ErrQuotaExceeded)
		}
	}
	s.items[key] = append([]byte(nil), value...)
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// Used returns the bytes currently counted against the quota.
func (s *Store) Used() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usedLocked()
}

func (s *Store) usedLocked() int {
	n := 0
	for k, v := range s.items {
		n += len(k) + len(v)
	}
	return n
}

func (s *Store) sizeLocked(key string) int {
	v, ok := s.items[key]
	if !ok {
		return 0
	}
	return len(key) + len(v)
}
