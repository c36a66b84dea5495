package sandbox

import (
	"errors"
	"sync"
)

const defaultStorageQuota = 5 * 1024 * 1024

var errQuotaExceeded = errors.New("storage quota exceeded")

// Storage is an origin-scoped key/value area backing localStorage and
// sessionStorage. It outlives instances, so values survive rebuilds the way
// they do for a reloaded frame.
type Storage struct {
	mu     sync.Mutex
	keys   []string
	values map[string]string
	used   int
	quota  int
}

// NewStorage creates an empty storage area
func NewStorage(quota int) *Storage {
	if quota <= 0 {
		quota = defaultStorageQuota
	}
	return &Storage{values: make(map[string]string), quota: quota}
}

// Len returns the number of stored keys
func (s *Storage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

// Key returns the n-th key in insertion order
func (s *Storage) Key(n int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 0 || n >= len(s.keys) {
		return "", false
	}
	return s.keys[n], true
}

// Get returns a stored value
func (s *Storage) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores a value, failing when the quota would be exceeded
func (s *Storage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, exists := s.values[key]
	used := s.used + len(value)
	if exists {
		used -= len(old)
	} else {
		used += len(key)
	}
	if used > s.quota {
		return errQuotaExceeded
	}

	if !exists {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
	s.used = used
	return nil
}

// Remove deletes a key
func (s *Storage) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.values[key]
	if !ok {
		return
	}
	delete(s.values, key)
	s.used -= len(key) + len(old)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
}

// Clear deletes every key
func (s *Storage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = nil
	s.values = make(map[string]string)
	s.used = 0
}
