package data

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is a process-local KV used by tests and --ephemeral runs.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
	used   int64
	quota  int64
	closed bool
}

func NewMemoryStore(quota int64) *MemoryStore {
	if quota <= 0 {
		quota = DefaultQuota
	}
	return &MemoryStore{values: make(map[string]string), quota: quota}
}

func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false, ErrClosed
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	used := s.used
	if old, ok := s.values[key]; ok {
		used -= entrySize(key, old)
	}
	used += entrySize(key, value)
	if used > s.quota {
		return fmt.Errorf("set %q: %w", key, ErrQuotaExceeded)
	}

	s.values[key] = value
	s.used = used
	return nil
}

func (s *MemoryStore) Remove(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for _, key := range keys {
		if old, ok := s.values[key]; ok {
			s.used -= entrySize(key, old)
			delete(s.values, key)
		}
	}
	return nil
}

func (s *MemoryStore) Keys(prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	var keys []string
	for k := range s.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
