// Package cache provides a TTL-bounded in-memory cache for recommendation
// results, keyed by query and retrieval parameters.
package cache

import (
	"sync"
	"time"
)

// entry is one cached value with its expiry bookkeeping.
type entry struct {
	value    any
	storedAt time.Time
}

// Store provides in-memory result caching with expiry.
// For multi-instance deployments, consider Redis instead.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	maxSize int           // Max cached results
	ttl     time.Duration // Time-to-live per entry
	done    chan struct{}
}

// NewStore creates a new result cache. A background goroutine evicts expired
// entries until Close is called.
func NewStore(maxSize int, ttl time.Duration) *Store {
	s := &Store{
		entries: make(map[string]*entry),
		maxSize: maxSize,
		ttl:     ttl,
		done:    make(chan struct{}),
	}

	go s.cleanupLoop()

	return s
}

// DefaultStore creates a cache with sensible defaults.
// - Max 1000 cached results
// - 5 minute TTL (results go stale when the index is rebuilt)
func DefaultStore() *Store {
	return NewStore(1000, 5*time.Minute)
}

// Get returns the cached value for key, or false when absent or expired.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[key]
	if !exists || time.Since(e.storedAt) > s.ttl {
		return nil, false
	}
	return e.value, true
}

// Set stores a value under key. When the cache is full, the write is dropped
// rather than evicting live entries; the cleanup loop makes room over time.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.maxSize {
		return
	}
	s.entries[key] = &entry{value: value, storedAt: time.Now()}
}

// Clear drops every cached entry. Called after index rebuilds.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*entry)
}

// Len returns the number of cached entries, expired ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the cleanup goroutine.
func (s *Store) Close() {
	close(s.done)
}

// cleanupLoop periodically removes expired entries.
func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.done:
			return
		}
	}
}

func (s *Store) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, e := range s.entries {
		if now.Sub(e.storedAt) > s.ttl {
			delete(s.entries, key)
		}
	}
}
