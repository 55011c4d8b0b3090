// Package cache provides the generation-result cache for TourForge Core.
//
// The cache is a plain key→URL store. Keys are deterministic digests of the
// generation inputs (apartment type, room types, style); values are image
// URLs already produced for those inputs. A hit lets the pipeline skip a
// generation call entirely.
//
// The store makes no freshness promises beyond key equality: entries expire
// by TTL and nothing else. Callers must derive keys so that equal keys mean
// interchangeable results.
//
// Two implementations are provided:
//   - Redis (production, shared across instances)
//   - Memory (tests and single-instance deployments)
package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrMiss is returned by Get when no entry exists for the key.
var ErrMiss = errors.New("cache: miss")

// Store is the key→URL store interface.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the cached value for key, or ErrMiss.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key with the given TTL. A zero TTL means
	// the entry does not expire.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Close releases any resources held by the store.
	Close() error
}

// MemoryStore is an in-process Store implementation.
//
// Expiry is checked lazily on Get; there is no background sweeper, so a
// long-lived MemoryStore with many distinct keys grows until restart.
// Production deployments should use the Redis store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
	}
}

// Get returns the cached value for key, or ErrMiss.
func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return "", ErrMiss
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return "", ErrMiss
	}
	return entry.value, nil
}

// Set stores value under key with the given TTL.
func (s *MemoryStore) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// Len returns the number of entries currently held, including expired
// entries not yet evicted. Intended for tests.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
