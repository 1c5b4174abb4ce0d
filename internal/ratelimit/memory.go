package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	count       int64
	windowStart time.Time
	expiresAt   time.Time
}

// MemoryStore is a mutex-guarded in-process CounterStore. Expired entries
// linger until the next hit or a Sweep call; the scheduler runs Sweep
// periodically.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// Hit implements CounterStore.
func (s *MemoryStore) Hit(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry, ok := s.entries[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &memoryEntry{
			windowStart: now,
			expiresAt:   now.Add(window),
		}
		s.entries[key] = entry
	}

	entry.count++
	return entry.count, entry.windowStart, nil
}

// Sweep drops entries whose window has expired and returns how many were
// removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of live entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
