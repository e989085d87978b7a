package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryCoordinationStore keeps locks and counters in process memory.
// It coordinates goroutines of one instance only.
type MemoryCoordinationStore struct {
	mu         sync.Mutex
	locks      map[string]lockEntry
	rateLimits map[string]*rateLimitEntry
}

type lockEntry struct {
	token     string
	expiresAt time.Time
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func NewMemoryCoordinationStore() *MemoryCoordinationStore {
	return &MemoryCoordinationStore{
		locks:      make(map[string]lockEntry),
		rateLimits: make(map[string]*rateLimitEntry),
	}
}

func (s *MemoryCoordinationStore) TryLock(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if held, ok := s.locks[key]; ok && now.Before(held.expiresAt) {
		return "", false, nil
	}
	token := uuid.NewString()
	s.locks[key] = lockEntry{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

func (s *MemoryCoordinationStore) Unlock(_ context.Context, key, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if held, ok := s.locks[key]; ok && held.token == token {
		delete(s.locks, key)
	}
	return nil
}

func (s *MemoryCoordinationStore) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.rateLimits[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		s.rateLimits[key] = entry
	}
	entry.count++
	return entry.count <= limit, nil
}
