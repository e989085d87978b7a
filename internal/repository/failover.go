package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"workmarket/internal/domain"
)

const recoveryInterval = time.Minute

// FailoverCoordinationStore uses primary (Redis) while it answers and the
// in-memory fallback while it does not, probing primary again once a minute.
type FailoverCoordinationStore struct {
	primary  domain.CoordinationStore
	fallback domain.CoordinationStore
	logger   *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time

	// token -> store that issued it, so Unlock goes to the right place
	issuers sync.Map
}

func NewFailoverCoordinationStore(primary, fallback domain.CoordinationStore, logger *zerolog.Logger) *FailoverCoordinationStore {
	return &FailoverCoordinationStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// usePrimary reports whether the next call should try primary.
func (s *FailoverCoordinationStore) usePrimary() bool {
	if !s.isDown.Load() {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if time.Since(s.lastCheck) > recoveryInterval {
		s.lastCheck = time.Now()
		return true
	}
	return false
}

func (s *FailoverCoordinationStore) markDown(err error) {
	if !s.isDown.Swap(true) {
		s.logger.Error().Err(err).Msg("Primary coordination store failed, falling back to memory")
	}
	s.mu.Lock()
	s.lastCheck = time.Now()
	s.mu.Unlock()
}

func (s *FailoverCoordinationStore) markUp() {
	if s.isDown.Swap(false) {
		s.logger.Info().Msg("Primary coordination store recovered")
	}
}

func (s *FailoverCoordinationStore) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if s.usePrimary() {
		token, ok, err := s.primary.TryLock(ctx, key, ttl)
		if err == nil {
			s.markUp()
			if ok {
				s.issuers.Store(token, s.primary)
			}
			return token, ok, nil
		}
		s.markDown(err)
	}

	token, ok, err := s.fallback.TryLock(ctx, key, ttl)
	if err == nil && ok {
		s.issuers.Store(token, s.fallback)
	}
	return token, ok, err
}

func (s *FailoverCoordinationStore) Unlock(ctx context.Context, key, token string) error {
	issuer, ok := s.issuers.LoadAndDelete(token)
	if !ok {
		return nil
	}
	return issuer.(domain.CoordinationStore).Unlock(ctx, key, token)
}

func (s *FailoverCoordinationStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if s.usePrimary() {
		allowed, err := s.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			s.markUp()
			return allowed, nil
		}
		s.markDown(err)
	}

	return s.fallback.CheckRateLimit(ctx, key, limit, window)
}
