// Package redislock provides named mutual exclusion across service instances,
// backed by Redis keys with ownership tokens. It keeps periodic jobs from
// running twice when several workers are deployed; it is not a per-booking
// lock.
package redislock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const keyPrefix = "distributed_lock:"

// DefaultTTL bounds how long a crashed holder can keep a lock before it
// auto-releases.
const DefaultTTL = 60 * time.Second

// Service implements the lock contract. Ownership is proven by possession of
// the token returned at acquisition time, not by instance identity.
type Service struct {
	backend    Backend
	instanceID string
	defaultTTL time.Duration
	failOpen   bool
	logger     zerolog.Logger
}

// NewService creates a lock service. When failOpen is true, a backend failure
// during acquisition reports the lock as acquired with an empty token so
// scheduled maintenance keeps running; callers must keep their jobs
// idempotent for that trade to be safe. Jobs that must never double-run pass
// failOpen=false.
func NewService(backend Backend, instanceID string, defaultTTL time.Duration, failOpen bool, logger zerolog.Logger) *Service {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Service{
		backend:    backend,
		instanceID: instanceID,
		defaultTTL: defaultTTL,
		failOpen:   failOpen,
		logger:     logger.With().Str("service", "redislock").Logger(),
	}
}

func lockKey(name string) string {
	return keyPrefix + name
}

// TryAcquire attempts to take the named lock for ttl (the service default
// when ttl <= 0). It returns whether the lock is held by this caller and the
// ownership token to release it with; an empty token with acquired=true
// means the backend failed and the service is failing open.
func (s *Service) TryAcquire(ctx context.Context, name string, ttl time.Duration) (bool, string) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	token := s.instanceID + ":" + uuid.NewString()
	ok, err := s.backend.SetNX(ctx, lockKey(name), token, ttl)
	if err != nil {
		if s.failOpen {
			s.logger.Warn().Err(err).Str("lock", name).Msg("lock backend unavailable, failing open")
			return true, ""
		}
		s.logger.Error().Err(err).Str("lock", name).Msg("lock backend unavailable, failing closed")
		return false, ""
	}
	if !ok {
		return false, ""
	}
	return true, token
}

// Release frees the named lock if token still owns it. An empty token means
// the caller never held proof of ownership, so there is nothing to release
// and the call reports success.
func (s *Service) Release(ctx context.Context, name, token string) bool {
	if token == "" {
		return true
	}
	ok, err := s.backend.CompareAndDelete(ctx, lockKey(name), token)
	if err != nil {
		s.logger.Warn().Err(err).Str("lock", name).Msg("lock release failed")
		return false
	}
	return ok
}

// Extend pushes the expiry of a held lock forward to ttl from now. It fails
// when the token no longer owns the lock, which tells a long-running job its
// lease has lapsed.
func (s *Service) Extend(ctx context.Context, name, token string, ttl time.Duration) bool {
	if token == "" {
		return false
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	ok, err := s.backend.CompareAndExtend(ctx, lockKey(name), token, ttl)
	if err != nil {
		s.logger.Warn().Err(err).Str("lock", name).Msg("lock extend failed")
		return false
	}
	return ok
}

// IsLocked reports whether the named lock is currently held by anyone.
func (s *Service) IsLocked(ctx context.Context, name string) bool {
	held, err := s.backend.Exists(ctx, lockKey(name))
	if err != nil {
		s.logger.Warn().Err(err).Str("lock", name).Msg("lock inspection failed")
		return false
	}
	return held
}

// LockTTL returns the remaining lifetime of the named lock in whole seconds,
// or -1 when the lock is not held.
func (s *Service) LockTTL(ctx context.Context, name string) int64 {
	d, err := s.backend.TTL(ctx, lockKey(name))
	if err != nil || d < 0 {
		return -1
	}
	return int64(d / time.Second)
}

// WithLock runs fn while holding the named lock and reports whether it ran.
// The lock is released on exit if and only if this call acquired it; when
// the lock is held elsewhere, fn is skipped and WithLock returns (false, nil).
func (s *Service) WithLock(ctx context.Context, name string, ttl time.Duration, fn func(context.Context) error) (bool, error) {
	acquired, token := s.TryAcquire(ctx, name, ttl)
	if !acquired {
		return false, nil
	}
	defer s.Release(ctx, name, token)
	return true, fn(ctx)
}
