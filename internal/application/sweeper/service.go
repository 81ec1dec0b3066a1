// Package sweeper runs the time-driven booking transitions: expiring stale
// requests, activating sessions whose start time has arrived, and completing
// sessions that ran past their scheduled end. Each sweep takes a distributed
// lock first so only one worker instance processes a batch at a time.
package sweeper

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/lessonhub/lessonhub/internal/domain/booking"
	"github.com/lessonhub/lessonhub/internal/domain/event"
)

// Lock names shared by every worker instance.
const (
	lockExpireRequested  = "expire_requested_bookings"
	lockActivateSessions = "activate_due_sessions"
	lockCompleteOverrun  = "complete_overrun_sessions"
)

// Defaults applied when the corresponding Config field is zero.
const (
	DefaultRequestTTL      = 24 * time.Hour
	DefaultCompletionGrace = 24 * time.Hour
	DefaultLockTTL         = 60 * time.Second
	DefaultBatchSize       = 100
)

// Locker serializes a sweep across worker instances.
type Locker interface {
	WithLock(ctx context.Context, name string, ttl time.Duration, fn func(ctx context.Context) error) (bool, error)
}

// Config tunes the sweep windows and batch size.
type Config struct {
	RequestTTL      time.Duration
	CompletionGrace time.Duration
	LockTTL         time.Duration
	BatchSize       int
}

func (c Config) withDefaults() Config {
	if c.RequestTTL <= 0 {
		c.RequestTTL = DefaultRequestTTL
	}
	if c.CompletionGrace <= 0 {
		c.CompletionGrace = DefaultCompletionGrace
	}
	if c.LockTTL <= 0 {
		c.LockTTL = DefaultLockTTL
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	return c
}

// Service runs the booking sweeps.
type Service struct {
	repo      booking.Repository
	publisher event.Publisher
	locks     Locker
	cfg       Config
	now       func() time.Time
	logger    zerolog.Logger
}

// NewService creates a sweeper service. The clock is injected so tests can
// pin time; passing nil uses the system clock in UTC.
func NewService(repo booking.Repository, publisher event.Publisher, locks Locker, cfg Config, now func() time.Time, logger zerolog.Logger) *Service {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		locks:     locks,
		cfg:       cfg.withDefaults(),
		now:       now,
		logger:    logger.With().Str("service", "sweeper").Logger(),
	}
}

// RunOnce runs all three sweeps in order, logging results. Failures in one
// sweep do not stop the others.
func (s *Service) RunOnce(ctx context.Context) {
	if n, err := s.ExpireStaleRequests(ctx); err != nil {
		s.logger.Error().Err(err).Msg("expire sweep failed")
	} else if n > 0 {
		s.logger.Info().Int("count", n).Msg("expired stale booking requests")
	}
	if n, err := s.ActivateDueSessions(ctx); err != nil {
		s.logger.Error().Err(err).Msg("activate sweep failed")
	} else if n > 0 {
		s.logger.Info().Int("count", n).Msg("activated due sessions")
	}
	if n, err := s.CompleteOverrunSessions(ctx); err != nil {
		s.logger.Error().Err(err).Msg("complete sweep failed")
	} else if n > 0 {
		s.logger.Info().Int("count", n).Msg("completed overrun sessions")
	}
}

// ExpireStaleRequests voids booking requests that no tutor answered within
// the request TTL. Returns the number of bookings expired.
func (s *Service) ExpireStaleRequests(ctx context.Context) (int, error) {
	expired := 0
	ran, err := s.locks.WithLock(ctx, lockExpireRequested, s.cfg.LockTTL, func(ctx context.Context) error {
		now := s.now()
		stale, err := s.repo.ListRequestedBefore(ctx, now.Add(-s.cfg.RequestTTL), s.cfg.BatchSize)
		if err != nil {
			return err
		}
		for _, b := range stale {
			if res := b.Expire(now); !res.Success {
				s.logger.Warn().
					Str("booking_id", b.BookingID.String()).
					Str("reason", res.Message).
					Msg("skipping booking that cannot expire")
				continue
			}
			if !s.save(ctx, b, now) {
				continue
			}
			s.publish(ctx, event.FromBooking(event.TypeBookingExpired, b, now))
			expired++
		}
		return nil
	})
	if err != nil {
		return expired, err
	}
	if !ran {
		s.logger.Debug().Str("lock", lockExpireRequested).Msg("sweep already running elsewhere")
	}
	return expired, nil
}

// ActivateDueSessions moves scheduled bookings whose start time has arrived
// into the active session state. Returns the number of sessions activated.
func (s *Service) ActivateDueSessions(ctx context.Context) (int, error) {
	activated := 0
	ran, err := s.locks.WithLock(ctx, lockActivateSessions, s.cfg.LockTTL, func(ctx context.Context) error {
		now := s.now()
		due, err := s.repo.ListScheduledDue(ctx, now, s.cfg.BatchSize)
		if err != nil {
			return err
		}
		for _, b := range due {
			if res := b.StartSession(); !res.Success {
				s.logger.Warn().
					Str("booking_id", b.BookingID.String()).
					Str("reason", res.Message).
					Msg("skipping booking that cannot start")
				continue
			}
			if !s.save(ctx, b, now) {
				continue
			}
			s.publish(ctx, event.FromBooking(event.TypeSessionStarted, b, now))
			activated++
		}
		return nil
	})
	if err != nil {
		return activated, err
	}
	if !ran {
		s.logger.Debug().Str("lock", lockActivateSessions).Msg("sweep already running elsewhere")
	}
	return activated, nil
}

// CompleteOverrunSessions settles active sessions that ended past their
// scheduled end plus the completion grace, assuming the lesson took place.
// Returns the number of sessions completed.
func (s *Service) CompleteOverrunSessions(ctx context.Context) (int, error) {
	completed := 0
	ran, err := s.locks.WithLock(ctx, lockCompleteOverrun, s.cfg.LockTTL, func(ctx context.Context) error {
		now := s.now()
		overrun, err := s.repo.ListActiveOverrun(ctx, now.Add(-s.cfg.CompletionGrace), s.cfg.BatchSize)
		if err != nil {
			return err
		}
		for _, b := range overrun {
			if res := b.EndSession(booking.OutcomeCompleted); !res.Success {
				s.logger.Warn().
					Str("booking_id", b.BookingID.String()).
					Str("reason", res.Message).
					Msg("skipping booking that cannot complete")
				continue
			}
			if !s.save(ctx, b, now) {
				continue
			}
			s.publish(ctx, event.FromBooking(event.TypeSessionEnded, b, now))
			completed++
		}
		return nil
	})
	if err != nil {
		return completed, err
	}
	if !ran {
		s.logger.Debug().Str("lock", lockCompleteOverrun).Msg("sweep already running elsewhere")
	}
	return completed, nil
}

// save persists one swept booking. A stale row means another instance already
// advanced it, so both failure modes are logged and skipped.
func (s *Service) save(ctx context.Context, b *booking.Booking, now time.Time) bool {
	b.UpdatedAt = now
	if err := s.repo.Update(ctx, b); err != nil {
		s.logger.Warn().
			Err(err).
			Str("booking_id", b.BookingID.String()).
			Msg("failed to update swept booking")
		return false
	}
	return true
}

func (s *Service) publish(ctx context.Context, evt event.BookingEvent) {
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn().
			Err(err).
			Str("type", string(evt.Type)).
			Str("booking_id", evt.BookingID.String()).
			Msg("failed to publish booking event")
	}
}
