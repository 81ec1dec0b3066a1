// Package booking wires policy decisions and state-machine transitions into
// the booking operations exposed to the API and job layers: it loads the
// record, evaluates the relevant policy, applies the transition, persists,
// and publishes the resulting event.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lessonhub/lessonhub/internal/domain/booking"
	"github.com/lessonhub/lessonhub/internal/domain/event"
	"github.com/lessonhub/lessonhub/internal/domain/policy"
)

// ErrEditWindowClosed is returned when a grace edit arrives after the window
// has closed.
var ErrEditWindowClosed = errors.New("booking grace edit window has closed")

// Service handles booking operations.
type Service struct {
	repo      booking.Repository
	publisher event.Publisher
	now       func() time.Time
	logger    zerolog.Logger
}

// NewService creates a booking service. The clock is injected so tests can
// pin time; passing nil uses the system clock in UTC.
func NewService(repo booking.Repository, publisher event.Publisher, now func() time.Time, logger zerolog.Logger) *Service {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		now:       now,
		logger:    logger.With().Str("service", "booking").Logger(),
	}
}

// CreateParams carries the fields a new booking request needs.
type CreateParams struct {
	StudentID       uuid.UUID
	TutorID         uuid.UUID
	LessonType      string
	IsTrial         bool
	IsPackage       bool
	RateCents       int64
	StartAt         time.Time
	DurationMinutes int
	Notes           string
}

// Create records a new booking request in REQUESTED/PENDING.
func (s *Service) Create(ctx context.Context, p CreateParams) (*booking.Booking, error) {
	if p.StudentID == uuid.Nil || p.TutorID == uuid.Nil {
		return nil, fmt.Errorf("student and tutor are required")
	}
	if p.RateCents < 0 {
		return nil, fmt.Errorf("rate must not be negative")
	}
	if p.DurationMinutes <= 0 {
		return nil, fmt.Errorf("duration must be positive")
	}
	now := s.now()
	if !p.StartAt.After(now) {
		return nil, fmt.Errorf("start time must be in the future")
	}

	b := &booking.Booking{
		BookingID:       uuid.New(),
		StudentID:       p.StudentID,
		TutorID:         p.TutorID,
		LessonType:      p.LessonType,
		IsTrial:         p.IsTrial,
		IsPackage:       p.IsPackage,
		RateCents:       p.RateCents,
		StartAt:         p.StartAt,
		DurationMinutes: p.DurationMinutes,
		Notes:           p.Notes,
		SessionState:    booking.SessionRequested,
		PaymentState:    booking.PaymentPending,
		DisputeState:    booking.DisputeNone,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}

	s.publish(ctx, event.FromBooking(event.TypeBookingCreated, b, now))
	return b, nil
}

// Get retrieves a booking by ID.
func (s *Service) Get(ctx context.Context, bookingID uuid.UUID) (*booking.Booking, error) {
	return s.repo.GetByID(ctx, bookingID)
}

// Accept confirms a booking request on the tutor's behalf.
func (s *Service) Accept(ctx context.Context, bookingID uuid.UUID) (*booking.Booking, error) {
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if res := b.Accept(now); !res.Success {
		return nil, fmt.Errorf("%w: %s", booking.ErrInvalidTransition, res.Message)
	}
	if err := s.save(ctx, b, now); err != nil {
		return nil, err
	}
	s.publish(ctx, event.FromBooking(event.TypeBookingAccepted, b, now))
	return b, nil
}

// Decline rejects a booking request on the tutor's behalf.
func (s *Service) Decline(ctx context.Context, bookingID uuid.UUID) (*booking.Booking, error) {
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if res := b.Decline(now); !res.Success {
		return nil, fmt.Errorf("%w: %s", booking.ErrInvalidTransition, res.Message)
	}
	if err := s.save(ctx, b, now); err != nil {
		return nil, err
	}
	s.publish(ctx, event.FromBooking(event.TypeBookingDeclined, b, now))
	return b, nil
}

// CancelByStudent runs the student cancellation policy and, when allowed,
// cancels the booking with the settlement the policy decided. A policy denial
// is reported through the decision, not as an error.
func (s *Service) CancelByStudent(ctx context.Context, bookingID uuid.UUID) (*booking.Booking, policy.Decision, error) {
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, policy.Decision{}, err
	}
	now := s.now()
	dec := policy.EvaluateStudentCancellation(b.StartAt, now, b.RateCents, b.LessonType, b.IsTrial, b.IsPackage)
	if !dec.Allow {
		return b, dec, nil
	}

	// A timely cancel releases the student's money whether it comes back as
	// cash or as a restored package unit; a late cancel forfeits it.
	refund := dec.Reason == policy.ReasonOK
	if res := b.Cancel(booking.RoleStudent, refund, now); !res.Success {
		return nil, dec, fmt.Errorf("%w: %s", booking.ErrInvalidTransition, res.Message)
	}
	if err := s.save(ctx, b, now); err != nil {
		return nil, dec, err
	}

	evt := event.FromBooking(event.TypeBookingCancelled, b, now)
	evt.Reason = string(dec.Reason)
	evt.RefundCents = dec.RefundCents
	evt.RestorePackageUnit = dec.RestorePackageUnit
	s.publish(ctx, evt)
	return b, dec, nil
}

// CancelByTutor cancels on the tutor's behalf. The student is always made
// whole; a late cancel additionally costs the tutor a goodwill payment and a
// reputation strike, both carried on the published event.
func (s *Service) CancelByTutor(ctx context.Context, bookingID uuid.UUID) (*booking.Booking, policy.Decision, error) {
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, policy.Decision{}, err
	}
	now := s.now()
	dec := policy.EvaluateTutorCancellation(b.StartAt, now, b.RateCents, b.IsPackage)

	if res := b.Cancel(booking.RoleTutor, true, now); !res.Success {
		return nil, dec, fmt.Errorf("%w: %s", booking.ErrInvalidTransition, res.Message)
	}
	if err := s.save(ctx, b, now); err != nil {
		return nil, dec, err
	}

	evt := event.FromBooking(event.TypeBookingCancelled, b, now)
	evt.Reason = string(dec.Reason)
	evt.RefundCents = dec.RefundCents
	evt.RestorePackageUnit = dec.RestorePackageUnit
	evt.TutorCompensationCents = dec.TutorCompensationCents
	evt.ApplyStrikeToTutor = dec.ApplyStrikeToTutor
	s.publish(ctx, evt)
	return b, dec, nil
}

// Reschedule moves a booking to a new start time when the reschedule policy
// allows it.
func (s *Service) Reschedule(ctx context.Context, bookingID uuid.UUID, newStartAt time.Time) (*booking.Booking, policy.Decision, error) {
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, policy.Decision{}, err
	}
	if b.SessionState != booking.SessionRequested && b.SessionState != booking.SessionScheduled {
		return nil, policy.Decision{}, fmt.Errorf("%w: booking cannot be rescheduled from session state %s", booking.ErrInvalidTransition, b.SessionState)
	}
	now := s.now()
	dec := policy.EvaluateReschedule(b.StartAt, now, newStartAt)
	if !dec.Allow {
		return b, dec, nil
	}

	b.StartAt = newStartAt
	if err := s.save(ctx, b, now); err != nil {
		return nil, dec, err
	}

	evt := event.FromBooking(event.TypeBookingRescheduled, b, now)
	evt.Reason = string(dec.Reason)
	s.publish(ctx, evt)
	return b, dec, nil
}

// ReportNoShow records that the counterparty failed to appear. The no-show
// policy gates the report window; the settlement follows from who was absent.
func (s *Service) ReportNoShow(ctx context.Context, bookingID uuid.UUID, reporter booking.Role) (*booking.Booking, policy.Decision, error) {
	var absent booking.Role
	switch reporter {
	case booking.RoleStudent:
		absent = booking.RoleTutor
	case booking.RoleTutor:
		absent = booking.RoleStudent
	default:
		return nil, policy.Decision{}, fmt.Errorf("reporter must be %s or %s", booking.RoleStudent, booking.RoleTutor)
	}

	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, policy.Decision{}, err
	}
	now := s.now()
	dec := policy.EvaluateNoShowReport(b.StartAt, now, reporter)
	if !dec.Allow {
		return b, dec, nil
	}

	if res := b.MarkNoShow(absent); !res.Success {
		return nil, dec, fmt.Errorf("%w: %s", booking.ErrInvalidTransition, res.Message)
	}
	if err := s.save(ctx, b, now); err != nil {
		return nil, dec, err
	}

	evt := event.FromBooking(event.TypeSessionEnded, b, now)
	evt.Reason = string(dec.Reason)
	evt.ApplyStrikeToTutor = dec.ApplyStrikeToTutor
	s.publish(ctx, evt)
	return b, dec, nil
}

// OpenDispute opens a dispute on a settled booking.
func (s *Service) OpenDispute(ctx context.Context, bookingID uuid.UUID, reason string, by uuid.UUID) (*booking.Booking, error) {
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if res := b.OpenDispute(reason, by, now); !res.Success {
		return nil, fmt.Errorf("%w: %s", booking.ErrInvalidTransition, res.Message)
	}
	if err := s.save(ctx, b, now); err != nil {
		return nil, err
	}

	evt := event.FromBooking(event.TypeDisputeOpened, b, now)
	evt.Reason = reason
	s.publish(ctx, evt)
	return b, nil
}

// ResolveDispute closes an open dispute, settling any refund the resolution
// grants.
func (s *Service) ResolveDispute(ctx context.Context, bookingID uuid.UUID, resolution booking.DisputeState, by uuid.UUID, notes string, refundCents int64) (*booking.Booking, error) {
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if res := b.ResolveDispute(resolution, by, notes, refundCents, now); !res.Success {
		return nil, fmt.Errorf("%w: %s", booking.ErrInvalidTransition, res.Message)
	}
	if err := s.save(ctx, b, now); err != nil {
		return nil, err
	}

	evt := event.FromBooking(event.TypeDisputeResolved, b, now)
	if resolution == booking.DisputeResolvedRefunded {
		evt.RefundCents = refundCents
	}
	s.publish(ctx, evt)
	return b, nil
}

// EditParams carries the fields a grace edit may change. Nil fields are left
// untouched.
type EditParams struct {
	Notes           *string
	DurationMinutes *int
}

// EditInGrace applies a free edit inside the post-creation grace window.
func (s *Service) EditInGrace(ctx context.Context, bookingID uuid.UUID, p EditParams) (*booking.Booking, error) {
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.SessionState != booking.SessionRequested && b.SessionState != booking.SessionScheduled {
		return nil, fmt.Errorf("%w: booking cannot be edited from session state %s", booking.ErrInvalidTransition, b.SessionState)
	}
	now := s.now()
	if !policy.CanEditInGrace(b.CreatedAt, b.StartAt, now) {
		return nil, ErrEditWindowClosed
	}

	if p.Notes != nil {
		b.Notes = *p.Notes
	}
	if p.DurationMinutes != nil {
		if *p.DurationMinutes <= 0 {
			return nil, fmt.Errorf("duration must be positive")
		}
		b.DurationMinutes = *p.DurationMinutes
	}
	if err := s.save(ctx, b, now); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) load(ctx context.Context, bookingID uuid.UUID) (*booking.Booking, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("booking not found: %s", bookingID)
	}
	return b, nil
}

func (s *Service) save(ctx context.Context, b *booking.Booking, now time.Time) error {
	b.UpdatedAt = now
	return s.repo.Update(ctx, b)
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
