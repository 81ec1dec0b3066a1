package booking

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionState represents the lifecycle stage of the scheduled session.
type SessionState string

const (
	SessionRequested SessionState = "REQUESTED"
	SessionScheduled SessionState = "SCHEDULED"
	SessionActive    SessionState = "ACTIVE"
	SessionEnded     SessionState = "ENDED"
	SessionCancelled SessionState = "CANCELLED"
	SessionExpired   SessionState = "EXPIRED"
)

// PaymentState represents the lifecycle stage of the associated charge.
type PaymentState string

const (
	PaymentPending           PaymentState = "PENDING"
	PaymentAuthorized        PaymentState = "AUTHORIZED"
	PaymentCaptured          PaymentState = "CAPTURED"
	PaymentVoided            PaymentState = "VOIDED"
	PaymentRefunded          PaymentState = "REFUNDED"
	PaymentPartiallyRefunded PaymentState = "PARTIALLY_REFUNDED"
)

// DisputeState represents the lifecycle stage of a post-hoc disagreement
// about a settled booking.
type DisputeState string

const (
	DisputeNone             DisputeState = "NONE"
	DisputeOpen             DisputeState = "OPEN"
	DisputeResolvedUpheld   DisputeState = "RESOLVED_UPHELD"
	DisputeResolvedRefunded DisputeState = "RESOLVED_REFUNDED"
)

// SessionOutcome records how a booking concluded. It is set exactly when the
// session state becomes terminal.
type SessionOutcome string

const (
	OutcomeCompleted     SessionOutcome = "COMPLETED"
	OutcomeNoShowStudent SessionOutcome = "NO_SHOW_STUDENT"
	OutcomeNoShowTutor   SessionOutcome = "NO_SHOW_TUTOR"
	OutcomeNotHeld       SessionOutcome = "NOT_HELD"
)

// Role identifies which party performed an action on a booking.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleTutor   Role = "TUTOR"
	RoleSystem  Role = "SYSTEM"
)

var ErrInvalidTransition = errors.New("invalid booking state transition")

// Booking represents a one-to-one tutoring appointment. New bookings start in
// REQUESTED/PENDING/NONE and are mutated exclusively through the transition
// methods; terminal bookings are retained, never deleted.
type Booking struct {
	ID              int64          `json:"id"`
	BookingID       uuid.UUID      `json:"bookingId"`
	StudentID       uuid.UUID      `json:"studentId"`
	TutorID         uuid.UUID      `json:"tutorId"`
	LessonType      string         `json:"lessonType"`
	IsTrial         bool           `json:"isTrial"`
	IsPackage       bool           `json:"isPackage"`
	RateCents       int64          `json:"rateCents"`
	StartAt         time.Time      `json:"startAt"`
	DurationMinutes int            `json:"durationMinutes"`
	Notes           string         `json:"notes,omitempty"`
	SessionState    SessionState   `json:"sessionState"`
	PaymentState    PaymentState   `json:"paymentState"`
	DisputeState    DisputeState   `json:"disputeState"`
	Outcome         SessionOutcome `json:"outcome,omitempty"`
	ConfirmedAt     *time.Time     `json:"confirmedAt,omitempty"`
	CancelledAt     *time.Time     `json:"cancelledAt,omitempty"`
	CancelledByRole Role           `json:"cancelledByRole,omitempty"`
	DisputedAt      *time.Time     `json:"disputedAt,omitempty"`
	DisputedBy      *uuid.UUID     `json:"disputedBy,omitempty"`
	DisputeReason   string         `json:"disputeReason,omitempty"`
	ResolvedAt      *time.Time     `json:"resolvedAt,omitempty"`
	ResolvedBy      *uuid.UUID     `json:"resolvedBy,omitempty"`
	ResolutionNotes string         `json:"resolutionNotes,omitempty"`
	Version         int64          `json:"version"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// EndAt returns the scheduled end of the session.
func (b *Booking) EndAt() time.Time {
	return b.StartAt.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// CheckInvariants verifies the cross-axis consistency rules every transition
// method must leave intact: the session/payment pair must be one a transition
// can produce, an outcome is set exactly when the session is terminal, and
// disputes only exist on terminal sessions.
func (b *Booking) CheckInvariants() error {
	if !pairAllowed(b.SessionState, b.PaymentState) {
		return fmt.Errorf("session state %s cannot coexist with payment state %s", b.SessionState, b.PaymentState)
	}
	if b.SessionState.IsTerminal() && b.Outcome == "" {
		return fmt.Errorf("terminal session state %s requires an outcome", b.SessionState)
	}
	if !b.SessionState.IsTerminal() && b.Outcome != "" {
		return fmt.Errorf("outcome %s set while session state %s is not terminal", b.Outcome, b.SessionState)
	}
	if b.DisputeState != DisputeNone && !b.SessionState.IsTerminal() {
		return fmt.Errorf("dispute state %s on non-terminal session state %s", b.DisputeState, b.SessionState)
	}
	return nil
}
