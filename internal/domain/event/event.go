// Package event defines the booking lifecycle events published to downstream
// consumers (payout disbursement, notifications, tutor reputation).
package event

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lessonhub/lessonhub/internal/domain/booking"
)

// Type names a booking lifecycle event.
type Type string

const (
	TypeBookingCreated     Type = "booking.created"
	TypeBookingAccepted    Type = "booking.accepted"
	TypeBookingDeclined    Type = "booking.declined"
	TypeBookingCancelled   Type = "booking.cancelled"
	TypeBookingExpired     Type = "booking.expired"
	TypeBookingRescheduled Type = "booking.rescheduled"
	TypeSessionStarted     Type = "session.started"
	TypeSessionEnded       Type = "session.ended"
	TypeDisputeOpened      Type = "dispute.opened"
	TypeDisputeResolved    Type = "dispute.resolved"
)

// BookingEvent is the payload published after a booking mutation has been
// persisted. The state fields are a snapshot taken after the transition;
// consumers settle money and reputation from the financial fields.
type BookingEvent struct {
	Type                   Type                   `json:"type"`
	BookingID              uuid.UUID              `json:"bookingId"`
	StudentID              uuid.UUID              `json:"studentId"`
	TutorID                uuid.UUID              `json:"tutorId"`
	SessionState           booking.SessionState   `json:"sessionState"`
	PaymentState           booking.PaymentState   `json:"paymentState"`
	DisputeState           booking.DisputeState   `json:"disputeState"`
	Outcome                booking.SessionOutcome `json:"outcome,omitempty"`
	Reason                 string                 `json:"reason,omitempty"`
	RefundCents            int64                  `json:"refundCents,omitempty"`
	TutorCompensationCents int64                  `json:"tutorCompensationCents,omitempty"`
	ApplyStrikeToTutor     bool                   `json:"applyStrikeToTutor,omitempty"`
	RestorePackageUnit     bool                   `json:"restorePackageUnit,omitempty"`
	OccurredAt             time.Time              `json:"occurredAt"`
}

// FromBooking snapshots a booking into an event envelope. The caller fills in
// the financial fields where a policy decision applies.
func FromBooking(t Type, b *booking.Booking, occurredAt time.Time) BookingEvent {
	return BookingEvent{
		Type:         t,
		BookingID:    b.BookingID,
		StudentID:    b.StudentID,
		TutorID:      b.TutorID,
		SessionState: b.SessionState,
		PaymentState: b.PaymentState,
		DisputeState: b.DisputeState,
		Outcome:      b.Outcome,
		OccurredAt:   occurredAt,
	}
}

// Publisher delivers booking events to downstream consumers. Implementations
// must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, evt BookingEvent) error
}
