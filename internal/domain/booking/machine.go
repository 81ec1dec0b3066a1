package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransitionResult reports whether a transition was applied. Expected rule
// violations surface here rather than as errors so callers can branch on
// business meaning.
type TransitionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func applied() TransitionResult {
	return TransitionResult{Success: true}
}

func rejected(format string, args ...interface{}) TransitionResult {
	return TransitionResult{Success: false, Message: fmt.Sprintf(format, args...)}
}

// audit re-checks the cross-axis invariants after a mutation. Callers must
// not persist a booking whose transition returned Success=false.
func (b *Booking) audit() TransitionResult {
	if err := b.CheckInvariants(); err != nil {
		return rejected("transition left booking inconsistent: %v", err)
	}
	return applied()
}

type cancelKey struct {
	payment PaymentState
	refund  bool
}

// cancelSettlements is the decision table mapping (current payment state,
// refund flag) to the payment state a cancellation settles to. A captured
// payment kept by a no-refund decision stays captured.
var cancelSettlements = map[cancelKey]PaymentState{
	{PaymentPending, true}:     PaymentVoided,
	{PaymentPending, false}:    PaymentVoided,
	{PaymentAuthorized, true}:  PaymentRefunded,
	{PaymentAuthorized, false}: PaymentCaptured,
	{PaymentCaptured, true}:    PaymentRefunded,
	{PaymentCaptured, false}:   PaymentCaptured,
}

// Accept confirms a requested booking and authorizes its payment.
func (b *Booking) Accept(now time.Time) TransitionResult {
	if b.SessionState != SessionRequested {
		return rejected("booking cannot be accepted from session state %s", b.SessionState)
	}
	if !b.PaymentState.CanTransitionTo(PaymentAuthorized) {
		return rejected("payment state %s cannot be authorized", b.PaymentState)
	}
	b.SessionState = SessionScheduled
	b.PaymentState = PaymentAuthorized
	b.ConfirmedAt = &now
	return b.audit()
}

// Decline rejects a booking request on the tutor's behalf and voids the
// pending payment.
func (b *Booking) Decline(now time.Time) TransitionResult {
	if b.SessionState != SessionRequested {
		return rejected("booking cannot be declined from session state %s", b.SessionState)
	}
	if !b.PaymentState.CanTransitionTo(PaymentVoided) {
		return rejected("payment state %s cannot be voided", b.PaymentState)
	}
	b.SessionState = SessionCancelled
	b.PaymentState = PaymentVoided
	b.Outcome = OutcomeNotHeld
	b.CancelledByRole = RoleTutor
	b.CancelledAt = &now
	return b.audit()
}

// Cancel cancels a requested or scheduled booking. The refund flag comes from
// the cancellation policy and selects the payment settlement.
func (b *Booking) Cancel(by Role, refund bool, now time.Time) TransitionResult {
	if !b.SessionState.CanTransitionTo(SessionCancelled) {
		return rejected("booking cannot be cancelled from session state %s", b.SessionState)
	}
	target, ok := cancelSettlements[cancelKey{b.PaymentState, refund}]
	if !ok {
		return rejected("payment state %s has no cancellation settlement", b.PaymentState)
	}
	if target != b.PaymentState && !b.PaymentState.CanTransitionTo(target) {
		return rejected("payment state %s cannot settle to %s", b.PaymentState, target)
	}
	b.SessionState = SessionCancelled
	b.PaymentState = target
	b.Outcome = OutcomeNotHeld
	b.CancelledByRole = by
	b.CancelledAt = &now
	return b.audit()
}

// Expire times out a booking request the tutor never answered. Used by the
// request-expiry sweep.
func (b *Booking) Expire(now time.Time) TransitionResult {
	if b.SessionState != SessionRequested {
		return rejected("booking cannot expire from session state %s", b.SessionState)
	}
	if !b.PaymentState.CanTransitionTo(PaymentVoided) {
		return rejected("payment state %s cannot be voided", b.PaymentState)
	}
	b.SessionState = SessionExpired
	b.PaymentState = PaymentVoided
	b.Outcome = OutcomeNotHeld
	b.CancelledByRole = RoleSystem
	b.CancelledAt = &now
	return b.audit()
}

// StartSession moves a scheduled session into progress. Used by the
// start-time sweep.
func (b *Booking) StartSession() TransitionResult {
	if b.SessionState != SessionScheduled {
		return rejected("session cannot start from session state %s", b.SessionState)
	}
	b.SessionState = SessionActive
	return b.audit()
}

// endSettlements maps a session outcome to its payment settlement. The tutor
// is paid when the session ran or the student failed to appear; a tutor
// no-show returns the money.
var endSettlements = map[SessionOutcome]PaymentState{
	OutcomeCompleted:     PaymentCaptured,
	OutcomeNoShowStudent: PaymentCaptured,
	OutcomeNoShowTutor:   PaymentRefunded,
}

// EndSession closes an active session with the given outcome.
func (b *Booking) EndSession(outcome SessionOutcome) TransitionResult {
	if b.SessionState != SessionActive {
		return rejected("session cannot end from session state %s", b.SessionState)
	}
	target, ok := endSettlements[outcome]
	if !ok {
		return rejected("outcome %s cannot end a session", outcome)
	}
	if !b.PaymentState.CanTransitionTo(target) {
		return rejected("payment state %s cannot settle to %s", b.PaymentState, target)
	}
	b.SessionState = SessionEnded
	b.PaymentState = target
	b.Outcome = outcome
	return b.audit()
}

// MarkNoShow ends a scheduled or active session because one party failed to
// appear, settling payment by the same mapping as EndSession.
func (b *Booking) MarkNoShow(absent Role) TransitionResult {
	if b.SessionState != SessionScheduled && b.SessionState != SessionActive {
		return rejected("no-show cannot be recorded from session state %s", b.SessionState)
	}
	var outcome SessionOutcome
	switch absent {
	case RoleStudent:
		outcome = OutcomeNoShowStudent
	case RoleTutor:
		outcome = OutcomeNoShowTutor
	default:
		return rejected("absent role must be %s or %s", RoleStudent, RoleTutor)
	}
	target := endSettlements[outcome]
	if !b.PaymentState.CanTransitionTo(target) {
		return rejected("payment state %s cannot settle to %s", b.PaymentState, target)
	}
	b.SessionState = SessionEnded
	b.PaymentState = target
	b.Outcome = outcome
	return b.audit()
}

// OpenDispute opens a dispute on a settled booking. Each precondition fails
// with its own message.
func (b *Booking) OpenDispute(reason string, by uuid.UUID, now time.Time) TransitionResult {
	if !b.SessionState.IsTerminal() {
		return rejected("disputes require a settled booking, session state is %s", b.SessionState)
	}
	if !b.DisputeState.CanTransitionTo(DisputeOpen) {
		return rejected("dispute cannot be opened from dispute state %s", b.DisputeState)
	}
	b.DisputeState = DisputeOpen
	b.DisputedAt = &now
	b.DisputedBy = &by
	b.DisputeReason = reason
	return b.audit()
}

// ResolveDispute closes an open dispute. A refunded resolution on a captured
// payment settles to PARTIALLY_REFUNDED when the refund is less than the
// booking rate, otherwise to REFUNDED.
func (b *Booking) ResolveDispute(resolution DisputeState, by uuid.UUID, notes string, refundCents int64, now time.Time) TransitionResult {
	if resolution != DisputeResolvedUpheld && resolution != DisputeResolvedRefunded {
		return rejected("resolution must be %s or %s", DisputeResolvedUpheld, DisputeResolvedRefunded)
	}
	if !b.DisputeState.CanTransitionTo(resolution) {
		return rejected("dispute cannot be resolved from dispute state %s", b.DisputeState)
	}
	if resolution == DisputeResolvedRefunded && b.PaymentState == PaymentCaptured {
		target := PaymentRefunded
		if refundCents < b.RateCents {
			target = PaymentPartiallyRefunded
		}
		if !b.PaymentState.CanTransitionTo(target) {
			return rejected("payment state %s cannot settle to %s", b.PaymentState, target)
		}
		b.PaymentState = target
	}
	b.DisputeState = resolution
	b.ResolvedAt = &now
	b.ResolvedBy = &by
	b.ResolutionNotes = notes
	return b.audit()
}
