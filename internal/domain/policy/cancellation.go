package policy

import "time"

// EvaluateStudentCancellation decides whether a student may cancel and what
// refund follows. Cancellation is always possible before the session starts;
// the notice boundary only selects between a full refund and none. Package
// lessons restore the prepaid unit instead of refunding cash.
func EvaluateStudentCancellation(startAt, now time.Time, rateCents int64, lessonType string, isTrial, isPackage bool) Decision {
	if !now.Before(startAt) {
		return Decision{Allow: false, Reason: ReasonAlreadyStarted}
	}
	if startAt.Sub(now) >= CancellationNotice-CancellationGrace {
		if isPackage {
			return Decision{Allow: true, Reason: ReasonOK, RestorePackageUnit: true}
		}
		return Decision{Allow: true, Reason: ReasonOK, RefundCents: rateCents}
	}
	return Decision{Allow: true, Reason: ReasonLateCancel}
}

// EvaluateTutorCancellation decides the consequences of a tutor-initiated
// cancellation. The student is made whole in either branch; cancelling inside
// the notice window additionally costs the tutor a goodwill payment and a
// reputation strike.
func EvaluateTutorCancellation(startAt, now time.Time, rateCents int64, isPackage bool) Decision {
	refund := rateCents
	restore := false
	if isPackage {
		refund = 0
		restore = true
	}
	if startAt.Sub(now) >= CancellationNotice-CancellationGrace {
		return Decision{Allow: true, Reason: ReasonOK, RefundCents: refund, RestorePackageUnit: restore}
	}
	return Decision{
		Allow:                  true,
		Reason:                 ReasonTutorLateCancel,
		RefundCents:            refund,
		RestorePackageUnit:     restore,
		TutorCompensationCents: TutorCompensationCents,
		ApplyStrikeToTutor:     true,
	}
}
