package policy

import "time"

// EvaluateReschedule decides whether a booking may be moved to a new start
// time. Checks run in order so callers always see the most specific denial:
// a session that already started cannot move, the new time must lie in the
// future, and the change needs at least the reschedule notice.
func EvaluateReschedule(startAt, now, newStartAt time.Time) Decision {
	if !now.Before(startAt) {
		return Decision{Allow: false, Reason: ReasonAlreadyStarted}
	}
	if !newStartAt.After(now) {
		return Decision{Allow: false, Reason: ReasonInvalidNewTime}
	}
	if startAt.Sub(now) < RescheduleNotice {
		return Decision{Allow: false, Reason: ReasonWindowExpired}
	}
	return Decision{Allow: true, Reason: ReasonOK}
}
