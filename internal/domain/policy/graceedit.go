package policy

import "time"

// CanEditInGrace reports whether a booking may still be edited without tutor
// approval. The window lets a party fix a typo right after booking but closes
// five minutes after creation, and never applies within a day of the session
// start.
func CanEditInGrace(createdAt, startAt, now time.Time) bool {
	return now.Sub(createdAt) <= GraceEditWindow && startAt.Sub(now) >= GraceEditMinNotice
}
