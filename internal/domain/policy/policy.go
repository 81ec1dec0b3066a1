// Package policy holds the pure decision functions that turn wall-clock
// timing into allow/deny outcomes and their financial consequences. Functions
// here take every instant as an explicit argument, never read a clock, and
// never mutate a booking.
package policy

import "time"

// ReasonCode names the rule that produced a decision. Codes map one-to-one
// onto user-facing messages one level up.
type ReasonCode string

const (
	ReasonOK                  ReasonCode = "OK"
	ReasonLateCancel          ReasonCode = "LATE_CANCEL"
	ReasonTutorLateCancel     ReasonCode = "TUTOR_LATE_CANCEL"
	ReasonAlreadyStarted      ReasonCode = "ALREADY_STARTED"
	ReasonWindowExpired       ReasonCode = "WINDOW_EXPIRED"
	ReasonInvalidNewTime      ReasonCode = "INVALID_NEW_TIME"
	ReasonGracePeriod         ReasonCode = "GRACE_PERIOD"
	ReasonReportWindowExpired ReasonCode = "REPORT_WINDOW_EXPIRED"
)

// Policy boundaries. CancellationGrace is subtracted from CancellationNotice
// so a cancellation arriving a few minutes inside the nominal 24 hours still
// counts as timely.
const (
	CancellationNotice = 24 * time.Hour
	CancellationGrace  = 5 * time.Minute
	RescheduleNotice   = 12 * time.Hour
	NoShowReportDelay  = 10 * time.Minute
	NoShowReportWindow = 24 * time.Hour
	GraceEditWindow    = 5 * time.Minute
	GraceEditMinNotice = 24 * time.Hour
)

// TutorCompensationCents is the fixed goodwill payment credited to the
// student when a tutor cancels inside the notice window.
const TutorCompensationCents int64 = 500

// Decision is the outcome of a policy evaluation. Allow and Reason are always
// set; the remaining fields carry the financial consequences of the specific
// action evaluated and feed the caller's settlement and payout side effects.
type Decision struct {
	Allow                  bool       `json:"allow"`
	Reason                 ReasonCode `json:"reason"`
	RefundCents            int64      `json:"refundCents"`
	RestorePackageUnit     bool       `json:"restorePackageUnit"`
	TutorCompensationCents int64      `json:"tutorCompensationCents"`
	ApplyStrikeToTutor     bool       `json:"applyStrikeToTutor"`
}
