package policy

import (
	"time"

	"github.com/lessonhub/lessonhub/internal/domain/booking"
)

// EvaluateNoShowReport decides whether a no-show report is timely. Reporting
// opens ten minutes after the scheduled start, so a slightly late arrival is
// not immediately reportable, and closes a day later. A student reporting a
// tutor absence triggers a reputation strike against the tutor.
func EvaluateNoShowReport(startAt, now time.Time, reporter booking.Role) Decision {
	elapsed := now.Sub(startAt)
	if elapsed < NoShowReportDelay {
		return Decision{Allow: false, Reason: ReasonGracePeriod}
	}
	if elapsed > NoShowReportWindow {
		return Decision{Allow: false, Reason: ReasonReportWindowExpired}
	}
	return Decision{Allow: true, Reason: ReasonOK, ApplyStrikeToTutor: reporter == booking.RoleStudent}
}
