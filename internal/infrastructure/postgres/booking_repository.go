package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lessonhub/lessonhub/internal/domain/booking"
)

// BookingRepository implements booking.Repository.
type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO bookings
		(booking_id, student_id, tutor_id, lesson_type, is_trial, is_package, rate_cents, start_at, duration_minutes, notes, session_state, payment_state, dispute_state, outcome, confirmed_at, cancelled_at, cancelled_by_role, disputed_at, disputed_by, dispute_reason, resolved_at, resolved_by, resolution_notes, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26)
	`, b.BookingID, b.StudentID, b.TutorID, b.LessonType, b.IsTrial, b.IsPackage, b.RateCents, b.StartAt, b.DurationMinutes, b.Notes, b.SessionState, b.PaymentState, b.DisputeState, b.Outcome, b.ConfirmedAt, b.CancelledAt, b.CancelledByRole, b.DisputedAt, b.DisputedBy, b.DisputeReason, b.ResolvedAt, b.ResolvedBy, b.ResolutionNotes, b.Version, b.CreatedAt, b.UpdatedAt)
	return err
}

func (r *BookingRepository) GetByID(ctx context.Context, bookingID uuid.UUID) (*booking.Booking, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, booking_id, student_id, tutor_id, lesson_type, is_trial, is_package, rate_cents, start_at, duration_minutes, notes, session_state, payment_state, dispute_state, outcome, confirmed_at, cancelled_at, cancelled_by_role, disputed_at, disputed_by, dispute_reason, resolved_at, resolved_by, resolution_notes, version, created_at, updated_at
		FROM bookings WHERE booking_id=$1
	`, bookingID)
	return scanBooking(row)
}

// Update persists a mutated booking guarded by its version column. It returns
// booking.ErrStaleBooking when another writer got there first; on success the
// in-memory version is advanced to match the row.
func (r *BookingRepository) Update(ctx context.Context, b *booking.Booking) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE bookings
		SET lesson_type=$1, is_trial=$2, is_package=$3, rate_cents=$4, start_at=$5, duration_minutes=$6, notes=$7, session_state=$8, payment_state=$9, dispute_state=$10, outcome=$11,
			confirmed_at=$12, cancelled_at=$13, cancelled_by_role=$14, disputed_at=$15, disputed_by=$16, dispute_reason=$17, resolved_at=$18, resolved_by=$19, resolution_notes=$20,
			updated_at=$21, version=version+1
		WHERE booking_id=$22 AND version=$23
	`, b.LessonType, b.IsTrial, b.IsPackage, b.RateCents, b.StartAt, b.DurationMinutes, b.Notes, b.SessionState, b.PaymentState, b.DisputeState, b.Outcome,
		b.ConfirmedAt, b.CancelledAt, b.CancelledByRole, b.DisputedAt, b.DisputedBy, b.DisputeReason, b.ResolvedAt, b.ResolvedBy, b.ResolutionNotes,
		b.UpdatedAt, b.BookingID, b.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrStaleBooking
	}
	b.Version++
	return nil
}

func (r *BookingRepository) ListRequestedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*booking.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, booking_id, student_id, tutor_id, lesson_type, is_trial, is_package, rate_cents, start_at, duration_minutes, notes, session_state, payment_state, dispute_state, outcome, confirmed_at, cancelled_at, cancelled_by_role, disputed_at, disputed_by, dispute_reason, resolved_at, resolved_by, resolution_notes, version, created_at, updated_at
		FROM bookings
		WHERE session_state='REQUESTED' AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *BookingRepository) ListScheduledDue(ctx context.Context, asOf time.Time, limit int) ([]*booking.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, booking_id, student_id, tutor_id, lesson_type, is_trial, is_package, rate_cents, start_at, duration_minutes, notes, session_state, payment_state, dispute_state, outcome, confirmed_at, cancelled_at, cancelled_by_role, disputed_at, disputed_by, dispute_reason, resolved_at, resolved_by, resolution_notes, version, created_at, updated_at
		FROM bookings
		WHERE session_state='SCHEDULED' AND start_at <= $1
		ORDER BY start_at ASC
		LIMIT $2
	`, asOf, limit)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *BookingRepository) ListActiveOverrun(ctx context.Context, endedBefore time.Time, limit int) ([]*booking.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, booking_id, student_id, tutor_id, lesson_type, is_trial, is_package, rate_cents, start_at, duration_minutes, notes, session_state, payment_state, dispute_state, outcome, confirmed_at, cancelled_at, cancelled_by_role, disputed_at, disputed_by, dispute_reason, resolved_at, resolved_by, resolution_notes, version, created_at, updated_at
		FROM bookings
		WHERE session_state='ACTIVE'
		AND start_at + (duration_minutes || ' minutes')::interval <= $1
		ORDER BY start_at ASC
		LIMIT $2
	`, endedBefore, limit)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func scanBooking(row pgx.Row) (*booking.Booking, error) {
	var b booking.Booking
	if err := row.Scan(&b.ID, &b.BookingID, &b.StudentID, &b.TutorID, &b.LessonType, &b.IsTrial, &b.IsPackage, &b.RateCents, &b.StartAt, &b.DurationMinutes, &b.Notes, &b.SessionState, &b.PaymentState, &b.DisputeState, &b.Outcome, &b.ConfirmedAt, &b.CancelledAt, &b.CancelledByRole, &b.DisputedAt, &b.DisputedBy, &b.DisputeReason, &b.ResolvedAt, &b.ResolvedBy, &b.ResolutionNotes, &b.Version, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]*booking.Booking, error) {
	defer rows.Close()
	var bookings []*booking.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
