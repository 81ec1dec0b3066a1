package booking

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrStaleBooking is returned by Update when the row was modified since the
// caller loaded it. Callers reload and retry or surface the conflict.
var ErrStaleBooking = errors.New("booking was modified concurrently")

// Repository defines booking persistence. Update is guarded by the booking's
// version column so concurrent mutation of the same row is detected rather
// than silently last-write-wins.
type Repository interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, bookingID uuid.UUID) (*Booking, error)
	Update(ctx context.Context, b *Booking) error
	ListRequestedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*Booking, error)
	ListScheduledDue(ctx context.Context, asOf time.Time, limit int) ([]*Booking, error)
	ListActiveOverrun(ctx context.Context, endedBefore time.Time, limit int) ([]*Booking, error)
}
