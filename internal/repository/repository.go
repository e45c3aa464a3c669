package repository

import (
	"context"
	"time"

	"github.com/kirinyoku/hallbook/internal/domain"
)

// BookingFilter narrows List results. Zero values mean "any".
type BookingFilter struct {
	HallID int64
	Status domain.BookingStatus
	// From and To select bookings whose occupied days (buffers included)
	// intersect [From, To].
	From   domain.Date
	To     domain.Date
	Limit  int
	Offset int
}

// BookingRepository stores booking headers together with their hall and
// slot selections.
type BookingRepository interface {
	// Insert stores b and returns its new id. CreatedAt/UpdatedAt are set by the store.
	Insert(ctx context.Context, b *domain.Booking) (int64, error)

	// Get returns repository.ErrNotFound when the booking does not exist.
	Get(ctx context.Context, id int64) (*domain.Booking, error)

	// Update overwrites every mutable field of b.
	Update(ctx context.Context, b *domain.Booking) error

	// Delete removes the header; occurrences go with it.
	Delete(ctx context.Context, id int64) error

	List(ctx context.Context, f BookingFilter) ([]domain.Booking, error)
}

// OccurrenceRepository stores the materialized expansion of bookings.
type OccurrenceRepository interface {
	// InsertBatch stores occs for bookingID. Returns ErrOverlap when any of them
	// collides with an active occurrence of another booking on the same hall.
	InsertBatch(ctx context.Context, bookingID int64, occs []domain.Occurrence, active bool) error

	DeleteByBooking(ctx context.Context, bookingID int64) (int64, error)

	// SetActive toggles whether a booking's occurrences take part in the guard.
	SetActive(ctx context.Context, bookingID int64, active bool) error

	ListByBooking(ctx context.Context, bookingID int64) ([]domain.Occurrence, error)

	// ListByHall returns active occurrences on hallID intersecting [from, to).
	ListByHall(ctx context.Context, hallID int64, from, to time.Time) ([]domain.Occurrence, error)

	// FindOverlaps returns active occurrences of bookings other than
	// excludeBookingID that overlap any of occs on the same hall.
	FindOverlaps(ctx context.Context, excludeBookingID int64, occs []domain.Occurrence) ([]domain.Occurrence, error)
}

// CatalogRepository is the read-only reference data source.
type CatalogRepository interface {
	Halls(ctx context.Context) ([]domain.Hall, error)
	HallsByIDs(ctx context.Context, ids []int64) ([]domain.Hall, error)
	Slots(ctx context.Context) ([]domain.TimeSlot, error)
}

// Repos is the set of repositories bound to one unit of work.
type Repos interface {
	Bookings() BookingRepository
	Occurrences() OccurrenceRepository
	Catalog() CatalogRepository
}

// AfterCommit is a function that runs after a successful transaction commit.
type AfterCommit func(ctx context.Context)

// UnitOfWork runs fn atomically: either everything fn wrote is committed or
// nothing is. Hooks registered through after run only after commit.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repos Repos, after func(AfterCommit)) error) error
}
