package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/hallbook/internal/domain"
)

const occurrenceSelect = `SELECT o.id, o.booking_id, o.hall_id, o.slot_id, s.code, o.kind, o.day, o.starts_at, o.ends_at
	 FROM booking_occurrences o
	 JOIN time_slots s ON s.id = o.slot_id`

type OccurrenceRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *OccurrenceRepo) With(db DB) *OccurrenceRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *OccurrenceRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// InsertBatch stores the occurrences of one booking. The prevent_hall_overlap
// constraint is evaluated per row, so the first colliding row fails the batch
// and the surrounding transaction must be rolled back.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - bookingID: owner of every occurrence.
//   - occs: the full expansion of the booking.
//   - active: false stores the rows outside the overlap guard (cancelled bookings).
//
// Returns:
//   - error: repository.ErrOverlap if a row collides with another active booking.
//   - error: repository.ErrReference if a hall or slot does not exist.
func (r *OccurrenceRepo) InsertBatch(
	ctx context.Context,
	bookingID int64,
	occs []domain.Occurrence,
	active bool,
) error {
	const op = "postgres.OccurrenceRepo.InsertBatch"

	if len(occs) == 0 {
		return nil
	}

	db := r.handle()

	batch := &pgx.Batch{}
	for _, o := range occs {
		batch.Queue(
			`INSERT INTO booking_occurrences(booking_id, hall_id, slot_id, kind, day, starts_at, ends_at, active)
			 VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8)`,
			bookingID, o.HallID, o.SlotID, string(o.Kind), o.Day.String(), o.StartsAt, o.EndsAt, active,
		)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *OccurrenceRepo) DeleteByBooking(ctx context.Context, bookingID int64) (int64, error) {
	const op = "postgres.OccurrenceRepo.DeleteByBooking"

	tag, err := r.handle().Exec(ctx, `DELETE FROM booking_occurrences WHERE booking_id = $1`, bookingID)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return tag.RowsAffected(), nil
}

// SetActive flips the guard participation of all occurrences of a booking.
// Re-activation is checked by prevent_hall_overlap like any insert.
func (r *OccurrenceRepo) SetActive(ctx context.Context, bookingID int64, active bool) error {
	const op = "postgres.OccurrenceRepo.SetActive"

	if _, err := r.handle().Exec(ctx,
		`UPDATE booking_occurrences SET active = $2 WHERE booking_id = $1`,
		bookingID, active,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *OccurrenceRepo) ListByBooking(ctx context.Context, bookingID int64) ([]domain.Occurrence, error) {
	const op = "postgres.OccurrenceRepo.ListByBooking"

	rows, err := r.handle().Query(ctx,
		occurrenceSelect+`
		 WHERE o.booking_id = $1
		 ORDER BY o.starts_at, o.hall_id, o.slot_id`,
		bookingID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := collectOccurrences(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *OccurrenceRepo) ListByHall(ctx context.Context, hallID int64, from, to time.Time) ([]domain.Occurrence, error) {
	const op = "postgres.OccurrenceRepo.ListByHall"

	rows, err := r.handle().Query(ctx,
		occurrenceSelect+`
		 WHERE o.hall_id = $1 AND o.active
		   AND o.starts_at < $3 AND o.ends_at > $2
		 ORDER BY o.starts_at, o.slot_id`,
		hallID, from, to,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := collectOccurrences(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// FindOverlaps is the pre-check run before InsertBatch so conflicts can be
// reported in detail. The constraint remains the authority.
func (r *OccurrenceRepo) FindOverlaps(
	ctx context.Context,
	excludeBookingID int64,
	occs []domain.Occurrence,
) ([]domain.Occurrence, error) {
	const op = "postgres.OccurrenceRepo.FindOverlaps"

	if len(occs) == 0 {
		return nil, nil
	}

	halls := make([]int64, len(occs))
	starts := make([]time.Time, len(occs))
	ends := make([]time.Time, len(occs))
	for i, o := range occs {
		halls[i], starts[i], ends[i] = o.HallID, o.StartsAt, o.EndsAt
	}

	rows, err := r.handle().Query(ctx,
		`SELECT DISTINCT o.id, o.booking_id, o.hall_id, o.slot_id, s.code, o.kind, o.day, o.starts_at, o.ends_at
		 FROM booking_occurrences o
		 JOIN time_slots s ON s.id = o.slot_id
		 JOIN unnest($2::bigint[], $3::timestamptz[], $4::timestamptz[]) AS c(hall_id, starts_at, ends_at)
		   ON o.hall_id = c.hall_id
		  AND tstzrange(o.starts_at, o.ends_at, '[)') && tstzrange(c.starts_at, c.ends_at, '[)')
		 WHERE o.active AND o.booking_id <> $1
		 ORDER BY o.starts_at, o.hall_id`,
		excludeBookingID, halls, starts, ends,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := collectOccurrences(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func collectOccurrences(rows pgx.Rows) ([]domain.Occurrence, error) {
	defer rows.Close()

	var out []domain.Occurrence
	for rows.Next() {
		var (
			o    domain.Occurrence
			code string
			kind string
			day  time.Time
		)
		if err := rows.Scan(&o.ID, &o.BookingID, &o.HallID, &o.SlotID, &code, &kind, &day, &o.StartsAt, &o.EndsAt); err != nil {
			return nil, err
		}
		o.SlotCode = domain.SlotCode(code)
		o.Kind = domain.OccurrenceKind(kind)
		o.Day = domain.DateOf(day)
		o.StartsAt = o.StartsAt.UTC()
		o.EndsAt = o.EndsAt.UTC()
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}
