package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/hallbook/internal/domain"
	"github.com/kirinyoku/hallbook/internal/repository"
)

const bookingColumns = `id, title, client_name, client_phone, notes, status, booking_type,
	amount, currency, event_start_date, event_days, pre_days, post_days,
	hall_ids, slot_codes, created_by, created_at, updated_at`

type BookingRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Insert stores a booking header.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - b: booking to store; ID, CreatedAt and UpdatedAt are ignored.
//
// Returns:
//   - int64: the new booking id.
//   - error: repository.ErrConflict on a uniqueness violation.
func (r *BookingRepo) Insert(ctx context.Context, b *domain.Booking) (int64, error) {
	const op = "postgres.BookingRepo.Insert"

	db := r.handle()

	var id int64
	if err := db.QueryRow(ctx,
		`INSERT INTO bookings(title, client_name, client_phone, notes, status, booking_type,
			amount, currency, event_start_date, event_days, pre_days, post_days,
			hall_ids, slot_codes, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::date, $10, $11, $12, $13, $14, $15)
		 RETURNING id`,
		b.Title, b.ClientName, b.ClientPhone, b.Notes, string(b.Status), string(b.Type),
		b.Amount, b.Currency, b.StartDate.String(), b.EventDays, b.PreDays, b.PostDays,
		b.HallIDs, slotCodesToStrings(b.SlotCodes), b.CreatedBy,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

// Get retrieves a booking by id.
//
// Returns:
//   - error: repository.ErrNotFound if the booking does not exist.
func (r *BookingRepo) Get(ctx context.Context, id int64) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.Get"

	db := r.handle()

	b, err := scanBooking(db.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return b, nil
}

// Update overwrites the mutable fields of a booking header and bumps updated_at.
//
// Returns:
//   - error: repository.ErrNotFound if the booking does not exist.
func (r *BookingRepo) Update(ctx context.Context, b *domain.Booking) error {
	const op = "postgres.BookingRepo.Update"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE bookings
		 SET title = $2, client_name = $3, client_phone = $4, notes = $5, status = $6,
			booking_type = $7, amount = $8, currency = $9, event_start_date = $10::date,
			event_days = $11, pre_days = $12, post_days = $13, hall_ids = $14,
			slot_codes = $15, updated_at = now()
		 WHERE id = $1`,
		b.ID, b.Title, b.ClientName, b.ClientPhone, b.Notes, string(b.Status),
		string(b.Type), b.Amount, b.Currency, b.StartDate.String(),
		b.EventDays, b.PreDays, b.PostDays, b.HallIDs, slotCodesToStrings(b.SlotCodes),
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// Delete removes a booking; booking_occurrences rows cascade.
//
// Returns:
//   - error: repository.ErrNotFound if the booking does not exist.
func (r *BookingRepo) Delete(ctx context.Context, id int64) error {
	const op = "postgres.BookingRepo.Delete"

	db := r.handle()

	tag, err := db.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// List returns bookings matching f ordered by first occupied day, then id.
func (r *BookingRepo) List(ctx context.Context, f repository.BookingFilter) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.List"

	db := r.handle()

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.HallID != 0 {
		where = append(where, arg(f.HallID)+" = ANY(hall_ids)")
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(string(f.Status)))
	}
	if !f.From.IsZero() {
		where = append(where, "event_start_date + event_days + post_days - 1 >= "+arg(f.From.String())+"::date")
	}
	if !f.To.IsZero() {
		where = append(where, "event_start_date - pre_days <= "+arg(f.To.String())+"::date")
	}

	sql := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY event_start_date - pre_days, id"
	if f.Limit > 0 {
		sql += " LIMIT " + arg(f.Limit)
	}
	if f.Offset > 0 {
		sql += " OFFSET " + arg(f.Offset)
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b         domain.Booking
		status    string
		typ       string
		startDate time.Time
		slotCodes []string
	)

	if err := row.Scan(
		&b.ID, &b.Title, &b.ClientName, &b.ClientPhone, &b.Notes, &status, &typ,
		&b.Amount, &b.Currency, &startDate, &b.EventDays, &b.PreDays, &b.PostDays,
		&b.HallIDs, &slotCodes, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}

	b.Status = domain.BookingStatus(status)
	b.Type = domain.BookingType(typ)
	b.StartDate = domain.DateOf(startDate)
	b.SlotCodes = make([]domain.SlotCode, len(slotCodes))
	for i, c := range slotCodes {
		b.SlotCodes[i] = domain.SlotCode(c)
	}

	return &b, nil
}

func slotCodesToStrings(codes []domain.SlotCode) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = string(c)
	}
	return out
}
