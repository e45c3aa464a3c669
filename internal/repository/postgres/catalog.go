package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/hallbook/internal/domain"
)

type CatalogRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *CatalogRepo) With(db DB) *CatalogRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CatalogRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *CatalogRepo) Halls(ctx context.Context) ([]domain.Hall, error) {
	const op = "postgres.CatalogRepo.Halls"

	rows, err := r.handle().Query(ctx, `SELECT id, name FROM halls ORDER BY id`)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := collectHalls(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// HallsByIDs returns the halls that exist among ids. Missing ids are simply
// absent from the result.
func (r *CatalogRepo) HallsByIDs(ctx context.Context, ids []int64) ([]domain.Hall, error) {
	const op = "postgres.CatalogRepo.HallsByIDs"

	rows, err := r.handle().Query(ctx,
		`SELECT id, name FROM halls WHERE id = ANY($1) ORDER BY id`,
		ids,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := collectHalls(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *CatalogRepo) Slots(ctx context.Context) ([]domain.TimeSlot, error) {
	const op = "postgres.CatalogRepo.Slots"

	rows, err := r.handle().Query(ctx,
		`SELECT id, code, start_time::text, end_time::text
		 FROM time_slots
		 ORDER BY start_time, id`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.TimeSlot
	for rows.Next() {
		var (
			s          domain.TimeSlot
			code       string
			start, end string
		)
		if err := rows.Scan(&s.ID, &code, &start, &end); err != nil {
			return nil, wrapDBErr(op, err)
		}
		s.Code = domain.SlotCode(code)
		if s.Start, err = domain.ParseTimeOfDay(start); err != nil {
			return nil, fmt.Errorf("%s: slot %d: %w", op, s.ID, err)
		}
		if s.End, err = domain.ParseTimeOfDay(end); err != nil {
			return nil, fmt.Errorf("%s: slot %d: %w", op, s.ID, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func collectHalls(rows pgx.Rows) ([]domain.Hall, error) {
	defer rows.Close()

	var out []domain.Hall
	for rows.Next() {
		var h domain.Hall
		if err := rows.Scan(&h.ID, &h.Name); err != nil {
			return nil, err
		}
		out = append(out, h)
	}

	return out, rows.Err()
}
