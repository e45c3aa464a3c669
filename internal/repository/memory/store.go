// Package memory is a transactional in-memory record store. Transactions are
// serialized by a single lock and work on a private copy of the data that is
// swapped in on commit, so a failed transaction leaves no trace.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kirinyoku/hallbook/internal/domain"
	"github.com/kirinyoku/hallbook/internal/repository"
	"github.com/kirinyoku/hallbook/internal/schedule"
)

type occRow struct {
	domain.Occurrence
	active bool
}

type state struct {
	nextBookingID int64
	nextOccID     int64
	halls         map[int64]domain.Hall
	slots         map[int64]domain.TimeSlot
	bookings      map[int64]domain.Booking
	occs          map[int64][]occRow
}

func (s *state) clone() *state {
	cp := &state{
		nextBookingID: s.nextBookingID,
		nextOccID:     s.nextOccID,
		halls:         s.halls,
		slots:         s.slots,
		bookings:      make(map[int64]domain.Booking, len(s.bookings)),
		occs:          make(map[int64][]occRow, len(s.occs)),
	}
	for id, b := range s.bookings {
		cp.bookings[id] = b
	}
	for id, rows := range s.occs {
		cp.occs[id] = append([]occRow(nil), rows...)
	}
	return cp
}

type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

var _ repository.UnitOfWork = (*Store)(nil)

// New returns a store seeded with reference data. Halls and slots are
// read-only afterwards.
func New(halls []domain.Hall, slots []domain.TimeSlot) *Store {
	st := &state{
		halls:    make(map[int64]domain.Hall, len(halls)),
		slots:    make(map[int64]domain.TimeSlot, len(slots)),
		bookings: make(map[int64]domain.Booking),
		occs:     make(map[int64][]occRow),
	}
	for _, h := range halls {
		st.halls[h.ID] = h
	}
	for _, s := range slots {
		st.slots[s.ID] = s
	}
	return &Store{st: st, now: time.Now}
}

// DefaultSlots is the catalog seeded by the postgres migration.
func DefaultSlots() []domain.TimeSlot {
	return []domain.TimeSlot{
		{ID: 1, Code: "morning", Start: domain.TimeOfDay{Hour: 8}, End: domain.TimeOfDay{Hour: 12}},
		{ID: 2, Code: "afternoon", Start: domain.TimeOfDay{Hour: 13}, End: domain.TimeOfDay{Hour: 17}},
		{ID: 3, Code: "night", Start: domain.TimeOfDay{Hour: 18}, End: domain.TimeOfDay{Hour: 22}},
	}
}

// SetClock replaces the timestamp source used for CreatedAt/UpdatedAt.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Do(
	ctx context.Context,
	fn func(ctx context.Context, repos repository.Repos, after func(repository.AfterCommit)) error,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var hooks []repository.AfterCommit

	err := func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		work := s.st.clone()
		if err := fn(ctx, repos{st: work, now: s.now}, func(h repository.AfterCommit) {
			hooks = append(hooks, h)
		}); err != nil {
			return err
		}

		s.st = work
		return nil
	}()
	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}

type repos struct {
	st  *state
	now func() time.Time
}

func (r repos) Bookings() repository.BookingRepository       { return bookingRepo(r) }
func (r repos) Occurrences() repository.OccurrenceRepository { return occurrenceRepo(r) }
func (r repos) Catalog() repository.CatalogRepository        { return catalogRepo(r) }

type bookingRepo repos

func (r bookingRepo) Insert(_ context.Context, b *domain.Booking) (int64, error) {
	r.st.nextBookingID++
	id := r.st.nextBookingID

	cp := copyBooking(*b)
	cp.ID = id
	cp.CreatedAt = r.now().UTC()
	cp.UpdatedAt = cp.CreatedAt
	r.st.bookings[id] = cp

	return id, nil
}

func (r bookingRepo) Get(_ context.Context, id int64) (*domain.Booking, error) {
	const op = "memory.BookingRepo.Get"

	b, ok := r.st.bookings[id]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	cp := copyBooking(b)
	return &cp, nil
}

func (r bookingRepo) Update(_ context.Context, b *domain.Booking) error {
	const op = "memory.BookingRepo.Update"

	cur, ok := r.st.bookings[b.ID]
	if !ok {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	cp := copyBooking(*b)
	cp.CreatedBy = cur.CreatedBy
	cp.CreatedAt = cur.CreatedAt
	cp.UpdatedAt = r.now().UTC()
	r.st.bookings[b.ID] = cp

	return nil
}

func (r bookingRepo) Delete(_ context.Context, id int64) error {
	const op = "memory.BookingRepo.Delete"

	if _, ok := r.st.bookings[id]; !ok {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	delete(r.st.bookings, id)
	delete(r.st.occs, id)

	return nil
}

func (r bookingRepo) List(_ context.Context, f repository.BookingFilter) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range r.st.bookings {
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.HallID != 0 && !containsID(b.HallIDs, f.HallID) {
			continue
		}
		first := b.StartDate.AddDays(-b.PreDays)
		last := b.StartDate.AddDays(b.EventDays + b.PostDays - 1)
		if !f.From.IsZero() && last.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && f.To.Before(first) {
			continue
		}
		out = append(out, copyBooking(b))
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].StartDate.AddDays(-out[i].PreDays), out[j].StartDate.AddDays(-out[j].PreDays)
		if a != b {
			return a.Before(b)
		}
		return out[i].ID < out[j].ID
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}

	return out, nil
}

type occurrenceRepo repos

func (r occurrenceRepo) InsertBatch(_ context.Context, bookingID int64, occs []domain.Occurrence, active bool) error {
	const op = "memory.OccurrenceRepo.InsertBatch"

	if _, ok := r.st.bookings[bookingID]; !ok {
		return fmt.Errorf("%s:%w: booking %d", op, repository.ErrReference, bookingID)
	}

	rows := make([]occRow, 0, len(occs))
	for _, o := range occs {
		if _, ok := r.st.halls[o.HallID]; !ok {
			return fmt.Errorf("%s:%w: hall %d", op, repository.ErrReference, o.HallID)
		}
		slot, ok := r.st.slots[o.SlotID]
		if !ok {
			return fmt.Errorf("%s:%w: slot %d", op, repository.ErrReference, o.SlotID)
		}
		if !o.EndsAt.After(o.StartsAt) {
			return fmt.Errorf("%s: occurrence must end after it starts", op)
		}

		r.st.nextOccID++
		o.ID = r.st.nextOccID
		o.BookingID = bookingID
		o.SlotCode = slot.Code
		rows = append(rows, occRow{Occurrence: o, active: active})
	}

	if active {
		if err := r.guard(bookingID, rows); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
	}

	r.st.occs[bookingID] = append(r.st.occs[bookingID], rows...)

	return nil
}

func (r occurrenceRepo) DeleteByBooking(_ context.Context, bookingID int64) (int64, error) {
	n := int64(len(r.st.occs[bookingID]))
	delete(r.st.occs, bookingID)
	return n, nil
}

func (r occurrenceRepo) SetActive(_ context.Context, bookingID int64, active bool) error {
	const op = "memory.OccurrenceRepo.SetActive"

	rows := r.st.occs[bookingID]
	if active {
		if err := r.guard(bookingID, rows); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
	}

	updated := make([]occRow, len(rows))
	for i, row := range rows {
		row.active = active
		updated[i] = row
	}
	r.st.occs[bookingID] = updated

	return nil
}

func (r occurrenceRepo) ListByBooking(_ context.Context, bookingID int64) ([]domain.Occurrence, error) {
	var out []domain.Occurrence
	for _, row := range r.st.occs[bookingID] {
		out = append(out, row.Occurrence)
	}
	sortOccurrences(out)
	return out, nil
}

func (r occurrenceRepo) ListByHall(_ context.Context, hallID int64, from, to time.Time) ([]domain.Occurrence, error) {
	var out []domain.Occurrence
	for _, rows := range r.st.occs {
		for _, row := range rows {
			if row.active && row.HallID == hallID && schedule.Overlaps(row.StartsAt, row.EndsAt, from, to) {
				out = append(out, row.Occurrence)
			}
		}
	}
	sortOccurrences(out)
	return out, nil
}

func (r occurrenceRepo) FindOverlaps(_ context.Context, excludeBookingID int64, occs []domain.Occurrence) ([]domain.Occurrence, error) {
	seen := make(map[int64]struct{})
	var out []domain.Occurrence
	for _, c := range schedule.FindConflicts(occs, r.activeExcept(excludeBookingID)) {
		if _, ok := seen[c.Existing.ID]; ok {
			continue
		}
		seen[c.Existing.ID] = struct{}{}
		out = append(out, c.Existing)
	}
	sortOccurrences(out)
	return out, nil
}

// guard enforces the prevent_hall_overlap rule for rows of bookingID.
func (r occurrenceRepo) guard(bookingID int64, rows []occRow) error {
	candidates := make([]domain.Occurrence, len(rows))
	for i, row := range rows {
		candidates[i] = row.Occurrence
		candidates[i].BookingID = bookingID
	}

	if conflicts := schedule.FindConflicts(candidates, r.activeExcept(bookingID)); len(conflicts) > 0 {
		c := conflicts[0]
		return fmt.Errorf("%w: hall %d [%s, %s) collides with booking %d",
			repository.ErrOverlap, c.Candidate.HallID,
			c.Candidate.StartsAt.Format(time.RFC3339), c.Candidate.EndsAt.Format(time.RFC3339),
			c.Existing.BookingID)
	}

	return nil
}

func (r occurrenceRepo) activeExcept(bookingID int64) []domain.Occurrence {
	var out []domain.Occurrence
	for id, rows := range r.st.occs {
		if id == bookingID {
			continue
		}
		for _, row := range rows {
			if row.active {
				out = append(out, row.Occurrence)
			}
		}
	}
	return out
}

type catalogRepo repos

func (r catalogRepo) Halls(_ context.Context) ([]domain.Hall, error) {
	out := make([]domain.Hall, 0, len(r.st.halls))
	for _, h := range r.st.halls {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r catalogRepo) HallsByIDs(_ context.Context, ids []int64) ([]domain.Hall, error) {
	var out []domain.Hall
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if h, ok := r.st.halls[id]; ok {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r catalogRepo) Slots(_ context.Context) ([]domain.TimeSlot, error) {
	out := make([]domain.TimeSlot, 0, len(r.st.slots))
	for _, s := range r.st.slots {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if a, b := out[i].Start.Seconds(), out[j].Start.Seconds(); a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func copyBooking(b domain.Booking) domain.Booking {
	b.HallIDs = append([]int64(nil), b.HallIDs...)
	b.SlotCodes = append([]domain.SlotCode(nil), b.SlotCodes...)
	return b
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func sortOccurrences(occs []domain.Occurrence) {
	sort.Slice(occs, func(i, j int) bool {
		a, b := occs[i], occs[j]
		if !a.StartsAt.Equal(b.StartsAt) {
			return a.StartsAt.Before(b.StartsAt)
		}
		if a.HallID != b.HallID {
			return a.HallID < b.HallID
		}
		return a.SlotID < b.SlotID
	})
}
