package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/hallbook/internal/domain"
	"github.com/kirinyoku/hallbook/internal/repository"
)

func newTestStore() *Store {
	return New([]domain.Hall{{ID: 1, Name: "Main"}, {ID: 2, Name: "Garden"}}, DefaultSlots())
}

func at(day, hour int) time.Time {
	return time.Date(2026, time.March, day, hour, 0, 0, 0, time.UTC)
}

func occ(hallID int64, day, from, to int) domain.Occurrence {
	return domain.Occurrence{
		HallID:   hallID,
		SlotID:   1,
		Kind:     domain.KindEvent,
		Day:      domain.Date{Year: 2026, Month: time.March, Day: day},
		StartsAt: at(day, from),
		EndsAt:   at(day, to),
	}
}

func testBooking(status domain.BookingStatus, start domain.Date, halls ...int64) *domain.Booking {
	return &domain.Booking{
		Title:     "Wedding",
		Status:    status,
		Type:      domain.TypeWedding,
		StartDate: start,
		EventDays: 1,
		HallIDs:   halls,
		SlotCodes: []domain.SlotCode{"morning"},
	}
}

// seed stores a booking with occs in its own transaction and returns the id.
func seed(t *testing.T, s *Store, b *domain.Booking, occs ...domain.Occurrence) int64 {
	t.Helper()

	var id int64
	err := s.Do(context.Background(), func(ctx context.Context, r repository.Repos, _ func(repository.AfterCommit)) error {
		var err error
		if id, err = r.Bookings().Insert(ctx, b); err != nil {
			return err
		}
		return r.Occurrences().InsertBatch(ctx, id, occs, b.Active())
	})
	require.NoError(t, err)
	return id
}

func TestDoRollsBackOnError(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	boom := errors.New("boom")

	hookRan := false
	err := s.Do(ctx, func(ctx context.Context, r repository.Repos, after func(repository.AfterCommit)) error {
		id, err := r.Bookings().Insert(ctx, testBooking(domain.StatusHold, domain.Date{Year: 2026, Month: time.March, Day: 2}, 1))
		require.NoError(t, err)
		require.NoError(t, r.Occurrences().InsertBatch(ctx, id, []domain.Occurrence{occ(1, 2, 8, 12)}, true))
		after(func(context.Context) { hookRan = true })
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.False(t, hookRan)

	err = s.Do(ctx, func(ctx context.Context, r repository.Repos, _ func(repository.AfterCommit)) error {
		list, err := r.Bookings().List(ctx, repository.BookingFilter{})
		require.NoError(t, err)
		assert.Empty(t, list)

		got, err := r.Occurrences().ListByHall(ctx, 1, at(1, 0), at(5, 0))
		require.NoError(t, err)
		assert.Empty(t, got)
		return nil
	})
	require.NoError(t, err)
}

func TestDoRunsHooksAfterCommit(t *testing.T) {
	s := newTestStore()

	var order []string
	err := s.Do(context.Background(), func(ctx context.Context, r repository.Repos, after func(repository.AfterCommit)) error {
		after(func(context.Context) { order = append(order, "first") })
		after(func(context.Context) { order = append(order, "second") })
		order = append(order, "body")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"body", "first", "second"}, order)
}

func TestDoHonorsCancelledContext(t *testing.T) {
	s := newTestStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.Do(ctx, func(context.Context, repository.Repos, func(repository.AfterCommit)) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestInsertBatchGuard(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	day := domain.Date{Year: 2026, Month: time.March, Day: 2}

	seed(t, s, testBooking(domain.StatusConfirmed, day, 1), occ(1, 2, 8, 12))

	tests := map[string]struct {
		occ     domain.Occurrence
		active  bool
		wantErr error
	}{
		"overlap on same hall": {occ: occ(1, 2, 11, 13), active: true, wantErr: repository.ErrOverlap},
		"touching end":         {occ: occ(1, 2, 12, 14), active: true},
		"other hall":           {occ: occ(2, 2, 8, 12), active: true},
		"inactive rows skip":   {occ: occ(1, 2, 8, 12), active: false},
		"unknown hall":         {occ: occ(9, 2, 8, 12), active: true, wantErr: repository.ErrReference},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := s.Do(ctx, func(ctx context.Context, r repository.Repos, _ func(repository.AfterCommit)) error {
				id, err := r.Bookings().Insert(ctx, testBooking(domain.StatusHold, day, tt.occ.HallID))
				require.NoError(t, err)
				if err := r.Occurrences().InsertBatch(ctx, id, []domain.Occurrence{tt.occ}, tt.active); err != nil {
					return err
				}
				// Keep the store unchanged for the next case.
				return errRollback
			})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.ErrorIs(t, err, errRollback)
		})
	}
}

var errRollback = errors.New("rollback")

func TestInsertBatchRejectsUnknownSlotAndBooking(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	err := s.Do(ctx, func(ctx context.Context, r repository.Repos, _ func(repository.AfterCommit)) error {
		return r.Occurrences().InsertBatch(ctx, 42, []domain.Occurrence{occ(1, 2, 8, 12)}, true)
	})
	require.ErrorIs(t, err, repository.ErrReference)

	err = s.Do(ctx, func(ctx context.Context, r repository.Repos, _ func(repository.AfterCommit)) error {
		id, err := r.Bookings().Insert(ctx, testBooking(domain.StatusHold, domain.Date{Year: 2026, Month: time.March, Day: 2}, 1))
		require.NoError(t, err)
		o := occ(1, 2, 8, 12)
		o.SlotID = 99
		return r.Occurrences().InsertBatch(ctx, id, []domain.Occurrence{o}, true)
	})
	require.ErrorIs(t, err, repository.ErrReference)
}

func TestSetActiveRechecksGuard(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	day := domain.Date{Year: 2026, Month: time.March, Day: 2}

	cancelled := seed(t, s, testBooking(domain.StatusCancelled, day, 1), occ(1, 2, 8, 12))
	seed(t, s, testBooking(domain.StatusConfirmed, day, 1), occ(1, 2, 9, 11))

	err := s.Do(ctx, func(ctx context.Context, r repository.Repos, _ func(repository.AfterCommit)) error {
		return r.Occurrences().SetActive(ctx, cancelled, true)
	})
	require.ErrorIs(t, err, repository.ErrOverlap)

	err = s.Do(ctx, func(ctx context.Context, r repository.Repos, _ func(repository.AfterCommit)) error {
		got, err := r.Occurrences().ListByHall(ctx, 1, at(2, 0), at(3, 0))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, at(2, 9), got[0].StartsAt)
		return nil
	})
	require.NoError(t, err)
}

func TestDeleteCascadesOccurrences(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	day := domain.Date{Year: 2026, Month: time.March, Day: 2}

	gone := seed(t, s, testBooking(domain.StatusHold, day, 1), occ(1, 2, 8, 12))
	kept := seed(t, s, testBooking(domain.StatusHold, day, 2), occ(2, 2, 8, 12))

	err := s.Do(ctx, func(ctx context.Context, r repository.Repos, _ func(repository.AfterCommit)) error {
		return r.Bookings().Delete(ctx, gone)
	})
	require.NoError(t, err)

	err = s.Do(ctx, func(ctx context.Context, r repository.Repos, _ func(repository.AfterCommit)) error {
		_, err := r.Bookings().Get(ctx, gone)
		require.ErrorIs(t, err, repository.ErrNotFound)

		occs, err := r.Occurrences().ListByBooking(ctx, gone)
		require.NoError(t, err)
		assert.Empty(t, occs)

		occs, err = r.Occurrences().ListByBooking(ctx, kept)
		require.NoError(t, err)
		assert.Len(t, occs, 1)

		return r.Bookings().Delete(ctx, gone)
	})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestFindOverlapsExcludesOwnBooking(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	day := domain.Date{Year: 2026, Month: time.March, Day: 2}

	own := seed(t, s, testBooking(domain.StatusHold, day, 1), occ(1, 2, 8, 12))
	other := seed(t, s, testBooking(domain.StatusHold, day, 1), occ(1, 2, 13, 17))

	err := s.Do(ctx, func(ctx context.Context, r repository.Repos, _ func(repository.AfterCommit)) error {
		candidates := []domain.Occurrence{occ(1, 2, 10, 14), occ(1, 2, 15, 16)}

		got, err := r.Occurrences().FindOverlaps(ctx, own, candidates)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, other, got[0].BookingID)

		got, err = r.Occurrences().FindOverlaps(ctx, 0, candidates)
		require.NoError(t, err)
		assert.Len(t, got, 2)
		return nil
	})
	require.NoError(t, err)
}

func TestListFilters(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	early := testBooking(domain.StatusHold, domain.Date{Year: 2026, Month: time.March, Day: 2}, 1)
	late := testBooking(domain.StatusConfirmed, domain.Date{Year: 2026, Month: time.March, Day: 20}, 2)
	late.PreDays = 2
	earlyID := seed(t, s, early)
	lateID := seed(t, s, late)

	ids := func(f repository.BookingFilter) []int64 {
		var out []int64
		err := s.Do(ctx, func(ctx context.Context, r repository.Repos, _ func(repository.AfterCommit)) error {
			list, err := r.Bookings().List(ctx, f)
			for _, b := range list {
				out = append(out, b.ID)
			}
			return err
		})
		require.NoError(t, err)
		return out
	}

	assert.Equal(t, []int64{earlyID, lateID}, ids(repository.BookingFilter{}))
	assert.Equal(t, []int64{lateID}, ids(repository.BookingFilter{HallID: 2}))
	assert.Equal(t, []int64{earlyID}, ids(repository.BookingFilter{Status: domain.StatusHold}))
	// The pre-event buffer day counts as occupied.
	assert.Equal(t, []int64{lateID}, ids(repository.BookingFilter{
		From: domain.Date{Year: 2026, Month: time.March, Day: 18},
		To:   domain.Date{Year: 2026, Month: time.March, Day: 18},
	}))
	assert.Equal(t, []int64{lateID}, ids(repository.BookingFilter{Offset: 1}))
	assert.Equal(t, []int64{earlyID}, ids(repository.BookingFilter{Limit: 1}))
	assert.Empty(t, ids(repository.BookingFilter{Offset: 5}))
}

func TestUpdateKeepsCreationStamp(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	created := time.Date(2026, time.January, 1, 10, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return created })
	id := seed(t, s, testBooking(domain.StatusHold, domain.Date{Year: 2026, Month: time.March, Day: 2}, 1))

	updated := created.Add(time.Hour)
	s.SetClock(func() time.Time { return updated })

	err := s.Do(ctx, func(ctx context.Context, r repository.Repos, _ func(repository.AfterCommit)) error {
		b, err := r.Bookings().Get(ctx, id)
		require.NoError(t, err)
		b.Title = "Renamed"
		b.CreatedAt = time.Time{}
		require.NoError(t, r.Bookings().Update(ctx, b))

		got, err := r.Bookings().Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Title)
		assert.Equal(t, created, got.CreatedAt)
		assert.Equal(t, updated, got.UpdatedAt)
		return nil
	})
	require.NoError(t, err)
}
