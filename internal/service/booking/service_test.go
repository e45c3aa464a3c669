package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/hallbook/internal/auth"
	"github.com/kirinyoku/hallbook/internal/domain"
	"github.com/kirinyoku/hallbook/internal/repository"
	"github.com/kirinyoku/hallbook/internal/repository/memory"
)

type recorder struct {
	mu     sync.Mutex
	events []domain.BookingEvent
}

func (r *recorder) PublishBookingEvent(_ context.Context, ev domain.BookingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) actions() []domain.BookingAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.BookingAction, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Action
	}
	return out
}

func newTestService(t *testing.T) (*Service, *recorder) {
	t.Helper()

	store := memory.New(
		[]domain.Hall{{ID: 1, Name: "Main"}, {ID: 2, Name: "Garden"}},
		memory.DefaultSlots(),
	)
	rec := &recorder{}
	return New(store, nil, nil, Config{Location: time.UTC}, rec), rec
}

func actorCtx() context.Context {
	return auth.WithActor(context.Background(), 1)
}

func day(t *testing.T, s string) domain.Date {
	t.Helper()
	d, err := domain.ParseDate(s)
	require.NoError(t, err)
	return d
}

func baseParams(t *testing.T, halls ...int64) CreateParams {
	return CreateParams{
		Title:     "Wedding",
		Type:      domain.TypeWedding,
		StartDate: day(t, "2024-01-10"),
		EventDays: 1,
		PreDays:   1,
		PostDays:  1,
		HallIDs:   halls,
		SlotCodes: []domain.SlotCode{"night"},
	}
}

func TestCreateStoresExpansion(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := actorCtx()

	id, err := svc.Create(ctx, baseParams(t, 1))
	require.NoError(t, err)

	b, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusHold, b.Status)
	assert.Equal(t, int64(1), b.CreatedBy)

	occs, err := svc.Occurrences(ctx, id)
	require.NoError(t, err)
	// prep day: 3 slots, event day: night, cleanup day: 3 slots
	require.Len(t, occs, 7)

	kinds := map[domain.OccurrenceKind]int{}
	for _, o := range occs {
		kinds[o.Kind]++
		assert.Equal(t, id, o.BookingID)
		assert.True(t, o.EndsAt.After(o.StartsAt))
	}
	assert.Equal(t, map[domain.OccurrenceKind]int{
		domain.KindPrep:    3,
		domain.KindEvent:   1,
		domain.KindCleanup: 3,
	}, kinds)

	assert.Equal(t, []domain.BookingAction{domain.ActionCreated}, rec.actions())
}

func TestCreateRejectsOverlap(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := actorCtx()

	first, err := svc.Create(ctx, baseParams(t, 1))
	require.NoError(t, err)

	p := baseParams(t, 1)
	p.StartDate = day(t, "2024-01-11")
	p.PreDays = 0
	_, err = svc.Create(ctx, p)
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.True(t, errors.Is(err, ErrConflict))

	var e *Error
	require.True(t, errors.As(err, &e))
	require.NotEmpty(t, e.Conflicts)
	for _, c := range e.Conflicts {
		assert.Equal(t, first, c.BookingID)
		assert.Equal(t, int64(1), c.HallID)
	}

	list, err := svc.List(ctx, repository.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Len(t, rec.actions(), 1)
}

func TestCreateOtherHallSucceeds(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorCtx()

	_, err := svc.Create(ctx, baseParams(t, 1))
	require.NoError(t, err)

	_, err = svc.Create(ctx, baseParams(t, 2))
	require.NoError(t, err)
}

func TestCreateRejectsWithoutStorePreCheck(t *testing.T) {
	store := memory.New([]domain.Hall{{ID: 1, Name: "Main"}}, memory.DefaultSlots())
	svc := New(store, nil, nil, Config{Location: time.UTC, SkipPreCheck: true})
	ctx := actorCtx()

	_, err := svc.Create(ctx, baseParams(t, 1))
	require.NoError(t, err)

	_, err = svc.Create(ctx, baseParams(t, 1))
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestCancelReleasesHall(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := actorCtx()

	id, err := svc.Create(ctx, baseParams(t, 1))
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, id))

	b, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, b.Status)

	occs, err := svc.Occurrences(ctx, id)
	require.NoError(t, err)
	assert.Len(t, occs, 7)

	_, err = svc.Create(ctx, baseParams(t, 1))
	require.NoError(t, err)

	assert.Equal(t, []domain.BookingAction{
		domain.ActionCreated, domain.ActionCancelled, domain.ActionCreated,
	}, rec.actions())
}

func TestDeleteRemovesOnlyTarget(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorCtx()

	keep, err := svc.Create(ctx, baseParams(t, 2))
	require.NoError(t, err)
	gone, err := svc.Create(ctx, baseParams(t, 1))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, gone))

	_, err = svc.Get(ctx, gone)
	assert.Equal(t, KindNotFound, KindOf(err))
	_, err = svc.Occurrences(ctx, gone)
	assert.Equal(t, KindNotFound, KindOf(err))

	occs, err := svc.Occurrences(ctx, keep)
	require.NoError(t, err)
	assert.Len(t, occs, 7)

	_, err = svc.Create(ctx, baseParams(t, 1))
	require.NoError(t, err)

	err = svc.Delete(ctx, gone)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestFailedUpdateKeepsPreviousState(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := actorCtx()

	a, err := svc.Create(ctx, baseParams(t, 1))
	require.NoError(t, err)
	_, err = svc.Create(ctx, baseParams(t, 2))
	require.NoError(t, err)

	before, err := svc.Occurrences(ctx, a)
	require.NoError(t, err)

	title := "Moved"
	halls := []int64{2}
	err = svc.Update(ctx, a, UpdateParams{Title: &title, HallIDs: &halls})
	assert.Equal(t, KindConflict, KindOf(err))

	b, err := svc.Get(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "Wedding", b.Title)
	assert.Equal(t, []int64{1}, b.HallIDs)

	after, err := svc.Occurrences(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Len(t, rec.actions(), 2)
}

func TestUpdateReschedules(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorCtx()

	id, err := svc.Create(ctx, baseParams(t, 1))
	require.NoError(t, err)

	days := 2
	codes := []domain.SlotCode{"morning", "night"}
	require.NoError(t, svc.Update(ctx, id, UpdateParams{EventDays: &days, SlotCodes: &codes}))

	occs, err := svc.Occurrences(ctx, id)
	require.NoError(t, err)
	// 3 prep + 2 days x 2 slots + 3 cleanup
	assert.Len(t, occs, 10)

	// The booking may overlap its own former occurrences.
	start := day(t, "2024-01-09")
	require.NoError(t, svc.Update(ctx, id, UpdateParams{StartDate: &start}))
}

func TestPartialUpdateKeepsOtherFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorCtx()

	p := baseParams(t, 1)
	name := "Rami"
	p.ClientName = &name
	id, err := svc.Create(ctx, p)
	require.NoError(t, err)

	before, err := svc.Occurrences(ctx, id)
	require.NoError(t, err)

	notes := "  bring chairs "
	require.NoError(t, svc.Update(ctx, id, UpdateParams{Notes: &notes}))

	b, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Wedding", b.Title)
	require.NotNil(t, b.ClientName)
	assert.Equal(t, "Rami", *b.ClientName)
	require.NotNil(t, b.Notes)
	assert.Equal(t, "bring chairs", *b.Notes)

	after, err := svc.Occurrences(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	err = svc.Update(ctx, id, UpdateParams{})
	assert.Equal(t, KindValidation, KindOf(err))

	err = svc.Update(ctx, 999, UpdateParams{Notes: &notes})
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestStatusTransitions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorCtx()

	id, err := svc.Create(ctx, baseParams(t, 1))
	require.NoError(t, err)

	confirmed := domain.StatusConfirmed
	require.NoError(t, svc.Update(ctx, id, UpdateParams{Status: &confirmed}))

	hold := domain.StatusHold
	err = svc.Update(ctx, id, UpdateParams{Status: &hold})
	assert.Equal(t, KindValidation, KindOf(err))

	require.NoError(t, svc.Cancel(ctx, id))

	err = svc.Update(ctx, id, UpdateParams{Status: &confirmed})
	assert.Equal(t, KindValidation, KindOf(err))

	days := 2
	err = svc.Update(ctx, id, UpdateParams{EventDays: &days})
	assert.Equal(t, KindValidation, KindOf(err))

	title := "Renamed"
	require.NoError(t, svc.Update(ctx, id, UpdateParams{Title: &title}))
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorCtx()

	_, err := svc.Create(context.Background(), baseParams(t, 1))
	assert.Equal(t, KindUnauthorized, KindOf(err))
	assert.True(t, errors.Is(err, ErrUnauthorized))

	cases := map[string]struct {
		mutate func(p *CreateParams)
		kind   Kind
	}{
		"no title":       {func(p *CreateParams) { p.Title = " " }, KindValidation},
		"bad type":       {func(p *CreateParams) { p.Type = "party" }, KindValidation},
		"too many days":  {func(p *CreateParams) { p.EventDays = 31 }, KindValidation},
		"zero days":      {func(p *CreateParams) { p.EventDays = 0 }, KindValidation},
		"long buffer":    {func(p *CreateParams) { p.PostDays = 11 }, KindValidation},
		"no halls":       {func(p *CreateParams) { p.HallIDs = nil }, KindValidation},
		"no slots":       {func(p *CreateParams) { p.SlotCodes = nil }, KindValidation},
		"cancelled":      {func(p *CreateParams) { p.Status = domain.StatusCancelled }, KindValidation},
		"bad currency":   {func(p *CreateParams) { c := "dollars"; a := int64(5); p.Currency, p.Amount = &c, &a }, KindValidation},
		"unknown hall":   {func(p *CreateParams) { p.HallIDs = []int64{1, 99} }, KindLookupFailed},
		"unknown slots":  {func(p *CreateParams) { p.SlotCodes = []domain.SlotCode{"brunch"} }, KindLookupFailed},
		"negative money": {func(p *CreateParams) { a := int64(-1); p.Amount = &a }, KindValidation},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			p := baseParams(t, 1)
			tc.mutate(&p)
			_, err := svc.Create(ctx, p)
			assert.Equal(t, tc.kind, KindOf(err), "got %v", err)
		})
	}

	list, err := svc.List(ctx, repository.BookingFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestConcurrentCreatesOneWins(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorCtx()

	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, baseParams(t, 1))
			mu.Lock()
			defer mu.Unlock()
			switch KindOf(err) {
			case "":
				ok++
			case KindConflict:
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)
}

func TestExpandPreviewStoresNothing(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorCtx()

	occs, err := svc.Expand(ctx, ExpandParams{
		StartDate: day(t, "2024-01-10"),
		EventDays: 1,
		HallIDs:   []int64{1, 2},
		SlotCodes: []domain.SlotCode{"morning", "night"},
	})
	require.NoError(t, err)
	assert.Len(t, occs, 4)

	conflicts, err := svc.Conflicts(ctx, 0, occs)
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	_, err = svc.Expand(ctx, ExpandParams{
		StartDate: day(t, "2024-01-10"),
		EventDays: 1,
		HallIDs:   []int64{7},
		SlotCodes: []domain.SlotCode{"night"},
	})
	assert.Equal(t, KindLookupFailed, KindOf(err))

	list, err := svc.List(ctx, repository.BookingFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestHallSchedule(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorCtx()

	p := baseParams(t, 1)
	p.PreDays, p.PostDays = 0, 0
	id, err := svc.Create(ctx, p)
	require.NoError(t, err)

	occs, err := svc.HallSchedule(ctx, 1, day(t, "2024-01-10"), day(t, "2024-01-10"))
	require.NoError(t, err)
	require.Len(t, occs, 1)
	assert.Equal(t, id, occs[0].BookingID)

	occs, err = svc.HallSchedule(ctx, 2, day(t, "2024-01-01"), day(t, "2024-01-31"))
	require.NoError(t, err)
	assert.Empty(t, occs)

	_, err = svc.HallSchedule(ctx, 1, day(t, "2024-01-10"), day(t, "2024-01-09"))
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = svc.HallSchedule(ctx, 42, day(t, "2024-01-10"), day(t, "2024-01-10"))
	assert.Equal(t, KindLookupFailed, KindOf(err))
}

func TestListFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorCtx()

	a, err := svc.Create(ctx, baseParams(t, 1))
	require.NoError(t, err)

	p := baseParams(t, 2)
	p.StartDate = day(t, "2024-02-10")
	b, err := svc.Create(ctx, p)
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(ctx, b))

	list, err := svc.List(ctx, repository.BookingFilter{HallID: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a, list[0].ID)

	list, err = svc.List(ctx, repository.BookingFilter{Status: domain.StatusCancelled})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b, list[0].ID)

	// 2024-01-09 is a prep day of a.
	list, err = svc.List(ctx, repository.BookingFilter{From: day(t, "2024-01-01"), To: day(t, "2024-01-09")})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a, list[0].ID)

	_, err = svc.List(ctx, repository.BookingFilter{Status: "gone"})
	assert.Equal(t, KindValidation, KindOf(err))
}
