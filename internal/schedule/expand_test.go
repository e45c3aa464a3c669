package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/hallbook/internal/domain"
)

func tod(h, m int) domain.TimeOfDay { return domain.TimeOfDay{Hour: h, Minute: m} }

func date(y int, m time.Month, d int) domain.Date { return domain.Date{Year: y, Month: m, Day: d} }

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog([]domain.TimeSlot{
		{ID: 3, Code: "night", Start: tod(18, 0), End: tod(22, 0)},
		{ID: 1, Code: "morning", Start: tod(8, 0), End: tod(12, 0)},
		{ID: 2, Code: "afternoon", Start: tod(13, 0), End: tod(17, 0)},
	})
	require.NoError(t, err)
	return c
}

func TestCatalogOrdersByStart(t *testing.T) {
	c := testCatalog(t)

	var codes []domain.SlotCode
	for _, s := range c.Slots() {
		codes = append(codes, s.Code)
	}
	assert.Equal(t, []domain.SlotCode{"morning", "afternoon", "night"}, codes)

	s, ok := c.ByCode("night")
	require.True(t, ok)
	assert.Equal(t, int64(3), s.ID)

	_, ok = c.ByID(42)
	assert.False(t, ok)
}

func TestCatalogRejectsDuplicateCodes(t *testing.T) {
	_, err := NewCatalog([]domain.TimeSlot{
		{ID: 1, Code: "morning", Start: tod(8, 0), End: tod(12, 0)},
		{ID: 2, Code: "morning", Start: tod(9, 0), End: tod(11, 0)},
	})
	require.Error(t, err)
}

func TestExpandPrepDayUsesWholeCatalog(t *testing.T) {
	e := NewExpander(testCatalog(t), time.UTC)

	occs, err := e.Expand(Params{
		StartDate: date(2024, time.January, 10),
		EventDays: 1,
		PreDays:   1,
		HallIDs:   []int64{1},
		SlotCodes: []domain.SlotCode{"night"},
	})
	require.NoError(t, err)
	require.Len(t, occs, 4)

	for _, o := range occs[:3] {
		assert.Equal(t, domain.KindPrep, o.Kind)
		assert.Equal(t, date(2024, time.January, 9), o.Day)
	}
	assert.Equal(t, []domain.SlotCode{"morning", "afternoon", "night"},
		[]domain.SlotCode{occs[0].SlotCode, occs[1].SlotCode, occs[2].SlotCode})

	ev := occs[3]
	assert.Equal(t, domain.KindEvent, ev.Kind)
	assert.Equal(t, domain.SlotCode("night"), ev.SlotCode)
	assert.Equal(t, time.Date(2024, time.January, 10, 18, 0, 0, 0, time.UTC), ev.StartsAt)
	assert.Equal(t, time.Date(2024, time.January, 10, 22, 0, 0, 0, time.UTC), ev.EndsAt)
}

func TestExpandMidnightRollover(t *testing.T) {
	c, err := NewCatalog([]domain.TimeSlot{
		{ID: 9, Code: "late", Start: tod(23, 0), End: tod(1, 0)},
	})
	require.NoError(t, err)

	occs, err := NewExpander(c, time.UTC).Expand(Params{
		StartDate: date(2024, time.February, 28),
		EventDays: 2,
		HallIDs:   []int64{5},
		SlotCodes: []domain.SlotCode{"late"},
	})
	require.NoError(t, err)
	require.Len(t, occs, 2)

	assert.Equal(t, time.Date(2024, time.February, 28, 23, 0, 0, 0, time.UTC), occs[0].StartsAt)
	assert.Equal(t, time.Date(2024, time.February, 29, 1, 0, 0, 0, time.UTC), occs[0].EndsAt)
	assert.Equal(t, time.Date(2024, time.February, 29, 23, 0, 0, 0, time.UTC), occs[1].StartsAt)
	assert.Equal(t, time.Date(2024, time.March, 1, 1, 0, 0, 0, time.UTC), occs[1].EndsAt)
}

func TestExpandNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)

	occs, err := NewExpander(testCatalog(t), loc).Expand(Params{
		StartDate: date(2024, time.January, 10),
		EventDays: 1,
		HallIDs:   []int64{1},
		SlotCodes: []domain.SlotCode{"morning"},
	})
	require.NoError(t, err)
	require.Len(t, occs, 1)

	assert.Equal(t, time.UTC, occs[0].StartsAt.Location())
	assert.Equal(t, time.Date(2024, time.January, 10, 5, 0, 0, 0, time.UTC), occs[0].StartsAt)
	assert.Equal(t, time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC), occs[0].EndsAt)
}

func TestExpandCountFormula(t *testing.T) {
	e := NewExpander(testCatalog(t), time.UTC)
	catalogSize := e.Catalog().Len()

	cases := []Params{
		{EventDays: 1, HallIDs: []int64{1}, SlotCodes: []domain.SlotCode{"morning"}},
		{EventDays: 3, PreDays: 2, PostDays: 1, HallIDs: []int64{1, 2}, SlotCodes: []domain.SlotCode{"morning", "night"}},
		{EventDays: 30, PreDays: 10, PostDays: 10, HallIDs: []int64{1, 2, 3}, SlotCodes: []domain.SlotCode{"afternoon"}},
		{EventDays: 2, PostDays: 3, HallIDs: []int64{7}, SlotCodes: []domain.SlotCode{"morning", "afternoon", "night"}},
	}

	for _, p := range cases {
		p.StartDate = date(2024, time.December, 30)

		occs, err := e.Expand(p)
		require.NoError(t, err)

		want := len(p.HallIDs) * (p.PreDays*catalogSize + p.EventDays*len(p.SlotCodes) + p.PostDays*catalogSize)
		assert.Len(t, occs, want)

		for _, o := range occs {
			assert.True(t, o.EndsAt.After(o.StartsAt), "occurrence %+v must end after it starts", o)
		}
	}
}

func TestExpandIsDeterministic(t *testing.T) {
	e := NewExpander(testCatalog(t), time.UTC)
	p := Params{
		StartDate: date(2024, time.March, 1),
		EventDays: 2,
		PreDays:   1,
		PostDays:  1,
		HallIDs:   []int64{2, 1},
		SlotCodes: []domain.SlotCode{"night", "morning"},
	}

	a, err := e.Expand(p)
	require.NoError(t, err)
	b, err := e.Expand(p)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestExpandKinds(t *testing.T) {
	e := NewExpander(testCatalog(t), time.UTC)

	occs, err := e.Expand(Params{
		StartDate: date(2024, time.March, 10),
		EventDays: 2,
		PreDays:   1,
		PostDays:  2,
		HallIDs:   []int64{1},
		SlotCodes: []domain.SlotCode{"morning"},
	})
	require.NoError(t, err)

	kinds := map[domain.Date]domain.OccurrenceKind{}
	for _, o := range occs {
		kinds[o.Day] = o.Kind
	}
	assert.Equal(t, map[domain.Date]domain.OccurrenceKind{
		date(2024, time.March, 9):  domain.KindPrep,
		date(2024, time.March, 10): domain.KindEvent,
		date(2024, time.March, 11): domain.KindEvent,
		date(2024, time.March, 12): domain.KindCleanup,
		date(2024, time.March, 13): domain.KindCleanup,
	}, kinds)
}

func TestExpandIgnoresUnknownCodes(t *testing.T) {
	e := NewExpander(testCatalog(t), time.UTC)

	occs, err := e.Expand(Params{
		StartDate: date(2024, time.March, 10),
		EventDays: 1,
		HallIDs:   []int64{1},
		SlotCodes: []domain.SlotCode{"dawn", "night"},
	})
	require.NoError(t, err)
	require.Len(t, occs, 1)
	assert.Equal(t, domain.SlotCode("night"), occs[0].SlotCode)

	_, err = e.Expand(Params{
		StartDate: date(2024, time.March, 10),
		EventDays: 1,
		HallIDs:   []int64{1},
		SlotCodes: []domain.SlotCode{"dawn"},
	})
	assert.True(t, errors.Is(err, ErrNoApplicableSlots))
}

func TestExpandValidation(t *testing.T) {
	e := NewExpander(testCatalog(t), time.UTC)
	base := Params{
		StartDate: date(2024, time.March, 10),
		EventDays: 1,
		HallIDs:   []int64{1},
		SlotCodes: []domain.SlotCode{"night"},
	}

	cases := map[string]struct {
		mutate func(*Params)
		want   error
	}{
		"no start":      {func(p *Params) { p.StartDate = domain.Date{} }, ErrStartDate},
		"zero days":     {func(p *Params) { p.EventDays = 0 }, ErrEventDays},
		"too many days": {func(p *Params) { p.EventDays = domain.MaxEventDays + 1 }, ErrEventDays},
		"negative pre":  {func(p *Params) { p.PreDays = -1 }, ErrBufferDays},
		"too much post": {func(p *Params) { p.PostDays = domain.MaxBufferDays + 1 }, ErrBufferDays},
		"no halls":      {func(p *Params) { p.HallIDs = nil }, ErrNoHalls},
		"no slots":      {func(p *Params) { p.SlotCodes = nil }, ErrNoSlots},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			p := base
			tc.mutate(&p)
			_, err := e.Expand(p)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestExpandDedupesHalls(t *testing.T) {
	e := NewExpander(testCatalog(t), time.UTC)

	occs, err := e.Expand(Params{
		StartDate: date(2024, time.March, 10),
		EventDays: 1,
		HallIDs:   []int64{4, 4, 4},
		SlotCodes: []domain.SlotCode{"night"},
	})
	require.NoError(t, err)
	assert.Len(t, occs, 1)
}
