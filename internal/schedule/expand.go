package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/hallbook/internal/domain"
)

var (
	ErrNoHalls           = errors.New("at least one hall is required")
	ErrNoSlots           = errors.New("at least one event slot is required")
	ErrNoApplicableSlots = errors.New("no applicable slots")
	ErrEventDays         = fmt.Errorf("event_days must be between %d and %d", domain.MinEventDays, domain.MaxEventDays)
	ErrBufferDays        = fmt.Errorf("pre_days and post_days must be between 0 and %d", domain.MaxBufferDays)
	ErrStartDate         = errors.New("event_start_date is required")
)

// Params are the scheduling inputs of one booking.
type Params struct {
	StartDate domain.Date
	EventDays int
	PreDays   int
	PostDays  int
	HallIDs   []int64
	SlotCodes []domain.SlotCode
}

// Validate checks bounds and selections without consulting the catalog.
func (p Params) Validate() error {
	switch {
	case p.StartDate.IsZero():
		return ErrStartDate
	case p.EventDays < domain.MinEventDays || p.EventDays > domain.MaxEventDays:
		return ErrEventDays
	case p.PreDays < 0 || p.PreDays > domain.MaxBufferDays,
		p.PostDays < 0 || p.PostDays > domain.MaxBufferDays:
		return ErrBufferDays
	case len(p.HallIDs) == 0:
		return ErrNoHalls
	case len(p.SlotCodes) == 0:
		return ErrNoSlots
	}
	return nil
}

// TotalDays is the number of consecutive calendar days the booking covers.
func (p Params) TotalDays() int {
	return p.PreDays + p.EventDays + p.PostDays
}

// FirstDay is the first calendar day occupied, buffers included.
func (p Params) FirstDay() domain.Date {
	return p.StartDate.AddDays(-p.PreDays)
}

// Expander turns booking parameters into concrete occurrences, localized in
// a single reference location.
type Expander struct {
	catalog *Catalog
	loc     *time.Location
}

func NewExpander(catalog *Catalog, loc *time.Location) *Expander {
	if loc == nil {
		loc = time.UTC
	}
	return &Expander{catalog: catalog, loc: loc}
}

func (e *Expander) Catalog() *Catalog { return e.catalog }

func (e *Expander) Location() *time.Location { return e.loc }

// Expand returns every (hall, slot, day) occurrence of p with UTC bounds.
// Event days use only the selected slots; prep and cleanup days use the
// whole catalog. Output is ordered by day, then hall, then catalog slot.
func (e *Expander) Expand(p Params) ([]domain.Occurrence, error) {
	const op = "schedule.Expander.Expand"

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	eventSlots := e.catalog.Select(p.SlotCodes)
	if len(eventSlots) == 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrNoApplicableSlots)
	}
	allSlots := e.catalog.slots

	halls := dedupe(p.HallIDs)
	first := p.FirstDay()
	total := p.TotalDays()

	out := make([]domain.Occurrence, 0, len(halls)*(p.EventDays*len(eventSlots)+(p.PreDays+p.PostDays)*len(allSlots)))

	for i := 0; i < total; i++ {
		day := first.AddDays(i)

		kind := domain.KindEvent
		slots := eventSlots
		switch {
		case i < p.PreDays:
			kind, slots = domain.KindPrep, allSlots
		case i >= p.PreDays+p.EventDays:
			kind, slots = domain.KindCleanup, allSlots
		}

		for _, hallID := range halls {
			for _, s := range slots {
				start, end := e.Window(day, s)
				out = append(out, domain.Occurrence{
					HallID:   hallID,
					SlotID:   s.ID,
					SlotCode: s.Code,
					Kind:     kind,
					Day:      day,
					StartsAt: start,
					EndsAt:   end,
				})
			}
		}
	}

	return out, nil
}

// Window returns the UTC bounds of slot s on day. A slot ending at or before
// its start time ends on the next calendar day.
func (e *Expander) Window(day domain.Date, s domain.TimeSlot) (time.Time, time.Time) {
	start := day.In(e.loc, s.Start)
	end := day.In(e.loc, s.End)
	if !end.After(start) {
		end = day.AddDays(1).In(e.loc, s.End)
	}
	return start.UTC(), end.UTC()
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
