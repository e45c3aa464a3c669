package schedule

import (
	"fmt"
	"sort"

	"github.com/kirinyoku/hallbook/internal/domain"
)

// Catalog is the immutable set of time slots halls can be booked into,
// ordered by start time and then by id.
type Catalog struct {
	slots  []domain.TimeSlot
	byCode map[domain.SlotCode]int
	byID   map[int64]int
}

func NewCatalog(slots []domain.TimeSlot) (*Catalog, error) {
	const op = "schedule.NewCatalog"

	sorted := make([]domain.TimeSlot, len(slots))
	copy(sorted, slots)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Start.Seconds(), sorted[j].Start.Seconds()
		if a != b {
			return a < b
		}
		return sorted[i].ID < sorted[j].ID
	})

	c := &Catalog{
		slots:  sorted,
		byCode: make(map[domain.SlotCode]int, len(sorted)),
		byID:   make(map[int64]int, len(sorted)),
	}
	for i, s := range sorted {
		if s.Code == "" {
			return nil, fmt.Errorf("%s: slot %d has empty code", op, s.ID)
		}
		if _, dup := c.byCode[s.Code]; dup {
			return nil, fmt.Errorf("%s: duplicate slot code %q", op, s.Code)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate slot id %d", op, s.ID)
		}
		c.byCode[s.Code] = i
		c.byID[s.ID] = i
	}

	return c, nil
}

// Slots returns the catalog in order. The returned slice is a copy.
func (c *Catalog) Slots() []domain.TimeSlot {
	out := make([]domain.TimeSlot, len(c.slots))
	copy(out, c.slots)
	return out
}

func (c *Catalog) Len() int { return len(c.slots) }

func (c *Catalog) ByCode(code domain.SlotCode) (domain.TimeSlot, bool) {
	i, ok := c.byCode[code]
	if !ok {
		return domain.TimeSlot{}, false
	}
	return c.slots[i], true
}

func (c *Catalog) ByID(id int64) (domain.TimeSlot, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.TimeSlot{}, false
	}
	return c.slots[i], true
}

// Select returns the catalog slots whose codes appear in codes, in catalog
// order. Unknown codes are skipped.
func (c *Catalog) Select(codes []domain.SlotCode) []domain.TimeSlot {
	want := make(map[domain.SlotCode]struct{}, len(codes))
	for _, code := range codes {
		want[code] = struct{}{}
	}

	var out []domain.TimeSlot
	for _, s := range c.slots {
		if _, ok := want[s.Code]; ok {
			out = append(out, s)
		}
	}
	return out
}
