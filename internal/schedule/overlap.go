package schedule

import (
	"time"

	"github.com/kirinyoku/hallbook/internal/domain"
)

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Conflict pairs a candidate occurrence with an existing one it collides with.
type Conflict struct {
	Candidate domain.Occurrence `json:"candidate"`
	Existing  domain.Occurrence `json:"existing"`
}

// FindConflicts returns every pair of candidate and existing occurrences on
// the same hall, from different bookings, whose windows overlap. Callers pass
// only occurrences of active bookings in existing.
func FindConflicts(candidates, existing []domain.Occurrence) []Conflict {
	byHall := make(map[int64][]domain.Occurrence)
	for _, o := range existing {
		byHall[o.HallID] = append(byHall[o.HallID], o)
	}

	var out []Conflict
	for _, c := range candidates {
		for _, o := range byHall[c.HallID] {
			if c.BookingID != 0 && c.BookingID == o.BookingID {
				continue
			}
			if Overlaps(c.StartsAt, c.EndsAt, o.StartsAt, o.EndsAt) {
				out = append(out, Conflict{Candidate: c, Existing: o})
			}
		}
	}
	return out
}

// Span returns the earliest start and latest end across occs.
func Span(occs []domain.Occurrence) (time.Time, time.Time) {
	var from, to time.Time
	for i, o := range occs {
		if i == 0 || o.StartsAt.Before(from) {
			from = o.StartsAt
		}
		if i == 0 || o.EndsAt.After(to) {
			to = o.EndsAt
		}
	}
	return from, to
}
