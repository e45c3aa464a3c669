package domain

import (
	"fmt"
	"time"
)

// System-wide scheduling bounds. Every entry point validates against these.
const (
	MinEventDays  = 1
	MaxEventDays  = 30
	MaxBufferDays = 10
)

type BookingStatus string

const (
	StatusHold      BookingStatus = "hold"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusHold, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether a booking in status s may move to next.
// Staying in the same status is always allowed.
func (s BookingStatus) CanTransition(next BookingStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusHold:
		return next == StatusConfirmed || next == StatusCancelled
	case StatusConfirmed:
		return next == StatusCancelled
	}
	return false
}

type BookingType string

const (
	TypeDeath   BookingType = "death"
	TypeMawlid  BookingType = "mawlid"
	TypeFatiha  BookingType = "fatiha"
	TypeWedding BookingType = "wedding"
	TypeSpecial BookingType = "special"
)

func (t BookingType) Valid() bool {
	switch t {
	case TypeDeath, TypeMawlid, TypeFatiha, TypeWedding, TypeSpecial:
		return true
	}
	return false
}

type OccurrenceKind string

const (
	KindPrep    OccurrenceKind = "prep"
	KindEvent   OccurrenceKind = "event"
	KindCleanup OccurrenceKind = "cleanup"
)

type SlotCode string

type Hall struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type TimeSlot struct {
	ID    int64     `json:"id"`
	Code  SlotCode  `json:"code"`
	Start TimeOfDay `json:"start_time"`
	End   TimeOfDay `json:"end_time"`
}

// CrossesMidnight reports whether the slot ends on the following calendar day.
func (s TimeSlot) CrossesMidnight() bool {
	return s.End.Seconds() <= s.Start.Seconds()
}

type Booking struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	ClientName  *string       `json:"client_name,omitempty"`
	ClientPhone *string       `json:"client_phone,omitempty"`
	Notes       *string       `json:"notes,omitempty"`
	Status      BookingStatus `json:"status"`
	Type        BookingType   `json:"booking_type"`
	Amount      *int64        `json:"amount,omitempty"`
	Currency    *string       `json:"currency,omitempty"`
	StartDate   Date          `json:"event_start_date"`
	EventDays   int           `json:"event_days"`
	PreDays     int           `json:"pre_days"`
	PostDays    int           `json:"post_days"`
	HallIDs     []int64       `json:"hall_ids"`
	SlotCodes   []SlotCode    `json:"event_slot_codes"`
	CreatedBy   int64         `json:"created_by"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Active reports whether the booking's occurrences take part in conflict checks.
func (b *Booking) Active() bool {
	return b.Status != StatusCancelled
}

type Occurrence struct {
	ID        int64          `json:"id,omitempty"`
	BookingID int64          `json:"booking_id,omitempty"`
	HallID    int64          `json:"hall_id"`
	SlotID    int64          `json:"slot_id"`
	SlotCode  SlotCode       `json:"slot_code"`
	Kind      OccurrenceKind `json:"kind"`
	Day       Date           `json:"day"`
	StartsAt  time.Time      `json:"starts_at"`
	EndsAt    time.Time      `json:"ends_at"`
}

// TimeOfDay is a wall-clock time without date or zone.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
}

func (t TimeOfDay) Seconds() int {
	return t.Hour*3600 + t.Minute*60 + t.Second
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
