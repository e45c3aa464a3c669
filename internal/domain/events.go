package domain

import "time"

type BookingAction string

const (
	ActionCreated   BookingAction = "created"
	ActionUpdated   BookingAction = "updated"
	ActionCancelled BookingAction = "cancelled"
	ActionDeleted   BookingAction = "deleted"
)

// BookingEvent is published after a booking mutation commits.
type BookingEvent struct {
	Action    BookingAction `json:"action"`
	BookingID int64         `json:"booking_id"`
	Status    BookingStatus `json:"status,omitempty"`
	HallIDs   []int64       `json:"hall_ids"`
	ActorID   int64         `json:"actor_id,omitempty"`
	At        time.Time     `json:"at"`
}

// ReferenceData is the read-only catalog of halls and time slots.
type ReferenceData struct {
	Halls []Hall     `json:"halls"`
	Slots []TimeSlot `json:"slots"`
}
