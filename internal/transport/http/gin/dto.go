package httpgin

import (
	"github.com/kirinyoku/hallbook/internal/domain"
	"github.com/kirinyoku/hallbook/internal/service/booking"
)

type CreateBookingRequest struct {
	Title          string            `json:"title" binding:"required"`
	ClientName     *string           `json:"client_name"`
	ClientPhone    *string           `json:"client_phone"`
	Notes          *string           `json:"notes"`
	Status         string            `json:"status"`
	BookingType    string            `json:"booking_type" binding:"required"`
	Amount         *int64            `json:"amount"`
	Currency       *string           `json:"currency"`
	EventStartDate domain.Date       `json:"event_start_date"`
	EventDays      int               `json:"event_days"`
	PreDays        int               `json:"pre_days"`
	PostDays       int               `json:"post_days"`
	HallIDs        []int64           `json:"hall_ids" binding:"required,min=1"`
	EventSlotCodes []domain.SlotCode `json:"event_slot_codes" binding:"required,min=1"`
}

func (r CreateBookingRequest) params() booking.CreateParams {
	return booking.CreateParams{
		Title:       r.Title,
		ClientName:  r.ClientName,
		ClientPhone: r.ClientPhone,
		Notes:       r.Notes,
		Status:      domain.BookingStatus(r.Status),
		Type:        domain.BookingType(r.BookingType),
		Amount:      r.Amount,
		Currency:    r.Currency,
		StartDate:   r.EventStartDate,
		EventDays:   r.EventDays,
		PreDays:     r.PreDays,
		PostDays:    r.PostDays,
		HallIDs:     r.HallIDs,
		SlotCodes:   r.EventSlotCodes,
	}
}

// UpdateBookingRequest is a partial update: omitted fields keep their value.
type UpdateBookingRequest struct {
	Title          *string               `json:"title"`
	ClientName     *string               `json:"client_name"`
	ClientPhone    *string               `json:"client_phone"`
	Notes          *string               `json:"notes"`
	Status         *domain.BookingStatus `json:"status"`
	BookingType    *domain.BookingType   `json:"booking_type"`
	Amount         *int64                `json:"amount"`
	Currency       *string               `json:"currency"`
	EventStartDate *domain.Date          `json:"event_start_date"`
	EventDays      *int                  `json:"event_days"`
	PreDays        *int                  `json:"pre_days"`
	PostDays       *int                  `json:"post_days"`
	HallIDs        *[]int64              `json:"hall_ids"`
	EventSlotCodes *[]domain.SlotCode    `json:"event_slot_codes"`
}

func (r UpdateBookingRequest) params() booking.UpdateParams {
	return booking.UpdateParams{
		Title:       r.Title,
		ClientName:  r.ClientName,
		ClientPhone: r.ClientPhone,
		Notes:       r.Notes,
		Status:      r.Status,
		Type:        r.BookingType,
		Amount:      r.Amount,
		Currency:    r.Currency,
		StartDate:   r.EventStartDate,
		EventDays:   r.EventDays,
		PreDays:     r.PreDays,
		PostDays:    r.PostDays,
		HallIDs:     r.HallIDs,
		SlotCodes:   r.EventSlotCodes,
	}
}

type PreviewRequest struct {
	EventStartDate domain.Date       `json:"event_start_date"`
	EventDays      int               `json:"event_days"`
	PreDays        int               `json:"pre_days"`
	PostDays       int               `json:"post_days"`
	HallIDs        []int64           `json:"hall_ids" binding:"required,min=1"`
	EventSlotCodes []domain.SlotCode `json:"event_slot_codes" binding:"required,min=1"`
	// ExcludeBookingID ignores an existing booking's own occurrences when
	// previewing its reschedule.
	ExcludeBookingID int64 `json:"exclude_booking_id"`
}

func (r PreviewRequest) params() booking.ExpandParams {
	return booking.ExpandParams{
		StartDate: r.EventStartDate,
		EventDays: r.EventDays,
		PreDays:   r.PreDays,
		PostDays:  r.PostDays,
		HallIDs:   r.HallIDs,
		SlotCodes: r.EventSlotCodes,
	}
}

type PreviewResponse struct {
	Occurrences []domain.Occurrence `json:"occurrences"`
	Conflicts   []domain.Occurrence `json:"conflicts"`
}

type CreateBookingResponse struct {
	BookingID int64 `json:"booking_id"`
}

type ErrorResponse struct {
	Error     string              `json:"error"`
	Kind      booking.Kind        `json:"kind,omitempty"`
	Conflicts []domain.Occurrence `json:"conflicts,omitempty"`
}
